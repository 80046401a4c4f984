package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFilename), []byte(content), 0o644))
}

func boolPtr(b bool) *bool { return &b }

func TestLoadsConfigFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `exclude = ["testdata/**"]`)

	cfg, configDir, err := FindAndLoad(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, []string{"testdata/**"}, cfg.Exclude)
	assert.Equal(t, dir, configDir)
}

func TestWalksUpToFindConfig(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "a", "b", "c")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	writeConfig(t, dir, `exclude = ["vendor/**"]`)

	cfg, configDir, err := FindAndLoad(sub)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, []string{"vendor/**"}, cfg.Exclude)
	assert.Equal(t, dir, configDir)
}

func TestNoConfigReturnsNil(t *testing.T) {
	cfg, configDir, err := FindAndLoad(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, cfg)
	assert.Empty(t, configDir)
}

func TestEmptyConfigIsValid(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "")

	cfg, _, err := FindAndLoad(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Empty(t, cfg.Exclude)
	assert.Empty(t, cfg.Rewrite)
}

func TestRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "bogus = true")

	_, _, err := FindAndLoad(dir)
	require.Error(t, err)
}

func TestRejectsInvalidSchemasPattern(t *testing.T) {
	_, err := Parse([]byte("[schemas]\n\"[bad\" = \"https://example.com/s.json\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"[bad"`)
}

func TestLoadsRewriteRules(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[rewrite]
"http://localhost:8000/" = "//schemastore/src/"
`)

	cfg, _, err := FindAndLoad(dir)
	require.NoError(t, err)
	assert.Equal(t, "//schemastore/src/", cfg.Rewrite["http://localhost:8000/"])
}

func TestLoadsNoDefaultCatalog(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "no-default-catalog = true")

	cfg, _, err := FindAndLoad(dir)
	require.NoError(t, err)
	assert.True(t, cfg.NoDefaultCatalog)
}

func TestRootTrueStopsWalk(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "child")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	writeConfig(t, dir, `exclude = ["parent/**"]`)
	writeConfig(t, sub, "root = true\nexclude = [\"child/**\"]")

	cfg, _, err := FindAndLoad(sub)
	require.NoError(t, err)
	assert.Equal(t, []string{"child/**"}, cfg.Exclude)
}

func TestMergesParentWithoutRoot(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "child")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	writeConfig(t, dir, `
exclude = ["parent/**"]

[rewrite]
"http://parent/" = "//parent/"
`)
	writeConfig(t, sub, `
exclude = ["child/**"]

[rewrite]
"http://child/" = "//child/"
`)

	cfg, configDir, err := FindAndLoad(sub)
	require.NoError(t, err)
	assert.Equal(t, []string{"child/**", "parent/**"}, cfg.Exclude)
	assert.Equal(t, "//child/", cfg.Rewrite["http://child/"])
	assert.Equal(t, "//parent/", cfg.Rewrite["http://parent/"])
	assert.Equal(t, sub, configDir)
}

func TestChildRewriteWinsOnConflict(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "child")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	writeConfig(t, dir, `
[rewrite]
"http://example/" = "//parent-value/"
`)
	writeConfig(t, sub, `
[rewrite]
"http://example/" = "//child-value/"
`)

	cfg, _, err := FindAndLoad(sub)
	require.NoError(t, err)
	assert.Equal(t, "//child-value/", cfg.Rewrite["http://example/"])
}

func TestRegistriesMergeDeduplicated(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "child")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	writeConfig(t, dir, `registries = ["https://org/catalog.json", "https://shared/catalog.json"]`)
	writeConfig(t, sub, `registries = ["https://project/catalog.json", "https://shared/catalog.json"]`)

	cfg, _, err := FindAndLoad(sub)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://project/catalog.json",
		"https://shared/catalog.json",
		"https://org/catalog.json",
	}, cfg.Registries)
}

func TestApplyRewrites(t *testing.T) {
	t.Run("matching prefix", func(t *testing.T) {
		rules := map[string]string{"http://localhost:8000/": "//schemastore/src/"}
		got := ApplyRewrites("http://localhost:8000/schemas/foo.json", rules)
		assert.Equal(t, "//schemastore/src/schemas/foo.json", got)
	})

	t.Run("no match", func(t *testing.T) {
		rules := map[string]string{"http://localhost:8000/": "//schemastore/src/"}
		got := ApplyRewrites("https://example.com/schema.json", rules)
		assert.Equal(t, "https://example.com/schema.json", got)
	})

	t.Run("longest prefix wins", func(t *testing.T) {
		rules := map[string]string{
			"http://localhost/":        "//short/",
			"http://localhost/api/v2/": "//long/",
		}
		got := ApplyRewrites("http://localhost/api/v2/schema.json", rules)
		assert.Equal(t, "//long/schema.json", got)
	})
}

func TestResolveDoubleSlash(t *testing.T) {
	t.Run("double slash resolves against config dir", func(t *testing.T) {
		got := ResolveDoubleSlash("//schemas/foo.json", "/home/user/project")
		assert.Equal(t, filepath.Join("/home/user/project", "schemas", "foo.json"), got)
	})

	t.Run("plain url unchanged", func(t *testing.T) {
		got := ResolveDoubleSlash("https://example.com/s.json", "/home/user/project")
		assert.Equal(t, "https://example.com/s.json", got)
	})

	t.Run("relative path unchanged", func(t *testing.T) {
		got := ResolveDoubleSlash("./schemas/foo.json", "/home/user/project")
		assert.Equal(t, "./schemas/foo.json", got)
	})
}

func TestParsesOverrideBlocks(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[[override]]
files = ["schemas/vector.json"]
validate_formats = false

[[override]]
files = ["schemas/other.json"]
validate_formats = true
`)

	cfg, _, err := FindAndLoad(dir)
	require.NoError(t, err)
	require.Len(t, cfg.Overrides, 2)
	assert.Equal(t, []string{"schemas/vector.json"}, cfg.Overrides[0].Files)
	require.NotNil(t, cfg.Overrides[0].ValidateFormats)
	assert.False(t, *cfg.Overrides[0].ValidateFormats)
	require.NotNil(t, cfg.Overrides[1].ValidateFormats)
	assert.True(t, *cfg.Overrides[1].ValidateFormats)
}

func TestOverrideValidateFormatsDefaultsToNil(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[[override]]
files = ["schemas/vector.json"]
`)

	cfg, _, err := FindAndLoad(dir)
	require.NoError(t, err)
	require.Len(t, cfg.Overrides, 1)
	assert.Nil(t, cfg.Overrides[0].ValidateFormats)
}

func TestShouldValidateFormats(t *testing.T) {
	t.Run("default true", func(t *testing.T) {
		cfg := &Config{}
		assert.True(t, cfg.ShouldValidateFormats("anything.json", nil))
	})

	t.Run("matching file override", func(t *testing.T) {
		cfg := &Config{Overrides: []Override{
			{Files: []string{"schemas/vector.json"}, ValidateFormats: boolPtr(false)},
		}}
		assert.False(t, cfg.ShouldValidateFormats("schemas/vector.json", nil))
		assert.True(t, cfg.ShouldValidateFormats("schemas/other.json", nil))
	})

	t.Run("matching schema override", func(t *testing.T) {
		cfg := &Config{Overrides: []Override{
			{Schemas: []string{"https://json.schemastore.org/vector.json"}, ValidateFormats: boolPtr(false)},
		}}
		assert.False(t, cfg.ShouldValidateFormats("some/file.toml", []string{"https://json.schemastore.org/vector.json"}))
		assert.True(t, cfg.ShouldValidateFormats("some/file.toml", []string{"https://json.schemastore.org/other.json"}))
	})

	t.Run("schema glob", func(t *testing.T) {
		cfg := &Config{Overrides: []Override{
			{Schemas: []string{"https://json.schemastore.org/*.json"}, ValidateFormats: boolPtr(false)},
		}}
		assert.False(t, cfg.ShouldValidateFormats("any.toml", []string{"https://json.schemastore.org/vector.json"}))
	})

	t.Run("matches resolved uri", func(t *testing.T) {
		cfg := &Config{Overrides: []Override{
			{Schemas: []string{"/local/schemas/vector.json"}, ValidateFormats: boolPtr(false)},
		}}
		uris := []string{"https://json.schemastore.org/vector.json", "/local/schemas/vector.json"}
		assert.False(t, cfg.ShouldValidateFormats("any.toml", uris))
	})

	t.Run("file glob pattern", func(t *testing.T) {
		cfg := &Config{Overrides: []Override{
			{Files: []string{"schemas/**/*.json"}, ValidateFormats: boolPtr(false)},
		}}
		assert.False(t, cfg.ShouldValidateFormats("schemas/deep/nested.json", nil))
		assert.True(t, cfg.ShouldValidateFormats("other/file.json", nil))
	})

	t.Run("strips dot slash", func(t *testing.T) {
		cfg := &Config{Overrides: []Override{
			{Files: []string{"schemas/vector.json"}, ValidateFormats: boolPtr(false)},
		}}
		assert.False(t, cfg.ShouldValidateFormats("./schemas/vector.json", nil))
	})

	t.Run("first match wins", func(t *testing.T) {
		cfg := &Config{Overrides: []Override{
			{Files: []string{"schemas/vector.json"}, ValidateFormats: boolPtr(false)},
			{Files: []string{"schemas/**"}, ValidateFormats: boolPtr(true)},
		}}
		assert.False(t, cfg.ShouldValidateFormats("schemas/vector.json", nil))
		assert.True(t, cfg.ShouldValidateFormats("schemas/other.json", nil))
	})

	t.Run("override without opinion falls through", func(t *testing.T) {
		cfg := &Config{Overrides: []Override{
			{Files: []string{"schemas/vector.json"}},
			{Files: []string{"schemas/**"}, ValidateFormats: boolPtr(false)},
		}}
		assert.False(t, cfg.ShouldValidateFormats("schemas/vector.json", nil))
	})
}

func TestMergeOverridesChildFirst(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "child")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	writeConfig(t, dir, `
[[override]]
files = ["schemas/**"]
validate_formats = true
`)
	writeConfig(t, sub, `
[[override]]
files = ["schemas/vector.json"]
validate_formats = false
`)

	cfg, _, err := FindAndLoad(sub)
	require.NoError(t, err)
	require.Len(t, cfg.Overrides, 2)
	assert.Equal(t, []string{"schemas/vector.json"}, cfg.Overrides[0].Files)
	assert.False(t, *cfg.Overrides[0].ValidateFormats)
	assert.Equal(t, []string{"schemas/**"}, cfg.Overrides[1].Files)
	assert.True(t, *cfg.Overrides[1].ValidateFormats)
}

func TestFindSchemaMapping(t *testing.T) {
	t.Run("path match", func(t *testing.T) {
		cfg := &Config{Schemas: map[string]string{
			"config/*.yaml": "https://example.com/app.json",
		}}
		url, ok := cfg.FindSchemaMapping("config/app.yaml", "app.yaml")
		require.True(t, ok)
		assert.Equal(t, "https://example.com/app.json", url)
	})

	t.Run("filename match", func(t *testing.T) {
		cfg := &Config{Schemas: map[string]string{
			"app.json": "https://example.com/app.json",
		}}
		url, ok := cfg.FindSchemaMapping("nested/dir/app.json", "app.json")
		require.True(t, ok)
		assert.Equal(t, "https://example.com/app.json", url)
	})

	t.Run("dot slash stripped", func(t *testing.T) {
		cfg := &Config{Schemas: map[string]string{
			"config/*.yaml": "https://example.com/app.json",
		}}
		_, ok := cfg.FindSchemaMapping("./config/app.yaml", "app.yaml")
		assert.True(t, ok)
	})

	t.Run("no match", func(t *testing.T) {
		cfg := &Config{Schemas: map[string]string{
			"config/*.yaml": "https://example.com/app.json",
		}}
		_, ok := cfg.FindSchemaMapping("other/app.toml", "app.toml")
		assert.False(t, ok)
	})

	t.Run("no mappings", func(t *testing.T) {
		cfg := &Config{}
		_, ok := cfg.FindSchemaMapping("config/app.yaml", "app.yaml")
		assert.False(t, ok)
	})

	t.Run("overlapping patterns resolve in sorted key order", func(t *testing.T) {
		cfg := &Config{Schemas: map[string]string{
			"ab*.json": "https://example.com/second.json",
			"a*.json":  "https://example.com/first.json",
		}}
		url, ok := cfg.FindSchemaMapping("ab.json", "ab.json")
		require.True(t, ok)
		assert.Equal(t, "https://example.com/first.json", url)
	})
}

func TestFindPath(t *testing.T) {
	t.Run("finds nearest config walking up", func(t *testing.T) {
		dir := t.TempDir()
		sub := filepath.Join(dir, "a", "b")
		require.NoError(t, os.MkdirAll(sub, 0o755))
		writeConfig(t, dir, "")

		path, ok := FindPath(sub)
		require.True(t, ok)
		assert.Equal(t, filepath.Join(dir, ConfigFilename), path)
	})

	t.Run("nearest wins over ancestors", func(t *testing.T) {
		dir := t.TempDir()
		sub := filepath.Join(dir, "nested")
		require.NoError(t, os.MkdirAll(sub, 0o755))
		writeConfig(t, dir, "")
		writeConfig(t, sub, "")

		path, ok := FindPath(sub)
		require.True(t, ok)
		assert.Equal(t, filepath.Join(sub, ConfigFilename), path)
	})

	t.Run("absent", func(t *testing.T) {
		_, ok := FindPath(t.TempDir())
		assert.False(t, ok)
	})

	t.Run("answers even when the file cannot parse", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "root = ")

		path, ok := FindPath(dir)
		require.True(t, ok)
		assert.Equal(t, filepath.Join(dir, ConfigFilename), path)
	})
}
