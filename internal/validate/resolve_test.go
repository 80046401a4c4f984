package validate

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemalint/schemalint/internal/catalog"
	"github.com/schemalint/schemalint/internal/config"
	"github.com/schemalint/schemalint/internal/parser"
)

func compiledCatalog(t *testing.T, entries ...catalog.Entry) *catalog.Compiled {
	t.Helper()
	compiled, err := catalog.Compile(&catalog.Catalog{Schemas: entries})
	require.NoError(t, err)
	return compiled
}

func TestResolverTiers(t *testing.T) {
	t.Run("modeline wins over config and catalogs", func(t *testing.T) {
		content := []byte("# yaml-language-server: $schema=https://example.com/mode.json\nname: x\n")
		value, err := parser.YAMLParser{}.Parse(content, "doc.yaml")
		require.NoError(t, err)

		cfg := &config.Config{Schemas: map[string]string{"*.yaml": "https://example.com/cfg.json"}}
		cat := compiledCatalog(t, catalog.Entry{
			Name: "Docs", URL: "https://example.com/cat.json", FileMatch: []string{"*.yaml"},
		})
		r := NewResolver(cfg, []TaggedCatalog{{Source: SourcePublic, Compiled: cat}})

		res, ok := r.Resolve("doc.yaml", "doc.yaml", content, value, parser.YAMLParser{})
		require.True(t, ok)
		assert.Equal(t, SourceModeline, res.Source)
		assert.Equal(t, "https://example.com/mode.json", res.URI)
		assert.True(t, res.InlineDoc)
	})

	t.Run("schema property is labeled inline", func(t *testing.T) {
		content := []byte(`{"$schema": "https://example.com/b.json", "name": "x"}`)
		value, err := parser.JSONCParser{}.Parse(content, "doc.json")
		require.NoError(t, err)

		r := NewResolver(nil, nil)
		res, ok := r.Resolve("doc.json", "doc.json", content, value, parser.JSONCParser{})
		require.True(t, ok)
		assert.Equal(t, SourceInline, res.Source)
		assert.Equal(t, "https://example.com/b.json", res.URI)
		assert.True(t, res.InlineDoc)
	})

	t.Run("config mapping beats catalogs", func(t *testing.T) {
		cfg := &config.Config{Schemas: map[string]string{"*.yaml": "https://example.com/cfg.json"}}
		cat := compiledCatalog(t, catalog.Entry{
			Name: "Docs", URL: "https://example.com/cat.json", FileMatch: []string{"*.yaml"},
		})
		r := NewResolver(cfg, []TaggedCatalog{{Source: SourcePublic, Compiled: cat}})

		res, ok := r.Resolve("doc.yaml", "doc.yaml", []byte("name: x\n"), map[string]any{"name": "x"}, parser.YAMLParser{})
		require.True(t, ok)
		assert.Equal(t, SourceConfig, res.Source)
		assert.Equal(t, "https://example.com/cfg.json", res.URI)
		assert.False(t, res.InlineDoc)
	})

	t.Run("catalog order is priority order", func(t *testing.T) {
		supplementary := compiledCatalog(t, catalog.Entry{
			Name: "Supp", URL: "https://example.com/supp.json", FileMatch: []string{"*.yaml"},
		})
		public := compiledCatalog(t, catalog.Entry{
			Name: "Pub", URL: "https://example.com/pub.json", FileMatch: []string{"*.yaml"},
		})
		r := NewResolver(nil, []TaggedCatalog{
			{Source: SourceSupplementary, Compiled: supplementary},
			{Source: SourcePublic, Compiled: public},
		})

		res, ok := r.Resolve("doc.yaml", "doc.yaml", []byte("name: x\n"), map[string]any{"name": "x"}, parser.YAMLParser{})
		require.True(t, ok)
		assert.Equal(t, SourceSupplementary, res.Source)
		assert.Equal(t, "https://example.com/supp.json", res.URI)
		assert.Equal(t, "*.yaml", res.Pattern)
		assert.Equal(t, "Supp", res.EntryName)
	})

	t.Run("no tier matches", func(t *testing.T) {
		r := NewResolver(nil, nil)
		_, ok := r.Resolve("doc.yaml", "doc.yaml", []byte("name: x\n"), map[string]any{"name": "x"}, parser.YAMLParser{})
		assert.False(t, ok)
	})

	t.Run("nil parser reads the schema property", func(t *testing.T) {
		r := NewResolver(nil, nil)
		value := map[string]any{"$schema": "https://example.com/line.json"}
		res, ok := r.Resolve("data.jsonl", "data.jsonl", nil, value, nil)
		require.True(t, ok)
		assert.Equal(t, SourceInline, res.Source)
		assert.Equal(t, "https://example.com/line.json", res.URI)
	})

	t.Run("nil parser falls through to config", func(t *testing.T) {
		cfg := &config.Config{Schemas: map[string]string{"*.jsonl": "https://example.com/rows.json"}}
		r := NewResolver(cfg, nil)
		res, ok := r.Resolve("data.jsonl", "data.jsonl", nil, map[string]any{"id": 1}, nil)
		require.True(t, ok)
		assert.Equal(t, SourceConfig, res.Source)
	})
}

func TestHasMapping(t *testing.T) {
	cfg := &config.Config{Schemas: map[string]string{"*.cfg": "https://example.com/cfg.json"}}
	cat := compiledCatalog(t, catalog.Entry{
		Name: "Conf", URL: "https://example.com/conf.json", FileMatch: []string{"*.conf"},
	})
	r := NewResolver(cfg, []TaggedCatalog{{Source: SourcePublic, Compiled: cat}})

	assert.True(t, r.HasMapping("app.cfg", "app.cfg"))
	assert.True(t, r.HasMapping("app.conf", "app.conf"))
	assert.False(t, r.HasMapping("app.nix", "app.nix"))
}

func TestResolveSchemaPath(t *testing.T) {
	configDir := filepath.Join(string(filepath.Separator), "proj")

	t.Run("remote URIs pass through", func(t *testing.T) {
		r := NewResolver(nil, nil)
		res := &Resolution{URI: "https://example.com/a.json"}
		assert.Equal(t, "https://example.com/a.json", r.ResolveSchemaPath(res, "doc.json", configDir))
	})

	t.Run("rewrite then double slash anchors at the config dir", func(t *testing.T) {
		cfg := &config.Config{Rewrite: map[string]string{
			"https://json.schemastore.org/": "//schemas/",
		}}
		r := NewResolver(cfg, nil)
		res := &Resolution{URI: "https://json.schemastore.org/tsconfig.json"}
		want := filepath.Join(configDir, "schemas", "tsconfig.json")
		assert.Equal(t, want, r.ResolveSchemaPath(res, "doc.json", configDir))
	})

	t.Run("document-declared relative paths anchor at the file", func(t *testing.T) {
		r := NewResolver(nil, nil)
		res := &Resolution{URI: "./schema.json", InlineDoc: true}
		file := filepath.Join(string(filepath.Separator), "data", "cfg", "app.json")
		want := filepath.Join(string(filepath.Separator), "data", "cfg", "schema.json")
		assert.Equal(t, want, r.ResolveSchemaPath(res, file, configDir))
	})

	t.Run("config-declared relative paths anchor at the config dir", func(t *testing.T) {
		r := NewResolver(nil, nil)
		res := &Resolution{URI: "schemas/app.json"}
		want := filepath.Join(configDir, "schemas", "app.json")
		assert.Equal(t, want, r.ResolveSchemaPath(res, "nested/deep/app.json", configDir))
	})

	t.Run("absolute paths pass through", func(t *testing.T) {
		r := NewResolver(nil, nil)
		abs := filepath.Join(string(filepath.Separator), "schemas", "a.json")
		res := &Resolution{URI: abs, InlineDoc: true}
		assert.Equal(t, abs, r.ResolveSchemaPath(res, "doc.json", configDir))
	})
}

func TestSourceStrings(t *testing.T) {
	assert.Equal(t, "modeline", SourceModeline.String())
	assert.Equal(t, "inline", SourceInline.String())
	assert.Equal(t, "config", SourceConfig.String())
	assert.Equal(t, "supplementary catalog", SourceSupplementary.String())
	assert.Equal(t, "public catalog", SourcePublic.String())
}
