package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemalint/schemalint/internal/schemacache"
)

func TestInspectSchemaNotCached(t *testing.T) {
	cacheDir := t.TempDir()
	url := "https://example.com/schema.json"

	out, _, err := runRoot(t, "cache", "inspect-schema", url, "--cache-dir", cacheDir)
	require.NoError(t, err)
	assert.Contains(t, out, "URL:        "+url+"\n")
	assert.Contains(t, out, "Hash:       "+schemacache.HashURI(url)+"\n")
	assert.Contains(t, out, "Status:     not cached\n")
	assert.NotContains(t, out, "Size:")
}

func TestInspectSchemaPreviewsEntry(t *testing.T) {
	cacheDir := t.TempDir()
	url := "https://example.com/schema.json"
	entry := `{"uri":"https://example.com/schema.json","fetched_at":"2026-01-02T03:04:05Z",` +
		`"value":{"f":6,"e":5,"d":4,"c":3,"b":2,"a":1}}`
	path := filepath.Join(cacheDir, schemacache.HashURI(url)+".json")
	require.NoError(t, os.WriteFile(path, []byte(entry), 0o644))

	out, _, err := runRoot(t, "cache", "inspect-schema", url, "--cache-dir", cacheDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Size:")
	assert.Contains(t, out, "Modified:")
	assert.Contains(t, out, "Valid JSON: yes\n")
	assert.Contains(t, out, "Preview:    {a, b, c, d, e,...} (6 keys)\n")
}

func TestInspectSchemaCorruptEntry(t *testing.T) {
	cacheDir := t.TempDir()
	url := "https://example.com/schema.json"
	path := filepath.Join(cacheDir, schemacache.HashURI(url)+".json")
	require.NoError(t, os.WriteFile(path, []byte("corrupted, not json\nsecond line"), 0o644))

	out, _, err := runRoot(t, "cache", "inspect-schema", url, "--cache-dir", cacheDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Valid JSON: no\n")
	assert.Contains(t, out, "First line: corrupted, not json\n")
}

func TestTraceInlineLocalSchema(t *testing.T) {
	isolateCaches(t)
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"schema.json": requiredNameSchema,
		"data.json":   `{"$schema": "./schema.json", "name": "x"}`,
	})
	path := filepath.Join(dir, "data.json")

	out, _, err := runRoot(t, "cache", "trace", path, "--no-catalog", "--cache-dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "file: "+path+"\n")
	assert.Contains(t, out, "catalog:\n")
	assert.Contains(t, out, "  status: disabled (--no-catalog)\n")
	assert.Contains(t, out, "schema resolution:\n")
	assert.Contains(t, out, "  source: inline ($schema / modeline)\n")
	assert.Contains(t, out, "  uri: "+filepath.Join(dir, "schema.json")+"\n")
	assert.Contains(t, out, "schema cache:\n")
	assert.Contains(t, out, "  local schema: "+filepath.Join(dir, "schema.json")+"\n")
	assert.Contains(t, out, "  size: ")
	assert.Contains(t, out, "validation cache:\n")
	assert.Contains(t, out, "  key: ")
	assert.Contains(t, out, "  status: miss\n")
}

func TestTraceConfigMapping(t *testing.T) {
	isolateCaches(t)
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"schemalint.toml": "[schemas]\n\"data.json\" = \"schema.json\"\n",
		"schema.json":     requiredNameSchema,
		"data.json":       `{"name": "x"}`,
	})
	path := filepath.Join(dir, "data.json")

	out, _, err := runRoot(t, "cache", "trace", path, "--no-catalog", "--cache-dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "  source: config mapping\n")
	assert.Contains(t, out, "  pattern: data.json\n")
}

func TestTraceNoSchema(t *testing.T) {
	isolateCaches(t)
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"data.json": `{"a": 1}`})
	path := filepath.Join(dir, "data.json")

	out, _, err := runRoot(t, "cache", "trace", path, "--no-catalog", "--cache-dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "  result: no schema found\n")
	assert.NotContains(t, out, "validation cache:")
}

func TestTraceUnparseableFile(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"data.json": `{"a": `})
	path := filepath.Join(dir, "data.json")

	_, _, err := runRoot(t, "cache", "trace", path, "--no-catalog", "--cache-dir", t.TempDir())
	require.Error(t, err)
	assert.EqualError(t, err, "could not parse "+path)
}

func TestTraceUnrecognizedFormat(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"data.bin": "\x00\x01\x02"})
	path := filepath.Join(dir, "data.bin")

	_, _, err := runRoot(t, "cache", "trace", path, "--no-catalog", "--cache-dir", t.TempDir())
	require.Error(t, err)
	assert.EqualError(t, err, "unrecognized format for "+path)
}

func TestTraceFileNotFound(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.json")
	_, _, err := runRoot(t, "cache", "trace", missing)
	require.Error(t, err)
	assert.EqualError(t, err, "file not found: "+missing)
}

func TestJSONPreview(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"small object", map[string]any{"b": 1.0, "a": 2.0}, "{a, b} (2 keys)"},
		{"array", []any{1.0, 2.0, 3.0}, "[...] (3 items)"},
		{"scalar", "hello", `"hello"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, jsonPreview(tt.value))
		})
	}
}
