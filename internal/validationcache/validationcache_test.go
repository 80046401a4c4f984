package validationcache

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
		},
	}
}

func TestKeyDeterministic(t *testing.T) {
	hash := SchemaHash(sampleSchema())

	a := Key([]byte("hello"), hash, true)
	b := Key([]byte("hello"), hash, true)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestKeySensitivity(t *testing.T) {
	hash := SchemaHash(sampleSchema())
	base := Key([]byte("hello"), hash, true)

	t.Run("content", func(t *testing.T) {
		assert.NotEqual(t, base, Key([]byte("world"), hash, true))
	})

	t.Run("schema hash", func(t *testing.T) {
		other := SchemaHash(map[string]any{"type": "string"})
		assert.NotEqual(t, base, Key([]byte("hello"), other, true))
	})

	t.Run("format flag", func(t *testing.T) {
		assert.NotEqual(t, base, Key([]byte("hello"), hash, false))
	})
}

func TestSchemaHashUsesCanonicalForm(t *testing.T) {
	// encoding/json writes maps compact with sorted keys, so the hash is
	// independent of how the schema value was assembled.
	canonical := `{"properties":{"name":{"type":"string"}},"type":"object"}`
	sum := sha256.Sum256([]byte(canonical))

	assert.Equal(t, hex.EncodeToString(sum[:]), SchemaHash(sampleSchema()))
}

func TestStoreAndLookup(t *testing.T) {
	cache := New(t.TempDir(), false, nil)
	key := Key([]byte("content"), SchemaHash(sampleSchema()), true)

	cache.Store(key, &Verdict{Errors: []ValidationError{{
		InstancePath: "/name",
		Message:      "missing required property",
		SchemaPath:   "/required",
	}}})

	verdict, status := cache.Lookup(key)
	require.Equal(t, StatusHit, status)
	require.NotNil(t, verdict)
	require.Len(t, verdict.Errors, 1)
	assert.Equal(t, "/name", verdict.Errors[0].InstancePath)
	assert.Equal(t, "missing required property", verdict.Errors[0].Message)
	assert.Equal(t, "/required", verdict.Errors[0].SchemaPath)
	assert.False(t, verdict.Pass())
}

func TestLookupMiss(t *testing.T) {
	cache := New(t.TempDir(), false, nil)

	verdict, status := cache.Lookup(Key([]byte("content"), "abc", true))
	assert.Equal(t, StatusMiss, status)
	assert.Nil(t, verdict)
}

func TestPassVerdictRoundTrip(t *testing.T) {
	cache := New(t.TempDir(), false, nil)
	key := Key([]byte("clean"), SchemaHash(sampleSchema()), false)

	cache.Store(key, &Verdict{})

	verdict, status := cache.Lookup(key)
	require.Equal(t, StatusHit, status)
	assert.True(t, verdict.Pass())
}

func TestForceDisablesReadsAndWrites(t *testing.T) {
	dir := t.TempDir()
	normal := New(dir, false, nil)
	forced := New(dir, true, nil)
	key := Key([]byte("content"), "abc", true)

	normal.Store(key, &Verdict{})

	// Reads are disabled.
	verdict, status := forced.Lookup(key)
	assert.Equal(t, StatusMiss, status)
	assert.Nil(t, verdict)

	// Writes are disabled too.
	other := Key([]byte("other"), "abc", true)
	forced.Store(other, &Verdict{})
	_, status = normal.Lookup(other)
	assert.Equal(t, StatusMiss, status)
}

func TestEmptyDirDisablesCache(t *testing.T) {
	cache := New("", false, nil)
	key := Key([]byte("content"), "abc", true)

	cache.Store(key, &Verdict{})
	verdict, status := cache.Lookup(key)
	assert.Equal(t, StatusMiss, status)
	assert.Nil(t, verdict)
}

func TestCorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	cache := New(dir, false, nil)
	key := Key([]byte("content"), "abc", true)

	require.NoError(t, os.WriteFile(cache.EntryPath(key), []byte("not json{"), 0o644))

	verdict, status := cache.Lookup(key)
	assert.Equal(t, StatusMiss, status)
	assert.Nil(t, verdict)
}

func TestConcurrentWritersSameKey(t *testing.T) {
	cache := New(t.TempDir(), false, nil)
	key := Key([]byte("content"), SchemaHash(sampleSchema()), true)
	verdict := &Verdict{Errors: []ValidationError{{InstancePath: "/a", Message: "bad"}}}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cache.Store(key, verdict)
		}()
	}
	wg.Wait()

	got, status := cache.Lookup(key)
	require.Equal(t, StatusHit, status)
	assert.Equal(t, verdict.Errors, got.Errors)
}

func TestEnsureCacheDir(t *testing.T) {
	dir := EnsureCacheDir()
	assert.True(t, strings.HasSuffix(dir, string(os.PathSeparator)+"schemalint"+string(os.PathSeparator)+"validations"),
		"unexpected cache dir %q", dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
