package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemalint/schemalint/internal/logger"
)

// runRoot executes the full command tree with the given arguments and
// captures both output streams.
func runRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

// writeTree materializes a fixture directory.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		full := filepath.Join(root, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

// isolateCaches points the on-disk caches at throwaway directories so
// tests never touch the real user cache.
func isolateCaches(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", dir)
	t.Setenv("HOME", dir)
}

func TestRootCommandSubcommands(t *testing.T) {
	root := NewRootCommand()
	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"check", "ci", "identify", "explain", "cache", "init", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestCacheCommandHidden(t *testing.T) {
	root := NewRootCommand()
	for _, c := range root.Commands() {
		if c.Name() == "cache" {
			assert.True(t, c.Hidden)
			return
		}
	}
	t.Fatal("cache command not registered")
}

func TestVersionCommand(t *testing.T) {
	out, errOut, err := runRoot(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "schemalint "+Version+"\n", out)
	assert.Empty(t, errOut)
}

func TestUnknownCommand(t *testing.T) {
	_, _, err := runRoot(t, "frobnicate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestBuildLogger(t *testing.T) {
	t.Run("silent without a level", func(t *testing.T) {
		root := NewRootCommand()
		require.NoError(t, root.ParseFlags(nil))
		_, ok := buildLogger(root).(*logger.NoOpLogger)
		assert.True(t, ok)
	})

	t.Run("console logger with a level", func(t *testing.T) {
		root := NewRootCommand()
		require.NoError(t, root.ParseFlags([]string{"--log-level", "debug"}))
		_, ok := buildLogger(root).(*logger.ConsoleLogger)
		assert.True(t, ok)
	})

	t.Run("level reaches subcommands through the persistent flag", func(t *testing.T) {
		root := NewRootCommand()
		check, _, err := root.Find([]string{"check"})
		require.NoError(t, err)
		require.NoError(t, check.ParseFlags([]string{"--log-level", "trace"}))
		_, ok := buildLogger(check).(*logger.ConsoleLogger)
		assert.True(t, ok)
	})
}
