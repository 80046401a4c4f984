package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemalint/schemalint/internal/config"
)

func TestInitCreatesConfig(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	out, errOut, err := runRoot(t, "init")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, "Created schemalint.toml\n", errOut)

	data, err := os.ReadFile(filepath.Join(dir, config.ConfigFilename))
	require.NoError(t, err)

	// The template must parse as a valid, effectively empty config.
	cfg, err := config.Parse(data)
	require.NoError(t, err)
	assert.Empty(t, cfg.Exclude)
	assert.Empty(t, cfg.Schemas)
	assert.False(t, cfg.Root)
}

func TestInitRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	_, _, err := runRoot(t, "init")
	require.NoError(t, err)

	_, _, err = runRoot(t, "init")
	require.Error(t, err)
	assert.EqualError(t, err, "schemalint.toml already exists")
}
