package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swupd.dev/swupd/internal/config"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadOverlaysFileOntoDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swupd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("content_url: https://mirror.example.com\nmax_tries: 3\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://mirror.example.com", cfg.ContentURL)
	assert.Equal(t, 3, cfg.MaxTries)
	// Fields absent from the file keep their default values.
	assert.Equal(t, config.Default().Root, cfg.Root)
	assert.Equal(t, config.Default().StateDir, cfg.StateDir)
}

func TestLoadInvalidYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swupd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(": not valid yaml :::"), 0o644))

	_, err := config.Load(path)
	assert.Error(t, err)
}
