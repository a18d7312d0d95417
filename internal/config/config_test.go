package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		path := writeConfig(t, `
logger:
  verbosity: debug
device:
  backend: cuda
metrics:
  listen: ":9191"
`)
		config, err := LoadConfig(path)
		require.NoError(t, err)
		require.NotNil(t, config)

		assert.Equal(t, "debug", config.Logger.Verbosity)
		assert.Equal(t, "cuda", config.Device.Backend)
		assert.Equal(t, ":9191", config.Metrics.Listen)
	})

	t.Run("partial config keeps defaults", func(t *testing.T) {
		path := writeConfig(t, `
device:
  backend: sim
`)
		config, err := LoadConfig(path)
		require.NoError(t, err)

		assert.Equal(t, "sim", config.Device.Backend)
		assert.Equal(t, "info", config.Logger.Verbosity)
		assert.Equal(t, ":9090", config.Metrics.Listen)
	})

	t.Run("non-existent file", func(t *testing.T) {
		_, err := LoadConfig("non-existent-file.yaml")
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeConfig(t, "logger: [not: a: mapping")
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}

func TestDefault(t *testing.T) {
	config := Default()
	assert.Equal(t, "info", config.Logger.Verbosity)
	assert.Equal(t, "auto", config.Device.Backend)
	assert.Equal(t, ":9090", config.Metrics.Listen)
}
