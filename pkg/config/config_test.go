package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frameport/frameport/pkg/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Encoding)
	assert.Equal(t, "zstd", cfg.Write.Compression)
	assert.True(t, cfg.Write.Statistics)
	assert.True(t, cfg.Write.Dictionary)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frameport.yaml")
	data := []byte(`
log:
  level: debug
  encoding: json
write:
  compression: snappy
  row_group_size: 1024
  statistics: false
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Encoding)
	assert.Equal(t, "snappy", cfg.Write.Compression)
	assert.Equal(t, int64(1024), cfg.Write.RowGroupSize)
	assert.False(t, cfg.Write.Statistics)
	// Untouched keys keep their defaults.
	assert.True(t, cfg.Write.Dictionary)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIO))
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frameport.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log: [unclosed"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("FRAMEPORT_WRITE_COMPRESSION", "gzip")
	t.Setenv("FRAMEPORT_LOG_LEVEL", "error")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "gzip", cfg.Write.Compression)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoggerConfig(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "info"
	cfg.Log.Development = true

	lc := cfg.LoggerConfig()
	assert.Equal(t, "info", lc.Level)
	assert.True(t, lc.Development)
	assert.Equal(t, "console", lc.Encoding)
}
