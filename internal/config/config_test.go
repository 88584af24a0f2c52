package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "catalog", cfg.Mode)
	assert.Equal(t, "cli", cfg.SessionID)
	assert.Zero(t, cfg.Year)
	assert.Equal(t, "syllabus.db", filepath.Base(cfg.DB))
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "syllabus.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":9090\"\nyear: 2024\nmode: derived\n"), 0o644))
	t.Setenv("SYLLABUS_LOG_LEVEL", "debug")

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 2024, cfg.Year)
	assert.Equal(t, "derived", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_NegativeYear(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SYLLABUS_YEAR", "-1")

	_, err := Load(New(), "")
	assert.Error(t, err)
}
