package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "github.com/xapers/xapers/internal/errors"
)

func TestLoad_DefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "bleve", cfg.Database.Backend)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 1, cfg.Version)
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	root := t.TempDir()

	cfg := NewConfig()
	cfg.Database.Backend = "sqlite"
	cfg.Logging.Level = "debug"
	require.NoError(t, Save(root, cfg))

	loaded, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", loaded.Database.Backend)
	assert.Equal(t, "debug", loaded.Logging.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("XAPERS_BACKEND", "sqlite")
	t.Setenv("XAPERS_LOG_LEVEL", "debug")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Backend)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, XapersDir), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(root, XapersDir, "config.yaml"),
		[]byte("database:\n  backend: mongodb\n"), 0o644))

	_, err := Load(root)
	require.Error(t, err)
	assert.Equal(t, xerrors.ErrCodeConfigInvalid, xerrors.GetCode(err))
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, XapersDir), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(root, XapersDir, "config.yaml"),
		[]byte("{not yaml"), 0o644))

	_, err := Load(root)
	require.Error(t, err)
}

func TestFindRoot(t *testing.T) {
	abs, err := FindRoot("/explicit/root")
	require.NoError(t, err)
	assert.Equal(t, "/explicit/root", abs)

	t.Setenv("XAPERS_ROOT", "/from/env")
	abs, err = FindRoot("")
	require.NoError(t, err)
	assert.Equal(t, "/from/env", abs)
}
