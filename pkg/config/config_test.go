package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GOALGRAPH_DIR", "")
	dir := t.TempDir()

	cfg, err := Load(New(), dir)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, BackendFile, cfg.Backend)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Empty(t, cfg.Log.File)
	assert.Equal(t, filepath.Join(dir, "goals.db"), cfg.SQLitePath())
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := "backend: sqlite\nlog:\n  level: debug\n  file: /tmp/goalgraph.log\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0644))

	cfg, err := Load(New(), dir)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/goalgraph.log", cfg.Log.File)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("backend: sqlite\n"), 0644))
	t.Setenv("GOALGRAPH_BACKEND", "memory")
	t.Setenv("GOALGRAPH_LOG_LEVEL", "error")

	cfg, err := Load(New(), dir)
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestDataDirResolution(t *testing.T) {
	envDir := t.TempDir()
	t.Setenv("GOALGRAPH_DIR", envDir)

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, envDir, cfg.DataDir)

	flagDir := t.TempDir()
	cfg, err = Load(New(), flagDir)
	require.NoError(t, err)
	assert.Equal(t, flagDir, cfg.DataDir, "--dir wins over the environment")
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("GOALGRAPH_BACKEND", "postgres")

	_, err := Load(New(), t.TempDir())
	assert.ErrorContains(t, err, "unknown backend")
}

func TestLoadRejectsBrokenConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("backend: [\n"), 0644))

	_, err := Load(New(), dir)
	assert.Error(t, err)
}

func TestConfigFileCannotMoveDataDir(t *testing.T) {
	dir := t.TempDir()
	content := "data_dir: /somewhere/else\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0644))

	_, err := Load(New(), dir)
	assert.ErrorContains(t, err, "data_dir cannot be set")
}
