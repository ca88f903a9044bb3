package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaths(t *testing.T) {
	p := NewPaths("/project")
	assert.Equal(t, filepath.Join("/project", ".specflow"), p.Root)
	assert.Equal(t, filepath.Join("/project", ".specflow", "bindings.db"), p.DB)
	assert.Equal(t, filepath.Join("/project", ".specflow", "config.json"), p.Config)
	assert.Equal(t, filepath.Join("/project", ".specflow", "log"), p.LogDir)
	assert.Equal(t, filepath.Join("/project", ".specflow", "log", "daemon.log"), p.DaemonLog)
	assert.Equal(t, filepath.Join("/project", ".specflow", "run"), p.RunDir)
	assert.Equal(t, filepath.Join("/project", ".specflow", "run", "daemon.pid"), p.PIDFile)
	assert.Equal(t, filepath.Join("/project", ".specflow", "grammars"), p.GrammarsDir)
}

func TestEnsureDirs(t *testing.T) {
	dir := t.TempDir()
	p := NewPaths(dir)

	// First call creates directories.
	require.NoError(t, p.EnsureDirs())
	for _, d := range []string{p.Root, p.LogDir, p.RunDir, p.GrammarsDir} {
		info, err := os.Stat(d)
		require.NoError(t, err, "dir %s should exist", d)
		assert.True(t, info.IsDir())
	}

	// Second call is idempotent — no error.
	require.NoError(t, p.EnsureDirs())
}

func TestCleanEphemeral(t *testing.T) {
	p := NewPaths(t.TempDir())
	require.NoError(t, p.EnsureDirs())
	require.NoError(t, os.WriteFile(p.PIDFile, []byte("12345"), 0644))
	require.NoError(t, os.WriteFile(p.DaemonLog, []byte("log data"), 0644))

	p.CleanEphemeral()

	_, err := os.Stat(p.PIDFile)
	assert.True(t, os.IsNotExist(err), "pid file removed")
	_, err = os.Stat(p.DaemonLog)
	assert.NoError(t, err, "log survives")

	p.CleanEphemeral() // missing files are fine
}

func TestResetCache(t *testing.T) {
	p := NewPaths(t.TempDir())
	require.NoError(t, p.EnsureDirs())

	require.NoError(t, p.ResetCache(), "missing db is not an error")

	require.NoError(t, os.WriteFile(p.DB, []byte("db"), 0600))
	require.NoError(t, p.ResetCache())
	_, err := os.Stat(p.DB)
	assert.True(t, os.IsNotExist(err))
}
