package slogutil

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromString(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"Warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, LevelFromString(in), "input %q", in)
	}
}

func TestHandler_LineFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, slog.LevelInfo)
	log.Info("indexed", "path", "a b.feature", "steps", 3)

	line := buf.String()
	assert.True(t, strings.HasSuffix(line, "\n"))
	assert.Contains(t, line, "[info] indexed |")
	assert.Contains(t, line, `path="a b.feature"`)
	assert.Contains(t, line, "steps=3")
}

func TestHandler_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, slog.LevelWarn)
	log.Info("hidden")
	log.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[warn] shown")
}

func TestHandler_GroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, slog.LevelDebug).With("component", "binding").WithGroup("scan")
	log.Debug("file", "n", 1)
	assert.Contains(t, buf.String(), "component=binding")
	assert.Contains(t, buf.String(), "scan.n=1")
}

func TestNewDiscardLogger(t *testing.T) {
	log := NewDiscardLogger()
	assert.False(t, log.Enabled(t.Context(), slog.LevelError))
}

func TestNewFileLogger_CreatesDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log", "daemon.log")
	log, f, err := NewFileLogger(path, slog.LevelInfo)
	require.NoError(t, err)
	log.Info("started")
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[info] started")
}
