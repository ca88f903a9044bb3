package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/adapters/socket"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/config"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/slogutil"
)

// =============================================================================
// App lifecycle: New wires the daemon, Start serves the socket, Stop cleans up
// =============================================================================

func newTestApp(t *testing.T) (*App, testWorkspace) {
	t.Helper()
	ws := newTestWorkspace(t)
	a, err := New(Config{
		ProjectRoot: ws.root,
		Settings:    config.DefaultConfig(),
		FrontEnd:    &fakeFrontEnd{},
		Logger:      slogutil.NewDiscardLogger(),
		SocketPath:  filepath.Join(t.TempDir(), "d.sock"),
	})
	require.NoError(t, err)
	return a, ws
}

func TestNew_RequiresRoot(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestApp_StartServeStop(t *testing.T) {
	a, ws := newTestApp(t)
	require.NoError(t, a.Start(context.Background()))

	_, err := os.Stat(a.Paths.PIDFile)
	require.NoError(t, err, "pid file written after start")

	client := socket.NewClient(a.Server.Addr())
	require.True(t, client.Ping())

	health, err := client.Health()
	require.NoError(t, err)
	assert.Equal(t, ws.root, health.Root)
	assert.Equal(t, 1, health.FeatureFiles)
	assert.Equal(t, 1, health.BindingFiles)
	assert.True(t, health.Cache)

	refs, err := client.Definition(ws.feature, 2, 0)
	require.NoError(t, err)
	assert.Len(t, refs.Locations, 1)

	require.NoError(t, a.Stop())
	assert.False(t, client.Ping())
	_, err = os.Stat(a.Paths.PIDFile)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(a.Paths.DB)
	assert.NoError(t, err, "binding cache persisted")
}

func TestApp_CacheDisabled(t *testing.T) {
	ws := newTestWorkspace(t)
	settings := config.DefaultConfig()
	settings.Cache.Enabled = false
	a, err := New(Config{
		ProjectRoot: ws.root,
		Settings:    settings,
		Logger:      slogutil.NewDiscardLogger(),
		SocketPath:  filepath.Join(t.TempDir(), "d.sock"),
	})
	require.NoError(t, err)
	assert.Nil(t, a.Store)

	require.NoError(t, a.Start(context.Background()))
	health, err := a.Coordinator.Health(context.Background())
	require.NoError(t, err)
	assert.False(t, health.Cache)
	assert.False(t, health.FrontEnd)
	require.NoError(t, a.Stop())
}
