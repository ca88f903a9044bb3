package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, root, name, body string) {
	t.Helper()
	dir := filepath.Join(root, Dir)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_JSONOverridesKeepOtherDefaults(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "config.json", `{
		"defaultLanguage": "de",
		"scanWorkers": 2,
		"logging": {"level": "debug"}
	}`)

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "de", cfg.DefaultLanguage)
	assert.Equal(t, 2, cfg.ScanWorkers)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{".feature"}, cfg.FeatureExtensions)
	assert.True(t, cfg.Cache.Enabled)
}

func TestLoad_YAML(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "config.yaml", "cache:\n  enabled: false\nbindingExtensions: [\".cs\", \".csx\"]\n")

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.False(t, cfg.Cache.Enabled)
	assert.True(t, cfg.IsBindingFile("/w/Steps.csx"))
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SPECFLOW_LOGGING_LEVEL", "error")
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestLoad_InvalidValue(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "config.json", `{"scanWorkers": 0}`)

	_, err := Load(root)
	require.Error(t, err)
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "scanWorkers", fe.Field)
}

func TestLoad_MalformedFile(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "config.json", `{not json`)
	_, err := Load(root)
	assert.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.DefaultLanguage = "fr"
	require.NoError(t, cfg.Save(root))

	loaded, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "fr", loaded.DefaultLanguage)
}

func TestExtensionsAndDirs(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.IsFeatureFile("/w/Login.FEATURE"))
	assert.False(t, cfg.IsFeatureFile("/w/Login.cs"))
	assert.True(t, cfg.IsBindingFile("/w/Steps.cs"))
	assert.True(t, cfg.IgnoresDir("obj"))
	assert.False(t, cfg.IgnoresDir("Features"))
}
