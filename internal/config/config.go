// Package config loads project settings from .specflow/config.{json,yaml,toml}
// with SPECFLOW_* environment overrides. A missing file yields the defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Dir is the per-project state directory name.
const Dir = ".specflow"

// EnvPrefix is prepended to upper-cased keys for environment overrides,
// e.g. SPECFLOW_LOGGING_LEVEL=debug.
const EnvPrefix = "SPECFLOW"

// Config holds every tunable the daemon and the CLI read.
type Config struct {
	DefaultLanguage   string        `json:"defaultLanguage" mapstructure:"defaultLanguage"`
	FeatureExtensions []string      `json:"featureExtensions" mapstructure:"featureExtensions"`
	BindingExtensions []string      `json:"bindingExtensions" mapstructure:"bindingExtensions"`
	IgnoreDirs        []string      `json:"ignoreDirs" mapstructure:"ignoreDirs"`
	MaxFileSize       int64         `json:"maxFileSize" mapstructure:"maxFileSize"`
	DebounceMs        int           `json:"debounceMs" mapstructure:"debounceMs"`
	RenameWindowMs    int           `json:"renameWindowMs" mapstructure:"renameWindowMs"`
	ScanWorkers       int           `json:"scanWorkers" mapstructure:"scanWorkers"`
	GrammarPaths      []string      `json:"grammarPaths" mapstructure:"grammarPaths"`
	Cache             CacheConfig   `json:"cache" mapstructure:"cache"`
	Logging           LoggingConfig `json:"logging" mapstructure:"logging"`
}

// CacheConfig controls the binding extraction cache.
type CacheConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// LoggingConfig controls daemon logging.
type LoggingConfig struct {
	Level string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		DefaultLanguage:   "en",
		FeatureExtensions: []string{".feature"},
		BindingExtensions: []string{".cs"},
		IgnoreDirs: []string{
			".git", ".vs", ".idea", ".vscode", Dir,
			"bin", "obj", "node_modules", "packages", "TestResults",
		},
		MaxFileSize:    1 << 20,
		DebounceMs:     50,
		RenameWindowMs: 100,
		ScanWorkers:    8,
		Cache:          CacheConfig{Enabled: true},
		Logging:        LoggingConfig{Level: "info"},
	}
}

// Load reads the project config under root. Keys absent from the file keep
// their defaults.
func Load(root string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigName("config")
	v.AddConfigPath(filepath.Join(root, Dir))
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("defaultLanguage", d.DefaultLanguage)
	v.SetDefault("featureExtensions", d.FeatureExtensions)
	v.SetDefault("bindingExtensions", d.BindingExtensions)
	v.SetDefault("ignoreDirs", d.IgnoreDirs)
	v.SetDefault("maxFileSize", d.MaxFileSize)
	v.SetDefault("debounceMs", d.DebounceMs)
	v.SetDefault("renameWindowMs", d.RenameWindowMs)
	v.SetDefault("scanWorkers", d.ScanWorkers)
	v.SetDefault("grammarPaths", d.GrammarPaths)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("logging.level", d.Logging.Level)
}

// Validate rejects settings the daemon cannot run with.
func (c *Config) Validate() error {
	if c.DefaultLanguage == "" {
		return &FieldError{Field: "defaultLanguage", Message: "must not be empty"}
	}
	if len(c.FeatureExtensions) == 0 {
		return &FieldError{Field: "featureExtensions", Message: "at least one extension required"}
	}
	if c.ScanWorkers < 1 {
		return &FieldError{Field: "scanWorkers", Message: "must be positive"}
	}
	if c.MaxFileSize <= 0 {
		return &FieldError{Field: "maxFileSize", Message: "must be positive"}
	}
	return nil
}

// Save writes c as JSON to root/.specflow/config.json.
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, Dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), append(data, '\n'), 0644)
}

// IsFeatureFile reports whether path has a configured feature extension.
func (c *Config) IsFeatureFile(path string) bool {
	return hasExt(path, c.FeatureExtensions)
}

// IsBindingFile reports whether path has a configured binding extension.
func (c *Config) IsBindingFile(path string) bool {
	return hasExt(path, c.BindingExtensions)
}

// IgnoresDir reports whether a directory with this base name is skipped.
func (c *Config) IgnoresDir(name string) bool {
	for _, d := range c.IgnoreDirs {
		if d == name {
			return true
		}
	}
	return false
}

func hasExt(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// FieldError describes an invalid setting.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
