// Package app wires together all adapters and domain logic.
// It provides lifecycle management for the specflow-lsp daemon: create, start, stop.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/adapters/ahocorasick"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/adapters/bbolt"
	fsw "github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/adapters/fsnotify"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/adapters/gherkin"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/adapters/socket"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/config"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/dialect"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/xref"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/ports"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/slogutil"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/localization"
)

// App is the top-level container wiring all components together.
type App struct {
	ProjectRoot string
	Paths       *Paths
	Settings    *config.Config
	Dialects    *dialect.Table

	Store       *bbolt.Store // nil when the binding cache is disabled
	Watcher     *fsw.Watcher
	Coordinator *Coordinator
	Server      *socket.Server
	Log         *slog.Logger

	logFile *os.File // nil when the caller supplied the logger
	started time.Time
}

// Config holds initialization parameters for the App.
type Config struct {
	ProjectRoot string
	Settings    *config.Config     // nil = load from ProjectRoot
	FrontEnd    ports.HostFrontEnd // optional: nil = feature-side only (no C# front-end)
	Logger      *slog.Logger       // nil = append to .specflow/log/daemon.log
	SocketPath  string             // "" = socket.SocketPath(ProjectRoot)
}

// NewMatcher builds the literal-pattern matcher used for binding resolution.
func NewMatcher(literals []string) xref.LiteralMatcher {
	return ahocorasick.NewLiteralMatcher(literals)
}

// LoadDialects loads the embedded keyword tables. A malformed table is fatal.
func LoadDialects(fallback string) (*dialect.Table, error) {
	return dialect.Load(localization.FS, ".", fallback)
}

// New creates an App with all dependencies wired. Does not start services.
func New(cfg Config) (*App, error) {
	if cfg.ProjectRoot == "" {
		return nil, fmt.Errorf("project root required")
	}
	root, err := filepath.Abs(cfg.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	settings := cfg.Settings
	if settings == nil {
		if settings, err = config.Load(root); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	paths := NewPaths(root)
	if err := paths.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("create %s: %w", paths.Root, err)
	}

	a := &App{
		ProjectRoot: root,
		Paths:       paths,
		Settings:    settings,
		Log:         cfg.Logger,
	}
	if a.Log == nil {
		log, f, err := slogutil.NewFileLogger(paths.DaemonLog, slogutil.LevelFromString(settings.Logging.Level))
		if err != nil {
			return nil, fmt.Errorf("open log: %w", err)
		}
		a.Log, a.logFile = log, f
	}

	a.Dialects, err = LoadDialects(settings.DefaultLanguage)
	if err != nil {
		a.closeLog()
		return nil, fmt.Errorf("load dialects: %w", err)
	}

	var cache ports.BindingCache
	if settings.Cache.Enabled {
		store, err := bbolt.NewStore(paths.DB)
		if err != nil {
			a.closeLog()
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.Store = store
		cache = store
	}

	watcher, err := fsw.NewWatcher(fsw.Options{
		IgnoreDirs: settings.IgnoreDirs,
		Accept: func(path string) bool {
			return settings.IsFeatureFile(path) || settings.IsBindingFile(path)
		},
		Debounce:     time.Duration(settings.DebounceMs) * time.Millisecond,
		RenameWindow: time.Duration(settings.RenameWindowMs) * time.Millisecond,
	})
	if err != nil {
		a.closeStore()
		a.closeLog()
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	a.Watcher = watcher

	a.Coordinator, err = NewCoordinator(CoordinatorConfig{
		Config:     settings,
		Dialects:   a.Dialects,
		Parser:     gherkin.NewParser(),
		FrontEnd:   cfg.FrontEnd,
		Cache:      cache,
		Watcher:    watcher,
		NewMatcher: NewMatcher,
		Logger:     a.Log,
	})
	if err != nil {
		watcher.Stop()
		a.closeStore()
		a.closeLog()
		return nil, fmt.Errorf("create coordinator: %w", err)
	}

	sockPath := cfg.SocketPath
	if sockPath == "" {
		sockPath = socket.SocketPath(root)
	}
	a.Server = socket.NewServer(sockPath, a.Coordinator)
	return a, nil
}

// Start indexes the workspace, starts watching it and begins serving on the
// socket. The PID file is written last so a client that sees it can connect.
func (a *App) Start(ctx context.Context) error {
	a.started = time.Now()
	result, err := a.Coordinator.InitWorkspace(ctx, a.ProjectRoot)
	if err != nil {
		return fmt.Errorf("index workspace: %w", err)
	}
	if err := a.Server.Start(); err != nil {
		return fmt.Errorf("start socket server: %w", err)
	}
	if err := os.WriteFile(a.Paths.PIDFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		a.Log.Warn("write pid file", "path", a.Paths.PIDFile, "err", err)
	}
	a.Log.Info("daemon started",
		"root", a.ProjectRoot,
		"socket", a.Server.Addr(),
		"features", result.FeatureFiles,
		"bindings", result.BindingFiles,
		"elapsed", result.Elapsed.Round(time.Millisecond),
	)
	return nil
}

// Stop shuts down services in reverse order: socket, coordinator (which
// stops the watcher and flushes the cache), store, log.
func (a *App) Stop() error {
	a.Server.Stop()
	a.Coordinator.Stop()
	a.Paths.CleanEphemeral()
	err := a.closeStore()
	if !a.started.IsZero() {
		a.Log.Info("daemon stopped", "uptime", time.Since(a.started).Round(time.Second))
	}
	a.closeLog()
	return err
}

func (a *App) closeStore() error {
	if a.Store == nil {
		return nil
	}
	err := a.Store.Close()
	a.Store = nil
	return err
}

func (a *App) closeLog() {
	if a.logFile != nil {
		a.logFile.Close()
		a.logFile = nil
	}
}
