package app

import (
	"os"
	"path/filepath"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/config"
)

// Paths holds all resolved filesystem paths for the .specflow/ project directory.
type Paths struct {
	Root   string // .specflow/
	DB     string // .specflow/bindings.db
	Config string // .specflow/config.json

	LogDir    string // .specflow/log/
	DaemonLog string // .specflow/log/daemon.log

	RunDir  string // .specflow/run/
	PIDFile string // .specflow/run/daemon.pid

	GrammarsDir string // .specflow/grammars/
}

// NewPaths constructs all resolved paths from a project root directory.
func NewPaths(projectRoot string) *Paths {
	root := filepath.Join(projectRoot, config.Dir)
	return &Paths{
		Root:   root,
		DB:     filepath.Join(root, "bindings.db"),
		Config: filepath.Join(root, "config.json"),

		LogDir:    filepath.Join(root, "log"),
		DaemonLog: filepath.Join(root, "log", "daemon.log"),

		RunDir:  filepath.Join(root, "run"),
		PIDFile: filepath.Join(root, "run", "daemon.pid"),

		GrammarsDir: filepath.Join(root, "grammars"),
	}
}

// EnsureDirs creates all subdirectories under .specflow/. Idempotent.
func (p *Paths) EnsureDirs() error {
	for _, d := range []string{p.Root, p.LogDir, p.RunDir, p.GrammarsDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}

// CleanEphemeral removes ephemeral runtime files. Called on clean daemon
// shutdown.
func (p *Paths) CleanEphemeral() {
	os.Remove(p.PIDFile)
}

// ResetCache deletes the binding cache so the next start re-parses every
// binding file. The daemon must not be running.
func (p *Paths) ResetCache() error {
	if err := os.Remove(p.DB); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
