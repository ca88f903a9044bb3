// Package fsnotify implements the ports.Watcher interface using github.com/fsnotify/fsnotify.
// It recursively watches a workspace, filters out ignored directories and
// unrelated files, pairs rename halves into one event and debounces rapid
// writes (editors often trigger multiple writes per save).
package fsnotify

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/ports"
)

// Options configures a Watcher. Zero durations fall back to the defaults.
type Options struct {
	// IgnoreDirs are directory base names never descended into.
	IgnoreDirs []string
	// Accept reports whether a file path is interesting. Nil accepts all.
	Accept func(path string) bool
	// Debounce is the quiet period after the last event on a path before it
	// is reported.
	Debounce time.Duration
	// RenameWindow is how long the old half of a rename waits for its new
	// half before it is reported as a removal.
	RenameWindow time.Duration
}

const (
	defaultDebounce     = 50 * time.Millisecond
	defaultRenameWindow = 100 * time.Millisecond
)

type pendingEvent struct {
	ev    ports.FileEvent
	timer *time.Timer
}

// Watcher implements ports.Watcher using fsnotify.
type Watcher struct {
	fw   *fsnotify.Watcher
	opts Options
	done chan struct{}

	root   string
	ignore map[string]bool

	// emitMu is held for reading while a callback runs and for writing by
	// Stop, so no callback fires after Stop returns.
	emitMu  sync.RWMutex
	mu      sync.Mutex
	stopped bool
	onEvent func(ports.FileEvent)
	dirs    map[string]bool
	pending map[string]*pendingEvent
	renamed *pendingEvent // old half of a rename awaiting its Create
}

// NewWatcher creates a new file system watcher.
func NewWatcher(opts Options) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.RenameWindow <= 0 {
		opts.RenameWindow = defaultRenameWindow
	}
	ignore := make(map[string]bool, len(opts.IgnoreDirs))
	for _, d := range opts.IgnoreDirs {
		ignore[d] = true
	}
	return &Watcher{
		fw:      fw,
		opts:    opts,
		done:    make(chan struct{}),
		ignore:  ignore,
		dirs:    make(map[string]bool),
		pending: make(map[string]*pendingEvent),
	}, nil
}

// Watch starts monitoring root recursively.
func (w *Watcher) Watch(root string, onEvent func(ports.FileEvent)) error {
	absPath, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	if _, err := os.Stat(absPath); err != nil {
		return err
	}
	w.mu.Lock()
	w.root = absPath
	w.onEvent = onEvent
	w.mu.Unlock()

	if err := w.addTree(absPath, nil); err != nil {
		return err
	}

	go w.loop()
	return nil
}

// addTree watches dir and every non-ignored directory below it. When found
// is non-nil it receives the files encountered, for directories that appear
// after the initial scan.
func (w *Watcher) addTree(dir string, found func(path string)) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible paths
		}
		if d.IsDir() {
			if w.ignore[d.Name()] && path != dir {
				return filepath.SkipDir
			}
			w.mu.Lock()
			w.dirs[path] = true
			w.mu.Unlock()
			return w.fw.Add(path)
		}
		if found != nil {
			found(path)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.handle(event)

		case _, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			// Errors are swallowed — fsnotify recovers automatically

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	path := event.Name
	if w.ignoredPath(path) {
		return
	}

	switch {
	case event.Has(fsnotify.Create):
		isDir := false
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			isDir = true
		}
		if old, ok := w.takeRename(); ok {
			if isDir {
				w.addTree(path, nil)
			}
			w.emitRename(old, path, isDir)
			return
		}
		if isDir {
			w.addTree(path, func(file string) {
				w.schedule(ports.FileEvent{Op: ports.OpCreate, Path: file})
			})
			return
		}
		w.schedule(ports.FileEvent{Op: ports.OpCreate, Path: path})

	case event.Has(fsnotify.Rename):
		w.stashRename(path)

	case event.Has(fsnotify.Remove):
		if w.forgetDir(path) {
			w.emit(ports.FileEvent{Op: ports.OpRemove, Path: path, Dir: true})
			return
		}
		w.schedule(ports.FileEvent{Op: ports.OpRemove, Path: path})

	case event.Has(fsnotify.Write):
		w.schedule(ports.FileEvent{Op: ports.OpWrite, Path: path})
	}
}

// schedule reports ev once path has been quiet for the debounce period. A
// Write following a pending Create stays a Create.
func (w *Watcher) schedule(ev ports.FileEvent) {
	if !w.accepts(ev.Path) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if p, ok := w.pending[ev.Path]; ok {
		if !(p.ev.Op == ports.OpCreate && ev.Op == ports.OpWrite) {
			p.ev = ev
		}
		p.timer.Reset(w.opts.Debounce)
		return
	}
	p := &pendingEvent{ev: ev}
	p.timer = time.AfterFunc(w.opts.Debounce, func() {
		w.mu.Lock()
		cur, ok := w.pending[ev.Path]
		if !ok || cur != p {
			w.mu.Unlock()
			return
		}
		delete(w.pending, ev.Path)
		out := cur.ev
		w.mu.Unlock()
		w.emit(out)
	})
	w.pending[ev.Path] = p
}

// stashRename holds the old half of a rename. If no Create claims it within
// the rename window it is reported as a removal.
func (w *Watcher) stashRename(path string) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	prev := w.renamed
	p := &pendingEvent{ev: ports.FileEvent{Op: ports.OpRemove, Path: path}}
	p.timer = time.AfterFunc(w.opts.RenameWindow, func() {
		w.mu.Lock()
		if w.renamed != p {
			w.mu.Unlock()
			return
		}
		w.renamed = nil
		w.mu.Unlock()
		w.flushRemoval(path)
	})
	w.renamed = p
	w.mu.Unlock()

	if prev != nil && prev.timer.Stop() && prev.ev.Path != path {
		w.flushRemoval(prev.ev.Path)
	}
}

func (w *Watcher) takeRename() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p := w.renamed
	if p == nil || !p.timer.Stop() {
		return "", false
	}
	w.renamed = nil
	return p.ev.Path, true
}

func (w *Watcher) flushRemoval(path string) {
	if w.forgetDir(path) {
		w.emit(ports.FileEvent{Op: ports.OpRemove, Path: path, Dir: true})
		return
	}
	w.cancel(path)
	if w.accepts(path) {
		w.emit(ports.FileEvent{Op: ports.OpRemove, Path: path})
	}
}

func (w *Watcher) emitRename(oldPath, newPath string, isDir bool) {
	wasDir := w.forgetDir(oldPath)
	if isDir || wasDir {
		w.emit(ports.FileEvent{Op: ports.OpRename, Path: newPath, OldPath: oldPath, Dir: true})
		return
	}
	w.cancel(oldPath)
	oldOK, newOK := w.accepts(oldPath), w.accepts(newPath)
	switch {
	case oldOK && newOK:
		w.emit(ports.FileEvent{Op: ports.OpRename, Path: newPath, OldPath: oldPath})
	case oldOK:
		w.emit(ports.FileEvent{Op: ports.OpRemove, Path: oldPath})
	case newOK:
		w.schedule(ports.FileEvent{Op: ports.OpCreate, Path: newPath})
	}
}

// cancel drops a pending debounced event for path.
func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p, ok := w.pending[path]; ok {
		p.timer.Stop()
		delete(w.pending, path)
	}
}

// forgetDir removes path and everything below it from the known directories
// and reports whether path was one.
func (w *Watcher) forgetDir(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.dirs[path] {
		return false
	}
	prefix := path + string(filepath.Separator)
	for d := range w.dirs {
		if d == path || strings.HasPrefix(d, prefix) {
			delete(w.dirs, d)
		}
	}
	return true
}

func (w *Watcher) emit(ev ports.FileEvent) {
	w.emitMu.RLock()
	defer w.emitMu.RUnlock()
	w.mu.Lock()
	stopped, fn := w.stopped, w.onEvent
	w.mu.Unlock()
	if stopped || fn == nil {
		return
	}
	fn(ev)
}

func (w *Watcher) accepts(path string) bool {
	return w.opts.Accept == nil || w.opts.Accept(path)
}

// Stop ends monitoring and releases all resources.
// Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	for path, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, path)
	}
	if w.renamed != nil {
		w.renamed.timer.Stop()
		w.renamed = nil
	}
	close(w.done)
	w.mu.Unlock()

	// Wait for in-flight callbacks.
	w.emitMu.Lock()
	defer w.emitMu.Unlock()
	return w.fw.Close()
}

// ignoredPath reports whether any component of path below the root is an
// ignored directory or the base name is editor noise.
func (w *Watcher) ignoredPath(path string) bool {
	base := filepath.Base(path)
	if strings.HasSuffix(base, ".swp") || strings.HasSuffix(base, "~") || base == ".DS_Store" {
		return true
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if w.ignore[part] {
			return true
		}
	}
	return false
}
