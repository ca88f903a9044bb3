package app

import (
	"path/filepath"
	"strings"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/ports"
)

// watch starts the file watcher on root the first time a workspace is
// initialized. A failure leaves the index static and is only logged.
func (c *Coordinator) watch(root string) {
	if c.watcher == nil {
		return
	}
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	if c.watchedRoot != "" {
		if c.watchedRoot != root {
			c.log.Warn("watcher stays on first workspace root", "watching", c.watchedRoot, "requested", root)
		}
		return
	}
	if err := c.watcher.Watch(root, c.onFileEvent); err != nil {
		c.log.Warn("watch workspace", "root", root, "err", err)
		return
	}
	c.watchedRoot = root
	c.log.Info("watching workspace", "root", root)
}

// onFileEvent runs on the watcher's goroutine. It reads file content here,
// off the loop, and enqueues the store update.
func (c *Coordinator) onFileEvent(ev ports.FileEvent) {
	path := filepath.Clean(ev.Path)
	switch {
	case ev.Dir && ev.Op == ports.OpRename:
		oldDir := filepath.Clean(ev.OldPath)
		c.post(func() error {
			c.touch(oldDir, path)
			c.renameDir(oldDir, path)
			return nil
		})

	case ev.Dir && ev.Op == ports.OpRemove:
		c.post(func() error {
			c.touch(path)
			c.removeDir(path)
			return nil
		})

	case ev.Op == ports.OpRemove:
		c.post(func() error {
			c.touch(path)
			c.removeFile(path)
			return nil
		})

	case ev.Op == ports.OpRename:
		oldPath := filepath.Clean(ev.OldPath)
		source, err := readSource(path, c.cfg.MaxFileSize)
		if err != nil {
			source = nil
		}
		c.post(func() error {
			c.touch(oldPath, path)
			return c.renameFile(oldPath, path, source)
		})

	default:
		source, err := readSource(path, c.cfg.MaxFileSize)
		if err != nil {
			c.log.Debug("changed file unreadable", "path", path, "err", err)
			return
		}
		c.post(func() error {
			c.touch(path)
			return c.diskChange(path, source)
		})
	}
}

// touch records a watcher change to paths. Only needed while a scan is in
// flight; see changedSince.
func (c *Coordinator) touch(paths ...string) {
	if c.scans == 0 {
		return
	}
	c.changeSeq++
	for _, p := range paths {
		c.changedAt[p] = c.changeSeq
	}
}

// changedSince reports whether path, or a directory above it, saw a watcher
// change after mark.
func (c *Coordinator) changedSince(path string, mark uint64) bool {
	for p := path; ; {
		if c.changedAt[p] > mark {
			return true
		}
		parent := filepath.Dir(p)
		if parent == p {
			return false
		}
		p = parent
	}
}

func (c *Coordinator) diskChange(path string, source []byte) error {
	h, ok := c.handlers[c.classify.KindOf(path)]
	if !ok {
		return nil
	}
	c.log.Debug("file changed on disk", "path", path)
	return h.disk(path, source)
}

func (c *Coordinator) removeFile(path string) {
	if h, ok := c.handlers[c.classify.KindOf(path)]; ok && h.remove(path) {
		c.log.Debug("file removed", "path", path)
	}
}

// renameFile re-keys a file in one job. A rename that changes the document
// kind is a removal of the old kind plus a creation of the new one.
func (c *Coordinator) renameFile(oldPath, newPath string, source []byte) error {
	oldKind, newKind := c.classify.KindOf(oldPath), c.classify.KindOf(newPath)
	if oldKind == newKind {
		h, ok := c.handlers[newKind]
		if !ok {
			return nil
		}
		c.log.Debug("file renamed", "from", oldPath, "to", newPath)
		return h.rename(oldPath, newPath, source)
	}
	if h, ok := c.handlers[oldKind]; ok {
		h.remove(oldPath)
	}
	if h, ok := c.handlers[newKind]; ok && source != nil {
		return h.disk(newPath, source)
	}
	return nil
}

// renameDir re-keys every tracked file below oldDir.
func (c *Coordinator) renameDir(oldDir, newDir string) {
	for _, h := range c.handlers {
		for _, p := range h.paths() {
			if !within(p, oldDir) {
				continue
			}
			rel, err := filepath.Rel(oldDir, p)
			if err != nil {
				continue
			}
			if err := h.rename(p, filepath.Join(newDir, rel), nil); err != nil {
				c.log.Warn("rename file", "path", p, "err", err)
			}
		}
	}
	c.log.Debug("directory renamed", "from", oldDir, "to", newDir)
}

// removeDir forgets every tracked file below dir.
func (c *Coordinator) removeDir(dir string) {
	for _, h := range c.handlers {
		for _, p := range h.paths() {
			if within(p, dir) {
				h.remove(p)
			}
		}
	}
	c.log.Debug("directory removed", "path", dir)
}

// within reports whether path is dir or below it.
func within(path, dir string) bool {
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}
