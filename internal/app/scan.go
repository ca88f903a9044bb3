package app

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/adapters/socket"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/binding"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/workspace"
	specerr "github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/errors"
)

// ScanResult summarizes a workspace scan.
type ScanResult struct {
	FeatureFiles int // feature files indexed
	BindingFiles int // binding files holding bindings or attribute classes
	Cached       int // binding files restored from the cache without a parse
	Failed       int // files unreadable, unparsable or failing extraction
	Removed      int // previously known files no longer on disk
	Elapsed      time.Duration
}

// cachePruner is implemented by caches that can drop entries for files that
// no longer exist.
type cachePruner interface {
	Prune(keep func(path string) bool) (int, error)
}

// scannedFile is one file read by the scan workers.
type scannedFile struct {
	path     string
	kind     workspace.DocKind
	text     []byte
	prepared *binding.Prepared // binding files only; nil when skipped
	err      error
}

// InitWorkspace indexes every feature and binding file under root and then
// starts watching it. Files are read and binding files parsed by a worker
// pool off the loop; the results are applied in one job, so queries see the
// workspace either before or after the scan, never half of it.
// Calling it again rescans: files gone from disk are dropped.
func (c *Coordinator) InitWorkspace(ctx context.Context, root string) (ScanResult, error) {
	start := time.Now()
	absRoot, err := canonical(root)
	if err != nil {
		return ScanResult{}, err
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return ScanResult{}, specerr.Wrap(specerr.UnknownDocument, "workspace root", err)
	}
	if !info.IsDir() {
		return ScanResult{}, specerr.Newf(specerr.UnknownDocument, "workspace root %s is not a directory", absRoot)
	}

	mark, err := c.beginScan(ctx)
	if err != nil {
		return ScanResult{}, err
	}
	paths, err := c.discover(ctx, absRoot)
	if err != nil {
		c.abortScan()
		return ScanResult{}, err
	}
	scanned, err := c.load(ctx, paths)
	if err != nil {
		c.abortScan()
		return ScanResult{}, err
	}
	result, err := c.applyScan(ctx, absRoot, mark, scanned)
	if err != nil {
		return ScanResult{}, err
	}

	c.watch(absRoot)

	result.Elapsed = time.Since(start)
	c.log.Info("workspace indexed",
		"root", absRoot,
		"features", result.FeatureFiles,
		"bindings", result.BindingFiles,
		"cached", result.Cached,
		"failed", result.Failed,
		"removed", result.Removed,
		"elapsed", result.Elapsed.Round(time.Millisecond),
	)
	return result, nil
}

// Reindex rescans the workspace given to InitWorkspace.
func (c *Coordinator) Reindex(ctx context.Context) (socket.ReindexResult, error) {
	root, err := c.Root(ctx)
	if err != nil {
		return socket.ReindexResult{}, err
	}
	if root == "" {
		return socket.ReindexResult{}, specerr.New(specerr.Unavailable, "workspace not initialized")
	}
	r, err := c.InitWorkspace(ctx, root)
	if err != nil {
		return socket.ReindexResult{}, err
	}
	return socket.ReindexResult{
		FeatureFiles: r.FeatureFiles,
		BindingFiles: r.BindingFiles,
		Cached:       r.Cached,
		Failed:       r.Failed,
		Removed:      r.Removed,
		ElapsedMs:    r.Elapsed.Milliseconds(),
	}, nil
}

// beginScan marks the start of a scan. Watcher changes applied after the
// returned mark win over what the scan read.
func (c *Coordinator) beginScan(ctx context.Context) (uint64, error) {
	var mark uint64
	err := c.do(ctx, func() error {
		c.scans++
		mark = c.changeSeq
		return nil
	})
	return mark, err
}

// endScan runs on the loop once a scan is applied or abandoned.
func (c *Coordinator) endScan() {
	c.scans--
	if c.scans == 0 {
		clear(c.changedAt)
	}
}

func (c *Coordinator) abortScan() {
	c.post(func() error {
		c.endScan()
		return nil
	})
}

// applyScan installs scanned on the loop in one job.
func (c *Coordinator) applyScan(ctx context.Context, root string, mark uint64, scanned []scannedFile) (ScanResult, error) {
	var result ScanResult
	applied := false
	err := c.do(ctx, func() error {
		applied = true
		defer c.endScan()
		result = c.apply(root, mark, scanned)
		return nil
	})
	if !applied {
		closePrepared(scanned)
		c.abortScan()
	}
	return result, err
}

// discover walks root and returns the feature and binding files, sorted.
// Ignored directories and oversized files are skipped.
func (c *Coordinator) discover(ctx context.Context, root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != root && c.cfg.IgnoresDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if c.classify.KindOf(path) == workspace.KindIgnored {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.Mode().IsRegular() || info.Size() > c.cfg.MaxFileSize {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// load reads every file and prepares binding files with at most ScanWorkers
// goroutines. Per-file failures are recorded, not returned.
func (c *Coordinator) load(ctx context.Context, paths []string) ([]scannedFile, error) {
	out := make([]scannedFile, len(paths))
	fe, cache := c.bindings.FrontEnd(), c.bindings.Cache()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(c.cfg.ScanWorkers, 1))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sf := scannedFile{path: path, kind: c.classify.KindOf(path)}
			sf.text, sf.err = os.ReadFile(path)
			if sf.err == nil && sf.kind == workspace.KindBinding {
				sf.prepared, sf.err = binding.Prepare(fe, cache, path, sf.text, nil)
			}
			out[i] = sf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		closePrepared(out)
		return nil, err
	}
	return out, nil
}

// apply installs a scan on the loop and drops files that vanished. Files the
// watcher changed after mark keep what the watcher applied.
func (c *Coordinator) apply(root string, mark uint64, scanned []scannedFile) ScanResult {
	var result ScanResult
	present := make(map[string]bool, len(scanned))

	for _, sf := range scanned {
		present[sf.path] = true
		if c.changedSince(sf.path, mark) {
			if sf.prepared != nil && sf.prepared.Tree != nil {
				sf.prepared.Tree.Close()
			}
			c.log.Debug("scan result superseded", "path", sf.path)
			continue
		}
		if sf.err != nil {
			if !specerr.HasCode(sf.err, specerr.Unavailable) {
				result.Failed++
				c.log.Warn("file not indexed", "path", sf.path, "err", sf.err)
			}
			continue
		}
		switch sf.kind {
		case workspace.KindFeature:
			result.FeatureFiles++
			if errs := c.features.Index(sf.path, string(sf.text)); len(errs) > 0 {
				result.Failed++
			}
		case workspace.KindBinding:
			if c.openBindings[sf.path] {
				if sf.prepared.Tree != nil {
					sf.prepared.Tree.Close()
				}
				continue
			}
			if sf.prepared.FromCache {
				result.Cached++
			}
			if c.bindings.Install(sf.prepared) {
				result.BindingFiles++
			}
		}
	}

	for _, h := range c.handlers {
		for _, p := range h.paths() {
			if !present[p] && !c.changedSince(p, mark) && h.remove(p) {
				result.Removed++
			}
		}
	}

	c.root = root
	c.flushBindings()
	if pruner, ok := c.bindings.Cache().(cachePruner); ok {
		n, err := pruner.Prune(func(path string) bool { return present[path] || c.openBindings[path] })
		if err != nil {
			c.log.Warn("prune binding cache", "err", err)
		} else if n > 0 {
			c.log.Debug("pruned binding cache", "entries", n)
		}
	}
	return result
}

func closePrepared(files []scannedFile) {
	for _, sf := range files {
		if sf.prepared != nil && sf.prepared.Tree != nil {
			sf.prepared.Tree.Close()
		}
	}
}
