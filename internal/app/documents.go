package app

import (
	"context"
	"os"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/feature"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/workspace"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/xref"
	specerr "github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/errors"
)

// diagnosticSource labels every diagnostic the feature side reports.
const diagnosticSource = "gherkin"

// docHandler is the per-kind behaviour of the coordinator. The set of kinds
// is closed, so dispatch is a table lookup rather than an interface.
// All funcs run on the loop.
type docHandler struct {
	// open records an editor buffer.
	open func(path, text string) ([]protocol.Diagnostic, error)
	// close drops the editor buffer. The last parse stays indexed until the
	// watcher reports a change.
	close func(path string) error
	// disk applies content observed on disk. Open buffers win.
	disk func(path string, source []byte) error
	// remove forgets a file deleted on disk.
	remove func(path string) bool
	// rename re-keys a file. source is the new file's content, used when the
	// old path was unknown.
	rename func(oldPath, newPath string, source []byte) error
	// known reports whether path is tracked.
	known func(path string) bool
	// paths lists tracked paths.
	paths func() []string
}

func (c *Coordinator) newHandlers() map[workspace.DocKind]docHandler {
	return map[workspace.DocKind]docHandler{
		workspace.KindFeature: {
			open: func(path, text string) ([]protocol.Diagnostic, error) {
				return toDiagnostics(c.features.ApplyChange(path, text)), nil
			},
			close: c.features.Close,
			disk: func(path string, source []byte) error {
				c.features.Index(path, string(source))
				return nil
			},
			remove: c.features.Remove,
			rename: func(oldPath, newPath string, source []byte) error {
				if !c.features.Rename(oldPath, newPath) && source != nil {
					c.features.Index(newPath, string(source))
				}
				return nil
			},
			known: func(path string) bool {
				_, ok := c.features.Get(path)
				return ok
			},
			paths: c.features.Paths,
		},
		workspace.KindBinding: {
			open: func(path, text string) ([]protocol.Diagnostic, error) {
				c.openBindings[path] = true
				c.replaceBinding(path, []byte(text))
				return []protocol.Diagnostic{}, nil
			},
			close: func(path string) error {
				if !c.openBindings[path] {
					return specerr.New(specerr.UnknownDocument, path)
				}
				delete(c.openBindings, path)
				return nil
			},
			disk: func(path string, source []byte) error {
				if c.openBindings[path] {
					return nil
				}
				c.replaceBinding(path, source)
				c.flushBindings()
				return nil
			},
			remove: func(path string) bool {
				if c.openBindings[path] {
					return false
				}
				removed := c.bindings.RemoveFile(path)
				c.flushBindings()
				return removed
			},
			rename: func(oldPath, newPath string, source []byte) error {
				if c.openBindings[oldPath] {
					delete(c.openBindings, oldPath)
					c.openBindings[newPath] = true
				}
				if _, err := c.bindings.RenameFile(oldPath, newPath, source); err != nil && !specerr.HasCode(err, specerr.Unavailable) {
					return err
				}
				c.flushBindings()
				return nil
			},
			known: func(path string) bool {
				return c.openBindings[path] || c.bindings.Has(path)
			},
			paths: c.bindings.Paths,
		},
	}
}

// replaceBinding swaps one binding file's slot. Binding files never produce
// diagnostics: a front-end failure only costs that file's declarations.
func (c *Coordinator) replaceBinding(path string, source []byte) {
	if _, err := c.bindings.ReplaceFile(path, source); err != nil {
		if specerr.HasCode(err, specerr.Unavailable) {
			c.log.Debug("binding file skipped", "path", path, "err", err)
			return
		}
		c.log.Warn("binding file not indexed", "path", path, "err", err)
	}
}

// DidOpen records an editor buffer and returns its diagnostics. Paths may be
// file URIs. Files that are neither feature nor binding files are ignored.
func (c *Coordinator) DidOpen(ctx context.Context, path, text string) ([]protocol.Diagnostic, error) {
	return c.applyText(ctx, path, text)
}

// DidChange replaces an editor buffer with its full new text.
func (c *Coordinator) DidChange(ctx context.Context, path, text string) ([]protocol.Diagnostic, error) {
	return c.applyText(ctx, path, text)
}

func (c *Coordinator) applyText(ctx context.Context, path, text string) ([]protocol.Diagnostic, error) {
	p, err := canonical(path)
	if err != nil {
		return nil, err
	}
	diags := []protocol.Diagnostic{}
	err = c.do(ctx, func() error {
		h, ok := c.handlers[c.classify.KindOf(p)]
		if !ok {
			return nil
		}
		d, err := h.open(p, text)
		if err != nil {
			return err
		}
		diags = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return diags, nil
}

// DidClose drops an editor buffer. Nothing is read from disk: the last parse
// stays indexed and later disk changes arrive as watcher events.
func (c *Coordinator) DidClose(ctx context.Context, path string) error {
	p, err := canonical(path)
	if err != nil {
		return err
	}
	kind := c.classify.KindOf(p)
	if kind == workspace.KindIgnored {
		return nil
	}
	return c.do(ctx, func() error {
		return c.handlers[kind].close(p)
	})
}

// readSource reads a workspace file, refusing files over maxSize.
func readSource(path string, maxSize int64) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, specerr.Newf(specerr.UnknownDocument, "%s is a directory", path)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, specerr.Newf(specerr.UnknownDocument, "%s exceeds %d bytes", path, maxSize)
	}
	return os.ReadFile(path)
}

func canonical(path string) (string, error) {
	p, err := workspace.Canonicalize(path)
	if err != nil {
		return "", specerr.Wrap(specerr.UnknownDocument, "invalid document path", err)
	}
	return p, nil
}

// toDiagnostics converts feature parse errors to LSP diagnostics. The result
// is never nil.
func toDiagnostics(errs []feature.ParseError) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(errs))
	severity := protocol.DiagnosticSeverityError
	source := diagnosticSource
	for _, e := range errs {
		out = append(out, protocol.Diagnostic{
			Range:    toRange(e.Range),
			Severity: &severity,
			Source:   &source,
			Message:  e.Message,
		})
	}
	return out
}

func toRange(r feature.Range) protocol.Range {
	return protocol.Range{
		Start: toPosition(r.Start),
		End:   toPosition(r.End),
	}
}

func toPosition(p feature.Position) protocol.Position {
	return protocol.Position{
		Line:      protocol.UInteger(max(p.Line, 0)),
		Character: protocol.UInteger(max(p.Character, 0)),
	}
}

func toLocation(l xref.Location) protocol.Location {
	return protocol.Location{
		URI:   protocol.DocumentUri(workspace.URI(l.Path)),
		Range: toRange(l.Range),
	}
}
