// Package binding keeps the step-binding declarations of the C# side of the
// workspace.
//
// The index is an arena of per-file slots keyed by canonical path. Each slot
// owns the file's latest syntax tree and its extracted symbols; nothing points
// across slots. Which attributes count as step attributes depends on every
// file in the unit (custom attributes may be declared anywhere), so the
// declaration list is a fold over all slots, memoized per index version.
//
// Index is not safe for concurrent use. The coordinator owns it and mutates it
// from its single event loop. Prepare is the exception: it touches no index
// state and may run on worker goroutines.
package binding

import (
	"fmt"
	"log/slog"
	"sort"

	specerr "github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/errors"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/ports"
	"github.com/zeebo/xxh3"
)

// Kind tells how a declaration pattern is matched against step text.
type Kind int

const (
	// Regex patterns must match the whole step text.
	Regex Kind = iota
	// Literal patterns come from method names and match by normalized
	// equality.
	Literal
)

func (k Kind) String() string {
	if k == Literal {
		return "literal"
	}
	return "regex"
}

// Declaration is one step binding: a step attribute applied to a method.
type Declaration struct {
	Pattern     string     `json:"pattern"`
	Kind        Kind       `json:"kind"`
	Path        string     `json:"path"`
	Range       ports.Span `json:"range"`
	MethodRange ports.Span `json:"method_range"`
	Method      string     `json:"method"`
	Class       string     `json:"class"`
	Attribute   string     `json:"attribute"`
}

// Hash returns the content hash used to detect unchanged files.
func Hash(source []byte) uint64 {
	return xxh3.Hash(source)
}

// Prepared is a parsed and extracted file that has not yet been installed.
type Prepared struct {
	Path      string
	Hash      uint64
	Tree      ports.SyntaxTree // nil when restored from the cache
	Symbols   *ports.FileSymbols
	FromCache bool
}

// Prepare parses and extracts one file. When cache holds an entry for the same
// content the parse is skipped. previous, if non-nil, is the file's last tree
// and enables an incremental parse; it is left untouched.
func Prepare(fe ports.HostFrontEnd, cache ports.BindingCache, path string, source []byte, previous ports.SyntaxTree) (*Prepared, error) {
	p := &Prepared{Path: path, Hash: Hash(source)}
	if cache != nil && previous == nil {
		if syms, ok, err := cache.LoadSymbols(path, p.Hash); err == nil && ok {
			p.Symbols = syms
			p.FromCache = true
			return p, nil
		}
	}
	if fe == nil {
		return nil, specerr.New(specerr.Unavailable, "no C# front-end in this build")
	}
	tree, err := fe.Parse(source, previous)
	if err != nil {
		return nil, specerr.Wrap(specerr.ParseFailed, fmt.Sprintf("parse %s", path), err)
	}
	syms, err := fe.Extract(tree)
	if err != nil {
		tree.Close()
		return nil, specerr.Wrap(specerr.ParseFailed, fmt.Sprintf("extract %s", path), err)
	}
	if syms == nil {
		syms = &ports.FileSymbols{}
	}
	p.Tree = tree
	p.Symbols = syms
	return p, nil
}

// retains reports whether a file contributes anything to the unit.
func retains(syms *ports.FileSymbols) bool {
	return syms != nil && (len(syms.BindingClasses) > 0 || len(syms.AttributeClasses) > 0)
}

type slot struct {
	path    string
	tree    ports.SyntaxTree
	symbols *ports.FileSymbols
	hash    uint64
}

// Stats summarizes the arena.
type Stats struct {
	Files        int `json:"files"`
	Trees        int `json:"trees"`
	Declarations int `json:"declarations"`
	Version      int `json:"version"`
}

// Index is the binding arena.
type Index struct {
	fe    ports.HostFrontEnd
	cache ports.BindingCache
	log   *slog.Logger

	slots   map[string]*slot
	version int

	// Files seen but not retained, by hash, so a rescan of an unchanged
	// file without bindings is also a no-op.
	ignored map[string]uint64

	memoVersion int
	memo        []Declaration

	pendingSave   map[string]ports.CachedSymbols
	pendingDelete map[string]bool
}

// NewIndex creates an empty index. fe may be nil, in which case only cached
// files can be installed. cache may be nil to disable persistence.
func NewIndex(fe ports.HostFrontEnd, cache ports.BindingCache, log *slog.Logger) *Index {
	if log == nil {
		log = slog.Default()
	}
	return &Index{
		fe:            fe,
		cache:         cache,
		log:           log,
		slots:         make(map[string]*slot),
		ignored:       make(map[string]uint64),
		memoVersion:   -1,
		pendingSave:   make(map[string]ports.CachedSymbols),
		pendingDelete: make(map[string]bool),
	}
}

// FrontEnd returns the front-end the index parses with.
func (ix *Index) FrontEnd() ports.HostFrontEnd { return ix.fe }

// Cache returns the persistence port, or nil.
func (ix *Index) Cache() ports.BindingCache { return ix.cache }

// Version increments on every mutation that changes the arena.
func (ix *Index) Version() int { return ix.version }

// Len returns the number of retained files.
func (ix *Index) Len() int { return len(ix.slots) }

// Has reports whether path is retained.
func (ix *Index) Has(path string) bool {
	_, ok := ix.slots[path]
	return ok
}

// Paths returns the retained paths, sorted.
func (ix *Index) Paths() []string {
	paths := make([]string, 0, len(ix.slots))
	for p := range ix.slots {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Symbols returns the extraction of a retained file.
func (ix *Index) Symbols(path string) (*ports.FileSymbols, bool) {
	s, ok := ix.slots[path]
	if !ok {
		return nil, false
	}
	return s.symbols, true
}

func (ix *Index) unchanged(path string, hash uint64) bool {
	if s, ok := ix.slots[path]; ok {
		return s.hash == hash
	}
	if h, ok := ix.ignored[path]; ok {
		return h == hash
	}
	return false
}

// ScanFile parses path and installs it. Files with neither a [Binding] class
// nor attribute classes are discarded. Returns whether the file is retained.
func (ix *Index) ScanFile(path string, source []byte) (bool, error) {
	if ix.unchanged(path, Hash(source)) {
		return ix.Has(path), nil
	}
	p, err := Prepare(ix.fe, ix.cache, path, source, nil)
	if err != nil {
		return false, err
	}
	return ix.Install(p), nil
}

// ReplaceFile re-parses a known file incrementally from its previous tree, or
// adds it when unknown. Unchanged content is a no-op.
func (ix *Index) ReplaceFile(path string, source []byte) (bool, error) {
	hash := Hash(source)
	if ix.unchanged(path, hash) {
		return ix.Has(path), nil
	}
	var previous ports.SyntaxTree
	if s, ok := ix.slots[path]; ok {
		previous = s.tree
	}
	var (
		p   *Prepared
		err error
	)
	if previous != nil {
		p, err = Prepare(ix.fe, nil, path, source, previous)
	} else {
		p, err = Prepare(ix.fe, ix.cache, path, source, nil)
	}
	if err != nil {
		return false, err
	}
	return ix.Install(p), nil
}

// Install applies a prepared result, replacing any slot for the same path.
// Returns whether the file is retained.
func (ix *Index) Install(p *Prepared) bool {
	if p == nil {
		return false
	}
	if old, ok := ix.slots[p.Path]; ok && old.hash == p.Hash {
		if p.Tree != nil && p.Tree != old.tree {
			if old.tree == nil {
				old.tree = p.Tree
			} else {
				p.Tree.Close()
			}
		}
		return true
	}
	if !p.FromCache {
		ix.pendingSave[p.Path] = ports.CachedSymbols{Hash: p.Hash, Symbols: p.Symbols}
		delete(ix.pendingDelete, p.Path)
	}

	if !retains(p.Symbols) {
		if p.Tree != nil {
			p.Tree.Close()
		}
		ix.ignored[p.Path] = p.Hash
		if old, ok := ix.slots[p.Path]; ok {
			ix.drop(old)
			ix.version++
		}
		return false
	}

	delete(ix.ignored, p.Path)
	if old, ok := ix.slots[p.Path]; ok && old.tree != nil && old.tree != p.Tree {
		old.tree.Close()
	}
	ix.slots[p.Path] = &slot{path: p.Path, tree: p.Tree, symbols: p.Symbols, hash: p.Hash}
	ix.version++
	ix.log.Debug("binding file installed", "path", p.Path, "methods", len(p.Symbols.Methods), "cached", p.FromCache)
	return true
}

func (ix *Index) drop(s *slot) {
	if s.tree != nil {
		s.tree.Close()
	}
	delete(ix.slots, s.path)
}

// RemoveFile forgets path. Returns whether it was retained.
func (ix *Index) RemoveFile(path string) bool {
	delete(ix.ignored, path)
	delete(ix.pendingSave, path)
	ix.pendingDelete[path] = true
	s, ok := ix.slots[path]
	if !ok {
		return false
	}
	ix.drop(s)
	ix.version++
	return true
}

// RenameFile re-keys a known file without re-parsing. When oldPath is unknown
// and source is non-nil, newPath is scanned fresh.
func (ix *Index) RenameFile(oldPath, newPath string, source []byte) (bool, error) {
	if oldPath == newPath {
		return ix.Has(newPath), nil
	}
	s, ok := ix.slots[oldPath]
	if !ok {
		if h, seen := ix.ignored[oldPath]; seen {
			delete(ix.ignored, oldPath)
			ix.ignored[newPath] = h
			ix.moveCacheEntry(oldPath, newPath, ports.CachedSymbols{Hash: h, Symbols: &ports.FileSymbols{}})
			return false, nil
		}
		if source == nil {
			return false, nil
		}
		return ix.ScanFile(newPath, source)
	}
	if existing, taken := ix.slots[newPath]; taken {
		ix.drop(existing)
	}
	delete(ix.slots, oldPath)
	delete(ix.ignored, newPath)
	s.path = newPath
	ix.slots[newPath] = s
	ix.moveCacheEntry(oldPath, newPath, ports.CachedSymbols{Hash: s.hash, Symbols: s.symbols})
	ix.version++
	return true, nil
}

func (ix *Index) moveCacheEntry(oldPath, newPath string, entry ports.CachedSymbols) {
	delete(ix.pendingSave, oldPath)
	ix.pendingDelete[oldPath] = true
	delete(ix.pendingDelete, newPath)
	ix.pendingSave[newPath] = entry
}

// Flush writes pending cache changes in one batch.
func (ix *Index) Flush() error {
	if ix.cache == nil {
		clear(ix.pendingSave)
		clear(ix.pendingDelete)
		return nil
	}
	if len(ix.pendingDelete) > 0 {
		paths := make([]string, 0, len(ix.pendingDelete))
		for p := range ix.pendingDelete {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		if err := ix.cache.DeleteSymbols(paths...); err != nil {
			return specerr.Wrap(specerr.Storage, "delete cached bindings", err)
		}
		clear(ix.pendingDelete)
	}
	if len(ix.pendingSave) > 0 {
		if err := ix.cache.SaveSymbols(ix.pendingSave); err != nil {
			return specerr.Wrap(specerr.Storage, "save cached bindings", err)
		}
		ix.pendingSave = make(map[string]ports.CachedSymbols)
	}
	return nil
}

// AllDeclarations returns every step binding in the unit, ordered by path and
// position. The result is shared between calls at the same version and must
// not be modified.
func (ix *Index) AllDeclarations() []Declaration {
	if ix.memoVersion == ix.version {
		return ix.memo
	}
	paths := ix.Paths()

	var classes []ports.ClassDecl
	for _, p := range paths {
		classes = append(classes, ix.slots[p].symbols.AttributeClasses...)
	}
	stepAttrs := stepAttributeSet(classes)

	var out []Declaration
	for _, p := range paths {
		out = appendDeclarations(out, p, ix.slots[p].symbols, stepAttrs)
	}
	ix.memo = out
	ix.memoVersion = ix.version
	return out
}

func appendDeclarations(out []Declaration, path string, syms *ports.FileSymbols, stepAttrs map[string]bool) []Declaration {
	bindingClasses := make(map[string]bool, len(syms.BindingClasses))
	for _, c := range syms.BindingClasses {
		bindingClasses[c] = true
	}
	for _, m := range syms.Methods {
		if !bindingClasses[m.Class] {
			continue
		}
		for _, attr := range m.Attributes {
			name := NormalizeAttribute(attr.Name)
			if !stepAttrs[name] {
				continue
			}
			pattern, kind := patternFor(attr, m.Name)
			if pattern == "" {
				continue
			}
			out = append(out, Declaration{
				Pattern:     pattern,
				Kind:        kind,
				Path:        path,
				Range:       attr.Range,
				MethodRange: m.Range,
				Method:      m.Name,
				Class:       m.Class,
				Attribute:   name,
			})
		}
	}
	return out
}

// DeclarationsAt returns the declarations in path whose attribute or method
// spans line (0-based).
func (ix *Index) DeclarationsAt(path string, line int) []Declaration {
	var out []Declaration
	for _, d := range ix.AllDeclarations() {
		if d.Path != path {
			continue
		}
		if spans(d.Range, line) || spans(d.MethodRange, line) {
			out = append(out, d)
		}
	}
	return out
}

func spans(s ports.Span, line int) bool {
	return line >= s.StartLine && line <= s.EndLine
}

// Stats reports the arena size.
func (ix *Index) Stats() Stats {
	st := Stats{Files: len(ix.slots), Version: ix.version, Declarations: len(ix.AllDeclarations())}
	for _, s := range ix.slots {
		if s.tree != nil {
			st.Trees++
		}
	}
	return st
}

// Close releases every syntax tree.
func (ix *Index) Close() {
	for _, s := range ix.slots {
		if s.tree != nil {
			s.tree.Close()
			s.tree = nil
		}
	}
}
