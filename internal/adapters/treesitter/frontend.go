// Package treesitter implements ports.HostFrontEnd for C# binding sources
// using the tree-sitter C# grammar.
//
// The grammar is compiled in by default. Lean builds (-tags lean) carry no
// grammar and load it at runtime from a shared library via purego; when no
// library is found, Available reports false and Parse fails with a clear
// error, so the binding index simply stays empty.
package treesitter

import (
	"errors"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/ports"
)

// Tree is a parsed C# file. It implements ports.SyntaxTree.
type Tree struct {
	tree   *tree_sitter.Tree
	source []byte
	once   sync.Once
}

// Source returns the bytes the tree was parsed from.
func (t *Tree) Source() []byte { return t.source }

// Root returns the compilation unit node.
func (t *Tree) Root() *tree_sitter.Node { return t.tree.RootNode() }

// Close releases the native tree. Safe to call more than once.
func (t *Tree) Close() {
	t.once.Do(func() { t.tree.Close() })
}

// FrontEnd parses and extracts C# binding sources. It is safe for concurrent
// use: every Parse creates its own tree-sitter parser.
type FrontEnd struct {
	mu       sync.Mutex
	language *tree_sitter.Language
	paths    []string
	loadErr  error
}

// NewFrontEnd creates a front-end backed by the compiled-in grammar, if any.
func NewFrontEnd() *FrontEnd {
	return &FrontEnd{language: builtinLanguage()}
}

// SetGrammarPaths configures where a lean build looks for the C# grammar
// shared library. Ignored when a grammar is compiled in.
func (f *FrontEnd) SetGrammarPaths(paths []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = paths
	f.loadErr = nil
}

// Available reports whether a C# grammar can be used.
func (f *FrontEnd) Available() bool {
	_, err := f.grammar()
	return err == nil
}

func (f *FrontEnd) grammar() (*tree_sitter.Language, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.language != nil {
		return f.language, nil
	}
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if len(f.paths) == 0 {
		f.loadErr = errors.New("no C# grammar compiled in and no grammar paths configured")
		return nil, f.loadErr
	}
	lang, err := loadGrammar(f.paths)
	if err != nil {
		f.loadErr = err
		return nil, err
	}
	f.language = lang
	return lang, nil
}

// Parse implements ports.HostFrontEnd. A previous *Tree is cloned, edited
// with ComputeEdit and handed to tree-sitter for an incremental parse; the
// previous tree itself is not modified.
func (f *FrontEnd) Parse(source []byte, previous ports.SyntaxTree) (ports.SyntaxTree, error) {
	lang, err := f.grammar()
	if err != nil {
		return nil, err
	}
	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(lang); err != nil {
		return nil, err
	}

	src := append([]byte(nil), source...)
	var old *tree_sitter.Tree
	if prev, ok := previous.(*Tree); ok && prev != nil {
		old = prev.tree.Clone()
		defer old.Close()
		edit := ComputeEdit(prev.source, src)
		old.Edit(&edit)
	}

	tree := parser.Parse(src, old)
	if tree == nil {
		return nil, errors.New("tree-sitter returned no tree")
	}
	return &Tree{tree: tree, source: src}, nil
}

// Extract implements ports.HostFrontEnd.
func (f *FrontEnd) Extract(tree ports.SyntaxTree) (*ports.FileSymbols, error) {
	t, ok := tree.(*Tree)
	if !ok || t == nil {
		return nil, errors.New("treesitter: foreign syntax tree")
	}
	return extractCSharp(t.Root(), t.source), nil
}
