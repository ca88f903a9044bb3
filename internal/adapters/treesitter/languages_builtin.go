//go:build !lean

package treesitter

// This file compiles the C# grammar into the binary. It is included in the
// default build but excluded when building with -tags lean, which produces a
// binary that loads the grammar dynamically from a .so/.dylib file.

import (
	"unsafe"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	ts_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
)

// langPtr wraps a Language() call that returns unsafe.Pointer.
func langPtr(p unsafe.Pointer) *tree_sitter.Language {
	return tree_sitter.NewLanguage(p)
}

// builtinLanguage returns the compiled-in C# grammar.
func builtinLanguage() *tree_sitter.Language {
	return langPtr(ts_csharp.Language())
}
