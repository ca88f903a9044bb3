//go:build lean

package treesitter

import tree_sitter "github.com/tree-sitter/go-tree-sitter"

// This file is included only when building with -tags lean. No grammar is
// compiled in; the C# grammar is loaded at runtime with purego (see loadGrammar)
// from one of the configured grammar paths.
//
// Build with: go build -tags lean ./cmd/specflow-lsp/

// builtinLanguage is nil in lean builds.
func builtinLanguage() *tree_sitter.Language { return nil }
