//go:build cgo

package cmd

import (
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/adapters/treesitter"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/config"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/ports"
)

// newFrontEnd returns the tree-sitter C# front-end, or nil when no grammar
// is compiled in and none is found on the grammar paths.
func newFrontEnd(root string, settings *config.Config) ports.HostFrontEnd {
	fe := treesitter.NewFrontEnd()
	fe.SetGrammarPaths(grammarPaths(root, settings))
	if !fe.Available() {
		return nil
	}
	return fe
}

func grammarPaths(root string, settings *config.Config) []string {
	return append(append([]string(nil), settings.GrammarPaths...), treesitter.DefaultGrammarPaths(root)...)
}
