//go:build cgo

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/adapters/treesitter"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/config"
)

var grammarCmd = &cobra.Command{
	Use:   "grammar",
	Short: "Show where the C# grammar is loaded from",
	RunE:  runGrammar,
}

func runGrammar(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	settings, err := config.Load(root)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle().Render("C# grammar"))
	if newFrontEnd(root, settings) != nil {
		printField("Status", okStyle().Render("available"))
	} else {
		printField("Status", warnStyle().Render("missing"))
	}
	lib := treesitter.GrammarLibrary()
	for _, dir := range grammarPaths(root, settings) {
		mark := mutedStyle().Render("-")
		if _, err := os.Stat(filepath.Join(dir, lib)); err == nil {
			mark = okStyle().Render("✓")
		}
		fmt.Printf("  %s %s\n", mark, dir)
	}
	return nil
}
