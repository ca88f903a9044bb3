//go:build !cgo

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var grammarCmd = &cobra.Command{
	Use:   "grammar",
	Short: "Show where the C# grammar is loaded from (requires CGo)",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("This build has no tree-sitter runtime (CGo disabled).")
		fmt.Println("Binding files are not indexed; rebuild with CGO_ENABLED=1.")
		return nil
	},
}
