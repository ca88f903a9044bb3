package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/app"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/dialect"
)

var dialectsCmd = &cobra.Command{
	Use:   "dialects [code]",
	Short: "List supported feature-file languages and their keywords",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDialects,
}

func runDialects(cmd *cobra.Command, args []string) error {
	table, err := app.LoadDialects("en")
	if err != nil {
		return err
	}
	codes := table.Codes()
	if len(args) == 1 {
		d, ok := table.Lookup(args[0])
		if !ok {
			return fmt.Errorf("unknown language %q (known: %s)", args[0], strings.Join(codes, ", "))
		}
		fmt.Print(formatDialect(d))
		return nil
	}
	for _, code := range codes {
		d, _ := table.Lookup(code)
		fmt.Printf("  %s  %s\n", keyStyle().Render(fmt.Sprintf("%-4s", code)), strings.Join(d.Keywords(dialect.Feature), ", "))
	}
	return nil
}
