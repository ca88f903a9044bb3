package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
)

var unboundFlag bool

var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "List step occurrences with their binding counts",
	RunE:  runSteps,
}

var bindingsCmd = &cobra.Command{
	Use:   "bindings",
	Short: "List step bindings with their usage counts",
	RunE:  runBindings,
}

var completeCmd = &cobra.Command{
	Use:   "complete <file> <line> <column>",
	Short: "Show completion items at a 1-based position",
	Args:  cobra.ExactArgs(3),
	RunE:  runComplete,
}

var definitionCmd = &cobra.Command{
	Use:   "definition <file> <line>",
	Short: "Show the bindings implementing the step on a 1-based line",
	Args:  cobra.ExactArgs(2),
	RunE:  runDefinition,
}

var referencesCmd = &cobra.Command{
	Use:   "references <file> <line>",
	Short: "Show bindings of a step, or steps of a binding, on a 1-based line",
	Args:  cobra.ExactArgs(2),
	RunE:  runReferences,
}

func init() {
	stepsCmd.Flags().BoolVar(&unboundFlag, "unbound", false, "only steps without a binding")
}

func runSteps(cmd *cobra.Command, args []string) error {
	client, root, err := daemonClient()
	if err != nil {
		return err
	}
	result, err := client.Steps(unboundFlag)
	if err != nil {
		return err
	}
	fmt.Print(formatSteps(result, root))
	return nil
}

func runBindings(cmd *cobra.Command, args []string) error {
	client, root, err := daemonClient()
	if err != nil {
		return err
	}
	result, err := client.Bindings()
	if err != nil {
		return err
	}
	fmt.Print(formatBindings(result, root))
	return nil
}

func runComplete(cmd *cobra.Command, args []string) error {
	path, line, err := positionArgs(args)
	if err != nil {
		return err
	}
	col, err := oneBased("column", args[2])
	if err != nil {
		return err
	}
	client, _, err := daemonClient()
	if err != nil {
		return err
	}
	result, err := client.Complete(path, line, col)
	if err != nil {
		return err
	}
	fmt.Print(formatCompletion(result))
	return nil
}

func runDefinition(cmd *cobra.Command, args []string) error {
	path, line, err := positionArgs(args)
	if err != nil {
		return err
	}
	client, root, err := daemonClient()
	if err != nil {
		return err
	}
	result, err := client.Definition(path, line, 0)
	if err != nil {
		return err
	}
	fmt.Print(formatLocations(result, root))
	return nil
}

func runReferences(cmd *cobra.Command, args []string) error {
	path, line, err := positionArgs(args)
	if err != nil {
		return err
	}
	client, root, err := daemonClient()
	if err != nil {
		return err
	}
	result, err := client.References(path, line, 0)
	if err != nil {
		return err
	}
	fmt.Print(formatLocations(result, root))
	return nil
}

// positionArgs resolves the file argument against the working directory and
// converts the 1-based line to the 0-based line the daemon expects.
func positionArgs(args []string) (string, int, error) {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return "", 0, err
	}
	line, err := oneBased("line", args[1])
	if err != nil {
		return "", 0, err
	}
	return path, line, nil
}

func oneBased(name, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive number, got %q", name, s)
	}
	return n - 1, nil
}
