package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check daemon status",
	RunE:  runHealth,
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rescan the workspace",
	RunE:  runReindex,
}

func runHealth(cmd *cobra.Command, args []string) error {
	client, _, err := daemonClient()
	if err != nil {
		return err
	}
	health, err := client.Health()
	if err != nil {
		return err
	}
	fmt.Print(formatHealth(health))
	return nil
}

func runReindex(cmd *cobra.Command, args []string) error {
	client, _, err := daemonClient()
	if err != nil {
		return err
	}
	result, err := client.Reindex()
	if err != nil {
		return err
	}
	fmt.Print(formatReindex(result))
	return nil
}
