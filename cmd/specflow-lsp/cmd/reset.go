package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/adapters/socket"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/app"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the binding cache of this workspace",
	Long:  "Deletes .specflow/bindings.db so the next start re-parses every binding file. The daemon must be stopped.",
	RunE:  runReset,
}

func runReset(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	if socket.NewClient(socket.SocketPath(root)).Ping() {
		return fmt.Errorf("the daemon holds the cache open; stop it first: specflow-lsp daemon stop")
	}
	if err := app.NewPaths(root).ResetCache(); err != nil {
		return err
	}
	fmt.Println(okStyle().Render("binding cache reset"))
	return nil
}
