package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/adapters/socket"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/app"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
	Long:  "Shows the workspace root, state paths, socket, daemon status and the effective settings. No daemon required.",
	RunE:  runConfig,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default settings to .specflow/config.json",
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configInitCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	settings, err := config.Load(root)
	if err != nil {
		return err
	}
	paths := app.NewPaths(root)
	sockPath := socket.SocketPath(root)

	status := warnStyle().Render("not running")
	if socket.NewClient(sockPath).Ping() {
		status = okStyle().Render("running")
	}

	fmt.Println(titleStyle().Render("specflow-lsp config"))
	printField("Root", root)
	printField("Cache", paths.DB)
	printField("Log", paths.DaemonLog)
	printField("Socket", sockPath)
	printField("Daemon", status)

	data, err := json.MarshalIndent(settings, "  ", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("  %s\n  %s\n", keyStyle().Render("Settings:"), data)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	paths := app.NewPaths(root)
	if err := config.DefaultConfig().Save(root); err != nil {
		return err
	}
	fmt.Printf("%s %s\n", okStyle().Render("wrote"), paths.Config)
	return nil
}
