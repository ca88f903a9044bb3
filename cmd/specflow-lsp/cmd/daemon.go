package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/adapters/socket"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/app"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/config"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the workspace daemon",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Index the workspace and serve queries until stopped",
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	RunE:  runDaemonStop,
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	sockPath := socket.SocketPath(root)
	if socket.NewClient(sockPath).Ping() {
		fmt.Println(mutedStyle().Render("daemon already running"))
		return nil
	}

	settings, err := config.Load(root)
	if err != nil {
		return err
	}
	a, err := app.New(app.Config{
		ProjectRoot: root,
		Settings:    settings,
		FrontEnd:    newFrontEnd(root, settings),
	})
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		a.Stop()
		return err
	}
	fmt.Printf("%s %s\n", okStyle().Render("daemon started"), sockPath)
	if a.Coordinator != nil {
		if h, err := a.Coordinator.Health(ctx); err == nil && !h.FrontEnd {
			fmt.Println(warnStyle().Render("no C# grammar available: binding files are not indexed"))
		}
	}

	select {
	case <-ctx.Done():
	case <-a.Server.ShutdownCh():
	}
	fmt.Println(mutedStyle().Render("shutting down..."))
	return a.Stop()
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	client, _, err := daemonClient()
	if err != nil {
		fmt.Println(mutedStyle().Render("daemon is not running"))
		return nil
	}
	if err := client.Shutdown(); err != nil {
		return err
	}
	fmt.Println(okStyle().Render("daemon stopped"))
	return nil
}
