package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/adapters/socket"
)

var (
	rootFlag    string
	noColorFlag bool
)

var rootCmd = &cobra.Command{
	Use:           "specflow-lsp",
	Short:         "Gherkin and SpecFlow binding index",
	Long:          "Indexes feature files and C# step bindings of a workspace and answers completion, go-to-definition and find-references queries.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// projectRoot returns --root, or the working directory.
func projectRoot() (string, error) {
	if rootFlag != "" {
		return filepath.Abs(rootFlag)
	}
	return os.Getwd()
}

// daemonClient returns a client for the workspace daemon, or an error when
// the daemon is not running.
func daemonClient() (*socket.Client, string, error) {
	root, err := projectRoot()
	if err != nil {
		return nil, "", err
	}
	client := socket.NewClient(socket.SocketPath(root))
	if !client.Ping() {
		return nil, root, errDaemonDown
	}
	return client, root, nil
}

var errDaemonDown = errors.New("daemon is not running (start it with: specflow-lsp daemon start)")

// errCheckFailed is returned by check when a feature file has errors.
var errCheckFailed = errors.New("feature files have errors")

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errCheckFailed) {
		fmt.Fprintln(os.Stderr, errorStyle().Render("error:")+" "+err.Error())
	}
	return err
}

// ExitCode maps an Execute error to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errCheckFailed):
		return 1
	case errors.Is(err, errDaemonDown):
		return 3
	}
	return 2
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "workspace root (default: current directory)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(stepsCmd)
	rootCmd.AddCommand(bindingsCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(definitionCmd)
	rootCmd.AddCommand(referencesCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(dialectsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(grammarCmd)
}
