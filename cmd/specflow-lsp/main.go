// specflow-lsp indexes Gherkin feature files and C# step bindings of a
// workspace and answers completion, definition and references queries.
package main

import (
	"os"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/cmd/specflow-lsp/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
