package cmd

import (
	"fmt"
	"log/slog"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/adapters/gherkin"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/app"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/config"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/feature"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/slogutil"
)

var checkCmd = &cobra.Command{
	Use:   "check [file...]",
	Short: "Parse feature files and report syntax errors",
	Long:  "Parses the given feature files, or every feature file of the workspace, and prints their syntax errors. No daemon required.",
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	settings, err := config.Load(root)
	if err != nil {
		return err
	}
	dialects, err := app.LoadDialects(settings.DefaultLanguage)
	if err != nil {
		return err
	}

	paths := args
	if len(paths) == 0 {
		if paths, err = featureFiles(root, settings); err != nil {
			return err
		}
	}

	store := feature.NewStore(gherkin.NewParser(), dialects, slogutil.NewLogger(os.Stderr, slog.LevelWarn))
	failed := 0
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		text, err := os.ReadFile(abs)
		if err != nil {
			return err
		}
		errs := store.Index(abs, string(text))
		if len(errs) > 0 {
			failed++
		}
		fmt.Print(formatCheck(relPath(root, abs), errs))
	}
	fmt.Println(formatCheckSummary(len(paths), failed))
	if failed > 0 {
		return errCheckFailed
	}
	return nil
}

func featureFiles(root string, settings *config.Config) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && settings.IgnoresDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if settings.IsFeatureFile(path) {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}
