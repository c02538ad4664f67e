package main

import (
	"fmt"
	"path/filepath"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/autodoc/internal/config"
	"github.com/rohankatakam/autodoc/internal/docs"
	"github.com/rohankatakam/autodoc/internal/errors"
	"github.com/rohankatakam/autodoc/internal/storage"
)

var docsCmd = &cobra.Command{
	Use:   "docs [snapshot]",
	Short: "Re-render documentation from a saved project summary",
	Long: `Rebuild README and per-file pages from project_summary.json without
calling the model. The snapshot defaults to <output>/project_summary.json.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDocs,
}

func init() {
	docsCmd.Flags().BoolVar(&htmlOutput, "html", false, "also write HTML pages")
	docsCmd.Flags().BoolVar(&openDocs, "open", false, "open the documentation when done")
}

func runDocs(cmd *cobra.Command, args []string) error {
	if result := cfg.Validate(config.ValidationContextDocs); result.HasErrors() {
		return errors.ConfigError(result.Error())
	}

	snapshot := filepath.Join(cfg.Output.Dir, storage.SnapshotFile)
	if len(args) == 1 {
		snapshot = args[0]
	}
	summary, err := storage.LoadSnapshot(snapshot)
	if err != nil {
		return err
	}
	if summary.CompletedAt == nil {
		logger.WithField("snapshot", snapshot).Warn("Snapshot is from an unfinished run; documenting what was processed")
	}

	res, err := docs.NewEmitter(cfg.Output.Dir, htmlOutput || cfg.Output.HTML).Emit(summary)
	if err != nil {
		return err
	}
	fmt.Printf("✅ Wrote %d pages for %s\n", len(res.Pages), summary.ProjectName)
	fmt.Printf("   %s\n", res.Readme)

	if openDocs || cfg.Output.Open {
		target := res.Readme
		if res.HTMLRoot != "" {
			target = res.HTMLRoot
		}
		if err := browser.OpenFile(target); err != nil {
			logger.WithError(err).Warn("Could not open documentation")
		}
	}
	return nil
}
