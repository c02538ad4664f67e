package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/autodoc/internal/errors"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [project]",
	Short: "List previous documentation runs",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.ConfigError("run history is disabled (storage.type is \"none\")")
	}
	defer store.Close()

	project := ""
	if len(args) == 1 {
		project = args[0]
	}
	runs, err := store.ListRuns(context.Background(), project, historyLimit)
	if err != nil {
		return errors.StorageError(err, "list runs")
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tPROJECT\tSTATUS\tFILES\tOK\tFAILED\tCHUNKS\tDIAGRAMS")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%d\t%d\t%d\t%d\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"), r.ProjectName, r.Status,
			r.FilesProcessed, r.FilesDiscovered, r.FilesSucceeded, r.FilesFailed,
			r.RagRecords, r.Diagrams)
	}
	return w.Flush()
}
