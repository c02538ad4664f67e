package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/autodoc/internal/config"
	"github.com/rohankatakam/autodoc/internal/errors"
	"github.com/rohankatakam/autodoc/internal/vectorstore"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <project> <query...>",
	Short: "Search documented chunks of a project",
	Long: `Find the chunks most similar to a query in the retrieval store filled by
'autodoc generate'.

Examples:
  autodoc search billing "where are invoices persisted"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "k", 0, "number of results (default: embedding.top_k)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if result := cfg.Validate(config.ValidationContextSearch); result.HasErrors() {
		return errors.ConfigError(result.Error())
	}

	store := openVectorStore(ctx, cfg)
	defer store.Close()
	if _, off := store.(vectorstore.Noop); off {
		return errors.ConfigError("retrieval store is unavailable; check embedding settings")
	}

	k := searchLimit
	if k <= 0 {
		k = cfg.Embedding.TopK
	}
	project, query := args[0], strings.Join(args[1:], " ")
	hits, err := store.Search(ctx, project, query, k)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Printf("No results for %q in %s\n", query, project)
		return nil
	}

	for i, h := range hits {
		meta := h.Rag.Metadata
		fmt.Printf("%d. %s:%d-%d (score %.3f)\n", i+1, meta.FileLocation, meta.StartLine, meta.EndLine, h.Score)
		fmt.Printf("%s\n\n", indentPreview(h.Text, 6))
	}
	return nil
}

func indentPreview(text string, maxLines int) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	more := 0
	if len(lines) > maxLines {
		more = len(lines) - maxLines
		lines = lines[:maxLines]
	}
	out := "   " + strings.Join(lines, "\n   ")
	if more > 0 {
		out += fmt.Sprintf("\n   ... %d more lines", more)
	}
	return out
}
