package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/pkg/browser"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/autodoc/internal/annotate"
	"github.com/rohankatakam/autodoc/internal/diagram"
	"github.com/rohankatakam/autodoc/internal/discovery"
	"github.com/rohankatakam/autodoc/internal/docs"
	"github.com/rohankatakam/autodoc/internal/extraction"
	"github.com/rohankatakam/autodoc/internal/llm"
	"github.com/rohankatakam/autodoc/internal/logging"
	"github.com/rohankatakam/autodoc/internal/models"
	"github.com/rohankatakam/autodoc/internal/pipeline"
	"github.com/rohankatakam/autodoc/internal/storage"
	"github.com/rohankatakam/autodoc/internal/treesitter"
	"github.com/rohankatakam/autodoc/internal/vectorstore"
)

var (
	projectName  string
	teamContext  string
	testMode     bool
	withAnnotate bool
	noDiagrams   bool
	htmlOutput   bool
	openDocs     bool
	assumeYes    bool
)

var generateCmd = &cobra.Command{
	Use:   "generate [path]",
	Short: "Generate documentation for a project",
	Long: `Document every source file under path (default: current directory).

Each file is split into chunks, every chunk is sent through one extraction
prompt per category, and the results are merged into a per-file summary. The
project summary, optional annotations and diagrams follow.

Examples:
  # Document the current directory
  autodoc generate

  # Try the pipeline on the first few files only
  autodoc generate ./service --test

  # Full run with annotations and HTML, then open the result
  autodoc generate ./service --annotate --html --open`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&projectName, "name", "", "project name (default: directory name)")
	generateCmd.Flags().StringVar(&teamContext, "team", "", "team context included in every prompt")
	generateCmd.Flags().BoolVar(&testMode, "test", false, "only process the first pipeline.test_file_limit files")
	generateCmd.Flags().BoolVar(&withAnnotate, "annotate", false, "run the annotation pass")
	generateCmd.Flags().BoolVar(&noDiagrams, "no-diagrams", false, "skip diagram generation")
	generateCmd.Flags().BoolVar(&htmlOutput, "html", false, "also write HTML pages")
	generateCmd.Flags().BoolVar(&openDocs, "open", false, "open the documentation when done")
	generateCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask before large runs")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := "."
	if len(args) == 1 {
		root = args[0]
	}

	client, err := newLLMClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	store := openVectorStore(ctx, cfg)
	defer store.Close()

	history, err := openHistory(cfg)
	if err != nil {
		logger.WithError(err).Warn("Run history disabled")
	}
	if history != nil {
		defer history.Close()
	}

	// Extraction
	var orchOpts []extraction.Option
	if cfg.Pipeline.OutlineHints {
		orchOpts = append(orchOpts, extraction.WithOutline(treesitter.Outline))
	}
	orchestrator, err := extraction.NewOrchestrator(client, orchOpts...)
	if err != nil {
		return err
	}

	files := pipeline.NewFileProcessor(orchestrator, client,
		pipeline.WithStore(store),
		pipeline.WithMaxTokens(cfg.Pipeline.MaxTokensPerChunk),
		pipeline.WithSummaryPolicy(pipeline.ParseSummaryPolicy(cfg.Pipeline.SummaryPolicy)),
	)

	cwd, _ := os.Getwd()
	opts := pipeline.ProjectOptions{
		Discovery: discovery.Options{
			Include:       cfg.Pipeline.Include,
			Exclude:       cfg.Pipeline.Exclude,
			InvocationDir: cwd,
		},
		WarnFileCount: cfg.Pipeline.WarnFileCount,
		TeamContext:   cfg.Pipeline.TeamContext,
	}
	if teamContext != "" {
		opts.TeamContext = teamContext
	}
	if testMode {
		opts.Discovery.Limit = cfg.Pipeline.TestFileLimit
		logger.WithField("limit", opts.Discovery.Limit).Info("Test mode: processing a subset of files")
	}

	var confirmer pipeline.Confirmer = pipeline.NewTerminalConfirmer()
	if assumeYes {
		confirmer = pipeline.AutoConfirm{}
	}
	checkpointer := storage.NewCheckpointer(cfg.Output.Dir, history, logger)

	project := pipeline.NewProjectPipeline(files, client, opts,
		pipeline.WithConfirmer(confirmer),
		pipeline.WithCheckpointer(checkpointer),
	)

	start := time.Now()
	summary, err := project.Run(ctx, root, projectName)
	if stderrors.Is(err, pipeline.ErrAborted) {
		fmt.Println("Aborted.")
		return nil
	}
	if err != nil {
		return err
	}

	// Optional passes
	if withAnnotate {
		annotator := annotate.New(client, store, cfg.Embedding.TopK)
		report, err := annotator.Annotate(ctx, summary, filepath.Join(cfg.Output.Dir, "annotations"))
		if err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{"files": report.Files, "objects": report.Annotated, "failed": report.Failed}).Info("Annotations written")
	}

	if cfg.Diagram.Enabled && !noDiagrams {
		summary.Diagrams = generateDiagrams(ctx, client, store, summary)
	}

	if err := checkpointer.Checkpoint(ctx, summary); err != nil {
		logger.WithError(err).Warn("Final snapshot failed")
	}

	res, err := docs.NewEmitter(cfg.Output.Dir, htmlOutput || cfg.Output.HTML).Emit(summary)
	if err != nil {
		return err
	}

	printRunSummary(summary, res, time.Since(start))
	printUsage(client.Usage())

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

func generateDiagrams(ctx context.Context, client llm.Inferer, store vectorstore.Store, summary *models.ProjectSummary) []models.DiagramArtifact {
	factory := diagram.ChromeFactory(diagram.ChromeOptions{
		ExecPath:    cfg.Diagram.ChromePath,
		SettleDelay: cfg.Diagram.SettleDelay,
		Timeout:     cfg.Diagram.Timeout,
	})
	renderer := diagram.NewRenderer(factory, diagram.LLMRepairer{LLM: client}).LimitRepairs(cfg.Diagram.MaxRetries)
	gen := diagram.NewGenerator(client, store, renderer, cfg.Diagram.Count)

	arts, err := gen.Generate(ctx, summary, filepath.Join(cfg.Output.Dir, "diagrams"))
	if err != nil {
		logger.WithError(err).Warn("Diagram generation failed")
	}
	return arts
}

func printRunSummary(summary *models.ProjectSummary, res docs.Result, elapsed time.Duration) {
	counts := summary.StatusCounts()
	fmt.Printf("\n✅ Documented %s\n", summary.ProjectName)
	fmt.Printf("  Files:    %d discovered, %d processed\n", summary.FilesDiscovered, len(summary.CodeFiles))
	for _, status := range []models.ProcessingStatus{
		models.StatusSuccess, models.StatusEmpty, models.StatusErrorRead,
		models.StatusErrorParse, models.StatusErrorLLMSummary,
	} {
		if n := counts[status]; n > 0 {
			fmt.Printf("    %-18s %d\n", status, n)
		}
	}
	fmt.Printf("  Chunks:   %d retrieval records\n", len(summary.RagData))
	fmt.Printf("  Diagrams: %d\n", len(summary.Diagrams))
	fmt.Printf("  Output:   %s\n", res.Readme)
	fmt.Printf("  Elapsed:  %s\n", elapsed.Round(time.Second))
	if path := logging.GetLogFilePath(); path != "" {
		fmt.Printf("  Log:      %s\n", path)
	}
}
