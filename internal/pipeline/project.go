package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/rohankatakam/autodoc/internal/discovery"
	"github.com/rohankatakam/autodoc/internal/errors"
	"github.com/rohankatakam/autodoc/internal/logging"
	"github.com/rohankatakam/autodoc/internal/llm"
	"github.com/rohankatakam/autodoc/internal/llm/prompts"
	"github.com/rohankatakam/autodoc/internal/models"
)

// ErrAborted is returned when the user declines a large run
var ErrAborted = stderrors.New("run aborted by user")

// Checkpointer persists the project summary as it grows
type Checkpointer interface {
	Checkpoint(ctx context.Context, summary *models.ProjectSummary) error
}

// ProjectOptions configures a project run
type ProjectOptions struct {
	Discovery     discovery.Options
	WarnFileCount int
	TeamContext   string
}

// ProjectPipeline runs discovery, the per-file pipeline and the final summary
type ProjectPipeline struct {
	files      *FileProcessor
	llm        llm.Inferer
	confirmer  Confirmer
	checkpoint Checkpointer
	opts       ProjectOptions
	// gate admits one file at a time; category calls already saturate the
	// provider's rate limit
	gate   *semaphore.Weighted
	logger *slog.Logger
	now    func() time.Time
}

// ProjectOption configures a ProjectPipeline
type ProjectOption func(*ProjectPipeline)

// WithConfirmer sets how large runs are approved
func WithConfirmer(c Confirmer) ProjectOption {
	return func(p *ProjectPipeline) { p.confirmer = c }
}

// WithCheckpointer persists progress after every file
func WithCheckpointer(c Checkpointer) ProjectOption {
	return func(p *ProjectPipeline) { p.checkpoint = c }
}

// NewProjectPipeline wires a project run around a file processor
func NewProjectPipeline(files *FileProcessor, inferer llm.Inferer, opts ProjectOptions, options ...ProjectOption) *ProjectPipeline {
	p := &ProjectPipeline{
		files:     files,
		llm:       inferer,
		confirmer: NewTerminalConfirmer(),
		opts:      opts,
		gate:      semaphore.NewWeighted(1),
		logger:    logging.Component("pipeline"),
		now:       time.Now,
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Run documents every discovered file of the project and returns the summary
func (p *ProjectPipeline) Run(ctx context.Context, projectPath, projectName string) (*models.ProjectSummary, error) {
	root, err := filepath.Abs(projectPath)
	if err != nil {
		return nil, fmt.Errorf("resolve project path: %w", err)
	}
	if projectName == "" {
		projectName = filepath.Base(root)
	}

	summary := &models.ProjectSummary{
		RunID:        uuid.NewString(),
		ProjectName:  projectName,
		ProjectPath:  root,
		TeamContext:  p.opts.TeamContext,
		CodeFiles:    []models.CodeFileSummary{},
		RagData:      []models.RagData{},
		Dependencies: []models.Dependency{},
		StartedAt:    p.now().UTC(),
	}

	// Step 1: discover source files
	finder, err := discovery.NewFinder(root, p.opts.Discovery)
	if err != nil {
		return nil, err
	}
	files, err := finder.SourceFiles(p.opts.Discovery.Limit)
	if err != nil {
		return nil, err
	}
	summary.FilesDiscovered = len(files)
	p.logger.Info("discovered files", "project", projectName, "summary", discovery.Summary(files))

	// Step 2: confirm large runs
	if p.opts.WarnFileCount > 0 && len(files) > p.opts.WarnFileCount {
		msg := fmt.Sprintf("Found %d files to document (warning threshold %d). Continue?", len(files), p.opts.WarnFileCount)
		ok, err := p.confirmer.Confirm(ctx, msg)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrAborted
		}
	}

	// Step 3: dependency manifests
	deps, err := finder.Dependencies()
	if err != nil {
		p.logger.Warn("dependency discovery failed", "error", err)
	} else {
		summary.Dependencies = deps
	}

	// Step 4: process files one at a time
	fp := p.files.forProject(root, projectName, p.opts.TeamContext)
	for i, f := range files {
		if err := p.gate.Acquire(ctx, 1); err != nil {
			return summary, err
		}
		result, err := p.processFile(ctx, fp, f)
		p.gate.Release(1)
		if err != nil {
			return summary, err
		}

		summary.CodeFiles = append(summary.CodeFiles, result.Summary)
		summary.RagData = append(summary.RagData, result.Rag...)
		p.logger.Info("progress", "file", f.Rel, "done", i+1, "total", len(files))
		p.saveCheckpoint(ctx, summary)
	}

	// Step 5: project-level summary
	summary.Summary = p.summarize(ctx, summary)
	completed := p.now().UTC()
	summary.CompletedAt = &completed
	summary.AssignFileOwnership()
	p.saveCheckpoint(ctx, summary)

	p.logger.Info("project processed",
		"project", projectName,
		"files", len(summary.CodeFiles),
		"statuses", summary.StatusCounts(),
		"duration", completed.Sub(summary.StartedAt).String(),
	)
	return summary, nil
}

// processFile contains any failure escaping the file pipeline to this file
func (p *ProjectPipeline) processFile(ctx context.Context, fp *FileProcessor, f discovery.File) (result FileResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("file processing panicked",
				"file", f.Rel,
				"panic", fmt.Sprint(rec),
				"stack", string(debug.Stack()),
			)
			summary := models.CodeFileSummary{
				FileName:     filepath.Base(f.Path),
				FileLocation: f.Rel,
				Language:     f.Language,
				CodeObjects:  models.ObjectMap{},
			}
			fp.record(&summary, errors.InternalErrorf("file pipeline panicked: %v", rec))
			result = FileResult{Summary: summary}
			err = nil
		}
	}()
	return fp.ProcessFile(ctx, f.Path)
}

func (p *ProjectPipeline) summarize(ctx context.Context, summary *models.ProjectSummary) string {
	digests := make([]prompts.FileDigest, 0, len(summary.CodeFiles))
	for _, f := range summary.CodeFiles {
		digests = append(digests, prompts.FileDigest{Location: f.FileLocation, Summary: f.CodeSummary.Text()})
	}
	depNames := make([]string, 0, len(summary.Dependencies))
	for _, d := range summary.Dependencies {
		depNames = append(depNames, d.Name)
	}

	prompt := prompts.ProjectSummary(summary.ProjectName, summary.TeamContext, digests, depNames)
	res, err := p.llm.Infer(ctx, prompt, llm.ModeText, "")
	if err != nil {
		p.logger.Warn("project summary failed", "error", err)
		return ""
	}
	if res.Failure != nil {
		p.logger.Warn("project summary unparseable", "error", res.Failure)
		return ""
	}
	return res.Text()
}

func (p *ProjectPipeline) saveCheckpoint(ctx context.Context, summary *models.ProjectSummary) {
	if p.checkpoint == nil {
		return
	}
	if err := p.checkpoint.Checkpoint(ctx, summary); err != nil {
		p.logger.Warn("checkpoint failed", "error", err)
	}
}
