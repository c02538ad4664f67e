package diagram

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rohankatakam/autodoc/internal/errors"
	"github.com/rohankatakam/autodoc/internal/logging"
	"github.com/rohankatakam/autodoc/internal/llm"
	"github.com/rohankatakam/autodoc/internal/llm/prompts"
	"github.com/rohankatakam/autodoc/internal/models"
	"github.com/rohankatakam/autodoc/internal/vectorstore"
)

// LLMRepairer asks the model for a corrected diagram source
type LLMRepairer struct {
	LLM llm.Inferer
}

// Repair returns the model's corrected source, without fences
func (r LLMRepairer) Repair(ctx context.Context, source, renderError string) (string, error) {
	res, err := r.LLM.Infer(ctx, prompts.DiagramRepair(source, renderError), llm.ModeText, "")
	if err != nil {
		return "", err
	}
	if res.Failure != nil {
		return "", res.Failure
	}
	return strings.TrimSpace(res.Text()), nil
}

// proposal is one diagram suggested by the model
type proposal struct {
	Title  string `json:"title"`
	Source string `json:"source"`
}

// Generator proposes diagrams for a project and renders them to PNG files
type Generator struct {
	llm      llm.Inferer
	store    vectorstore.Store
	renderer *Renderer
	count    int
	contextK int
	logger   *slog.Logger
}

// NewGenerator creates a generator; store may be vectorstore.Noop
func NewGenerator(inferer llm.Inferer, store vectorstore.Store, renderer *Renderer, count int) *Generator {
	if count <= 0 {
		count = 2
	}
	if store == nil {
		store = vectorstore.Noop{}
	}
	return &Generator{
		llm:      inferer,
		store:    store,
		renderer: renderer,
		count:    count,
		contextK: 5,
		logger:   logging.Component("diagram"),
	}
}

// Generate writes rendered diagrams into outDir and returns their artifacts.
// Diagrams that cannot be rendered are left out.
func (g *Generator) Generate(ctx context.Context, summary *models.ProjectSummary, outDir string) ([]models.DiagramArtifact, error) {
	proposals, err := g.propose(ctx, summary)
	if err != nil {
		return nil, err
	}
	if len(proposals) == 0 {
		g.logger.Warn("model proposed no diagrams")
		return nil, nil
	}

	sources := make([]string, len(proposals))
	for i, s := range proposals {
		sources[i] = s.Source
	}
	outcome, renderErr := g.renderer.RenderAll(ctx, sources)
	if renderErr != nil {
		g.logger.Warn("diagram rendering stopped early", "rendered", len(outcome.Rendered), "error", renderErr)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, errors.FileSystemError(err, "create diagram directory")
	}

	artifacts := make([]models.DiagramArtifact, 0, len(outcome.Rendered))
	for _, r := range outcome.Rendered {
		title := proposals[r.Index].Title
		if title == "" {
			title = fmt.Sprintf("Diagram %d", r.Index+1)
		}
		name := fmt.Sprintf("diagram_%d_%s.png", r.Index+1, slug(title))
		path := filepath.Join(outDir, name)
		if err := os.WriteFile(path, r.Image, 0644); err != nil {
			return artifacts, errors.FileSystemErrorf(err, "write %s", name)
		}
		artifacts = append(artifacts, models.DiagramArtifact{
			Title:    title,
			Source:   r.Source,
			FilePath: path,
			Repaired: r.Repaired,
		})
	}

	g.logger.Info("diagrams generated",
		"proposed", len(proposals),
		"rendered", len(artifacts),
		"skipped", len(outcome.Skipped),
		"repairs", outcome.Repairs,
	)
	return artifacts, nil
}

func (g *Generator) propose(ctx context.Context, summary *models.ProjectSummary) ([]proposal, error) {
	var related []string
	hits, err := g.store.Search(ctx, summary.ProjectName, summary.Summary, g.contextK)
	if err != nil {
		g.logger.Warn("diagram context search failed", "error", err)
	}
	for _, h := range hits {
		related = append(related, h.Text)
	}

	prompt := prompts.Diagrams(summary.ProjectName, summary.Summary, related, g.count)
	res, err := g.llm.Infer(ctx, prompt, llm.ModeJSON, "diagrams")
	if err != nil {
		return nil, errors.LLMError(err, "propose diagrams")
	}
	if res.Failure != nil {
		g.logger.Warn("diagram proposal unparseable", "error", res.Failure)
		return nil, nil
	}

	var proposals []proposal
	if err := llm.Decode(res.Value, &proposals); err != nil {
		g.logger.Warn("diagram proposal has the wrong shape", "error", err)
		return nil, nil
	}

	out := proposals[:0]
	for _, s := range proposals {
		s.Source = strings.TrimSpace(llm.StripFences(s.Source))
		if s.Source != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slug(s string) string {
	s = nonSlug.ReplaceAllString(strings.ToLower(s), "-")
	s = strings.Trim(s, "-")
	if len(s) > 40 {
		s = strings.TrimRight(s[:40], "-")
	}
	if s == "" {
		return "diagram"
	}
	return s
}
