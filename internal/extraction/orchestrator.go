package extraction

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rohankatakam/autodoc/internal/logging"
	"github.com/rohankatakam/autodoc/internal/llm"
	"github.com/rohankatakam/autodoc/internal/llm/prompts"
	"github.com/rohankatakam/autodoc/internal/models"
)

// PromptBuilder renders the request for one category
type PromptBuilder func(prompts.ExtractionInput) string

// OutlineFunc returns parser-found declarations for a chunk, or "" when the
// language is not supported
type OutlineFunc func(filePath, source string) string

// DefaultBuilders maps every category to its prompt
func DefaultBuilders() map[models.Category]PromptBuilder {
	return map[models.Category]PromptBuilder{
		models.CategoryClasses:    prompts.Classes,
		models.CategoryFunctions:  prompts.Functions,
		models.CategoryVariables:  prompts.Variables,
		models.CategoryTypes:      prompts.Types,
		models.CategoryInterfaces: prompts.Interfaces,
		models.CategoryImports:    prompts.Imports,
		models.CategoryExports:    prompts.Exports,
	}
}

// CategoryFailure records why one category contributed nothing
type CategoryFailure struct {
	Category models.Category
	Err      error
}

// Result is one chunk's extraction. Objects holds only categories that answered.
type Result struct {
	Objects   models.ObjectMap
	Failures  []CategoryFailure
	Attempted int
}

// AllFailed reports whether no category produced a usable answer
func (r Result) AllFailed() bool {
	return r.Attempted > 0 && len(r.Failures) == r.Attempted
}

// Orchestrator issues one request per category for a chunk, strictly in order
type Orchestrator struct {
	llm        llm.Inferer
	builders   map[models.Category]PromptBuilder
	categories []models.Category
	outline    OutlineFunc
	logger     *slog.Logger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithBuilders replaces the category table
func WithBuilders(b map[models.Category]PromptBuilder) Option {
	return func(o *Orchestrator) { o.builders = b }
}

// WithOutline enables structural hints in every prompt
func WithOutline(fn OutlineFunc) Option {
	return func(o *Orchestrator) { o.outline = fn }
}

// NewOrchestrator resolves the category table once. A category without a
// builder, or a builder for an unknown category, is rejected here rather than
// silently skipped at extraction time.
func NewOrchestrator(inferer llm.Inferer, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		llm:        inferer,
		builders:   DefaultBuilders(),
		categories: models.AllCategories,
		logger:     logging.Component("extraction"),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.llm == nil {
		return nil, fmt.Errorf("extraction requires an LLM")
	}
	for _, cat := range o.categories {
		if o.builders[cat] == nil {
			return nil, fmt.Errorf("no prompt builder for category %q", cat)
		}
	}
	for cat := range o.builders {
		if !cat.IsKnown() {
			return nil, fmt.Errorf("prompt builder registered for unknown category %q", cat)
		}
	}
	return o, nil
}

// Extract runs every category against chunkText. Category failures are logged
// and recorded; only context cancellation is returned as an error.
func (o *Orchestrator) Extract(ctx context.Context, chunkText, filePath, teamContext string) (Result, error) {
	in := prompts.ExtractionInput{
		TeamContext: teamContext,
		FilePath:    filePath,
		ChunkText:   chunkText,
	}
	if o.outline != nil {
		in.Outline = o.outline(filePath, chunkText)
	}

	result := Result{Objects: models.ObjectMap{}}
	for _, cat := range o.categories {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Attempted++

		objs, err := o.extractCategory(ctx, cat, in)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			o.logger.Warn("category extraction failed",
				"file", filePath,
				"category", cat,
				"error", err,
			)
			result.Failures = append(result.Failures, CategoryFailure{Category: cat, Err: err})
			continue
		}
		result.Objects[cat] = objs
	}

	o.logger.Debug("chunk extracted",
		"file", filePath,
		"objects", result.Objects.Count(),
		"failed_categories", len(result.Failures),
	)
	return result, nil
}

func (o *Orchestrator) extractCategory(ctx context.Context, cat models.Category, in prompts.ExtractionInput) ([]models.CodeObject, error) {
	prompt := o.builders[cat](in)

	res, err := o.llm.Infer(ctx, prompt, llm.ModeJSON, string(cat))
	if err != nil {
		return nil, err
	}
	if res.Failure != nil {
		return nil, res.Failure
	}
	if res.Value == nil {
		return []models.CodeObject{}, nil
	}

	items, ok := res.Value.([]any)
	if !ok {
		return nil, fmt.Errorf("expected an array for %q, got %T", cat, res.Value)
	}

	objs := make([]models.CodeObject, 0, len(items))
	for i, item := range items {
		var obj models.CodeObject
		if err := llm.Decode(item, &obj); err != nil {
			o.logger.Warn("dropping malformed object",
				"file", in.FilePath,
				"category", cat,
				"index", i,
				"error", err,
			)
			continue
		}
		objs = append(objs, normalizeObject(obj, cat))
	}
	return objs, nil
}

// normalizeObject fills the category's default type and discards any line the
// model invented; lines are recovered from the chunk text afterwards
func normalizeObject(obj models.CodeObject, cat models.Category) models.CodeObject {
	if obj.Type == "" {
		obj.Type = cat.DefaultObjectType()
	}
	obj.CodeLine = models.Unset()
	for i := range obj.SubObjects {
		sub := &obj.SubObjects[i]
		if sub.Type == "" {
			sub.Type = models.TypeMethod
		}
		sub.CodeLine = models.Unset()
	}
	return obj
}
