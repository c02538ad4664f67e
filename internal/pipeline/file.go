// Package pipeline turns source files into documented summaries, one file and
// one chunk at a time.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rohankatakam/autodoc/internal/chunker"
	"github.com/rohankatakam/autodoc/internal/errors"
	"github.com/rohankatakam/autodoc/internal/extraction"
	"github.com/rohankatakam/autodoc/internal/linematch"
	"github.com/rohankatakam/autodoc/internal/logging"
	"github.com/rohankatakam/autodoc/internal/llm"
	"github.com/rohankatakam/autodoc/internal/llm/prompts"
	"github.com/rohankatakam/autodoc/internal/merger"
	"github.com/rohankatakam/autodoc/internal/models"
	"github.com/rohankatakam/autodoc/internal/treesitter"
	"github.com/rohankatakam/autodoc/internal/vectorstore"
)

// SummaryPolicy decides how chunk summaries become the file summary
type SummaryPolicy string

const (
	// SummaryLast keeps only the last chunk's summary
	SummaryLast SummaryPolicy = "last"
	// SummaryConcatenate joins every chunk's summary in order
	SummaryConcatenate SummaryPolicy = "concatenate"
)

// ParseSummaryPolicy maps a config value to a policy, defaulting to last
func ParseSummaryPolicy(s string) SummaryPolicy {
	if SummaryPolicy(strings.ToLower(strings.TrimSpace(s))) == SummaryConcatenate {
		return SummaryConcatenate
	}
	return SummaryLast
}

// Extractor runs every category prompt against one chunk
type Extractor interface {
	Extract(ctx context.Context, chunkText, filePath, teamContext string) (extraction.Result, error)
}

// FileResult is everything one file contributes to the project
type FileResult struct {
	Summary models.CodeFileSummary
	Rag     []models.RagData
}

// FileProcessor documents a single source file
type FileProcessor struct {
	extractor   Extractor
	llm         llm.Inferer
	store       vectorstore.Store
	recoverer   *linematch.Recoverer
	maxTokens   int
	policy      SummaryPolicy
	root        string
	projectName string
	teamContext string
	logger      *slog.Logger
	now         func() time.Time
}

// FileOption configures a FileProcessor
type FileOption func(*FileProcessor)

// WithStore persists RagData records to a vector store
func WithStore(s vectorstore.Store) FileOption {
	return func(p *FileProcessor) { p.store = s }
}

// WithMaxTokens sets the single-chunk ceiling
func WithMaxTokens(n int) FileOption {
	return func(p *FileProcessor) { p.maxTokens = n }
}

// WithSummaryPolicy sets how chunk summaries are combined
func WithSummaryPolicy(policy SummaryPolicy) FileOption {
	return func(p *FileProcessor) { p.policy = policy }
}

// WithProject sets the project root, name and team context
func WithProject(root, name, teamContext string) FileOption {
	return func(p *FileProcessor) {
		p.root = root
		p.projectName = name
		p.teamContext = teamContext
	}
}

// NewFileProcessor creates a processor; extractor and inferer are required
func NewFileProcessor(extractor Extractor, inferer llm.Inferer, opts ...FileOption) *FileProcessor {
	p := &FileProcessor{
		extractor: extractor,
		llm:       inferer,
		store:     vectorstore.Noop{},
		recoverer: linematch.New(),
		maxTokens: 1000,
		policy:    SummaryLast,
		logger:    logging.Component("pipeline"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// forProject returns a copy bound to one project run
func (p *FileProcessor) forProject(root, name, teamContext string) *FileProcessor {
	cp := *p
	cp.root = root
	cp.projectName = name
	cp.teamContext = teamContext
	return &cp
}

// chunkSummary is the YAML shape requested for every chunk
type chunkSummary struct {
	Language string   `json:"language"`
	Goal     string   `json:"goal"`
	Features []string `json:"features"`
}

// fileState accumulates one file's progress across chunks
type fileState struct {
	objects      models.ObjectMap
	rag          []models.RagData
	summaries    []chunkSummary
	language     string
	failedChunks int
	summaryErr   error
}

// ProcessFile reads and documents one file. Read, parse and summary failures
// are recorded on the returned summary; only context cancellation is returned
// as an error.
func (p *FileProcessor) ProcessFile(ctx context.Context, path string) (FileResult, error) {
	location := p.location(path)
	summary := models.CodeFileSummary{
		FileName:     filepath.Base(path),
		FileLocation: location,
		Language:     treesitter.LanguageName(path),
		CodeObjects:  models.ObjectMap{},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		p.record(&summary, errors.FileSystemError(err, "read file"))
		return FileResult{Summary: summary}, nil
	}

	text := string(data)
	summary.LineCount = chunker.CountLines(text)
	if strings.TrimSpace(text) == "" {
		summary.ProcessingStatus = models.StatusEmpty
		return FileResult{Summary: summary}, nil
	}

	chunks := p.plan(text)
	summary.ChunkCount = len(chunks)
	p.logger.Info("processing file",
		"file", location,
		"lines", summary.LineCount,
		"chunks", len(chunks),
	)

	state := &fileState{objects: models.ObjectMap{}}
	cursor := 0
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return FileResult{}, err
		}
		if err := p.processChunk(ctx, state, chunk, len(chunks), cursor, summary); err != nil {
			return FileResult{}, err
		}
		cursor += chunk.LineCount()
	}

	summary.CodeObjects = state.objects
	summary.CodeSummary = p.combine(state.summaries)
	if state.language != "" && summary.Language == "" {
		summary.Language = state.language
	}
	assignOwnership(&summary)

	var fileErr error
	switch {
	case state.failedChunks >= len(chunks):
		fileErr = errors.ParseError(fmt.Sprintf("no usable extraction in %d chunk(s)", len(chunks)))
	case state.summaryErr != nil:
		fileErr = state.summaryErr
	}
	p.record(&summary, fileErr)

	p.logger.Info("file processed",
		"file", location,
		"status", summary.ProcessingStatus,
		"objects", summary.CodeObjects.Count(),
	)
	return FileResult{Summary: summary, Rag: state.rag}, nil
}

// statusFor maps a file-level failure onto the status recorded for the file
func statusFor(err error) models.ProcessingStatus {
	if err == nil {
		return models.StatusSuccess
	}
	switch errors.GetType(err) {
	case errors.ErrorTypeFileSystem:
		return models.StatusErrorRead
	case errors.ErrorTypeLLM:
		return models.StatusErrorLLMSummary
	default:
		return models.StatusErrorParse
	}
}

// record sets the file's status from err, which may be nil
func (p *FileProcessor) record(summary *models.CodeFileSummary, err error) {
	summary.ProcessingStatus = statusFor(err)
	if err == nil {
		return
	}
	summary.ProcessingError = err.Error()
	p.logger.Warn("file degraded",
		"file", summary.FileLocation,
		"status", summary.ProcessingStatus,
		"severity", errors.GetSeverity(err),
		"error", err,
	)
}

// plan decides between the single-chunk and multi-chunk paths
func (p *FileProcessor) plan(text string) []chunker.Chunk {
	if p.maxTokens > 0 && chunker.CountTokens(text) > p.maxTokens {
		return chunker.SplitWithRanges(text, p.maxTokens)
	}
	return chunker.SplitWithRanges(text, 0)
}

// processChunk runs extract, recover, offset, merge, persist and summarize for
// one chunk. Objects and the retrieval record reach state only after the last
// phase, so a chunk that panics contributes nothing. A failed chunk is counted
// once.
func (p *FileProcessor) processChunk(ctx context.Context, state *fileState, chunk chunker.Chunk, total, cursor int, file models.CodeFileSummary) (err error) {
	failed := false
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("chunk processing panicked",
				"file", file.FileLocation,
				"chunk", chunk.Index,
				"panic", fmt.Sprint(rec),
			)
			failed = true
			err = nil
		}
		if failed {
			state.failedChunks++
		}
	}()

	// Phase 1: extract every category
	res, err := p.extractor.Extract(ctx, chunk.Text, file.FileLocation, p.teamContext)
	if err != nil {
		return err
	}
	failed = res.AllFailed()

	// Phase 2: recover chunk-relative lines, then shift to file lines
	objects := p.recoverer.Recover(res.Objects, chunk.Text)
	objects = linematch.Offset(objects, cursor)

	// Phase 3: merge into a staged copy of the file's map
	merged := merger.Merge(state.objects, objects)

	// Phase 4: persist the retrieval record
	rag := models.RagData{
		Metadata: models.RagMetadata{
			FileName:     file.FileName,
			FileLocation: file.FileLocation,
			ChunkID:      uuid.NewString(),
			ChunkIndex:   chunk.Index,
			StartLine:    cursor + 1,
			EndLine:      cursor + chunk.LineCount(),
			CodeObjects:  objects,
			CreatedAt:    p.now().UTC(),
		},
		DocumentData: chunk.Text,
	}
	if _, err := p.store.Save(ctx, p.projectName, chunk.Text, rag); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.logger.Warn("vector store save failed", "file", file.FileLocation, "chunk", chunk.Index, "error", err)
	}

	// Phase 5: summarize the chunk
	cs, sumErr := p.summarizeChunk(ctx, chunk, total, file.FileLocation)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	state.objects = merged
	if sumErr != nil {
		state.summaryErr = sumErr
	} else {
		rag.Metadata.Summary = strings.TrimSpace(cs.Goal)
		if state.language == "" {
			state.language = strings.TrimSpace(cs.Language)
		}
		state.summaries = append(state.summaries, cs)
	}
	state.rag = append(state.rag, rag)
	return nil
}

func (p *FileProcessor) summarizeChunk(ctx context.Context, chunk chunker.Chunk, total int, location string) (chunkSummary, error) {
	prompt := prompts.ChunkSummary(p.teamContext, location, chunk.Text, chunk.Index, total)
	out, err := p.llm.Infer(ctx, prompt, llm.ModeYAML, "")
	if err != nil {
		return chunkSummary{}, errors.LLMErrorf(err, "chunk %d summary", chunk.Index)
	}
	if out.Failure != nil {
		return chunkSummary{}, errors.LLMErrorf(out.Failure, "chunk %d summary", chunk.Index)
	}

	var cs chunkSummary
	if err := llm.Decode(out.Value, &cs); err != nil || strings.TrimSpace(cs.Goal) == "" {
		// Models sometimes answer in prose despite the format instructions
		text := strings.TrimSpace(out.Text())
		if text == "" {
			return chunkSummary{}, errors.New(errors.ErrorTypeLLM, errors.SeverityMedium,
				fmt.Sprintf("chunk %d summary: empty answer", chunk.Index))
		}
		cs = chunkSummary{Goal: text}
	}
	return cs, nil
}

func (p *FileProcessor) combine(summaries []chunkSummary) models.CodeSummary {
	if len(summaries) == 0 {
		return models.CodeSummary{}
	}
	if p.policy != SummaryConcatenate {
		last := summaries[len(summaries)-1]
		return models.CodeSummary{Goal: last.Goal, Features: last.Features}
	}

	goals := make([]string, 0, len(summaries))
	var features []string
	for _, s := range summaries {
		goals = append(goals, strings.TrimSpace(s.Goal))
		features = append(features, s.Features...)
	}
	return models.CodeSummary{Goal: strings.Join(goals, "\n\n"), Features: features}
}

func (p *FileProcessor) location(path string) string {
	if p.root == "" {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(p.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func assignOwnership(file *models.CodeFileSummary) {
	file.CodeObjects.Walk(func(_ models.Category, obj *models.CodeObject) {
		obj.FileName = file.FileName
		obj.FileLocation = file.FileLocation
	})
}
