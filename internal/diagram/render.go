// Package diagram renders mermaid diagrams to images, asking the LLM to repair
// diagrams the renderer rejects.
package diagram

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/rohankatakam/autodoc/internal/errors"
	"github.com/rohankatakam/autodoc/internal/logging"
)

// MaxRepairs is the ceiling on repair attempts for one RenderAll call
const MaxRepairs = 4

// SyntaxError is a failure of one diagram (parse, console or page error).
// Any other error from an Engine means the engine itself is unusable.
type SyntaxError struct {
	Message string
}

func (e *SyntaxError) Error() string { return "diagram rejected: " + e.Message }

// Engine renders one diagram source to PNG bytes in an isolated page
type Engine interface {
	Render(ctx context.Context, source string) ([]byte, error)
	Close() error
}

// EngineFactory starts an engine; it is called once per RenderAll
type EngineFactory func(ctx context.Context) (Engine, error)

// Repairer proposes a corrected source for a rejected diagram
type Repairer interface {
	Repair(ctx context.Context, source, renderError string) (string, error)
}

// Rendered is one successfully rendered diagram
type Rendered struct {
	Index    int // position in the input list
	Source   string
	Image    []byte
	Repaired bool
}

// Outcome summarises a RenderAll call
type Outcome struct {
	Rendered []Rendered
	Skipped  []int
	Repairs  int
}

// retryState is threaded through every batch pass instead of living in a
// package variable
type retryState struct {
	count   int
	allowed bool
}

// Renderer drives the render-repair loop
type Renderer struct {
	newEngine  EngineFactory
	repairer   Repairer
	maxRepairs int
	logger     *slog.Logger
}

// NewRenderer creates a renderer; repairer may be nil to disable repairs
func NewRenderer(newEngine EngineFactory, repairer Repairer) *Renderer {
	return &Renderer{
		newEngine:  newEngine,
		repairer:   repairer,
		maxRepairs: MaxRepairs,
		logger:     logging.Component("diagram"),
	}
}

// LimitRepairs overrides the repair ceiling; negative values are ignored
func (r *Renderer) LimitRepairs(n int) *Renderer {
	if n >= 0 {
		r.maxRepairs = n
	}
	return r
}

// RenderAll renders every source in order. On the first rejected diagram,
// while repairs remain, the LLM repairs that source in place and the whole
// batch restarts from the first diagram with repairs disabled. Diagrams that
// still fail are skipped. An engine failure stops the batch and returns what
// was rendered so far together with the error.
func (r *Renderer) RenderAll(ctx context.Context, sources []string) (Outcome, error) {
	if len(sources) == 0 {
		return Outcome{}, nil
	}

	engine, err := r.newEngine(ctx)
	if err != nil {
		return Outcome{}, errors.RenderError(err, "start render engine")
	}
	defer func() {
		if err := engine.Close(); err != nil {
			r.logger.Warn("closing render engine", "error", err)
		}
	}()

	batch := append([]string(nil), sources...)
	repaired := make([]bool, len(batch))
	out, state, err := r.renderBatch(ctx, engine, batch, repaired, retryState{allowed: r.repairer != nil})
	out.Repairs = state.count
	return out, err
}

func (r *Renderer) renderBatch(ctx context.Context, engine Engine, sources []string, repaired []bool, state retryState) (Outcome, retryState, error) {
	var out Outcome
	for i, src := range sources {
		img, err := engine.Render(ctx, src)
		if err == nil {
			out.Rendered = append(out.Rendered, Rendered{Index: i, Source: src, Image: img, Repaired: repaired[i]})
			continue
		}

		var syntaxErr *SyntaxError
		if !stderrors.As(err, &syntaxErr) {
			r.logger.Error("render engine failed, aborting batch", "diagram", i, "error", err)
			return out, state, errors.RenderError(err, fmt.Sprintf("render diagram %d", i))
		}
		r.logger.Warn("diagram rejected", "diagram", i, "error", syntaxErr.Message)

		if state.allowed && state.count < r.maxRepairs {
			fixed, rerr := r.repairer.Repair(ctx, src, syntaxErr.Message)
			state.count++
			if rerr == nil && fixed != "" {
				sources[i] = fixed
				repaired[i] = true
				r.logger.Info("restarting batch with repaired diagram", "diagram", i, "repairs", state.count)
				return r.renderBatch(ctx, engine, sources, repaired, retryState{count: state.count, allowed: false})
			}
			r.logger.Warn("diagram repair failed", "diagram", i, "error", rerr)
		}

		out.Skipped = append(out.Skipped, i)
	}
	return out, state, nil
}
