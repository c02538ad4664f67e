package diagram

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/autodoc/internal/llm"
	"github.com/rohankatakam/autodoc/internal/models"
)

// fakeEngine rejects sources containing "INVALID" and crashes on "CRASH"
type fakeEngine struct {
	renders []string
	closed  bool
}

func (e *fakeEngine) Render(ctx context.Context, source string) ([]byte, error) {
	e.renders = append(e.renders, source)
	switch {
	case strings.Contains(source, "CRASH"):
		return nil, errors.New("browser process exited")
	case strings.Contains(source, "INVALID"):
		return nil, &SyntaxError{Message: "Parse error on line 2"}
	}
	return []byte("png:" + source), nil
}

func (e *fakeEngine) Close() error {
	e.closed = true
	return nil
}

func factory(e *fakeEngine) EngineFactory {
	return func(context.Context) (Engine, error) { return e, nil }
}

// scriptedRepairer returns fixes in order and records every request
type scriptedRepairer struct {
	fixes  []string
	errors []string
}

func (r *scriptedRepairer) Repair(ctx context.Context, source, renderError string) (string, error) {
	r.errors = append(r.errors, renderError)
	if len(r.fixes) == 0 {
		return "", errors.New("no fix")
	}
	fix := r.fixes[0]
	r.fixes = r.fixes[1:]
	return fix, nil
}

func TestRenderAllRepairsAndRestartsBatch(t *testing.T) {
	eng := &fakeEngine{}
	rep := &scriptedRepairer{fixes: []string{"graph TD\n A-->B"}}
	r := NewRenderer(factory(eng), rep)

	out, err := r.RenderAll(context.Background(), []string{"graph TD\n X-->Y", "graph TD\n INVALID"})
	require.NoError(t, err)

	require.Len(t, out.Rendered, 2)
	assert.False(t, out.Rendered[0].Repaired)
	assert.True(t, out.Rendered[1].Repaired)
	assert.Equal(t, "graph TD\n A-->B", out.Rendered[1].Source)
	assert.Equal(t, 1, out.Repairs)
	assert.Equal(t, []string{"Parse error on line 2"}, rep.errors)
	// the restart re-renders the first diagram
	assert.Len(t, eng.renders, 4)
	assert.True(t, eng.closed)
}

func TestRenderAllSkipsWhenRepairStillInvalid(t *testing.T) {
	eng := &fakeEngine{}
	rep := &scriptedRepairer{fixes: []string{"still INVALID", "never used"}}
	r := NewRenderer(factory(eng), rep)

	out, err := r.RenderAll(context.Background(), []string{"graph TD\n X-->Y", "INVALID one", "INVALID two"})
	require.NoError(t, err)

	require.Len(t, out.Rendered, 1)
	assert.Equal(t, 0, out.Rendered[0].Index)
	assert.Equal(t, []int{1, 2}, out.Skipped)
	assert.Equal(t, 1, out.Repairs, "the restarted pass never repairs")
	assert.LessOrEqual(t, out.Repairs, MaxRepairs)
}

func TestRenderAllWithoutRepairer(t *testing.T) {
	eng := &fakeEngine{}
	r := NewRenderer(factory(eng), nil)

	out, err := r.RenderAll(context.Background(), []string{"INVALID", "graph LR\n A-->B"})
	require.NoError(t, err)
	require.Len(t, out.Rendered, 1)
	assert.Equal(t, 1, out.Rendered[0].Index)
	assert.Equal(t, 0, out.Repairs)
}

func TestRenderAllRespectsCeiling(t *testing.T) {
	eng := &fakeEngine{}
	rep := &scriptedRepairer{}
	r := NewRenderer(factory(eng), rep)
	r.maxRepairs = 2

	out, err := r.RenderAll(context.Background(), []string{"INVALID a", "INVALID b", "INVALID c"})
	require.NoError(t, err)
	assert.Empty(t, out.Rendered)
	assert.Equal(t, 2, out.Repairs)
	assert.Len(t, rep.errors, 2)
}

func TestRenderAllAbortsOnEngineFailure(t *testing.T) {
	eng := &fakeEngine{}
	r := NewRenderer(factory(eng), &scriptedRepairer{})

	out, err := r.RenderAll(context.Background(), []string{"graph TD\n A-->B", "CRASH", "graph TD\n C-->D"})
	require.Error(t, err)
	require.Len(t, out.Rendered, 1)
	assert.Len(t, eng.renders, 2, "remaining diagrams are not attempted")
	assert.True(t, eng.closed)
}

func TestRenderAllEngineStartFailure(t *testing.T) {
	r := NewRenderer(func(context.Context) (Engine, error) { return nil, errors.New("no chrome") }, nil)
	_, err := r.RenderAll(context.Background(), []string{"graph TD\n A-->B"})
	assert.Error(t, err)

	out, err := r.RenderAll(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, out.Rendered)
}

func TestRenderPageEscapesSource(t *testing.T) {
	page, err := renderPage("https://example.com/m.js?a=1&b=2", "graph TD\n A[\"</script>\"]")
	require.NoError(t, err)
	assert.NotContains(t, page, `A["</script>`)
	assert.Contains(t, page, `src="https://example.com/m.js?a=1&amp;b=2"`)
}

// diagramInferer proposes diagrams and answers repair prompts
type diagramInferer struct {
	proposal any
	repairs  int
}

func (d *diagramInferer) Infer(ctx context.Context, prompt string, mode llm.Mode, key string) (llm.Result, error) {
	if mode == llm.ModeText {
		d.repairs++
		return llm.Result{Value: "graph TD\n Fixed-->Diagram"}, nil
	}
	return llm.Result{Value: d.proposal}, nil
}

func TestGeneratorWritesRenderedDiagrams(t *testing.T) {
	inf := &diagramInferer{proposal: []any{
		map[string]any{"title": "Request Flow", "source": "```mermaid\ngraph TD\n A-->B\n```"},
		map[string]any{"title": "Broken", "source": "graph TD\n INVALID"},
		map[string]any{"title": "Empty", "source": ""},
	}}
	eng := &fakeEngine{}
	gen := NewGenerator(inf, nil, NewRenderer(factory(eng), LLMRepairer{LLM: inf}), 3)

	dir := t.TempDir()
	arts, err := gen.Generate(context.Background(), &models.ProjectSummary{ProjectName: "demo", Summary: "x"}, dir)
	require.NoError(t, err)

	require.Len(t, arts, 2)
	assert.Equal(t, "Request Flow", arts[0].Title)
	assert.Equal(t, "graph TD\n A-->B", arts[0].Source)
	assert.Equal(t, filepath.Join(dir, "diagram_1_request-flow.png"), arts[0].FilePath)
	assert.True(t, arts[1].Repaired)
	assert.Equal(t, 1, inf.repairs)

	data, err := os.ReadFile(arts[0].FilePath)
	require.NoError(t, err)
	assert.Equal(t, "png:graph TD\n A-->B", string(data))
}

func TestGeneratorToleratesBadProposal(t *testing.T) {
	inf := &diagramInferer{proposal: "not a list"}
	gen := NewGenerator(inf, nil, NewRenderer(factory(&fakeEngine{}), nil), 2)
	arts, err := gen.Generate(context.Background(), &models.ProjectSummary{ProjectName: "demo"}, t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, arts)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "request-flow", slug("Request Flow!"))
	assert.Equal(t, "diagram", slug("???"))
	assert.LessOrEqual(t, len(slug(strings.Repeat("abc ", 30))), 40)
}

func TestPageFailureClassification(t *testing.T) {
	timeout := context.DeadlineExceeded

	live := &ChromeEngine{browserCtx: context.Background()}
	var syntaxErr *SyntaxError
	require.ErrorAs(t, live.pageFailure(context.Background(), timeout), &syntaxErr)
	assert.Contains(t, syntaxErr.Message, "did not finish")

	browserCtx, cancel := context.WithCancel(context.Background())
	cancel()
	gone := &ChromeEngine{browserCtx: browserCtx}
	err := gone.pageFailure(context.Background(), timeout)
	assert.False(t, errors.As(err, &syntaxErr))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	callerCtx, stop := context.WithCancel(context.Background())
	stop()
	err = live.pageFailure(callerCtx, timeout)
	assert.False(t, errors.As(err, &syntaxErr))
}
