package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/autodoc/internal/llm"
	"github.com/rohankatakam/autodoc/internal/llm/prompts"
	"github.com/rohankatakam/autodoc/internal/models"
)

// fakeInferer answers by category key and records the order of requests
type fakeInferer struct {
	answers map[string]llm.Result
	errs    map[string]error
	calls   []string
	prompts []string
}

func (f *fakeInferer) Infer(ctx context.Context, prompt string, mode llm.Mode, key string) (llm.Result, error) {
	f.calls = append(f.calls, key)
	f.prompts = append(f.prompts, prompt)
	if err := f.errs[key]; err != nil {
		return llm.Result{}, err
	}
	if res, ok := f.answers[key]; ok {
		return res, nil
	}
	return llm.Result{Value: []any{}}, nil
}

func TestNewOrchestratorRejectsIncompleteTable(t *testing.T) {
	builders := DefaultBuilders()
	delete(builders, models.CategoryExports)

	_, err := NewOrchestrator(&fakeInferer{}, WithBuilders(builders))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exports")
}

func TestNewOrchestratorRejectsUnknownCategory(t *testing.T) {
	builders := DefaultBuilders()
	builders["macros"] = prompts.Functions

	_, err := NewOrchestrator(&fakeInferer{}, WithBuilders(builders))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "macros")
}

func TestExtractQueriesCategoriesInOrder(t *testing.T) {
	f := &fakeInferer{}
	o, err := NewOrchestrator(f)
	require.NoError(t, err)

	_, err = o.Extract(context.Background(), "x = 1\n", "a.py", "")
	require.NoError(t, err)

	want := make([]string, len(models.AllCategories))
	for i, c := range models.AllCategories {
		want[i] = string(c)
	}
	assert.Equal(t, want, f.calls)
}

func TestExtractToleratesCategoryFailures(t *testing.T) {
	f := &fakeInferer{
		answers: map[string]llm.Result{
			"functions": {Value: []any{
				map[string]any{"name": "add", "codeSnippet": "def add(a, b):", "codeLine": 99},
				"not an object",
			}},
			"variables": {Failure: &llm.ParseFailure{Reason: "bad json", Original: "{"}},
			"types":     {Value: map[string]any{"name": "oops"}},
		},
		errs: map[string]error{"classes": errors.New("connection reset")},
	}
	o, err := NewOrchestrator(f)
	require.NoError(t, err)

	res, err := o.Extract(context.Background(), "def add(a, b):\n    return a + b\n", "m.py", "")
	require.NoError(t, err)

	assert.Len(t, res.Failures, 3)
	assert.False(t, res.AllFailed())
	assert.NotContains(t, res.Objects, models.CategoryClasses)
	assert.NotContains(t, res.Objects, models.CategoryVariables)
	assert.NotContains(t, res.Objects, models.CategoryTypes)

	fns := res.Objects[models.CategoryFunctions]
	require.Len(t, fns, 1)
	assert.Equal(t, "add", fns[0].Name)
	assert.Equal(t, models.TypeFunction, fns[0].Type)
	assert.True(t, fns[0].CodeLine.Kind() == models.LineUnset, "model supplied lines are discarded")
	assert.Contains(t, res.Objects, models.CategoryImports)
}

func TestExtractAllFailed(t *testing.T) {
	errs := map[string]error{}
	for _, c := range models.AllCategories {
		errs[string(c)] = errors.New("down")
	}
	o, err := NewOrchestrator(&fakeInferer{errs: errs})
	require.NoError(t, err)

	res, err := o.Extract(context.Background(), "x", "x.js", "")
	require.NoError(t, err)
	assert.True(t, res.AllFailed())
	assert.Equal(t, 0, res.Objects.Count())
}

func TestExtractStopsOnCancellation(t *testing.T) {
	f := &fakeInferer{}
	o, err := NewOrchestrator(f)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = o.Extract(ctx, "x", "x.js", "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.calls)
}

func TestExtractPassesOutlineAndContext(t *testing.T) {
	f := &fakeInferer{}
	o, err := NewOrchestrator(f, WithOutline(func(path, src string) string {
		return "function main (line 1)"
	}))
	require.NoError(t, err)

	_, err = o.Extract(context.Background(), "function main() {}", "index.js", "Frontend team")
	require.NoError(t, err)
	for _, p := range f.prompts {
		assert.True(t, strings.Contains(p, "function main (line 1)"))
		assert.True(t, strings.Contains(p, "Frontend team"))
	}
}

func TestNormalizeObjectDefaultsSubObjects(t *testing.T) {
	obj := models.CodeObject{
		Name:       "Invoice",
		CodeLine:   models.At(4),
		SubObjects: []models.CodeObject{{Name: "total", CodeLine: models.At(7)}},
	}
	got := normalizeObject(obj, models.CategoryClasses)
	assert.Equal(t, models.TypeClass, got.Type)
	assert.Equal(t, models.TypeMethod, got.SubObjects[0].Type)
	assert.True(t, got.SubObjects[0].CodeLine.Kind() == models.LineUnset)
}
