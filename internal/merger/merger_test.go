package merger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/autodoc/internal/models"
)

func fn(name string) models.CodeObject {
	return models.CodeObject{Name: name, Type: models.TypeFunction}
}

func names(objs []models.CodeObject) []string {
	out := make([]string, 0, len(objs))
	for _, o := range objs {
		out = append(out, o.Name)
	}
	return out
}

func TestMerge(t *testing.T) {
	t.Run("same identity collapses to one", func(t *testing.T) {
		got := Merge(
			models.ObjectMap{models.CategoryFunctions: {fn("f")}},
			models.ObjectMap{models.CategoryFunctions: {fn("f")}},
		)
		require.Len(t, got[models.CategoryFunctions], 1)
		assert.Equal(t, "f", got[models.CategoryFunctions][0].Name)
		assert.Equal(t, 2, got[models.CategoryFunctions][0].Sightings())
	})

	t.Run("disjoint categories are both kept", func(t *testing.T) {
		got := Merge(
			models.ObjectMap{models.CategoryClasses: {{Name: "A", Type: models.TypeClass}}},
			models.ObjectMap{models.CategoryFunctions: {fn("B")}},
		)
		assert.Len(t, got, 2)
		assert.Len(t, got[models.CategoryClasses], 1)
		assert.Len(t, got[models.CategoryFunctions], 1)
	})

	t.Run("order is existing then incoming", func(t *testing.T) {
		got := Merge(
			models.ObjectMap{models.CategoryFunctions: {fn("a"), fn("b")}},
			models.ObjectMap{models.CategoryFunctions: {fn("c"), fn("a"), fn("d")}},
		)
		assert.Equal(t, []string{"a", "b", "c", "d"}, names(got[models.CategoryFunctions]))
	})

	t.Run("third sighting removes every copy", func(t *testing.T) {
		first := models.ObjectMap{models.CategoryFunctions: {{Name: "x", Type: models.TypeFunction, Description: "v1"}}}
		second := models.ObjectMap{models.CategoryFunctions: {{Name: "x", Type: models.TypeFunction, Description: "v2"}}}
		third := models.ObjectMap{models.CategoryFunctions: {{Name: "x", Type: models.TypeFunction, Description: "v3"}}}

		merged := Merge(first, second)
		require.Len(t, merged[models.CategoryFunctions], 1)
		assert.Equal(t, "v1", merged[models.CategoryFunctions][0].Description)

		merged = Merge(merged, third)
		assert.Empty(t, merged[models.CategoryFunctions])
		_, present := merged[models.CategoryFunctions]
		assert.True(t, present, "category stays present even when emptied")
	})

	t.Run("three copies inside one result are removed", func(t *testing.T) {
		got := Merge(nil, models.ObjectMap{models.CategoryFunctions: {fn("x"), fn("y"), fn("x"), fn("x")}})
		assert.Equal(t, []string{"y"}, names(got[models.CategoryFunctions]))
	})

	t.Run("identity includes type", func(t *testing.T) {
		got := Merge(
			models.ObjectMap{models.CategoryExports: {{Name: "run", Type: models.TypeFunction}}},
			models.ObjectMap{models.CategoryExports: {{Name: "run", Type: models.TypeVariable}}},
		)
		assert.Len(t, got[models.CategoryExports], 2)
	})

	t.Run("anonymous objects dedupe by content", func(t *testing.T) {
		imp := models.CodeObject{Type: models.TypeImport, CodeSnippet: `import "fmt"`}
		got := Merge(
			models.ObjectMap{models.CategoryImports: {imp}},
			models.ObjectMap{models.CategoryImports: {imp, {Type: models.TypeImport, CodeSnippet: `import "os"`}}},
		)
		assert.Len(t, got[models.CategoryImports], 2)
	})

	t.Run("objects without identity are kept", func(t *testing.T) {
		empty := models.CodeObject{Type: models.TypeVariable}
		got := Merge(
			models.ObjectMap{models.CategoryVariables: {empty, empty}},
			models.ObjectMap{models.CategoryVariables: {empty}},
		)
		assert.Len(t, got[models.CategoryVariables], 3)
	})

	t.Run("unknown categories are carried through", func(t *testing.T) {
		got := Merge(models.ObjectMap{"enums": {{Name: "Color"}}}, nil)
		assert.Len(t, got["enums"], 1)
	})

	t.Run("inputs are not modified", func(t *testing.T) {
		existing := models.ObjectMap{models.CategoryFunctions: {fn("f")}}
		incoming := models.ObjectMap{models.CategoryFunctions: {fn("f"), fn("g")}}
		Merge(existing, incoming)
		assert.Len(t, existing[models.CategoryFunctions], 1)
		assert.Len(t, incoming[models.CategoryFunctions], 2)
	})
}

func TestMerge_Idempotent(t *testing.T) {
	base := Merge(nil, models.ObjectMap{
		models.CategoryFunctions: {fn("a"), fn("b"), fn("a")},
		models.CategoryClasses:   {{Name: "C", Type: models.TypeClass}},
	})

	again := Merge(base, nil)
	assert.Equal(t, base, again)

	again = Merge(base, models.ObjectMap{})
	assert.Equal(t, base, again)
}
