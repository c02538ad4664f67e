package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineNumber(t *testing.T) {
	t.Run("zero value is unset", func(t *testing.T) {
		var l LineNumber
		assert.Equal(t, LineUnset, l.Kind())
		assert.Equal(t, -1, l.Wire())
		_, ok := l.Line()
		assert.False(t, ok)
	})

	t.Run("shift leaves sentinels alone", func(t *testing.T) {
		assert.Equal(t, NotFound(), NotFound().Shift(40))
		assert.Equal(t, Unset(), Unset().Shift(40))
		assert.Equal(t, At(42), At(2).Shift(40))
	})

	t.Run("At rejects non-positive lines", func(t *testing.T) {
		assert.Equal(t, Unset(), At(0))
		assert.Equal(t, Unset(), At(-2))
	})

	t.Run("json uses the integer form", func(t *testing.T) {
		obj := CodeObject{Name: "f", Type: TypeFunction, CodeLine: NotFound()}
		data, err := json.Marshal(obj)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"codeLine":-2`)

		var back CodeObject
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, LineNotFound, back.CodeLine.Kind())
	})

	t.Run("tolerates model quirks", func(t *testing.T) {
		cases := map[string]LineNumber{
			`12`:    At(12),
			`"7"`:   At(7),
			`3.0`:   At(3),
			`null`:  Unset(),
			`"n/a"`: Unset(),
			`-1`:    Unset(),
			`-2`:    NotFound(),
			`""`:    Unset(),
		}
		for input, want := range cases {
			var l LineNumber
			require.NoError(t, l.UnmarshalJSON([]byte(input)), input)
			assert.Equal(t, want, l, input)
		}
	})
}

func TestCodeObjectKey(t *testing.T) {
	named := CodeObject{Name: " run ", Type: TypeFunction, CodeSnippet: "func run() {}"}
	assert.Equal(t, IdentityKey{Value: "run", Type: TypeFunction, ByName: true}, named.Key())

	anon := CodeObject{Type: TypeImport, CodeSnippet: `import "fmt"`}
	assert.Equal(t, IdentityKey{Value: `import "fmt"`, Type: TypeImport}, anon.Key())

	sameNameOtherType := CodeObject{Name: "run", Type: TypeVariable}
	assert.NotEqual(t, named.Key(), sameNameOtherType.Key())
}

func TestObjectMapCloneIsDeep(t *testing.T) {
	m := ObjectMap{
		CategoryClasses: {{
			Name:       "A",
			Type:       TypeClass,
			SubObjects: []CodeObject{{Name: "m", Type: TypeMethod}},
		}},
	}
	c := m.Clone()
	c[CategoryClasses][0].SubObjects[0].Name = "changed"
	assert.Equal(t, "m", m[CategoryClasses][0].SubObjects[0].Name)
}

func TestObjectMapCategoriesOrder(t *testing.T) {
	m := ObjectMap{
		CategoryExports: nil,
		"zeta":          nil,
		CategoryClasses: nil,
		"alpha":         nil,
	}
	assert.Equal(t, []Category{CategoryClasses, CategoryExports, "alpha", "zeta"}, m.Categories())
}

func TestAssignFileOwnership(t *testing.T) {
	p := &ProjectSummary{
		CodeFiles: []CodeFileSummary{{
			FileName:     "a.go",
			FileLocation: "pkg/a.go",
			CodeObjects: ObjectMap{
				CategoryClasses: {{
					Name:       "A",
					FileName:   "wrong.go",
					SubObjects: []CodeObject{{Name: "m"}},
				}},
			},
		}},
	}
	p.AssignFileOwnership()

	obj := p.CodeFiles[0].CodeObjects[CategoryClasses][0]
	assert.Equal(t, "a.go", obj.FileName)
	assert.Equal(t, "pkg/a.go", obj.FileLocation)
	assert.Equal(t, "pkg/a.go", obj.SubObjects[0].FileLocation)
}
