package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_ReproducesInput(t *testing.T) {
	inputs := []string{
		"a\nb\nc\n",
		"no trailing newline\nsecond line",
		"one two three four five six\nseven\n\n\neight nine\n",
		"\n\n\n",
		"single",
		strings.Repeat("word ", 50) + "\n" + strings.Repeat("x\n", 20),
	}
	budgets := []int{1, 2, 3, 5, 10, 1000}

	for _, input := range inputs {
		for _, budget := range budgets {
			t.Run(fmt.Sprintf("%q/%d", truncate(input), budget), func(t *testing.T) {
				chunks := Split(input, budget)
				assert.Equal(t, input, strings.Join(chunks, ""))
				for _, c := range chunks {
					assert.NotEmpty(t, c)
				}
			})
		}
	}
}

func TestSplit_RespectsBudget(t *testing.T) {
	input := "a b c\nd e\nf\ng h i j\nk\n"
	chunks := SplitWithRanges(input, 4)
	require.NotEmpty(t, chunks)

	for _, c := range chunks {
		lines := splitLines(c.Text)
		if len(lines) == 1 {
			continue
		}
		assert.LessOrEqual(t, c.Tokens, 4, "chunk %d: %q", c.Index, c.Text)
	}
	assert.Equal(t, []string{"a b c\n", "d e\nf\n", "g h i j\n", "k\n"}, Split(input, 4))
}

func TestSplit_OversizeLineStandsAlone(t *testing.T) {
	big := strings.Repeat("tok ", 20) + "\n"
	input := "small\n" + big + "tail\n"

	chunks := Split(input, 5)
	require.Len(t, chunks, 3)
	assert.Equal(t, "small\n", chunks[0])
	assert.Equal(t, big, chunks[1])
	assert.Equal(t, "tail\n", chunks[2])
}

func TestSplit_EmptyInput(t *testing.T) {
	assert.Nil(t, Split("", 10))
	assert.Nil(t, SplitWithRanges("", 10))
}

func TestSplit_NonPositiveBudgetKeepsWholeText(t *testing.T) {
	chunks := SplitWithRanges("a\nb\n", 0)
	require.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 3, chunks[0].EndLine)
}

func TestSplitWithRanges_LineRangesAreContiguous(t *testing.T) {
	var sb strings.Builder
	for i := 1; i <= 30; i++ {
		fmt.Fprintf(&sb, "line %d has some words\n", i)
	}
	chunks := SplitWithRanges(sb.String(), 12)
	require.Greater(t, len(chunks), 1)

	next := 1
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, next, c.StartLine)
		assert.Equal(t, next-1, c.Offset())
		assert.Equal(t, CountLines(c.Text), c.LineCount())
		next = c.EndLine
	}
	assert.Equal(t, 31, next)
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 0, CountLines(""))
	assert.Equal(t, 1, CountLines("a"))
	assert.Equal(t, 1, CountLines("a\n"))
	assert.Equal(t, 2, CountLines("a\nb"))
	assert.Equal(t, 3, CountLines("\n\n\n"))
}

func truncate(s string) string {
	if len(s) > 12 {
		return s[:12]
	}
	return s
}
