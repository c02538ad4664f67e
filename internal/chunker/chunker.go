// Package chunker splits text into token-bounded pieces along line boundaries.
package chunker

import (
	"strings"
)

// Chunk is one piece of a source text together with its line range.
// StartLine is 1-based and EndLine is exclusive, so a chunk covering lines
// 1..3 has StartLine 1 and EndLine 4.
type Chunk struct {
	Index     int
	Text      string
	StartLine int
	EndLine   int
	Tokens    int
}

// Offset is the number of source lines that precede the chunk
func (c Chunk) Offset() int {
	return c.StartLine - 1
}

// LineCount is the number of lines in the chunk
func (c Chunk) LineCount() int {
	return c.EndLine - c.StartLine
}

// CountTokens is the cheap size proxy used for budgeting: the number of
// whitespace-delimited fields.
func CountTokens(text string) int {
	return len(strings.Fields(text))
}

// Split splits text into chunks whose token count stays within maxTokens.
// A line is never split; a single line larger than the budget becomes its own
// chunk. Concatenating the result reproduces text exactly.
func Split(text string, maxTokens int) []string {
	chunks := SplitWithRanges(text, maxTokens)
	if chunks == nil {
		return nil
	}
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

// SplitWithRanges is Split but also reports each chunk's line range
func SplitWithRanges(text string, maxTokens int) []Chunk {
	if text == "" {
		return nil
	}

	lines := splitLines(text)
	if maxTokens <= 0 {
		return []Chunk{{
			Index:     0,
			Text:      text,
			StartLine: 1,
			EndLine:   1 + len(lines),
			Tokens:    CountTokens(text),
		}}
	}

	var chunks []Chunk
	var current strings.Builder
	currentTokens := 0
	currentLines := 0
	nextStart := 1

	flush := func() {
		if currentLines == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			Index:     len(chunks),
			Text:      current.String(),
			StartLine: nextStart,
			EndLine:   nextStart + currentLines,
			Tokens:    currentTokens,
		})
		nextStart += currentLines
		current.Reset()
		currentTokens = 0
		currentLines = 0
	}

	for _, line := range lines {
		tokens := CountTokens(line)
		if currentLines > 0 && currentTokens+tokens > maxTokens {
			flush()
		}
		current.WriteString(line)
		currentTokens += tokens
		currentLines++
	}
	flush()

	return chunks
}

// splitLines splits text after every newline, keeping the newline with its line.
// A trailing newline does not produce an empty final line.
func splitLines(text string) []string {
	lines := strings.SplitAfter(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

// CountLines returns the number of lines in text using the same rules as Split
func CountLines(text string) int {
	if text == "" {
		return 0
	}
	return len(splitLines(text))
}
