// Package linematch maps LLM-extracted code snippets back to the line they start on.
//
// Snippets returned by a model are rarely byte-identical to the source, so a
// window of chunk lines matches when every trimmed snippet line is contained in
// the corresponding chunk line. Both false positives and misses are expected.
package linematch

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/rohankatakam/autodoc/internal/logging"
	"github.com/rohankatakam/autodoc/internal/models"
)

// Recoverer assigns chunk-relative line numbers to extracted objects
type Recoverer struct {
	logger *slog.Logger
	find   func(snippet string, chunkLines []string) models.LineNumber
}

// New creates a recoverer that logs through the default slog logger
func New() *Recoverer {
	return &Recoverer{
		logger: logging.Component("linematch"),
		find:   findInLines,
	}
}

// Recover is a convenience wrapper around New().Recover
func Recover(objects models.ObjectMap, chunkText string) models.ObjectMap {
	return New().Recover(objects, chunkText)
}

// Recover returns a copy of objects where every object's CodeLine is its 1-based
// start line within chunkText, or NotFound when no window matches. The input map
// is not modified. A failure on one object leaves that object Unset and does not
// affect the others.
func (r *Recoverer) Recover(objects models.ObjectMap, chunkText string) models.ObjectMap {
	out := objects.Clone()
	if out == nil {
		return nil
	}

	chunkLines := strings.Split(chunkText, "\n")
	for _, cat := range out.Categories() {
		objs := out[cat]
		for i := range objs {
			r.recoverObject(cat, &objs[i], chunkLines)
		}
	}
	return out
}

func (r *Recoverer) recoverObject(cat models.Category, obj *models.CodeObject, chunkLines []string) {
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Warn("line recovery failed for object",
					"category", cat,
					"name", obj.Name,
					"error", fmt.Sprint(rec),
				)
				obj.CodeLine = models.Unset()
			}
		}()
		obj.CodeLine = r.find(obj.CodeSnippet, chunkLines)
	}()

	for i := range obj.SubObjects {
		r.recoverObject(cat, &obj.SubObjects[i], chunkLines)
	}
}

// FindLine returns the 1-based line in chunkText where snippet starts
func FindLine(snippet, chunkText string) models.LineNumber {
	return findInLines(snippet, strings.Split(chunkText, "\n"))
}

func findInLines(snippet string, chunkLines []string) models.LineNumber {
	needle := snippetLines(snippet)
	if len(needle) == 0 {
		return models.NotFound()
	}

	for start := 0; start+len(needle) <= len(chunkLines); start++ {
		if windowMatches(needle, chunkLines[start:start+len(needle)]) {
			return models.At(start + 1)
		}
	}
	return models.NotFound()
}

func windowMatches(needle, window []string) bool {
	for i, want := range needle {
		if !strings.Contains(window[i], want) {
			return false
		}
	}
	return true
}

// snippetLines cleans a snippet into the trimmed lines used for matching.
// Fence markup, surrounding blank lines and a trailing ellipsis are dropped.
func snippetLines(snippet string) []string {
	cleaned := StripCodeFences(snippet)
	raw := strings.Split(cleaned, "\n")

	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		lines = append(lines, strings.TrimSpace(l))
	}

	if n := len(lines); n > 0 {
		last := strings.TrimSpace(trimEllipsis(lines[n-1]))
		if last == "" {
			lines = lines[:n-1]
		} else {
			lines[n-1] = last
		}
	}

	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func trimEllipsis(s string) string {
	s = strings.TrimSuffix(s, "...")
	s = strings.TrimSuffix(s, "…")
	return s
}

// StripCodeFences removes a surrounding ``` fence (with optional language tag)
func StripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}

	lines := strings.Split(trimmed, "\n")
	lines = lines[1:]
	if n := len(lines); n > 0 && strings.HasPrefix(strings.TrimSpace(lines[n-1]), "```") {
		lines = lines[:n-1]
	}
	return strings.Join(lines, "\n")
}

// Offset returns a copy of objects with every found line moved by offset.
// Unset and NotFound lines are left untouched.
func Offset(objects models.ObjectMap, offset int) models.ObjectMap {
	out := objects.Clone()
	if offset == 0 {
		return out
	}
	out.Walk(func(_ models.Category, obj *models.CodeObject) {
		obj.CodeLine = obj.CodeLine.Shift(offset)
	})
	return out
}
