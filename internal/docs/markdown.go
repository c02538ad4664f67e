// Package docs renders a project summary as Markdown and optional HTML.
package docs

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/rohankatakam/autodoc/internal/models"
)

// Formatter writes one document
type Formatter interface {
	Format(w io.Writer) error
}

// FileFormatter renders the page for one source file
type FileFormatter struct {
	File models.CodeFileSummary
}

var categoryTitles = map[models.Category]string{
	models.CategoryClasses:    "Classes",
	models.CategoryFunctions:  "Functions",
	models.CategoryVariables:  "Variables",
	models.CategoryTypes:      "Types",
	models.CategoryInterfaces: "Interfaces",
	models.CategoryImports:    "Imports",
	models.CategoryExports:    "Exports",
}

func (f *FileFormatter) Format(w io.Writer) error {
	file := f.File
	fmt.Fprintf(w, "# %s\n\n", file.FileLocation)

	meta := []string{}
	if file.Language != "" {
		meta = append(meta, "Language: "+file.Language)
	}
	meta = append(meta, fmt.Sprintf("Lines: %d", file.LineCount), fmt.Sprintf("Chunks: %d", file.ChunkCount))
	if file.ProcessingStatus != models.StatusSuccess {
		meta = append(meta, "Status: "+string(file.ProcessingStatus))
	}
	fmt.Fprintf(w, "> %s\n\n", strings.Join(meta, " | "))

	if file.ProcessingError != "" {
		fmt.Fprintf(w, "**Processing error:** %s\n\n", file.ProcessingError)
	}

	if file.CodeSummary.Goal != "" || len(file.CodeSummary.Features) > 0 {
		fmt.Fprintf(w, "## Summary\n\n")
		if file.CodeSummary.Goal != "" {
			fmt.Fprintf(w, "%s\n\n", file.CodeSummary.Goal)
		}
		if len(file.CodeSummary.Features) > 0 {
			fmt.Fprintf(w, "### Features\n\n")
			for _, feat := range file.CodeSummary.Features {
				fmt.Fprintf(w, "- %s\n", feat)
			}
			fmt.Fprintf(w, "\n")
		}
	}

	lang := fenceLanguage(file.Language)
	for _, cat := range file.CodeObjects.Categories() {
		objs := file.CodeObjects[cat]
		if len(objs) == 0 {
			continue
		}
		title, ok := categoryTitles[cat]
		switch {
		case ok:
		case cat == "":
			title = "Other"
		default:
			title = strings.ToUpper(string(cat[:1])) + string(cat[1:])
		}
		fmt.Fprintf(w, "## %s\n\n", title)

		// imports and exports read better as a list
		if cat == models.CategoryImports || cat == models.CategoryExports {
			for _, obj := range objs {
				fmt.Fprintf(w, "- %s%s\n", inlineCode(label(obj)), lineSuffix(obj.CodeLine))
			}
			fmt.Fprintf(w, "\n")
			continue
		}
		for _, obj := range objs {
			writeObject(w, obj, 3, lang)
		}
	}
	return nil
}

func writeObject(w io.Writer, obj models.CodeObject, depth int, lang string) {
	heading := strings.Repeat("#", depth)
	fmt.Fprintf(w, "%s %s%s\n\n", heading, inlineCode(label(obj)), lineSuffix(obj.CodeLine))

	var flags []string
	if obj.Type != "" {
		flags = append(flags, string(obj.Type))
	}
	if obj.IsExported {
		flags = append(flags, "exported")
	}
	if obj.IsPrivate {
		flags = append(flags, "private")
	}
	if obj.IsAsync {
		flags = append(flags, "async")
	}
	if len(flags) > 0 {
		fmt.Fprintf(w, "*%s*\n\n", strings.Join(flags, ", "))
	}

	if obj.Description != "" {
		fmt.Fprintf(w, "%s\n\n", obj.Description)
	}

	if len(obj.FunctionParameters) > 0 {
		fmt.Fprintf(w, "| Parameter | Type | Description |\n|---|---|---|\n")
		for _, p := range obj.FunctionParameters {
			fmt.Fprintf(w, "| %s | %s | %s |\n", cell(p.Name), cell(p.Type), cell(p.Description))
		}
		fmt.Fprintf(w, "\n")
	}
	if r := obj.FunctionReturns; r != nil && (r.Type != "" || r.Description != "") {
		fmt.Fprintf(w, "**Returns:** ")
		if r.Type != "" {
			fmt.Fprintf(w, "%s ", inlineCode(r.Type))
		}
		fmt.Fprintf(w, "%s\n\n", r.Description)
	}

	if a := obj.Annotation; a != nil {
		if a.Purpose != "" {
			fmt.Fprintf(w, "**Purpose:** %s\n\n", a.Purpose)
		}
		if a.Details != "" {
			fmt.Fprintf(w, "%s\n\n", a.Details)
		}
	}

	if obj.CodeSnippet != "" {
		fmt.Fprintf(w, "```%s\n%s\n```\n\n", lang, strings.TrimRight(obj.CodeSnippet, "\n"))
	}

	next := depth + 1
	if next > 6 {
		next = 6
	}
	for _, sub := range obj.SubObjects {
		writeObject(w, sub, next, lang)
	}
}

// ReadmeFormatter renders the project landing page. Links maps file locations
// and diagram paths to their targets relative to the README.
type ReadmeFormatter struct {
	Summary *models.ProjectSummary
	Links   map[string]string
}

func (f *ReadmeFormatter) Format(w io.Writer) error {
	p := f.Summary
	fmt.Fprintf(w, "# %s\n\n", p.ProjectName)

	if p.Summary != "" {
		fmt.Fprintf(w, "%s\n\n", strings.TrimSpace(p.Summary))
	} else {
		fmt.Fprintf(w, "*No project summary was generated.*\n\n")
	}

	if len(p.Diagrams) > 0 {
		fmt.Fprintf(w, "## Diagrams\n\n")
		for _, d := range p.Diagrams {
			fmt.Fprintf(w, "### %s\n\n", d.Title)
			if link, ok := f.Links[d.FilePath]; ok {
				fmt.Fprintf(w, "![%s](%s)\n\n", d.Title, link)
			} else {
				fmt.Fprintf(w, "```mermaid\n%s\n```\n\n", d.Source)
			}
		}
	}

	if len(p.CodeFiles) > 0 {
		fmt.Fprintf(w, "## Files\n\n| File | Language | Objects | Status |\n|---|---|---|---|\n")
		for _, file := range p.CodeFiles {
			name := cell(file.FileLocation)
			if link, ok := f.Links[file.FileLocation]; ok {
				name = fmt.Sprintf("[%s](%s)", name, link)
			}
			fmt.Fprintf(w, "| %s | %s | %d | %s |\n", name, cell(file.Language), file.CodeObjects.Count(), file.ProcessingStatus)
		}
		fmt.Fprintf(w, "\n")
	}

	if len(p.Dependencies) > 0 {
		fmt.Fprintf(w, "## Dependencies\n\n| Name | Version | Scope | Manifest |\n|---|---|---|---|\n")
		for _, d := range p.Dependencies {
			fmt.Fprintf(w, "| %s | %s | %s | %s |\n", cell(d.Name), cell(d.Version), cell(d.Scope), cell(d.Manifest))
		}
		fmt.Fprintf(w, "\n")
	}

	counts := p.StatusCounts()
	fmt.Fprintf(w, "---\n\n%d of %d discovered files documented", counts[models.StatusSuccess], p.FilesDiscovered)
	if p.CompletedAt != nil {
		fmt.Fprintf(w, " on %s", p.CompletedAt.Format("2006-01-02 15:04 MST"))
	}
	fmt.Fprintf(w, ".\n")
	return nil
}

// DocPath maps a source location to its page path inside the docs directory
func DocPath(location string) string {
	clean := path.Clean(strings.ReplaceAll(location, "\\", "/"))
	clean = strings.TrimPrefix(clean, "/")
	clean = strings.ReplaceAll(clean, "../", "")
	return clean + ".md"
}

func label(obj models.CodeObject) string {
	if obj.Name != "" {
		return obj.Name
	}
	snippet := strings.TrimSpace(obj.CodeSnippet)
	if i := strings.IndexByte(snippet, '\n'); i >= 0 {
		snippet = snippet[:i]
	}
	if len(snippet) > 80 {
		snippet = snippet[:80] + "..."
	}
	if snippet == "" {
		return string(obj.Type)
	}
	return snippet
}

func lineSuffix(l models.LineNumber) string {
	if n, ok := l.Line(); ok {
		return fmt.Sprintf(" (line %d)", n)
	}
	return ""
}

func inlineCode(s string) string {
	if strings.Contains(s, "`") {
		return "`` " + s + " ``"
	}
	return "`" + s + "`"
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func fenceLanguage(lang string) string {
	switch lang {
	case "JavaScript":
		return "javascript"
	case "TypeScript":
		return "typescript"
	case "Python":
		return "python"
	case "Go":
		return "go"
	}
	return ""
}
