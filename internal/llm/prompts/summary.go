package prompts

import (
	"fmt"
	"strings"
)

// ChunkSummary asks for a YAML summary of one chunk (or a whole small file)
func ChunkSummary(teamContext, filePath, chunkText string, chunkIndex, chunkCount int) string {
	var sb strings.Builder
	sb.WriteString("Summarize the following source code for a developer reading the documentation.\n\n")
	if teamContext != "" {
		sb.WriteString("PROJECT CONTEXT:\n" + teamContext + "\n\n")
	}
	sb.WriteString(fmt.Sprintf("FILE: %s", filePath))
	if chunkCount > 1 {
		sb.WriteString(fmt.Sprintf(" (part %d of %d)", chunkIndex+1, chunkCount))
	}
	sb.WriteString("\n\n")
	sb.WriteString(`Answer in YAML only, with exactly these keys:
language: the programming language
goal: one paragraph on what this code is for
features:
  - short bullet
  - short bullet

CODE:
`)
	sb.WriteString(chunkText)
	return sb.String()
}

// FileDigest is the per-file input to the project summary
type FileDigest struct {
	Location string
	Summary  string
}

// ProjectSummary folds per-file summaries into one project description
func ProjectSummary(projectName, teamContext string, files []FileDigest, deps []string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You are writing the overview section of the documentation for the project %q.\n\n", projectName))
	if teamContext != "" {
		sb.WriteString("PROJECT CONTEXT:\n" + teamContext + "\n\n")
	}

	sb.WriteString("FILE SUMMARIES:\n")
	for _, f := range files {
		if f.Summary == "" {
			continue
		}
		sb.WriteString(fmt.Sprintf("### %s\n%s\n\n", f.Location, truncate(f.Summary, 1200)))
	}

	if len(deps) > 0 {
		sb.WriteString("DEPENDENCIES: ")
		sb.WriteString(strings.Join(deps, ", "))
		sb.WriteString("\n\n")
	}

	sb.WriteString("Write 2-4 paragraphs of plain text describing what the project does, how it is organized " +
		"and how the main pieces fit together. Do not use markdown headings.")
	return sb.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
