package prompts

import (
	"fmt"
	"strings"
)

// Diagrams asks for a set of mermaid diagrams describing the project
func Diagrams(projectName, summary string, context []string, count int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Create %d mermaid diagrams that explain the architecture of the project %q.\n\n", count, projectName))
	sb.WriteString("PROJECT SUMMARY:\n")
	sb.WriteString(summary)
	sb.WriteString("\n\n")

	if len(context) > 0 {
		sb.WriteString("REPRESENTATIVE CODE:\n")
		for _, c := range context {
			sb.WriteString(truncate(c, 1000))
			sb.WriteString("\n---\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString(`Use flowchart, sequenceDiagram or classDiagram syntax. Quote node labels that contain
punctuation. Answer in JSON only:
{
  "diagrams": [
    {"title": "short title", "source": "mermaid source without fences"}
  ]
}`)
	return sb.String()
}

// DiagramRepair asks the model to fix a diagram the renderer rejected
func DiagramRepair(source, renderError string) string {
	return fmt.Sprintf(`The following mermaid diagram failed to render.

ERROR:
%s

DIAGRAM:
%s

Return the corrected mermaid source only, without fences or commentary. Keep the
meaning of the diagram; change only what is needed to make it valid.`, renderError, source)
}
