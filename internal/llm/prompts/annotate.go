package prompts

import (
	"fmt"
	"strings"
)

// AnnotationInput describes one code object and its retrieved context
type AnnotationInput struct {
	ProjectName string
	FilePath    string
	ObjectType  string
	ObjectName  string
	Description string
	Snippet     string
	Context     []string
}

// Annotation asks for usage-oriented documentation of one code object
func Annotation(in AnnotationInput) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Document a %s from the project %q.\n\n", in.ObjectType, in.ProjectName))
	sb.WriteString(fmt.Sprintf("FILE: %s\n", in.FilePath))
	if in.ObjectName != "" {
		sb.WriteString(fmt.Sprintf("NAME: %s\n", in.ObjectName))
	}
	if in.Description != "" {
		sb.WriteString(fmt.Sprintf("CURRENT DESCRIPTION: %s\n", in.Description))
	}
	sb.WriteString("\nSNIPPET:\n")
	sb.WriteString(in.Snippet)
	sb.WriteString("\n\n")

	if len(in.Context) > 0 {
		sb.WriteString("RELATED CODE FROM THE PROJECT:\n")
		for i, c := range in.Context {
			sb.WriteString(fmt.Sprintf("--- context %d ---\n%s\n", i+1, truncate(c, 1500)))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(`Answer in JSON only:
{
  "purpose": "one sentence",
  "details": "how it is used, what it depends on, caveats"
}`)
	return sb.String()
}
