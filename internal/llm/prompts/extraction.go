package prompts

import (
	"fmt"
	"strings"
)

// ExtractionInput is everything a category prompt embeds
type ExtractionInput struct {
	TeamContext string
	FilePath    string
	ChunkText   string
	// Outline lists declarations found by a parser; empty when unavailable
	Outline string
}

// objectSchema is the CodeObject shape every extraction prompt requests
const objectSchema = `{
  "name": "identifier, omit for anonymous constructs",
  "type": "%s",
  "description": "one or two sentences on what it does",
  "codeSnippet": "the first lines of the construct copied VERBATIM from the code",
  "codeLine": -1,
  "codeIndent": 0,
  "isExported": false,
  "isPrivate": false,
  "isAsync": false%s
}`

const functionExtras = `,
  "functionParameters": [{"name": "p", "type": "string", "description": "..."}],
  "functionReturns": {"type": "string", "description": "..."}`

const classExtras = `,
  "subObjects": [ /* constructors and methods, same shape, type "constructor" or "method" */ ]`

// ExtractionSystem frames every category request
const ExtractionSystem = `You are a meticulous source-code analyst producing documentation data.

RULES:
- Answer with STRICT JSON only. No prose, no markdown fences.
- Copy codeSnippet text verbatim from the code. Never paraphrase it.
- Leave codeLine at -1. Line numbers are computed afterwards.
- If nothing matches the request, answer with an empty array.`

func frame(in ExtractionInput, category, what, objType, extras string) string {
	var sb strings.Builder
	sb.WriteString(ExtractionSystem)
	sb.WriteString("\n\n")

	if in.TeamContext != "" {
		sb.WriteString("PROJECT CONTEXT:\n")
		sb.WriteString(in.TeamContext)
		sb.WriteString("\n\n")
	}

	sb.WriteString(fmt.Sprintf("FILE: %s\n\n", in.FilePath))
	sb.WriteString(fmt.Sprintf("TASK: List every %s in the code below.\n\n", what))

	if in.Outline != "" {
		sb.WriteString("DECLARATIONS FOUND BY A PARSER (hints, may be incomplete):\n")
		sb.WriteString(in.Outline)
		sb.WriteString("\n\n")
	}

	sb.WriteString("OUTPUT JSON FORMAT:\n")
	sb.WriteString(fmt.Sprintf("{\n  %q: [\n", category))
	sb.WriteString(indent(fmt.Sprintf(objectSchema, objType, extras), "    "))
	sb.WriteString("\n  ]\n}\n\n")

	sb.WriteString("CODE:\n")
	sb.WriteString(in.ChunkText)
	if !strings.HasSuffix(in.ChunkText, "\n") {
		sb.WriteString("\n")
	}
	return sb.String()
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// Classes asks for class declarations with their members as subObjects
func Classes(in ExtractionInput) string {
	return frame(in, "classes", "class (including its constructor and methods as subObjects)", "class", classExtras)
}

// Functions asks for free functions and arrow functions bound to names
func Functions(in ExtractionInput) string {
	return frame(in, "functions", "top-level function, including named arrow functions; skip class methods", "function", functionExtras)
}

// Variables asks for module-level variables and constants
func Variables(in ExtractionInput) string {
	return frame(in, "variables", "module-level variable or constant; skip locals inside functions", "variable", "")
}

// Types asks for type aliases, enums and struct definitions
func Types(in ExtractionInput) string {
	return frame(in, "types", "type alias, enum or struct definition", "type", "")
}

// Interfaces asks for interface declarations
func Interfaces(in ExtractionInput) string {
	return frame(in, "interfaces", "interface or protocol declaration", "interface", "")
}

// Imports asks for import statements; anonymous imports are identified by snippet
func Imports(in ExtractionInput) string {
	return frame(in, "imports", "import or require statement (name is the imported module)", "import", "")
}

// Exports asks for explicit export statements
func Exports(in ExtractionInput) string {
	return frame(in, "exports", "export statement or exported symbol list", "export", "")
}
