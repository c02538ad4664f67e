package treesitter

import (
	"fmt"
	"log/slog"
	"strings"
)

// maxOutlineEntries bounds the hint block so it never dominates a prompt
const maxOutlineEntries = 60

// Outline renders the declarations of a chunk as prompt hints, one per line.
// It returns "" for unsupported languages, parse failures and chunks without
// declarations.
func Outline(filePath, source string) string {
	if DetectLanguage(filePath) == "" {
		return ""
	}
	decls, err := Declarations(filePath, []byte(source))
	if err != nil {
		slog.Debug("outline unavailable", "file", filePath, "error", err)
		return ""
	}
	return FormatOutline(decls)
}

// FormatOutline renders declarations in source order
func FormatOutline(decls []Declaration) string {
	if len(decls) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, d := range decls {
		if i == maxOutlineEntries {
			sb.WriteString(fmt.Sprintf("... %d more\n", len(decls)-i))
			break
		}
		name := d.Name
		if d.Owner != "" {
			name = d.Owner + "." + d.Name
		}
		sb.WriteString(fmt.Sprintf("%s %s (line %d)", d.Kind, name, d.Line))
		if d.Signature != "" && d.Kind != "import" {
			sb.WriteString(": ")
			sb.WriteString(d.Signature)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// LanguageName is a display name for the file's language, or "" when unknown
func LanguageName(filePath string) string {
	switch DetectLanguage(filePath) {
	case "javascript", "jsx":
		return "JavaScript"
	case "typescript", "tsx":
		return "TypeScript"
	case "python":
		return "Python"
	case "go":
		return "Go"
	}
	return ""
}
