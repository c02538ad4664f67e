package treesitter

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Declaration is one construct the grammar recognised in a chunk
type Declaration struct {
	Kind      string // class, function, method, interface, type, import, variable
	Name      string
	Owner     string // enclosing class or receiver, when known
	Signature string
	Line      int
}

// rule turns a matched node into a Declaration
type rule func(node *sitter.Node, code []byte) (Declaration, bool)

func rulesFor(lang string) map[string]rule {
	switch lang {
	case "javascript", "jsx":
		return jsRules
	case "typescript", "tsx":
		return tsRules
	case "python":
		return pyRules
	case "go":
		return goRules
	}
	return nil
}

var jsRules = map[string]rule{
	"class_declaration":    named("class", ""),
	"function_declaration": callable("function", "function "),
	"method_definition":    method("class_declaration"),
	"arrow_function":       boundFunction,
	"function_expression":  boundFunction,
	"import_statement":     importSource,
}

var tsRules = map[string]rule{
	"class_declaration":          named("class", ""),
	"abstract_class_declaration": named("class", ""),
	"function_declaration":       callable("function", "function "),
	"method_definition":          method("class_declaration"),
	"method_signature":           method("interface_declaration"),
	"arrow_function":             boundFunction,
	"function_expression":        boundFunction,
	"interface_declaration":      named("interface", ""),
	"type_alias_declaration":     named("type", ""),
	"enum_declaration":           named("type", ""),
	"import_statement":           importSource,
}

var pyRules = map[string]rule{
	"class_definition":      pyClass,
	"function_definition":   pyFunction,
	"import_statement":      pyImport,
	"import_from_statement": pyImport,
}

var goRules = map[string]rule{
	"function_declaration": callable("function", "func "),
	"method_declaration":   goMethod,
	"type_spec":            goType,
	"import_spec":          goImport,
	"const_spec":           named("variable", "const "),
	"var_spec":             named("variable", "var "),
}

// getNodeText extracts text from a node using byte offsets
func getNodeText(node *sitter.Node, code []byte) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if int(end) > len(code) {
		end = uint(len(code))
	}
	if start > end {
		return ""
	}
	return string(code[start:end])
}

func fieldText(node *sitter.Node, field string, code []byte) string {
	return getNodeText(node.ChildByFieldName(field), code)
}

// enclosingName walks up to the nearest ancestor of the given kind
func enclosingName(node *sitter.Node, kind string, code []byte) string {
	for cur := node.Parent(); cur != nil; cur = cur.Parent() {
		if cur.Kind() == kind {
			return fieldText(cur, "name", code)
		}
	}
	return ""
}

func named(kind, prefix string) rule {
	return func(node *sitter.Node, code []byte) (Declaration, bool) {
		name := fieldText(node, "name", code)
		if name == "" {
			return Declaration{}, false
		}
		return Declaration{Kind: kind, Name: name, Signature: prefix + name}, true
	}
}

func callable(kind, prefix string) rule {
	return func(node *sitter.Node, code []byte) (Declaration, bool) {
		name := fieldText(node, "name", code)
		if name == "" {
			return Declaration{}, false
		}
		sig := prefix + name + fieldText(node, "parameters", code)
		if ret := fieldText(node, "return_type", code); ret != "" {
			sig += ": " + strings.TrimSpace(strings.TrimPrefix(ret, ":"))
		} else if ret := fieldText(node, "result", code); ret != "" {
			sig += " " + ret
		}
		return Declaration{Kind: kind, Name: name, Signature: sig}, true
	}
}

func method(ownerKind string) rule {
	return func(node *sitter.Node, code []byte) (Declaration, bool) {
		name := fieldText(node, "name", code)
		if name == "" {
			return Declaration{}, false
		}
		kind := "method"
		if name == "constructor" {
			kind = "constructor"
		}
		return Declaration{
			Kind:      kind,
			Name:      name,
			Owner:     enclosingName(node, ownerKind, code),
			Signature: name + fieldText(node, "parameters", code),
		}, true
	}
}

// boundFunction names arrow functions and function expressions after the
// variable or property they are assigned to. Unbound callbacks are skipped.
func boundFunction(node *sitter.Node, code []byte) (Declaration, bool) {
	parent := node.Parent()
	if parent == nil {
		return Declaration{}, false
	}
	var name string
	switch parent.Kind() {
	case "variable_declarator":
		name = fieldText(parent, "name", code)
	case "assignment_expression":
		name = fieldText(parent, "left", code)
	case "pair":
		name = fieldText(parent, "key", code)
	}
	if name == "" {
		return Declaration{}, false
	}
	params := fieldText(node, "parameters", code)
	if params == "" {
		params = fieldText(node, "parameter", code)
	}
	return Declaration{Kind: "function", Name: name, Signature: fmt.Sprintf("%s = %s =>", name, params)}, true
}

func importSource(node *sitter.Node, code []byte) (Declaration, bool) {
	src := strings.Trim(fieldText(node, "source", code), "\"'`")
	if src == "" {
		return Declaration{}, false
	}
	return Declaration{Kind: "import", Name: src, Signature: firstLine(getNodeText(node, code))}, true
}

func pyClass(node *sitter.Node, code []byte) (Declaration, bool) {
	name := fieldText(node, "name", code)
	if name == "" {
		return Declaration{}, false
	}
	return Declaration{Kind: "class", Name: name, Signature: "class " + name + fieldText(node, "superclasses", code)}, true
}

func pyFunction(node *sitter.Node, code []byte) (Declaration, bool) {
	name := fieldText(node, "name", code)
	if name == "" {
		return Declaration{}, false
	}
	sig := "def " + name + fieldText(node, "parameters", code)
	if ret := fieldText(node, "return_type", code); ret != "" {
		sig += " -> " + ret
	}
	d := Declaration{Kind: "function", Name: name, Signature: sig}
	if owner := enclosingName(node, "class_definition", code); owner != "" {
		d.Owner = owner
		d.Kind = "method"
		if name == "__init__" {
			d.Kind = "constructor"
		}
	}
	if strings.HasPrefix(getNodeText(node, code), "async") {
		d.Signature = "async " + d.Signature
	}
	return d, true
}

func pyImport(node *sitter.Node, code []byte) (Declaration, bool) {
	name := fieldText(node, "module_name", code)
	if name == "" {
		name = fieldText(node, "name", code)
	}
	if name == "" {
		return Declaration{}, false
	}
	return Declaration{Kind: "import", Name: name, Signature: firstLine(getNodeText(node, code))}, true
}

func goMethod(node *sitter.Node, code []byte) (Declaration, bool) {
	name := fieldText(node, "name", code)
	if name == "" {
		return Declaration{}, false
	}
	recv := fieldText(node, "receiver", code)
	sig := "func " + recv + " " + name + fieldText(node, "parameters", code)
	if res := fieldText(node, "result", code); res != "" {
		sig += " " + res
	}
	return Declaration{Kind: "method", Name: name, Owner: receiverType(recv), Signature: sig}, true
}

// receiverType reduces "(s *Server)" to "Server"
func receiverType(recv string) string {
	recv = strings.Trim(recv, "()")
	fields := strings.Fields(recv)
	if len(fields) == 0 {
		return ""
	}
	t := strings.TrimPrefix(fields[len(fields)-1], "*")
	if i := strings.Index(t, "["); i >= 0 {
		t = t[:i]
	}
	return t
}

func goType(node *sitter.Node, code []byte) (Declaration, bool) {
	name := fieldText(node, "name", code)
	if name == "" {
		return Declaration{}, false
	}
	kind := "type"
	if t := node.ChildByFieldName("type"); t != nil {
		switch t.Kind() {
		case "struct_type":
			kind = "class"
		case "interface_type":
			kind = "interface"
		}
	}
	return Declaration{Kind: kind, Name: name, Signature: "type " + name}, true
}

func goImport(node *sitter.Node, code []byte) (Declaration, bool) {
	path := strings.Trim(fieldText(node, "path", code), "\"`")
	if path == "" {
		return Declaration{}, false
	}
	return Declaration{Kind: "import", Name: path, Signature: firstLine(getNodeText(node, code))}, true
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}
