package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Mode tells Infer how to interpret the model's answer
type Mode int

const (
	// ModeJSON expects a JSON object or array
	ModeJSON Mode = iota
	// ModeYAML expects a YAML document
	ModeYAML
	// ModeText returns the answer as a trimmed string
	ModeText
)

func (m Mode) String() string {
	switch m {
	case ModeJSON:
		return "JSON object"
	case ModeYAML:
		return "YAML object"
	default:
		return "TEXT STRING"
	}
}

// ParseFailure is the normal failure signal for a structured answer that could
// not be decoded even after repair. Original holds the raw model output.
type ParseFailure struct {
	Reason   string
	Original string
}

func (f *ParseFailure) Error() string {
	return "unparseable model output: " + f.Reason
}

// Result is either a decoded Value or a Failure, never both
type Result struct {
	Value   any
	Failure *ParseFailure
}

// OK reports whether the answer decoded
func (r Result) OK() bool { return r.Failure == nil }

// Text returns the value as a string when it is one
func (r Result) Text() string {
	if s, ok := r.Value.(string); ok {
		return s
	}
	return ""
}

var (
	fenceRe         = regexp.MustCompile("(?s)```[a-zA-Z0-9_+-]*[ \t]*\r?\n(.*?)\r?\n?```")
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
)

// StripFences returns the body of the first fenced block, or the trimmed input
// when there is no fence
func StripFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	// unterminated fence: drop the opening line
	if strings.HasPrefix(trimmed, "```") {
		if i := strings.IndexByte(trimmed, '\n'); i >= 0 {
			return strings.TrimSpace(trimmed[i+1:])
		}
		return ""
	}
	return trimmed
}

// Parse decodes raw model output according to mode. When responseKey is set
// and the decoded value is an object, Value is that member.
func Parse(raw string, mode Mode, responseKey string) Result {
	body := StripFences(raw)

	var (
		value any
		err   error
	)
	switch mode {
	case ModeText:
		return Result{Value: body}
	case ModeYAML:
		value, err = decodeYAML(body)
	default:
		value, err = decodeJSON(body)
	}
	if err != nil {
		return Result{Failure: &ParseFailure{Reason: err.Error(), Original: raw}}
	}

	if responseKey == "" {
		return Result{Value: value}
	}
	obj, ok := value.(map[string]any)
	if !ok {
		// a bare array is what the caller wanted anyway
		return Result{Value: value}
	}
	member, ok := obj[responseKey]
	if !ok {
		return Result{Failure: &ParseFailure{
			Reason:   fmt.Sprintf("response has no %q member", responseKey),
			Original: raw,
		}}
	}
	return Result{Value: member}
}

// decodeJSON tries strict JSON, then a repaired version, then YAML which
// accepts unquoted keys and single quotes
func decodeJSON(body string) (any, error) {
	var v any
	err := json.Unmarshal([]byte(body), &v)
	if err == nil {
		return v, nil
	}

	repaired := repairJSON(body)
	if repaired != body {
		if rerr := json.Unmarshal([]byte(repaired), &v); rerr == nil {
			return v, nil
		}
	}

	if y, yerr := decodeYAML(repaired); yerr == nil {
		switch y.(type) {
		case map[string]any, []any:
			return y, nil
		}
	}
	return nil, fmt.Errorf("invalid JSON: %w", err)
}

// repairJSON cuts the outermost object or array out of surrounding prose and
// drops trailing commas
func repairJSON(s string) string {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end <= start {
		s = s[start:]
	} else {
		s = s[start : end+1]
	}
	return trailingCommaRe.ReplaceAllString(s, "$1")
}

func decodeYAML(body string) (any, error) {
	var v any
	if err := yaml.Unmarshal([]byte(body), &v); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if v == nil {
		return nil, fmt.Errorf("empty document")
	}
	return normalize(v), nil
}

// normalize converts YAML's map[any]any nodes into JSON-shaped map[string]any
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		for i := range t {
			t[i] = normalize(t[i])
		}
		return t
	default:
		return v
	}
}

// Decode converts a decoded Value into a typed destination by round-tripping
// through JSON
func Decode(value any, out any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("re-encode value: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	return nil
}
