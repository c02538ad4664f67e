package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// LineKind distinguishes a real line number from the two sentinel states
type LineKind int

const (
	// LineUnset means no line has been computed yet (wire value -1)
	LineUnset LineKind = iota
	// LineNotFound means the matcher searched and failed (wire value -2)
	LineNotFound
	// LineFound carries a real 1-based line number
	LineFound
)

const (
	wireUnset    = -1
	wireNotFound = -2
)

// LineNumber is a 1-based source line or one of the sentinel states. The zero
// value is Unset.
type LineNumber struct {
	kind LineKind
	line int
}

// Unset returns the "not yet computed" line
func Unset() LineNumber { return LineNumber{kind: LineUnset} }

// NotFound returns the "search failed" line
func NotFound() LineNumber { return LineNumber{kind: LineNotFound} }

// At returns a found line. Values below 1 are not real lines and yield Unset.
func At(n int) LineNumber {
	if n < 1 {
		return Unset()
	}
	return LineNumber{kind: LineFound, line: n}
}

// Kind returns which variant l holds
func (l LineNumber) Kind() LineKind { return l.kind }

// Line returns the line number and true only when l is a real line
func (l LineNumber) Line() (int, bool) {
	if l.kind != LineFound {
		return 0, false
	}
	return l.line, true
}

// IsFound reports whether l carries a real line
func (l LineNumber) IsFound() bool { return l.kind == LineFound }

// Shift moves a real line by offset. Sentinels are returned unchanged.
func (l LineNumber) Shift(offset int) LineNumber {
	if l.kind != LineFound {
		return l
	}
	return At(l.line + offset)
}

// Wire returns the persisted integer form (-1, -2 or the line)
func (l LineNumber) Wire() int {
	switch l.kind {
	case LineFound:
		return l.line
	case LineNotFound:
		return wireNotFound
	default:
		return wireUnset
	}
}

func (l LineNumber) String() string {
	switch l.kind {
	case LineFound:
		return strconv.Itoa(l.line)
	case LineNotFound:
		return "not-found"
	default:
		return "unset"
	}
}

// FromWire converts a persisted integer back into a LineNumber
func FromWire(n int) LineNumber {
	switch {
	case n == wireNotFound:
		return NotFound()
	case n >= 1:
		return At(n)
	default:
		return Unset()
	}
}

// MarshalJSON encodes the line as its wire integer
func (l LineNumber) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(l.Wire())), nil
}

// UnmarshalJSON accepts integers, numeric strings and null. Models occasionally
// answer with "12" or 12.0 so both are tolerated.
func (l *LineNumber) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == "" {
		*l = Unset()
		return nil
	}

	var num json.Number
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode codeLine: %w", err)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*l = Unset()
			return nil
		}
		num = json.Number(s)
	} else {
		num = json.Number(raw)
	}

	if n, err := num.Int64(); err == nil {
		*l = FromWire(int(n))
		return nil
	}
	f, err := num.Float64()
	if err != nil {
		// Non-numeric answers are treated as "not computed"
		*l = Unset()
		return nil
	}
	*l = FromWire(int(f))
	return nil
}
