package errors

import (
	stderrors "errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeAndSeverityThroughWrapping(t *testing.T) {
	base := FileSystemError(os.ErrNotExist, "read source")
	wrapped := fmt.Errorf("process main.go: %w", base)

	assert.Equal(t, ErrorTypeFileSystem, GetType(wrapped))
	assert.Equal(t, SeverityHigh, GetSeverity(wrapped))
	assert.False(t, IsFatal(wrapped))
	assert.True(t, stderrors.Is(wrapped, os.ErrNotExist))
}

func TestConfigErrorsAreFatal(t *testing.T) {
	err := fmt.Errorf("startup: %w", ConfigError("no LLM backend selected"))
	assert.True(t, IsFatal(err))
	assert.Equal(t, ErrorTypeConfig, GetType(err))
}

func TestPlainErrorsDefaults(t *testing.T) {
	plain := stderrors.New("boom")
	assert.Equal(t, ErrorTypeInternal, GetType(plain))
	assert.Equal(t, SeverityMedium, GetSeverity(plain))
	assert.Equal(t, SeverityLow, GetSeverity(nil))
	assert.False(t, IsFatal(plain))
}

func TestIsMatchesByType(t *testing.T) {
	err := LLMError(stderrors.New("429"), "category request failed")
	assert.True(t, stderrors.Is(err, &Error{Type: ErrorTypeLLM}))
	assert.False(t, stderrors.Is(err, &Error{Type: ErrorTypeParse}))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeStorage, SeverityLow, "noop"))
}

func TestDetailedString(t *testing.T) {
	err := ParseErrorf(nil, "bad json for %s", "functions").
		WithContext("file", "a.ts").
		WithContext("category", "functions")

	out := err.DetailedString()
	assert.Contains(t, out, "[LOW] [PARSE] bad json for functions")
	assert.Contains(t, out, "category: functions\n  file: a.ts")
}
