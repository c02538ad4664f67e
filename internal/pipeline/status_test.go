package pipeline

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rohankatakam/autodoc/internal/errors"
	"github.com/rohankatakam/autodoc/internal/models"
)

func TestStatusFor(t *testing.T) {
	cause := stderrors.New("boom")
	tests := []struct {
		name string
		err  error
		want models.ProcessingStatus
	}{
		{"no error", nil, models.StatusSuccess},
		{"read failure", errors.FileSystemError(cause, "read file"), models.StatusErrorRead},
		{"extraction failure", errors.ParseError("no usable extraction"), models.StatusErrorParse},
		{"summary failure", errors.LLMErrorf(cause, "chunk %d summary", 1), models.StatusErrorLLMSummary},
		{"panic", errors.InternalErrorf("file pipeline panicked: %v", "x"), models.StatusErrorParse},
		{"untyped", cause, models.StatusErrorParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestRecordKeepsMessage(t *testing.T) {
	fp := NewFileProcessor(&defExtractor{}, &summaryInferer{})
	summary := models.CodeFileSummary{FileLocation: "a.py"}

	fp.record(&summary, errors.LLMErrorf(stderrors.New("rate limited"), "chunk %d summary", 2))
	assert.Equal(t, models.StatusErrorLLMSummary, summary.ProcessingStatus)
	assert.Equal(t, "chunk 2 summary: rate limited", summary.ProcessingError)

	summary = models.CodeFileSummary{}
	fp.record(&summary, nil)
	assert.Equal(t, models.StatusSuccess, summary.ProcessingStatus)
	assert.Empty(t, summary.ProcessingError)
}
