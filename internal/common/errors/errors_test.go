package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureLogger struct {
	msgs   []string
	fields []map[string]interface{}
}

func (c *captureLogger) Error(msg string, fields map[string]interface{}) {
	c.msgs = append(c.msgs, msg)
	c.fields = append(c.fields, fields)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      ErrorCode
		retryable bool
	}{
		{"standard error passes through", NewValidationError("bad"), ErrCodeValidation, false},
		{"wrapped standard error", fmt.Errorf("stage: %w", NewRateLimitError("openai", stderrors.New("429"))), ErrCodeRateLimit, true},
		{"deadline exceeded", context.DeadlineExceeded, ErrCodeProviderTimeout, true},
		{"canceled", context.Canceled, ErrCodeProvider, true},
		{"plain error", stderrors.New("boom"), ErrCodeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.retryable, got.Retryable)
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}

	assert.Nil(t, Classify(nil))
	assert.False(t, IsRetryable(nil))
}

func TestKindAndHTTPStatus(t *testing.T) {
	tests := []struct {
		code   ErrorCode
		kind   ErrorCode
		status int
	}{
		{ErrCodeUnsupportedType, ErrCodeParse, 422},
		{ErrCodeEmptyContent, ErrCodeParse, 422},
		{ErrCodeProviderTimeout, ErrCodeProvider, 503},
		{ErrCodeRateLimit, ErrCodeRateLimit, 429},
		{ErrCodeInvalidTransition, ErrCodeValidation, 400},
		{ErrCodeNotFound, ErrCodeNotFound, 404},
		{ErrCodeUnknown, ErrCodeUnknown, 500},
		{ErrCodeAttemptsExhausted, ErrCodeUnknown, 500},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.kind, Kind(tt.code))
			assert.Equal(t, tt.status, HTTPStatus(tt.code))
		})
	}
}

func TestAttemptsExhaustedError(t *testing.T) {
	err := NewAttemptsExhaustedError(3, 2)
	assert.False(t, err.Retryable)
	assert.Equal(t, "Retry budget exhausted: attempt 3 exceeds max attempts 2", PublicMessage(err))
	assert.Equal(t, "INFRASTRUCTURE", GetErrorCategory(err.Code))
	assert.NotContains(t, PublicMessage(err), "provider")
}

func TestHasCodeMatchesKind(t *testing.T) {
	err := fmt.Errorf("extract: %w", NewUnsupportedTypeError("image/png"))
	assert.True(t, HasCode(err, ErrCodeUnsupportedType))
	assert.True(t, HasCode(err, ErrCodeParse))
	assert.False(t, HasCode(err, ErrCodeProvider))
	assert.False(t, HasCode(stderrors.New("x"), ErrCodeParse))
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := NewProviderError("listings", cause)
	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, "listings", err.Metadata["provider"])
}

func TestConvertToBPMNError(t *testing.T) {
	bpmn := ConvertToBPMNError(NewProviderTimeoutError("openai", stderrors.New("slow")))
	assert.Equal(t, string(ErrCodeProvider), bpmn.Code)
	assert.Equal(t, 2, bpmn.Retries)
	assert.Equal(t, string(ErrCodeProviderTimeout), bpmn.ToErrorVariables()["originalErrorCode"])

	bpmn = ConvertToBPMNError(NewParseError("corrupt", nil))
	assert.Equal(t, 0, bpmn.Retries)
}

func TestHandleJobError(t *testing.T) {
	log := &captureLogger{}
	h := NewErrorHandler(log)

	stdErr := h.HandleJobError("job-1", "evaluation", 2, stderrors.New("nil pointer"))
	assert.Equal(t, ErrCodeUnknown, stdErr.Code)
	require.Len(t, log.fields, 1)
	assert.Equal(t, "job-1", log.fields[0]["jobId"])
	assert.Contains(t, log.fields[0], "stack")

	h.HandleJobError("job-2", "matcher", 1, NewProviderError("listings", stderrors.New("503")))
	assert.NotContains(t, log.fields[1], "stack")
	assert.Equal(t, "listings", log.fields[1]["meta.provider"])
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "Job failed due to an internal error", PublicMessage(stderrors.New("secret stack")))
	assert.Equal(t, "document not found: id: doc-1", PublicMessage(NewNotFoundError("document", "doc-1")))
	assert.Equal(t, "", PublicMessage(nil))
}
