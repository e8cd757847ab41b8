// Package errors provides the standardized error taxonomy shared by the queue,
// the pipeline stages and the API.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Taxonomy roots. Every other code maps onto one of these kinds.
const (
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound   ErrorCode = "NOT_FOUND"
	ErrCodeProvider   ErrorCode = "PROVIDER_ERROR"
	ErrCodeParse      ErrorCode = "PARSE_ERROR"
	ErrCodeRateLimit  ErrorCode = "RATE_LIMITED"
	ErrCodeUnknown    ErrorCode = "UNKNOWN_ERROR"
)

// Narrower codes
const (
	ErrCodeUnsupportedType   ErrorCode = "UNSUPPORTED_TYPE"
	ErrCodeEmptyContent      ErrorCode = "EMPTY_CONTENT"
	ErrCodeProviderTimeout   ErrorCode = "PROVIDER_TIMEOUT"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodeQueueUnavailable  ErrorCode = "QUEUE_UNAVAILABLE"
	ErrCodeStoreFailed       ErrorCode = "STORE_FAILED"
	ErrCodeVectorStoreFailed ErrorCode = "VECTOR_STORE_FAILED"
	ErrCodeAttemptsExhausted ErrorCode = "ATTEMPTS_EXHAUSTED"
)

// StandardError is the common error shape for pipeline failures.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.Cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// BPMNError carries a StandardError across the zeebe broker boundary.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 2. Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		Cause:     cause,
	}
}

func NewValidationError(details string) *StandardError {
	return newError(ErrCodeValidation, "Invalid input", details, false, nil)
}

func NewNotFoundError(resource, id string) *StandardError {
	return newError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), fmt.Sprintf("id: %s", id), false, nil).
		WithMetadata("resource", resource)
}

func NewProviderError(provider string, err error) *StandardError {
	return newError(ErrCodeProvider, fmt.Sprintf("External provider '%s' failed", provider), errDetails(err), true, err).
		WithMetadata("provider", provider)
}

func NewProviderTimeoutError(provider string, err error) *StandardError {
	return newError(ErrCodeProviderTimeout, fmt.Sprintf("External provider '%s' timed out", provider), errDetails(err), true, err).
		WithMetadata("provider", provider)
}

func NewRateLimitError(provider string, err error) *StandardError {
	return newError(ErrCodeRateLimit, fmt.Sprintf("Rate limit exceeded for '%s'", provider), errDetails(err), true, err).
		WithMetadata("provider", provider)
}

func NewParseError(details string, err error) *StandardError {
	return newError(ErrCodeParse, "Document could not be read", details, false, err)
}

func NewUnsupportedTypeError(mimeType string) *StandardError {
	return newError(ErrCodeUnsupportedType, "Unsupported document type", fmt.Sprintf("mimeType: %s", mimeType), false, nil)
}

func NewEmptyContentError(path string) *StandardError {
	return newError(ErrCodeEmptyContent, "Document has no extractable text", fmt.Sprintf("path: %s", path), false, nil)
}

func NewInvalidTransitionError(jobID, from, to string) *StandardError {
	return newError(ErrCodeInvalidTransition, "Invalid job status transition",
		fmt.Sprintf("jobId: %s, from: %s, to: %s", jobID, from, to), false, nil)
}

func NewQueueUnavailableError(err error) *StandardError {
	return newError(ErrCodeQueueUnavailable, "Queue backend unavailable", errDetails(err), true, err)
}

func NewStoreError(op string, err error) *StandardError {
	return newError(ErrCodeStoreFailed, "Job store operation failed", fmt.Sprintf("op: %s, error: %s", op, errDetails(err)), true, err)
}

func NewVectorStoreError(op string, err error) *StandardError {
	return newError(ErrCodeVectorStoreFailed, "Vector store operation failed", fmt.Sprintf("op: %s, error: %s", op, errDetails(err)), true, err)
}

// NewAttemptsExhaustedError is raised when a delivery arrives after the last
// allowed attempt, typically a redelivery of a crashed final attempt.
func NewAttemptsExhaustedError(attempt, maxAttempts int) *StandardError {
	return newError(ErrCodeAttemptsExhausted, "Retry budget exhausted",
		fmt.Sprintf("attempt %d exceeds max attempts %d", attempt, maxAttempts), false, nil).
		WithMetadata("maxAttempts", maxAttempts)
}

func NewUnknownError(err error) *StandardError {
	return newError(ErrCodeUnknown, "Unexpected error", errDetails(err), false, err)
}

func errDetails(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 3. Retry Policy By Code
// ==========================

// GetRetryCount returns how many retries a code is worth.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeProvider,
		ErrCodeRateLimit,
		ErrCodeQueueUnavailable,
		ErrCodeStoreFailed,
		ErrCodeVectorStoreFailed:
		return 3

	case ErrCodeProviderTimeout:
		return 2

	default:
		return 0 // Validation, not-found, parse: no retry
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// Kind maps a narrow code onto its taxonomy root.
func Kind(code ErrorCode) ErrorCode {
	switch code {
	case ErrCodeValidation, ErrCodeInvalidTransition:
		return ErrCodeValidation
	case ErrCodeNotFound:
		return ErrCodeNotFound
	case ErrCodeProvider, ErrCodeProviderTimeout, ErrCodeQueueUnavailable, ErrCodeStoreFailed, ErrCodeVectorStoreFailed:
		return ErrCodeProvider
	case ErrCodeParse, ErrCodeUnsupportedType, ErrCodeEmptyContent:
		return ErrCodeParse
	case ErrCodeRateLimit:
		return ErrCodeRateLimit
	default:
		return ErrCodeUnknown
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "TRANSITION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "NOT_FOUND"
	case strings.Contains(codeStr, "RATE"):
		return "RATE_LIMIT"
	case strings.Contains(codeStr, "PROVIDER"):
		return "PROVIDER"
	case strings.Contains(codeStr, "PARSE") || strings.Contains(codeStr, "UNSUPPORTED") || strings.Contains(codeStr, "EMPTY"):
		return "DOCUMENT"
	case strings.Contains(codeStr, "QUEUE") || strings.Contains(codeStr, "STORE") || strings.Contains(codeStr, "ATTEMPTS"):
		return "INFRASTRUCTURE"
	default:
		return "OTHER"
	}
}

// HTTPStatus maps a code to the status a client would see.
func HTTPStatus(code ErrorCode) int {
	switch Kind(code) {
	case ErrCodeValidation:
		return 400
	case ErrCodeNotFound:
		return 404
	case ErrCodeRateLimit:
		return 429
	case ErrCodeParse:
		return 422
	case ErrCodeProvider:
		return 503
	default:
		return 500
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// ConvertToBPMNError converts a StandardError to a BPMNError for the zeebe broker.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(Kind(stdErr.Code)),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// As returns the first StandardError in err's chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the code, directly or as its kind.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := As(err)
	if !ok {
		return false
	}
	return stdErr.Code == code || Kind(stdErr.Code) == code
}

// IsRetryable reports whether err should consume a retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return Classify(err).Retryable
}
