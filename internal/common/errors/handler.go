package errors

import (
	"context"
	stderrors "errors"
	"runtime/debug"
	"time"
)

type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Classify normalizes any error into a StandardError.
func Classify(err error) *StandardError {
	if err == nil {
		return nil
	}
	if stdErr, ok := As(err); ok {
		return stdErr
	}
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return NewProviderTimeoutError("deadline", err)
	case stderrors.Is(err, context.Canceled):
		// shutdown mid-job; the delivery is redelivered
		return NewProviderError("context", err)
	}
	return &StandardError{
		Code:      ErrCodeUnknown,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

// HandleJobError logs a job failure and returns the normalized error.
func (h *ErrorHandler) HandleJobError(jobID, jobType string, attempt int, err error) *StandardError {
	stdErr := Classify(err)

	fields := map[string]interface{}{
		"jobId":         jobID,
		"jobType":       jobType,
		"attempt":       attempt,
		"errorCode":     string(stdErr.Code),
		"errorKind":     string(Kind(stdErr.Code)),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"errorCategory": GetErrorCategory(stdErr.Code),
	}
	if stdErr.Code == ErrCodeUnknown {
		fields["stack"] = string(debug.Stack())
	}
	for k, v := range stdErr.Metadata {
		fields["meta."+k] = v
	}

	h.logger.Error("Job failed", fields)
	return stdErr
}

// PublicMessage is the human-readable message persisted on a failed job.
func PublicMessage(err error) string {
	stdErr := Classify(err)
	if stdErr == nil {
		return ""
	}
	if stdErr.Code == ErrCodeUnknown {
		return "Job failed due to an internal error"
	}
	if stdErr.Details != "" {
		return stdErr.Message + ": " + stdErr.Details
	}
	return stdErr.Message
}
