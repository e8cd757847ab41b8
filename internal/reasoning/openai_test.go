// internal/reasoning/openai_test.go
package reasoning

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "cv-pipeline/internal/common/errors"
	"cv-pipeline/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenAITestServer(t *testing.T, status int, body string, inspect func(req map[string]interface{})) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		if inspect != nil {
			var req map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			inspect(req)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestOpenAIAdapter_Complete(t *testing.T) {
	body := `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "model": "gpt-4o-mini",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"score\": 70}"}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`
	srv := newOpenAITestServer(t, http.StatusOK, body, func(req map[string]interface{}) {
		assert.Equal(t, "gpt-4o-mini", req["model"])
		assert.InDelta(t, 0.4, req["temperature"], 1e-6)
		assert.EqualValues(t, 500, req["max_tokens"])

		messages := req["messages"].([]interface{})
		require.Len(t, messages, 2)
		assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])
		assert.Equal(t, "be brief", messages[0].(map[string]interface{})["content"])
		assert.Equal(t, "user", messages[1].(map[string]interface{})["role"])
	})
	defer srv.Close()

	a := NewOpenAIAdapter(srv.URL+"/v1", "test-key", "gpt-4o-mini", logger.NewTestLogger(t))
	text, err := a.Complete(context.Background(), "score this", Options{SystemPrompt: "be brief", Temperature: 0.4, MaxTokens: 500})
	require.NoError(t, err)
	assert.Equal(t, `{"score": 70}`, text)
}

func TestOpenAIAdapter_ErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		code      apperrors.ErrorCode
		retryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, apperrors.ErrCodeRateLimit, true},
		{"server error", http.StatusInternalServerError, apperrors.ErrCodeProvider, true},
		{"gateway timeout", http.StatusGatewayTimeout, apperrors.ErrCodeProviderTimeout, true},
		{"unauthorized", http.StatusUnauthorized, apperrors.ErrCodeProvider, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newOpenAITestServer(t, tt.status, `{"error": {"message": "nope", "type": "error"}}`, nil)
			defer srv.Close()

			a := NewOpenAIAdapter(srv.URL+"/v1", "test-key", "gpt-4o-mini", logger.NewTestLogger(t))
			_, err := a.Complete(context.Background(), "hi", Options{})
			require.Error(t, err)

			stdErr, ok := apperrors.As(err)
			require.True(t, ok, "expected StandardError, got %T", err)
			assert.Equal(t, tt.code, stdErr.Code)
			assert.Equal(t, tt.retryable, apperrors.IsRetryable(err))
		})
	}
}

func TestOpenAIAdapter_EmptyChoices(t *testing.T) {
	srv := newOpenAITestServer(t, http.StatusOK, `{"id": "x", "choices": []}`, nil)
	defer srv.Close()

	a := NewOpenAIAdapter(srv.URL+"/v1", "test-key", "gpt-4o-mini", logger.NewTestLogger(t))
	_, err := a.Complete(context.Background(), "hi", Options{})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeProvider))
}

func TestStatusError(t *testing.T) {
	assert.True(t, apperrors.HasCode(statusError("p", 0, assert.AnError), apperrors.ErrCodeProvider))
	assert.True(t, apperrors.HasCode(statusError("p", 408, assert.AnError), apperrors.ErrCodeProviderTimeout))

	badRequest, _ := apperrors.As(statusError("p", 400, assert.AnError))
	assert.False(t, badRequest.Retryable)
	assert.Equal(t, 400, badRequest.Metadata["status"])
}
