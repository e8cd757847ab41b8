// internal/reasoning/vertex_test.go
package reasoning

import (
	"context"
	"testing"

	apperrors "cv-pipeline/internal/common/errors"
	"cv-pipeline/internal/common/logger"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeVertexModel struct {
	resp  *vertexgenai.GenerateContentResponse
	err   error
	parts []vertexgenai.Part
}

func (f *fakeVertexModel) GenerateContent(ctx context.Context, parts ...vertexgenai.Part) (*vertexgenai.GenerateContentResponse, error) {
	f.parts = parts
	return f.resp, f.err
}

func TestVertexAdapter_Complete(t *testing.T) {
	fake := &fakeVertexModel{resp: &vertexgenai.GenerateContentResponse{
		Candidates: []*vertexgenai.Candidate{{
			Content: &vertexgenai.Content{Parts: []vertexgenai.Part{vertexgenai.Text(`{"score": 64}`)}},
		}},
	}}

	var seen Options
	a := newVertexAdapter(func(opts Options) vertexGenerator {
		seen = opts
		return fake
	}, logger.NewTestLogger(t))

	text, err := a.Complete(context.Background(), "rate skills", Options{SystemPrompt: "recruiter", Temperature: 0.1})
	require.NoError(t, err)
	assert.Equal(t, `{"score": 64}`, text)
	assert.Equal(t, "recruiter", seen.SystemPrompt)
	require.Len(t, fake.parts, 1)
	assert.Equal(t, vertexgenai.Text("rate skills"), fake.parts[0])
	assert.NoError(t, a.Close())
}

func TestVertexAdapter_ErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      apperrors.ErrorCode
		retryable bool
	}{
		{"exhausted", status.Error(codes.ResourceExhausted, "quota"), apperrors.ErrCodeRateLimit, true},
		{"unavailable", status.Error(codes.Unavailable, "down"), apperrors.ErrCodeProvider, true},
		{"deadline", status.Error(codes.DeadlineExceeded, "slow"), apperrors.ErrCodeProviderTimeout, true},
		{"permission", status.Error(codes.PermissionDenied, "no"), apperrors.ErrCodeProvider, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newVertexAdapter(func(Options) vertexGenerator {
				return &fakeVertexModel{err: tt.err}
			}, logger.NewTestLogger(t))

			_, err := a.Complete(context.Background(), "x", Options{})
			stdErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, stdErr.Code)
			assert.Equal(t, tt.retryable, stdErr.Retryable)
		})
	}
}
