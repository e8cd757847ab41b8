// internal/reasoning/vertex.go
package reasoning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "cv-pipeline/internal/common/errors"
	"cv-pipeline/internal/common/logger"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type vertexGenerator interface {
	GenerateContent(ctx context.Context, parts ...vertexgenai.Part) (*vertexgenai.GenerateContentResponse, error)
}

// VertexAdapter talks to Gemini models hosted on Vertex AI, authenticated
// through application default credentials.
type VertexAdapter struct {
	modelFor func(opts Options) vertexGenerator
	closer   func() error
	logger   logger.Logger
}

func NewVertexAdapter(ctx context.Context, projectID, location, model string, log logger.Logger) (*VertexAdapter, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, errors.New("vertex project id is required")
	}

	client, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, fmt.Errorf("create vertex client: %w", err)
	}

	modelFor := func(opts Options) vertexGenerator {
		m := client.GenerativeModel(model)
		m.SetTemperature(opts.Temperature)
		if opts.MaxTokens > 0 {
			m.SetMaxOutputTokens(int32(opts.MaxTokens))
		}
		if opts.SystemPrompt != "" {
			m.SystemInstruction = &vertexgenai.Content{Parts: []vertexgenai.Part{vertexgenai.Text(opts.SystemPrompt)}}
		}
		return m
	}

	a := newVertexAdapter(modelFor, log.WithFields(map[string]interface{}{"provider": ProviderVertex, "model": model}))
	a.closer = client.Close
	return a, nil
}

func newVertexAdapter(modelFor func(Options) vertexGenerator, log logger.Logger) *VertexAdapter {
	return &VertexAdapter{modelFor: modelFor, logger: log}
}

func (a *VertexAdapter) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	resp, err := a.modelFor(opts).GenerateContent(ctx, vertexgenai.Text(prompt))
	if err != nil {
		mapped := mapVertexError(ctx, err)
		a.logger.Warn("Completion failed", map[string]interface{}{"error": mapped.Error()})
		return "", mapped
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			text, ok := part.(vertexgenai.Text)
			if !ok || strings.TrimSpace(string(text)) == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(string(text))
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", apperrors.NewProviderError(ProviderVertex, ErrEmptyResponse)
	}
	return output, nil
}

func (a *VertexAdapter) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer()
}

func mapVertexError(ctx context.Context, err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return transportError(ctx, ProviderVertex, err)
	}
	switch st.Code() {
	case codes.ResourceExhausted:
		return apperrors.NewRateLimitError(ProviderVertex, err)
	case codes.DeadlineExceeded:
		return apperrors.NewProviderTimeoutError(ProviderVertex, err)
	case codes.Unavailable, codes.Internal, codes.Unknown, codes.Aborted:
		return apperrors.NewProviderError(ProviderVertex, err)
	default:
		stdErr := apperrors.NewProviderError(ProviderVertex, err)
		stdErr.Retryable = false
		return stdErr.WithMetadata("grpcCode", st.Code().String())
	}
}
