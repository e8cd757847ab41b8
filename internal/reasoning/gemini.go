// internal/reasoning/gemini.go
package reasoning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "cv-pipeline/internal/common/errors"
	"cv-pipeline/internal/common/logger"

	"google.golang.org/genai"
)

// contentGenerator is the part of genai.Models the adapter uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiAdapter struct {
	models contentGenerator
	model  string
	logger logger.Logger
}

func NewGeminiAdapter(ctx context.Context, apiKey, model string, log logger.Logger) (*GeminiAdapter, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGeminiAdapter(client.Models, model, log), nil
}

func newGeminiAdapter(models contentGenerator, model string, log logger.Logger) *GeminiAdapter {
	return &GeminiAdapter{
		models: models,
		model:  model,
		logger: log.WithFields(map[string]interface{}{"provider": ProviderGemini, "model": model}),
	}
}

func (a *GeminiAdapter) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	temperature := opts.Temperature
	cfg := &genai.GenerateContentConfig{Temperature: &temperature}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if opts.SystemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: opts.SystemPrompt}}}
	}

	resp, err := a.models.GenerateContent(ctx, a.model, genai.Text(prompt), cfg)
	if err != nil {
		mapped := mapGeminiError(ctx, err)
		a.logger.Warn("Completion failed", map[string]interface{}{"error": mapped.Error()})
		return "", mapped
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || strings.TrimSpace(part.Text) == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(part.Text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", apperrors.NewProviderError(ProviderGemini, ErrEmptyResponse)
	}
	return output, nil
}

func mapGeminiError(ctx context.Context, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return statusError(ProviderGemini, apiErr.Code, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return statusError(ProviderGemini, apiErrPtr.Code, err)
	}
	return transportError(ctx, ProviderGemini, err)
}
