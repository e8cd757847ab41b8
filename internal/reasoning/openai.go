// internal/reasoning/openai.go
package reasoning

import (
	"context"
	"errors"
	"net/http"
	"strings"

	apperrors "cv-pipeline/internal/common/errors"
	"cv-pipeline/internal/common/logger"

	openai "github.com/sashabaranov/go-openai"
)

var ErrEmptyResponse = errors.New("EMPTY_RESPONSE")

type OpenAIAdapter struct {
	client *openai.Client
	model  string
	logger logger.Logger
}

func NewOpenAIAdapter(baseURL, apiKey, model string, log logger.Logger) *OpenAIAdapter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAIAdapter{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: log.WithFields(map[string]interface{}{"provider": ProviderOpenAI, "model": model}),
	}
}

func (a *OpenAIAdapter) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if opts.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: opts.SystemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		mapped := mapOpenAIError(ctx, err)
		a.logger.Warn("Completion failed", map[string]interface{}{"error": mapped.Error()})
		return "", mapped
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", apperrors.NewProviderError(ProviderOpenAI, ErrEmptyResponse)
	}

	a.logger.Debug("Completion received", map[string]interface{}{
		"promptTokens":     resp.Usage.PromptTokens,
		"completionTokens": resp.Usage.CompletionTokens,
	})
	return resp.Choices[0].Message.Content, nil
}

func mapOpenAIError(ctx context.Context, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return statusError(ProviderOpenAI, apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return statusError(ProviderOpenAI, reqErr.HTTPStatusCode, err)
	}
	return transportError(ctx, ProviderOpenAI, err)
}

// statusError maps an HTTP status from a provider onto the error taxonomy.
func statusError(provider string, status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return apperrors.NewRateLimitError(provider, err)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return apperrors.NewProviderTimeoutError(provider, err)
	case status >= 500 || status == 0:
		return apperrors.NewProviderError(provider, err)
	default:
		// auth, bad request, unknown model: retrying will not help
		stdErr := apperrors.NewProviderError(provider, err)
		stdErr.Retryable = false
		return stdErr.WithMetadata("status", status)
	}
}

func transportError(ctx context.Context, provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewProviderTimeoutError(provider, err)
	}
	return apperrors.NewProviderError(provider, err)
}
