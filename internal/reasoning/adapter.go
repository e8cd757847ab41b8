// internal/reasoning/adapter.go
package reasoning

import (
	"context"
	"fmt"

	"cv-pipeline/internal/common/config"
	"cv-pipeline/internal/common/logger"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderVertex = "vertex"
)

// Options tune a single completion call.
type Options struct {
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
}

// Adapter sends one prompt to a language model and returns the raw text.
// Implementations map provider failures onto the shared error taxonomy.
type Adapter interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// NewAdapter builds the backend selected by apis.reasoning.provider.
func NewAdapter(ctx context.Context, cfg *config.Config, log logger.Logger) (Adapter, error) {
	switch cfg.APIs.Reasoning.Provider {
	case ProviderOpenAI:
		return NewOpenAIAdapter(cfg.APIs.OpenAI.BaseURL, cfg.APIs.OpenAI.APIKey, cfg.APIs.OpenAI.Model, log), nil
	case ProviderGemini:
		return NewGeminiAdapter(ctx, cfg.APIs.Gemini.APIKey, cfg.APIs.Gemini.Model, log)
	case ProviderVertex:
		return NewVertexAdapter(ctx, cfg.APIs.Vertex.ProjectID, cfg.APIs.Vertex.Location, cfg.APIs.Vertex.Model, log)
	default:
		return nil, fmt.Errorf("unknown reasoning provider %q", cfg.APIs.Reasoning.Provider)
	}
}
