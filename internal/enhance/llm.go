package enhance

import (
	"context"
	"io"

	"github.com/pkg/errors"
)

// Adapter sends one prompt pair to a language model and returns its reply.
type Adapter interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// AdapterConfig selects and authenticates a provider.
type AdapterConfig struct {
	Provider string
	APIKey   string
	Model    string
	// BaseURL overrides the endpoint of OpenAI-compatible providers.
	BaseURL string
}

var ErrNoChoices = errors.New("no response choices")

// NewAdapter creates an adapter for cfg.Provider.
func NewAdapter(ctx context.Context, cfg AdapterConfig) (Adapter, error) {
	switch cfg.Provider {
	case "gemini":
		if cfg.APIKey == "" {
			return nil, errors.New("Gemini API key required")
		}
		return NewGeminiAdapter(ctx, cfg)
	case "openai":
		if cfg.APIKey == "" {
			return nil, errors.New("OpenAI API key required")
		}
		return NewOpenAIAdapter(cfg), nil
	case "groq":
		if cfg.APIKey == "" {
			return nil, errors.New("Groq API key required")
		}
		return NewGroqAdapter(cfg), nil
	default:
		return nil, errors.Errorf("unsupported enhancer provider: %s", cfg.Provider)
	}
}

func closeAdapter(a Adapter) error {
	if c, ok := a.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
