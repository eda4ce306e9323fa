package enhance

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.0-flash-lite"

// GeminiAdapter implements Adapter with the Gemini generateContent API.
type GeminiAdapter struct {
	client *genai.Client
	model  string
}

func NewGeminiAdapter(ctx context.Context, cfg AdapterConfig) (*GeminiAdapter, error) {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(strings.TrimSpace(cfg.APIKey)))
	if err != nil {
		return nil, errors.Wrap(err, "gemini: create client")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiAdapter{client: cl, model: model}, nil
}

func (a *GeminiAdapter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m := a.client.GenerativeModel(a.model)
	m.SetTemperature(0.3)
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	resp, err := m.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return "", errors.Wrap(err, "gemini generate content")
	}

	txt := firstText(resp)
	if txt == "" {
		return "", errors.Wrap(ErrNoChoices, "gemini generate content")
	}
	return txt, nil
}

func (a *GeminiAdapter) Close() error { return a.client.Close() }

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}
