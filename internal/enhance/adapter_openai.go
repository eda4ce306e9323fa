package enhance

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// OpenAIAdapter implements Adapter with the chat completions API. Groq is
// served by the same adapter pointed at its OpenAI-compatible endpoint.
type OpenAIAdapter struct {
	client *openai.Client
	model  string
	name   string
}

func NewOpenAIAdapter(cfg AdapterConfig) *OpenAIAdapter {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIAdapter{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		name:   "openai",
	}
}

func NewGroqAdapter(cfg AdapterConfig) *OpenAIAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = groqBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "llama-3.3-70b-versatile"
	}
	a := NewOpenAIAdapter(cfg)
	a.name = "groq"
	return a
}

func (a *OpenAIAdapter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0.3,
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", errors.Wrapf(err, "%s chat completion", a.name)
	}
	if len(resp.Choices) == 0 {
		return "", errors.Wrapf(ErrNoChoices, "%s chat completion", a.name)
	}
	return resp.Choices[0].Message.Content, nil
}
