package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

const xaiBaseURL = "https://api.x.ai/v1"

// XAIProvider implements Provider against the xAI API, which speaks
// the OpenAI chat-completions wire format.
type XAIProvider struct {
	client *openai.Client
	model  string
}

// NewXAIProvider creates a new xAI provider.
func NewXAIProvider(apiKey string, model string) *XAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = xaiBaseURL
	return &XAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (p *XAIProvider) Name() string {
	return "xai"
}

func (p *XAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return complete(ctx, p.client, p.model, req)
}
