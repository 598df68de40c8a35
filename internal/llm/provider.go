// Package llm abstracts the chat completion providers billchat can
// generate answers with: xAI's Grok models and OpenAI.
package llm

import "context"

// Provider is a chat completion backend.
type Provider interface {
	// Complete sends one completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name identifies the provider, e.g. "xai".
	Name() string
}
