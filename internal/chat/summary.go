package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/openlegis/billchat/internal/bills"
	"github.com/openlegis/billchat/internal/llm"
)

const (
	summaryTemperature = 0.3
	summaryMaxTokens   = 500
)

// TextFetcher downloads bill text. Satisfied by *congress.TextFetcher.
type TextFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// SummaryStore reads and caches bill summaries. Satisfied by *bills.Store.
type SummaryStore interface {
	Get(ctx context.Context, key bills.Key) (*bills.Bill, error)
	SetSummary(ctx context.Context, key bills.Key, summary string) error
}

// Summarizer generates one-paragraph bill summaries, caching them on
// the bill record so each bill is summarized at most once.
type Summarizer struct {
	store    SummaryStore
	fetcher  TextFetcher
	provider llm.Provider
}

// NewSummarizer creates a Summarizer.
func NewSummarizer(store SummaryStore, fetcher TextFetcher, provider llm.Provider) *Summarizer {
	return &Summarizer{store: store, fetcher: fetcher, provider: provider}
}

// Summary returns the cached summary for a bill, generating and
// storing it on first request.
func (s *Summarizer) Summary(ctx context.Context, key bills.Key) (string, error) {
	bill, err := s.store.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if bill.Summary != "" {
		return bill.Summary, nil
	}
	if bill.TextLink == "" {
		return "", fmt.Errorf("%w: %s", ErrNoTextSource, key)
	}

	text, err := s.fetcher.FetchText(ctx, bill.TextLink)
	if err != nil {
		return "", fmt.Errorf("fetching text for summary of %s: %w", key, err)
	}

	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: summarySystemPrompt},
			{Role: llm.RoleUser, Content: buildSummaryPrompt(text)},
		},
		Temperature: summaryTemperature,
		MaxTokens:   summaryMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	summary := strings.TrimSpace(resp.Content)
	if err := s.store.SetSummary(ctx, key, summary); err != nil {
		return "", fmt.Errorf("caching summary for %s: %w", key, err)
	}
	return summary, nil
}
