// Package chat answers questions about bills using retrieval-augmented
// generation: search the vector index, fall back to just-in-time
// indexing when a bill has no chunks yet, and hand the assembled
// context to the LLM.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/openlegis/billchat/internal/bills"
	"github.com/openlegis/billchat/internal/llm"
	"github.com/openlegis/billchat/internal/vectordb"
)

// ErrGenerationFailed wraps LLM failures so handlers can map them to
// one status code.
var ErrGenerationFailed = errors.New("answer generation failed")

// ErrNoTextSource means a bill has no text link to work from.
var ErrNoTextSource = errors.New("bill has no text source")

const (
	chatTemperature = 1.0
	chatMaxTokens   = 2000
)

// Ensurer triggers just-in-time indexing. Satisfied by *indexer.Indexer.
type Ensurer interface {
	EnsureIndexed(ctx context.Context, key bills.Key) error
}

// Answer is the orchestrator's response to one question.
type Answer struct {
	Message string
	Context string
}

// Orchestrator runs the retrieve-then-generate flow.
type Orchestrator struct {
	vectors  vectordb.VectorStore
	indexer  Ensurer
	source   BillSource
	provider llm.Provider
	counter  TokenCounter

	topK          int
	contextBudget int
}

// BillSource loads bill records. Satisfied by *bills.Store.
type BillSource interface {
	Get(ctx context.Context, key bills.Key) (*bills.Bill, error)
}

// NewOrchestrator wires the chat flow. topK is how many chunks to
// retrieve; contextBudget caps prompt context in tokens.
func NewOrchestrator(vectors vectordb.VectorStore, idx Ensurer, source BillSource,
	provider llm.Provider, counter TokenCounter, topK, contextBudget int) *Orchestrator {
	if topK <= 0 {
		topK = 25
	}
	if contextBudget <= 0 {
		contextBudget = 8000
	}
	return &Orchestrator{
		vectors:       vectors,
		indexer:       idx,
		source:        source,
		provider:      provider,
		counter:       counter,
		topK:          topK,
		contextBudget: contextBudget,
	}
}

// Ask answers a question. A non-nil key scopes retrieval to that bill
// and enables just-in-time indexing when the bill has no chunks yet;
// a nil key searches across all indexed bills. Retrieval failures
// degrade to an answer without context rather than an error.
func (o *Orchestrator) Ask(ctx context.Context, key *bills.Key, question string, history []llm.Message) (*Answer, error) {
	subject := ""
	if key != nil {
		bill, err := o.source.Get(ctx, *key)
		if err != nil {
			return nil, err
		}
		subject = fmt.Sprintf("bill %s (%s)", key, bill.Title)
	}

	results := o.retrieve(ctx, key, question)
	contextText := assembleContext(results, o.counter, o.contextBudget, key == nil)

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: chatSystemPrompt})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{
		Role:    llm.RoleUser,
		Content: buildQuestion(subject, question, contextText),
	})

	resp, err := o.provider.Complete(ctx, llm.CompletionRequest{
		Messages:    messages,
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	return &Answer{Message: resp.Content, Context: contextText}, nil
}

// retrieve searches the index, indexing the bill on demand when a
// scoped search comes back empty. Errors are logged, not returned:
// the chat still works without context.
func (o *Orchestrator) retrieve(ctx context.Context, key *bills.Key, question string) []vectordb.SearchResult {
	results, err := o.vectors.Search(ctx, question, o.topK, key)
	if err != nil {
		log.Printf("chat: context search: %v", err)
		return nil
	}
	if len(results) > 0 || key == nil {
		return results
	}

	if err := o.indexer.EnsureIndexed(ctx, *key); err != nil {
		log.Printf("chat: indexing %s on demand: %v", key, err)
		return nil
	}

	results, err = o.vectors.Search(ctx, question, o.topK, key)
	if err != nil {
		log.Printf("chat: context search after indexing: %v", err)
		return nil
	}
	return results
}
