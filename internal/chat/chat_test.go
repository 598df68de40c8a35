package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/openlegis/billchat/internal/bills"
	"github.com/openlegis/billchat/internal/db"
	"github.com/openlegis/billchat/internal/llm"
	"github.com/openlegis/billchat/internal/vectordb"
)

type stubProvider struct {
	calls []llm.CompletionRequest
	reply string
	err   error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.calls = append(p.calls, req)
	if p.err != nil {
		return nil, p.err
	}
	return &llm.CompletionResponse{Content: p.reply, FinishReason: "stop"}, nil
}

// stubVectors returns canned results per bill; an empty map entry
// simulates an unindexed bill.
type stubVectors struct {
	results   map[string][]vectordb.SearchResult
	global    []vectordb.SearchResult
	searchErr error
	searches  int
}

func (v *stubVectors) Search(_ context.Context, _ string, limit int, key *bills.Key) ([]vectordb.SearchResult, error) {
	v.searches++
	if v.searchErr != nil {
		return nil, v.searchErr
	}
	if key == nil {
		return v.global, nil
	}
	res := v.results[key.String()]
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (v *stubVectors) AddDocuments(context.Context, []vectordb.Document) error { return nil }
func (v *stubVectors) HasBill(_ context.Context, key bills.Key) bool {
	return len(v.results[key.String()]) > 0
}
func (v *stubVectors) BillChunks(context.Context, bills.Key) ([]vectordb.Document, error) {
	return nil, nil
}
func (v *stubVectors) DeleteBill(context.Context, bills.Key) error { return nil }
func (v *stubVectors) Persist(context.Context, string) error       { return nil }
func (v *stubVectors) Load(context.Context, string) error          { return nil }
func (v *stubVectors) Count() int                                  { return 0 }

type stubEnsurer struct {
	calls int
	err   error
	// onIndex runs before returning, letting tests make chunks appear.
	onIndex func(key bills.Key)
}

func (e *stubEnsurer) EnsureIndexed(_ context.Context, key bills.Key) error {
	e.calls++
	if e.onIndex != nil {
		e.onIndex(key)
	}
	return e.err
}

type stubSource struct {
	bills map[bills.Key]*bills.Bill
}

func (s *stubSource) Get(_ context.Context, key bills.Key) (*bills.Bill, error) {
	b, ok := s.bills[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", bills.ErrNotFound, key)
	}
	return b, nil
}

func result(key bills.Key, title, content string) vectordb.SearchResult {
	return vectordb.SearchResult{
		Document: vectordb.Document{
			ID:       vectordb.ChunkID(key, 0),
			Content:  content,
			Metadata: vectordb.DocumentMetadata{Bill: key, Title: title},
		},
		Similarity: 0.8,
	}
}

func TestAskWithIndexedBill(t *testing.T) {
	key := bills.NewKey(118, "HR", "3076")
	vectors := &stubVectors{results: map[string][]vectordb.SearchResult{
		key.String(): {result(key, "Chips Act", "SEC. 102. Semiconductor incentives.")},
	}}
	provider := &stubProvider{reply: "The bill funds semiconductor manufacturing."}
	source := &stubSource{bills: map[bills.Key]*bills.Bill{key: {Key: key, Title: "Chips Act"}}}
	ensurer := &stubEnsurer{}
	o := NewOrchestrator(vectors, ensurer, source, provider, estimateCounter{}, 25, 8000)

	ans, err := o.Ask(context.Background(), &key, "What does this bill fund?", nil)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ans.Message != "The bill funds semiconductor manufacturing." {
		t.Errorf("unexpected answer %q", ans.Message)
	}
	if !strings.Contains(ans.Context, "Semiconductor incentives") {
		t.Errorf("expected retrieved context, got %q", ans.Context)
	}
	// Single-bill retrieval needs no per-snippet attribution.
	if strings.Contains(ans.Context, "From bill") {
		t.Errorf("scoped context should not carry source labels, got %q", ans.Context)
	}
	if ensurer.calls != 0 {
		t.Errorf("indexer invoked for already indexed bill")
	}

	// Prompt carries system persona, then the enhanced question.
	req := provider.calls[0]
	if req.Messages[0].Role != llm.RoleSystem {
		t.Errorf("first message should be system prompt")
	}
	last := req.Messages[len(req.Messages)-1]
	if !strings.Contains(last.Content, "Chips Act") || !strings.Contains(last.Content, "118-HR-3076") {
		t.Errorf("question not annotated with bill subject: %q", last.Content)
	}
}

func TestAskIndexesOnDemand(t *testing.T) {
	key := bills.NewKey(118, "S", "42")
	vectors := &stubVectors{results: map[string][]vectordb.SearchResult{}}
	ensurer := &stubEnsurer{onIndex: func(k bills.Key) {
		vectors.results[k.String()] = []vectordb.SearchResult{result(k, "Water Act", "Water rights provisions.")}
	}}
	provider := &stubProvider{reply: "It regulates water rights."}
	source := &stubSource{bills: map[bills.Key]*bills.Bill{key: {Key: key, Title: "Water Act"}}}
	o := NewOrchestrator(vectors, ensurer, source, provider, estimateCounter{}, 25, 8000)

	ans, err := o.Ask(context.Background(), &key, "What does it do?", nil)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ensurer.calls != 1 {
		t.Errorf("expected 1 on-demand index run, got %d", ensurer.calls)
	}
	if !strings.Contains(ans.Context, "Water rights provisions") {
		t.Errorf("expected context after on-demand indexing, got %q", ans.Context)
	}
}

func TestAskDegradesWithoutContext(t *testing.T) {
	key := bills.NewKey(118, "HR", "9")
	vectors := &stubVectors{results: map[string][]vectordb.SearchResult{}}
	ensurer := &stubEnsurer{err: errors.New("no text source")}
	provider := &stubProvider{reply: "Based on general knowledge..."}
	source := &stubSource{bills: map[bills.Key]*bills.Bill{key: {Key: key, Title: "Mystery Act"}}}
	o := NewOrchestrator(vectors, ensurer, source, provider, estimateCounter{}, 25, 8000)

	ans, err := o.Ask(context.Background(), &key, "What is this?", nil)
	if err != nil {
		t.Fatalf("Ask should degrade, got error: %v", err)
	}
	if ans.Context != "" {
		t.Errorf("expected empty context, got %q", ans.Context)
	}
	if ans.Message == "" {
		t.Error("expected an answer without context")
	}
}

func TestAskUnknownBill(t *testing.T) {
	key := bills.NewKey(117, "HR", "404")
	o := NewOrchestrator(&stubVectors{}, &stubEnsurer{}, &stubSource{bills: map[bills.Key]*bills.Bill{}},
		&stubProvider{}, estimateCounter{}, 25, 8000)

	_, err := o.Ask(context.Background(), &key, "Hello?", nil)
	if !errors.Is(err, bills.ErrNotFound) {
		t.Errorf("expected bills.ErrNotFound, got %v", err)
	}
}

func TestAskCrossBill(t *testing.T) {
	hr1 := bills.NewKey(118, "HR", "1")
	s2 := bills.NewKey(118, "S", "2")
	vectors := &stubVectors{global: []vectordb.SearchResult{
		result(hr1, "Energy Act", "Solar credits."),
		result(s2, "Farm Act", "Crop insurance."),
	}}
	ensurer := &stubEnsurer{}
	provider := &stubProvider{reply: "Both bills address different sectors."}
	o := NewOrchestrator(vectors, ensurer, &stubSource{}, provider, estimateCounter{}, 25, 8000)

	ans, err := o.Ask(context.Background(), nil, "Compare recent bills", nil)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !strings.Contains(ans.Context, "118-HR-1") || !strings.Contains(ans.Context, "118-S-2") {
		t.Errorf("cross-bill context should name both bills, got %q", ans.Context)
	}
	if ensurer.calls != 0 {
		t.Error("cross-bill questions must not trigger indexing")
	}
}

func TestAskGenerationFailure(t *testing.T) {
	key := bills.NewKey(118, "HR", "1")
	provider := &stubProvider{err: errors.New("rate limited")}
	source := &stubSource{bills: map[bills.Key]*bills.Bill{key: {Key: key, Title: "Act"}}}
	o := NewOrchestrator(&stubVectors{}, &stubEnsurer{}, source, provider, estimateCounter{}, 25, 8000)

	_, err := o.Ask(context.Background(), &key, "Hi", nil)
	if !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestAssembleContextRespectsBudget(t *testing.T) {
	key := bills.NewKey(118, "HR", "1")
	var results []vectordb.SearchResult
	for i := 0; i < 10; i++ {
		results = append(results, result(key, "Act", strings.Repeat("x", 400)))
	}

	// estimateCounter counts ~100 tokens per snippet body.
	got := assembleContext(results, estimateCounter{}, 350, true)
	n := strings.Count(got, "From bill")
	if n == 0 || n >= 10 {
		t.Errorf("expected a truncated subset of snippets, got %d", n)
	}
}

func TestAssembleContextOversizedFirstSnippet(t *testing.T) {
	key := bills.NewKey(118, "HR", "1")
	results := []vectordb.SearchResult{result(key, "Act", strings.Repeat("y", 4000))}

	got := assembleContext(results, estimateCounter{}, 10, false)
	if got == "" {
		t.Error("a single oversized snippet should still be included")
	}
}

func TestSummarizerCachesResult(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	defer database.Close()
	store := bills.NewStore(database)

	key := bills.NewKey(118, "HR", "55")
	ctx := context.Background()
	if _, err := store.InsertBatch(ctx, []bills.Bill{{
		Key: key, Title: "Postal Act", TextLink: "https://example.gov/55.htm",
	}}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	provider := &stubProvider{reply: "Reforms postal service finances."}
	fetcher := fetcherFunc(func(context.Context, string) (string, error) {
		return "A BILL to reform the postal service.", nil
	})
	s := NewSummarizer(store, fetcher, provider)

	got, err := s.Summary(ctx, key)
	if err != nil {
		t.Fatalf("first Summary: %v", err)
	}
	if got != "Reforms postal service finances." {
		t.Errorf("unexpected summary %q", got)
	}

	// Second call is served from the database, not the provider.
	got, err = s.Summary(ctx, key)
	if err != nil {
		t.Fatalf("second Summary: %v", err)
	}
	if got != "Reforms postal service finances." {
		t.Errorf("unexpected cached summary %q", got)
	}
	if len(provider.calls) != 1 {
		t.Errorf("expected 1 provider call, got %d", len(provider.calls))
	}
}

func TestSummarizerNoTextLink(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	defer database.Close()
	store := bills.NewStore(database)

	key := bills.NewKey(118, "HR", "56")
	ctx := context.Background()
	if _, err := store.InsertBatch(ctx, []bills.Bill{{Key: key, Title: "No Text Act"}}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	s := NewSummarizer(store, fetcherFunc(nil), &stubProvider{})
	if _, err := s.Summary(ctx, key); err == nil {
		t.Error("expected error for bill without text link")
	}
}

type fetcherFunc func(ctx context.Context, url string) (string, error)

func (f fetcherFunc) FetchText(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

func TestSessionStoreRoundTrip(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	defer database.Close()
	sessions := NewSessionStore(database)
	ctx := context.Background()

	key := bills.NewKey(118, "HR", "3076")
	id, err := sessions.Create(ctx, &key)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	gotKey, err := sessions.Bill(ctx, id)
	if err != nil {
		t.Fatalf("Bill: %v", err)
	}
	if gotKey == nil || *gotKey != key {
		t.Errorf("expected session scoped to %s, got %v", key, gotKey)
	}

	if err := sessions.Append(ctx, id, llm.RoleUser, "What does it fund?"); err != nil {
		t.Fatalf("Append user: %v", err)
	}
	if err := sessions.Append(ctx, id, llm.RoleAssistant, "Semiconductors."); err != nil {
		t.Fatalf("Append assistant: %v", err)
	}

	history, err := sessions.History(ctx, id)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	if history[0].Role != llm.RoleUser || history[1].Role != llm.RoleAssistant {
		t.Errorf("history out of order: %+v", history)
	}
}

func TestSessionStoreCrossBillSession(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	defer database.Close()
	sessions := NewSessionStore(database)
	ctx := context.Background()

	id, err := sessions.Create(ctx, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	key, err := sessions.Bill(ctx, id)
	if err != nil {
		t.Fatalf("Bill: %v", err)
	}
	if key != nil {
		t.Errorf("expected nil key for cross-bill session, got %v", key)
	}
}

func TestSessionStoreUnknownSession(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	defer database.Close()
	sessions := NewSessionStore(database)

	_, err = sessions.Bill(context.Background(), "nope")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}
