package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/openlegis/billchat/internal/bills"
	"github.com/openlegis/billchat/internal/chunker"
	"github.com/openlegis/billchat/internal/vectordb"
)

type fakeSource struct {
	bills map[bills.Key]*bills.Bill
}

func (f *fakeSource) Get(_ context.Context, key bills.Key) (*bills.Bill, error) {
	b, ok := f.bills[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", bills.ErrNotFound, key)
	}
	return b, nil
}

type fakeFetcher struct {
	text  string
	err   error
	calls atomic.Int64
}

func (f *fakeFetcher) FetchText(_ context.Context, _ string) (string, error) {
	f.calls.Add(1)
	return f.text, f.err
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{float32(len(texts[i])), 1}
	}
	return vecs, nil
}

func (f *fakeEmbedder) Dimensions() int { return 2 }
func (f *fakeEmbedder) Name() string    { return "fake" }

// fakeVectors records writes and tracks which bills are present.
type fakeVectors struct {
	mu      sync.Mutex
	docs    map[string]vectordb.Document
	batches []int
	addErr  error
}

func newFakeVectors() *fakeVectors {
	return &fakeVectors{docs: make(map[string]vectordb.Document)}
}

func (f *fakeVectors) AddDocuments(_ context.Context, docs []vectordb.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.batches = append(f.batches, len(docs))
	for _, d := range docs {
		f.docs[d.ID] = d
	}
	return nil
}

func (f *fakeVectors) Search(_ context.Context, _ string, _ int, _ *bills.Key) ([]vectordb.SearchResult, error) {
	return nil, nil
}

func (f *fakeVectors) HasBill(_ context.Context, key bills.Key) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.docs[vectordb.ChunkID(key, 0)]
	return ok
}

func (f *fakeVectors) BillChunks(_ context.Context, key bills.Key) ([]vectordb.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []vectordb.Document
	for i := 0; ; i++ {
		d, ok := f.docs[vectordb.ChunkID(key, i)]
		if !ok {
			break
		}
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeVectors) DeleteBill(_ context.Context, key bills.Key) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id := range f.docs {
		if strings.HasPrefix(id, key.String()+":chunk:") {
			delete(f.docs, id)
		}
	}
	return nil
}

func (f *fakeVectors) Persist(_ context.Context, _ string) error { return nil }
func (f *fakeVectors) Load(_ context.Context, _ string) error    { return nil }

func (f *fakeVectors) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs)
}

func newTestIndexer(source *fakeSource, fetcher *fakeFetcher, vectors *fakeVectors) *Indexer {
	return New(source, fetcher, chunker.New(100, 10), &fakeEmbedder{}, vectors, 4)
}

func TestEnsureIndexedMissingSource(t *testing.T) {
	key := bills.NewKey(118, "HR", "1")
	source := &fakeSource{bills: map[bills.Key]*bills.Bill{
		key: {Key: key, Title: "No Text Act"},
	}}
	idx := newTestIndexer(source, &fakeFetcher{}, newFakeVectors())

	err := idx.EnsureIndexed(context.Background(), key)
	if !errors.Is(err, ErrMissingSource) {
		t.Errorf("expected ErrMissingSource, got %v", err)
	}
}

func TestEnsureIndexedUnknownBill(t *testing.T) {
	idx := newTestIndexer(&fakeSource{bills: map[bills.Key]*bills.Bill{}}, &fakeFetcher{}, newFakeVectors())

	err := idx.EnsureIndexed(context.Background(), bills.NewKey(118, "HR", "404"))
	if !errors.Is(err, bills.ErrNotFound) {
		t.Errorf("expected bills.ErrNotFound, got %v", err)
	}
}

func TestEnsureIndexedFetchFailure(t *testing.T) {
	key := bills.NewKey(118, "HR", "2")
	source := &fakeSource{bills: map[bills.Key]*bills.Bill{
		key: {Key: key, Title: "Act", TextLink: "https://example.gov/2.htm"},
	}}
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	idx := newTestIndexer(source, fetcher, newFakeVectors())

	err := idx.EnsureIndexed(context.Background(), key)
	if !errors.Is(err, ErrFetchFailed) {
		t.Errorf("expected ErrFetchFailed, got %v", err)
	}
}

func TestEnsureIndexedEmbeddingFailure(t *testing.T) {
	key := bills.NewKey(118, "HR", "3")
	source := &fakeSource{bills: map[bills.Key]*bills.Bill{
		key: {Key: key, Title: "Act", TextLink: "https://example.gov/3.htm"},
	}}
	fetcher := &fakeFetcher{text: "Some bill text to index."}
	idx := New(source, fetcher, chunker.New(100, 10), &fakeEmbedder{err: errors.New("quota")}, newFakeVectors(), 4)

	err := idx.EnsureIndexed(context.Background(), key)
	if !errors.Is(err, ErrEmbeddingFailed) {
		t.Errorf("expected ErrEmbeddingFailed, got %v", err)
	}
}

func TestEnsureIndexedWritesChunks(t *testing.T) {
	key := bills.NewKey(118, "HR", "3076")
	source := &fakeSource{bills: map[bills.Key]*bills.Bill{
		key: {Key: key, Title: "Chips Act", TextLink: "https://example.gov/3076.htm"},
	}}
	fetcher := &fakeFetcher{text: strings.Repeat("The Secretary shall carry out a program. ", 30)}
	vectors := newFakeVectors()
	idx := newTestIndexer(source, fetcher, vectors)

	if err := idx.EnsureIndexed(context.Background(), key); err != nil {
		t.Fatalf("EnsureIndexed: %v", err)
	}

	chunks, err := vectors.BillChunks(context.Background(), key)
	if err != nil {
		t.Fatalf("BillChunks: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("no chunks written")
	}
	for i, c := range chunks {
		if c.ID != vectordb.ChunkID(key, i) {
			t.Errorf("chunk %d has ID %q", i, c.ID)
		}
		if c.Metadata.Title != "Chips Act" {
			t.Errorf("chunk %d missing title metadata", i)
		}
		if len(c.Embedding) == 0 {
			t.Errorf("chunk %d has no precomputed embedding", i)
		}
	}
}

func TestEnsureIndexedSkipsAlreadyIndexed(t *testing.T) {
	key := bills.NewKey(118, "S", "5")
	source := &fakeSource{bills: map[bills.Key]*bills.Bill{
		key: {Key: key, Title: "Act", TextLink: "https://example.gov/5.htm"},
	}}
	fetcher := &fakeFetcher{text: "Bill text for indexing purposes."}
	vectors := newFakeVectors()
	idx := newTestIndexer(source, fetcher, vectors)

	ctx := context.Background()
	if err := idx.EnsureIndexed(ctx, key); err != nil {
		t.Fatalf("first EnsureIndexed: %v", err)
	}
	if err := idx.EnsureIndexed(ctx, key); err != nil {
		t.Fatalf("second EnsureIndexed: %v", err)
	}

	if n := fetcher.calls.Load(); n != 1 {
		t.Errorf("expected 1 fetch, got %d", n)
	}
}

func TestEnsureIndexedSingleFlight(t *testing.T) {
	key := bills.NewKey(118, "HR", "99")
	source := &fakeSource{bills: map[bills.Key]*bills.Bill{
		key: {Key: key, Title: "Act", TextLink: "https://example.gov/99.htm"},
	}}
	fetcher := &fakeFetcher{text: strings.Repeat("Concurrent indexing text. ", 20)}
	vectors := newFakeVectors()
	idx := newTestIndexer(source, fetcher, vectors)

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for n := 0; n < callers; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs[n] = idx.EnsureIndexed(context.Background(), key)
		}(n)
	}
	wg.Wait()

	for n, err := range errs {
		if err != nil {
			t.Errorf("caller %d: %v", n, err)
		}
	}
	// All callers collapse onto at most one pipeline run.
	if n := fetcher.calls.Load(); n != 1 {
		t.Errorf("expected 1 fetch across %d callers, got %d", callers, n)
	}
}

func TestIndexBatchesUpserts(t *testing.T) {
	key := bills.NewKey(118, "HR", "800")
	// Long text with small chunks to force several upsert batches.
	text := strings.Repeat("Every sentence here ends with a period. ", 800)
	source := &fakeSource{bills: map[bills.Key]*bills.Bill{
		key: {Key: key, Title: "Long Act", TextLink: "https://example.gov/800.htm"},
	}}
	fetcher := &fakeFetcher{text: text}
	vectors := newFakeVectors()
	idx := New(source, fetcher, chunker.New(100, 10), &fakeEmbedder{}, vectors, 4)

	if err := idx.EnsureIndexed(context.Background(), key); err != nil {
		t.Fatalf("EnsureIndexed: %v", err)
	}

	if len(vectors.batches) < 2 {
		t.Fatalf("expected multiple upsert batches, got %d", len(vectors.batches))
	}
	for i, n := range vectors.batches {
		if n > upsertBatchSize {
			t.Errorf("batch %d has %d documents, cap is %d", i, n, upsertBatchSize)
		}
	}
}

func TestIndexWriteFailure(t *testing.T) {
	key := bills.NewKey(118, "HR", "7")
	source := &fakeSource{bills: map[bills.Key]*bills.Bill{
		key: {Key: key, Title: "Act", TextLink: "https://example.gov/7.htm"},
	}}
	vectors := newFakeVectors()
	vectors.addErr = errors.New("disk full")
	idx := newTestIndexer(source, &fakeFetcher{text: "Some text."}, vectors)

	err := idx.EnsureIndexed(context.Background(), key)
	if !errors.Is(err, ErrIndexWriteFailed) {
		t.Errorf("expected ErrIndexWriteFailed, got %v", err)
	}
}
