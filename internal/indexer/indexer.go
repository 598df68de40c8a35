// Package indexer turns stored bills into searchable vector documents:
// fetch text, chunk, embed in batches, upsert. Runs are deduplicated
// per bill so concurrent requests for the same bill do the work once.
package indexer

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/openlegis/billchat/internal/bills"
	"github.com/openlegis/billchat/internal/chunker"
	"github.com/openlegis/billchat/internal/embeddings"
	"github.com/openlegis/billchat/internal/vectordb"
)

// upsertBatchSize caps how many documents go into one vector store write.
const upsertBatchSize = 100

// BillSource loads bill records by key. Satisfied by *bills.Store.
type BillSource interface {
	Get(ctx context.Context, key bills.Key) (*bills.Bill, error)
}

// TextFetcher downloads bill text. Satisfied by *congress.TextFetcher.
type TextFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// Indexer coordinates the chunk-embed-upsert pipeline for one bill at
// a time, with a concurrency cap across bills.
type Indexer struct {
	source   BillSource
	fetcher  TextFetcher
	splitter *chunker.Splitter
	embedder embeddings.Embedder
	vectors  vectordb.VectorStore

	group singleflight.Group
	sem   *semaphore.Weighted

	// persistDir, when set, is where the vector store snapshot is
	// written after each successful run.
	persistDir string
}

// New creates an Indexer. maxConcurrent caps how many bills may be in
// the pipeline at once.
func New(source BillSource, fetcher TextFetcher, splitter *chunker.Splitter,
	embedder embeddings.Embedder, vectors vectordb.VectorStore, maxConcurrent int64) *Indexer {
	if maxConcurrent < 1 {
		maxConcurrent = 4
	}
	return &Indexer{
		source:   source,
		fetcher:  fetcher,
		splitter: splitter,
		embedder: embedder,
		vectors:  vectors,
		sem:      semaphore.NewWeighted(maxConcurrent),
	}
}

// SetPersistDir enables vector store snapshots after successful runs.
func (i *Indexer) SetPersistDir(dir string) {
	i.persistDir = dir
}

// EnsureIndexed indexes a bill if its chunks are not already in the
// vector store. Concurrent calls for the same bill collapse into one
// pipeline run; all callers receive that run's result.
func (i *Indexer) EnsureIndexed(ctx context.Context, key bills.Key) error {
	if i.vectors.HasBill(ctx, key) {
		return nil
	}

	_, err, _ := i.group.Do(key.String(), func() (any, error) {
		// A run that finished while we queued makes this a no-op.
		if i.vectors.HasBill(ctx, key) {
			return nil, nil
		}

		if err := i.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer i.sem.Release(1)

		return nil, i.index(ctx, key)
	})
	return err
}

func (i *Indexer) index(ctx context.Context, key bills.Key) error {
	bill, err := i.source.Get(ctx, key)
	if err != nil {
		return err
	}
	if bill.TextLink == "" {
		return fmt.Errorf("%w: %s", ErrMissingSource, key)
	}

	text, err := i.fetcher.FetchText(ctx, bill.TextLink)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFetchFailed, key, err)
	}

	chunks := i.splitter.Split(text)
	if len(chunks) == 0 {
		return fmt.Errorf("%w: %s has empty text", ErrMissingSource, key)
	}

	texts := make([]string, len(chunks))
	for n, c := range chunks {
		texts[n] = c.Text
	}
	vecs, err := i.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEmbeddingFailed, key, err)
	}
	if len(vecs) != len(chunks) {
		return fmt.Errorf("%w: %s: got %d embeddings for %d chunks",
			ErrEmbeddingFailed, key, len(vecs), len(chunks))
	}

	docs := make([]vectordb.Document, len(chunks))
	for n, c := range chunks {
		docs[n] = vectordb.Document{
			ID:        vectordb.ChunkID(key, c.Index),
			Content:   c.Text,
			Embedding: vecs[n],
			Metadata: vectordb.DocumentMetadata{
				Bill:       key,
				ChunkIndex: c.Index,
				Title:      bill.Title,
			},
		}
	}

	for start := 0; start < len(docs); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		if err := i.vectors.AddDocuments(ctx, docs[start:end]); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrIndexWriteFailed, key, err)
		}
	}

	log.Printf("indexer: indexed %s (%d chunks)", key, len(docs))

	if i.persistDir != "" {
		if err := i.vectors.Persist(ctx, i.persistDir); err != nil {
			log.Printf("indexer: persisting vector store: %v", err)
		}
	}
	return nil
}
