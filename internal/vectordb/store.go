package vectordb

import (
	"context"

	"github.com/openlegis/billchat/internal/bills"
)

// VectorStore defines the interface for storing and searching bill chunks.
type VectorStore interface {
	// AddDocuments adds or updates documents in the store.
	AddDocuments(ctx context.Context, docs []Document) error

	// Search performs a semantic search using the query text. A non-nil
	// bill key restricts results to that bill's chunks.
	Search(ctx context.Context, query string, limit int, bill *bills.Key) ([]SearchResult, error)

	// HasBill reports whether at least one chunk of the bill is indexed.
	HasBill(ctx context.Context, key bills.Key) bool

	// BillChunks returns all indexed chunks of a bill in chunk order.
	BillChunks(ctx context.Context, key bills.Key) ([]Document, error)

	// DeleteBill removes all chunks of the given bill.
	DeleteBill(ctx context.Context, key bills.Key) error

	// Persist saves the store's data to the given directory.
	Persist(ctx context.Context, dir string) error

	// Load restores the store's data from the given directory.
	Load(ctx context.Context, dir string) error

	// Count returns the total number of chunks in the store.
	Count() int
}
