package indexer

import "errors"

// Sentinel errors distinguishing the stages of an indexing run, so
// callers can decide whether a failure is retryable.
var (
	// ErrMissingSource means the bill has no text link to index from.
	ErrMissingSource = errors.New("bill has no text source")

	// ErrFetchFailed means the bill text could not be downloaded.
	ErrFetchFailed = errors.New("bill text fetch failed")

	// ErrEmbeddingFailed means the embedding provider rejected the chunks.
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrIndexWriteFailed means the vector store rejected the documents.
	ErrIndexWriteFailed = errors.New("vector index write failed")
)
