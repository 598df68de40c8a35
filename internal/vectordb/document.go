package vectordb

import (
	"fmt"

	"github.com/openlegis/billchat/internal/bills"
)

// Document represents one bill chunk to be stored and searched.
// Embedding is precomputed by the indexer so the store never has to
// embed documents one at a time.
type Document struct {
	ID        string
	Content   string
	Embedding []float32
	Metadata  DocumentMetadata
}

// DocumentMetadata holds structured information about a chunk.
type DocumentMetadata struct {
	Bill       bills.Key
	ChunkIndex int
	Title      string
}

// ChunkID returns the deterministic document ID for one chunk of a
// bill, e.g. "118-HR-3076:chunk:4".
func ChunkID(key bills.Key, index int) string {
	return fmt.Sprintf("%s:chunk:%d", key, index)
}

// SearchResult pairs a document with its similarity score.
type SearchResult struct {
	Document   Document
	Similarity float32
}
