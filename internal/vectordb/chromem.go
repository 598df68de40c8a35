package vectordb

import (
	"context"
	"fmt"
	"strconv"

	chromem "github.com/philippgille/chromem-go"

	"github.com/openlegis/billchat/internal/bills"
	"github.com/openlegis/billchat/internal/embeddings"
)

const collectionName = "bills"

// ChromemStore implements VectorStore using chromem-go.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   embeddings.Embedder
	embedFunc  chromem.EmbeddingFunc
}

// NewChromemStore creates a new in-memory ChromemStore. The embedder
// is only used for query text; documents carry precomputed embeddings.
func NewChromemStore(embedder embeddings.Embedder) (*ChromemStore, error) {
	db := chromem.NewDB()
	ef := embeddings.ToChromemFunc(embedder)

	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemStore{
		db:         db,
		collection: col,
		embedder:   embedder,
		embedFunc:  ef,
	}, nil
}

func (s *ChromemStore) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	chromDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		chromDocs[i] = chromem.Document{
			ID:        doc.ID,
			Content:   doc.Content,
			Embedding: doc.Embedding,
			Metadata:  metadataToMap(doc.Metadata),
		}
	}

	return s.collection.AddDocuments(ctx, chromDocs, 1)
}

func (s *ChromemStore) Search(ctx context.Context, query string, limit int, bill *bills.Key) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	// chromem-go requires nResults <= collection size.
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	var where map[string]string
	if bill != nil {
		where = map[string]string{"bill": bill.String()}
	}

	results, err := s.collection.Query(ctx, query, limit, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	searchResults := make([]SearchResult, len(results))
	for i, r := range results {
		searchResults[i] = SearchResult{
			Document: Document{
				ID:       r.ID,
				Content:  r.Content,
				Metadata: mapToMetadata(r.Metadata),
			},
			Similarity: r.Similarity,
		}
	}

	return searchResults, nil
}

func (s *ChromemStore) HasBill(ctx context.Context, key bills.Key) bool {
	_, err := s.collection.GetByID(ctx, ChunkID(key, 0))
	return err == nil
}

func (s *ChromemStore) BillChunks(ctx context.Context, key bills.Key) ([]Document, error) {
	var docs []Document
	for i := 0; ; i++ {
		d, err := s.collection.GetByID(ctx, ChunkID(key, i))
		if err != nil {
			break
		}
		docs = append(docs, Document{
			ID:        d.ID,
			Content:   d.Content,
			Embedding: d.Embedding,
			Metadata:  mapToMetadata(d.Metadata),
		})
	}
	return docs, nil
}

func (s *ChromemStore) DeleteBill(ctx context.Context, key bills.Key) error {
	return s.collection.Delete(ctx, map[string]string{"bill": key.String()}, nil)
}

func (s *ChromemStore) Persist(ctx context.Context, dir string) error {
	return s.db.ExportToFile(dir+"/chromem.gob.gz", true, "")
}

func (s *ChromemStore) Load(ctx context.Context, dir string) error {
	err := s.db.ImportFromFile(dir+"/chromem.gob.gz", "")
	if err != nil {
		return fmt.Errorf("import from file: %w", err)
	}

	// Re-acquire collection reference after import.
	col := s.db.GetCollection(collectionName, s.embedFunc)
	if col == nil {
		return fmt.Errorf("collection %q not found after import", collectionName)
	}
	s.collection = col
	return nil
}

func (s *ChromemStore) Count() int {
	return s.collection.Count()
}

// metadataToMap converts DocumentMetadata to a flat map[string]string for chromem.
func metadataToMap(m DocumentMetadata) map[string]string {
	return map[string]string{
		"bill":        m.Bill.String(),
		"congress":    strconv.Itoa(m.Bill.Congress),
		"bill_type":   m.Bill.Type,
		"bill_number": m.Bill.Number,
		"chunk_index": strconv.Itoa(m.ChunkIndex),
		"title":       m.Title,
	}
}

// mapToMetadata converts a flat map[string]string back to DocumentMetadata.
func mapToMetadata(m map[string]string) DocumentMetadata {
	congress, _ := strconv.Atoi(m["congress"])
	chunkIndex, _ := strconv.Atoi(m["chunk_index"])

	return DocumentMetadata{
		Bill:       bills.Key{Congress: congress, Type: m["bill_type"], Number: m["bill_number"]},
		ChunkIndex: chunkIndex,
		Title:      m["title"],
	}
}
