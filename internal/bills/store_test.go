package bills

import (
	"context"
	"errors"
	"testing"

	"github.com/openlegis/billchat/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening in-memory db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestNewKeyNormalizesType(t *testing.T) {
	k := NewKey(118, "hr", " 3076 ")
	if k.Type != "HR" {
		t.Errorf("expected type HR, got %q", k.Type)
	}
	if k.Number != "3076" {
		t.Errorf("expected number 3076, got %q", k.Number)
	}
	if k.String() != "118-HR-3076" {
		t.Errorf("unexpected canonical form %q", k.String())
	}
}

func TestInsertBatchIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	batch := []Bill{
		{Key: NewKey(118, "HR", "1"), Title: "First Bill", TextLink: "https://example.gov/1.htm", HasText: true},
		{Key: NewKey(118, "S", "2"), Title: "Second Bill", TextLink: "https://example.gov/2.htm", HasText: true},
	}

	n, err := s.InsertBatch(ctx, batch)
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 inserted, got %d", n)
	}

	// Re-ingesting the same listing must not create duplicates or
	// overwrite the existing records.
	n, err = s.InsertBatch(ctx, batch)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 inserted on re-ingest, got %d", n)
	}

	all, err := s.List(ctx, "title", "asc", 10)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 bills, got %d", len(all))
	}
}

func TestInsertBatchFillsMissingEnrichment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := NewKey(118, "HR", "7")

	// First pass: enrichment failed, record persisted without links.
	_, err := s.InsertBatch(ctx, []Bill{{
		Key:             key,
		Title:           "Budget Act",
		HasText:         false,
		EnrichmentError: "no text versions found",
	}})
	if err != nil {
		t.Fatalf("initial insert: %v", err)
	}

	// Retry on a later poll succeeds and fills in the links.
	_, err = s.InsertBatch(ctx, []Bill{{
		Key:      key,
		Title:    "Budget Act",
		TextLink: "https://example.gov/7.htm",
		PDFLinks: []string{"https://example.gov/7.pdf"},
		HasText:  true,
	}})
	if err != nil {
		t.Fatalf("retry insert: %v", err)
	}

	b, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if b.TextLink != "https://example.gov/7.htm" {
		t.Errorf("expected text link to be filled in, got %q", b.TextLink)
	}
	if !b.HasText {
		t.Error("expected has_text true after retry")
	}

	// A populated record is never overwritten by a later batch.
	_, err = s.InsertBatch(ctx, []Bill{{Key: key, Title: "Budget Act", TextLink: "https://evil.example/x.htm"}})
	if err != nil {
		t.Fatalf("third insert: %v", err)
	}
	b, err = s.Get(ctx, key)
	if err != nil {
		t.Fatalf("get after third insert: %v", err)
	}
	if b.TextLink != "https://example.gov/7.htm" {
		t.Errorf("populated text link was overwritten: %q", b.TextLink)
	}
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), NewKey(117, "HR", "999"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSetSummary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := NewKey(118, "S", "42")

	if err := s.SetSummary(ctx, key, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing bill, got %v", err)
	}

	if _, err := s.InsertBatch(ctx, []Bill{{Key: key, Title: "Water Act"}}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.SetSummary(ctx, key, "Regulates water rights."); err != nil {
		t.Fatalf("set summary: %v", err)
	}

	b, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if b.Summary != "Regulates water rights." {
		t.Errorf("unexpected summary %q", b.Summary)
	}
}

func TestSearchTitle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.InsertBatch(ctx, []Bill{
		{Key: NewKey(118, "HR", "10"), Title: "Clean Energy Act"},
		{Key: NewKey(118, "HR", "11"), Title: "Farm Security Act"},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := s.SearchTitle(ctx, "energy", 20)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Clean Energy Act" {
		t.Errorf("unexpected search results: %+v", got)
	}
}

func TestInsertBatchCountsOnlyNewRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := NewKey(118, "HR", "8")

	n, err := s.InsertBatch(ctx, []Bill{{Key: key, Title: "Transit Act"}})
	if err != nil {
		t.Fatalf("initial insert: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 inserted, got %d", n)
	}

	// A retried enrichment updates the incomplete row; it is not a new
	// insert and must not count as one.
	n, err = s.InsertBatch(ctx, []Bill{
		{Key: key, Title: "Transit Act", TextLink: "https://example.gov/8.htm", HasText: true},
		{Key: NewKey(118, "S", "9"), Title: "Rail Act"},
	})
	if err != nil {
		t.Fatalf("retry insert: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 inserted (the new key only), got %d", n)
	}

	b, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if b.TextLink != "https://example.gov/8.htm" {
		t.Errorf("expected retried enrichment to fill the link, got %q", b.TextLink)
	}
}
