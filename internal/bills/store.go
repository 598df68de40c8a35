package bills

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openlegis/billchat/internal/db"
)

// Store persists bills in SQLite. The composite primary key on
// (congress, bill_type, bill_number) makes inserts race-safe: a
// concurrent insert of the same key keeps the existing row.
type Store struct {
	db *db.DB
}

// NewStore creates a bill store over the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// KeyInfo pairs a bill key with whether the stored record already has a
// text link. The ingestion coordinator uses this as its dedup set.
type KeyInfo struct {
	Key     Key
	HasLink bool
}

// ListKeys returns every known bill key along with text-link presence.
func (s *Store) ListKeys(ctx context.Context) ([]KeyInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT congress, bill_type, bill_number, text_link FROM bills`)
	if err != nil {
		return nil, fmt.Errorf("listing bill keys: %w", err)
	}
	defer rows.Close()

	var infos []KeyInfo
	for rows.Next() {
		var (
			k    Key
			link string
		)
		if err := rows.Scan(&k.Congress, &k.Type, &k.Number, &link); err != nil {
			return nil, fmt.Errorf("scanning bill key: %w", err)
		}
		infos = append(infos, KeyInfo{Key: k, HasLink: link != ""})
	}
	return infos, rows.Err()
}

// InsertBatch writes all given bills in one transaction. New keys are
// inserted; keys that already exist keep their row, except that empty
// enrichment fields are filled in when a retried enrichment succeeded
// (a record with a populated text link is never overwritten). Returns
// the number of newly inserted rows.
func (s *Store) InsertBatch(ctx context.Context, batch []Bill) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning insert transaction: %w", err)
	}
	defer tx.Rollback()

	const q = `
INSERT INTO bills (congress, bill_type, bill_number, title, status, text_link,
                   pdf_links, has_text, enrichment_error, update_date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (congress, bill_type, bill_number) DO UPDATE SET
    text_link        = excluded.text_link,
    pdf_links        = excluded.pdf_links,
    has_text         = excluded.has_text,
    enrichment_error = excluded.enrichment_error,
    status           = excluded.status,
    update_date      = excluded.update_date,
    updated_at       = datetime('now')
WHERE bills.text_link = ''`

	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("preparing bill insert: %w", err)
	}
	defer stmt.Close()

	// RowsAffected reports 1 for the conflict-update branch too, so the
	// insert count comes from an existence check instead.
	existsStmt, err := tx.PrepareContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM bills WHERE congress = ? AND bill_type = ? AND bill_number = ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing bill lookup: %w", err)
	}
	defer existsStmt.Close()

	inserted := 0
	for _, b := range batch {
		var exists bool
		if err := existsStmt.QueryRowContext(ctx,
			b.Key.Congress, b.Key.Type, b.Key.Number).Scan(&exists); err != nil {
			return 0, fmt.Errorf("checking bill %s: %w", b.Key, err)
		}

		links, err := json.Marshal(normalizeNil(b.PDFLinks))
		if err != nil {
			return 0, fmt.Errorf("encoding pdf links for %s: %w", b.Key, err)
		}
		if _, err := stmt.ExecContext(ctx,
			b.Key.Congress, b.Key.Type, b.Key.Number,
			b.Title, b.Status, b.TextLink, string(links),
			b.HasText, b.EnrichmentError, b.UpdateDate); err != nil {
			return 0, fmt.Errorf("inserting bill %s: %w", b.Key, err)
		}
		if !exists {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing bill batch: %w", err)
	}
	return inserted, nil
}

// Get looks up one bill by its natural key.
func (s *Store) Get(ctx context.Context, key Key) (*Bill, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT congress, bill_type, bill_number, title, status, text_link, pdf_links,
       summary, has_text, enrichment_error, update_date, created_at, updated_at
FROM bills WHERE congress = ? AND bill_type = ? AND bill_number = ?`,
		key.Congress, key.Type, key.Number)

	b, err := scanBill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("loading bill %s: %w", key, err)
	}
	return b, nil
}

// SetSummary stores a generated summary on an existing bill.
func (s *Store) SetSummary(ctx context.Context, key Key, summary string) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE bills SET summary = ?, updated_at = datetime('now')
WHERE congress = ? AND bill_type = ? AND bill_number = ?`,
		summary, key.Congress, key.Type, key.Number)
	if err != nil {
		return fmt.Errorf("updating summary for %s: %w", key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return nil
}

// sortColumns whitelists the columns the listing endpoints may sort on.
var sortColumns = map[string]string{
	"title":       "title",
	"congress":    "congress",
	"update_date": "update_date",
	"created_at":  "created_at",
}

// List returns bills sorted by the given column. Unknown sort columns
// fall back to title; order is "asc" or "desc".
func (s *Store) List(ctx context.Context, sortBy, order string, limit int) ([]Bill, error) {
	col, ok := sortColumns[sortBy]
	if !ok {
		col = "title"
	}
	dir := "ASC"
	if strings.EqualFold(order, "desc") {
		dir = "DESC"
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
SELECT congress, bill_type, bill_number, title, status, text_link, pdf_links,
       summary, has_text, enrichment_error, update_date, created_at, updated_at
FROM bills ORDER BY %s %s LIMIT ?`, col, dir), limit)
	if err != nil {
		return nil, fmt.Errorf("listing bills: %w", err)
	}
	defer rows.Close()
	return collectBills(rows)
}

// SearchTitle finds bills whose title contains the query, case-insensitively.
func (s *Store) SearchTitle(ctx context.Context, query string, limit int) ([]Bill, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT congress, bill_type, bill_number, title, status, text_link, pdf_links,
       summary, has_text, enrichment_error, update_date, created_at, updated_at
FROM bills WHERE title LIKE '%' || ? || '%' COLLATE NOCASE
ORDER BY title LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching bills: %w", err)
	}
	defer rows.Close()
	return collectBills(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBill(r rowScanner) (*Bill, error) {
	var (
		b     Bill
		links string
	)
	err := r.Scan(&b.Key.Congress, &b.Key.Type, &b.Key.Number, &b.Title, &b.Status,
		&b.TextLink, &links, &b.Summary, &b.HasText, &b.EnrichmentError,
		&b.UpdateDate, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(links), &b.PDFLinks); err != nil {
		return nil, fmt.Errorf("decoding pdf links: %w", err)
	}
	return &b, nil
}

func collectBills(rows *sql.Rows) ([]Bill, error) {
	var out []Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning bill: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func normalizeNil(links []string) []string {
	if links == nil {
		return []string{}
	}
	return links
}
