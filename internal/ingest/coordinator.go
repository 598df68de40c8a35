// Package ingest polls Congress.gov for new bills, enriches them with
// text and PDF links, and persists them. Bills already stored with a
// text link are skipped; stored bills that still lack one are retried
// on every cycle.
package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/openlegis/billchat/internal/bills"
	"github.com/openlegis/billchat/internal/congress"
)

// CongressAPI is the slice of the Congress.gov client the coordinator
// needs. Satisfied by *congress.Client.
type CongressAPI interface {
	RecentBills(ctx context.Context, since time.Time) ([]congress.Candidate, error)
	TextVersions(ctx context.Context, key bills.Key) ([]congress.TextVersion, error)
	CongressBills(ctx context.Context, congressNum int, fn func(page []congress.Candidate) error) error
}

// Store is the bill persistence surface. Satisfied by *bills.Store.
type Store interface {
	ListKeys(ctx context.Context) ([]bills.KeyInfo, error)
	InsertBatch(ctx context.Context, batch []bills.Bill) (int, error)
}

// Stats summarizes one ingestion cycle.
type Stats struct {
	Discovered int
	Skipped    int
	Processed  int
	Inserted   int
	WithText   int
}

// Coordinator drives the polling loop.
type Coordinator struct {
	api      CongressAPI
	store    Store
	since    time.Time
	interval time.Duration
}

// New creates a Coordinator polling at the given interval for bills
// updated since the given time.
func New(api CongressAPI, store Store, since time.Time, interval time.Duration) *Coordinator {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Coordinator{api: api, store: store, since: since, interval: interval}
}

// Run executes ingestion cycles until the context is canceled. Cycle
// failures are logged; the loop keeps going.
func (c *Coordinator) Run(ctx context.Context) {
	log.Printf("ingest: starting bill monitoring, polling every %s", c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		stats, err := c.RunOnce(ctx)
		if err != nil {
			log.Printf("ingest: cycle failed: %v", err)
		} else if stats.Processed > 0 {
			log.Printf("ingest: processed %d bills (%d new, %d with text, %d skipped)",
				stats.Processed, stats.Inserted, stats.WithText, stats.Skipped)
		} else {
			log.Printf("ingest: no new or text-less bills found")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single discover-filter-enrich-persist cycle.
func (c *Coordinator) RunOnce(ctx context.Context) (Stats, error) {
	var stats Stats

	known, err := c.store.ListKeys(ctx)
	if err != nil {
		return stats, fmt.Errorf("loading known bills: %w", err)
	}
	hasLink := make(map[bills.Key]bool, len(known))
	for _, k := range known {
		hasLink[k.Key] = k.HasLink
	}

	candidates, err := c.api.RecentBills(ctx, c.since)
	if err != nil {
		return stats, fmt.Errorf("discovering bills: %w", err)
	}
	stats.Discovered = len(candidates)

	var batch []bills.Bill
	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		// Skip bills we already hold complete records for; retry the
		// ones still missing their text link.
		if linked, ok := hasLink[cand.Key()]; ok && linked {
			stats.Skipped++
			continue
		}
		b := c.enrich(ctx, cand)
		if b.HasText {
			stats.WithText++
		}
		batch = append(batch, b)
	}
	stats.Processed = len(batch)

	inserted, err := c.store.InsertBatch(ctx, batch)
	if err != nil {
		return stats, fmt.Errorf("persisting bills: %w", err)
	}
	stats.Inserted = inserted
	return stats, nil
}

// Backfill ingests every bill of one congress, page by page. The
// progress callback, if set, receives the running bill count.
func (c *Coordinator) Backfill(ctx context.Context, congressNum int, progress func(done int)) (Stats, error) {
	var stats Stats

	known, err := c.store.ListKeys(ctx)
	if err != nil {
		return stats, fmt.Errorf("loading known bills: %w", err)
	}
	hasLink := make(map[bills.Key]bool, len(known))
	for _, k := range known {
		hasLink[k.Key] = k.HasLink
	}

	err = c.api.CongressBills(ctx, congressNum, func(page []congress.Candidate) error {
		var batch []bills.Bill
		for _, cand := range page {
			stats.Discovered++
			if linked, ok := hasLink[cand.Key()]; ok && linked {
				stats.Skipped++
				continue
			}
			b := c.enrich(ctx, cand)
			if b.HasText {
				stats.WithText++
			}
			batch = append(batch, b)
		}
		stats.Processed += len(batch)

		inserted, err := c.store.InsertBatch(ctx, batch)
		if err != nil {
			return fmt.Errorf("persisting page: %w", err)
		}
		stats.Inserted += inserted

		if progress != nil {
			progress(stats.Discovered)
		}
		return nil
	})
	return stats, err
}

// enrich resolves a candidate's text and PDF links from its newest
// text version. Failures are recorded on the bill instead of aborting
// the cycle, so the record persists and the next cycle retries it.
func (c *Coordinator) enrich(ctx context.Context, cand congress.Candidate) bills.Bill {
	key := cand.Key()
	b := bills.Bill{
		Key:        key,
		Title:      cand.Title,
		Status:     cand.LatestAction.Text,
		UpdateDate: cand.UpdateDate,
	}

	versions, err := c.api.TextVersions(ctx, key)
	if err != nil {
		b.EnrichmentError = fmt.Sprintf("fetching text versions: %v", err)
		log.Printf("ingest: warning: %s: %s", key, b.EnrichmentError)
		return b
	}
	if len(versions) == 0 {
		b.EnrichmentError = fmt.Sprintf("no text versions found for bill %s", key)
		log.Printf("ingest: warning: %s", b.EnrichmentError)
		return b
	}

	var pdfLinks []string
	var textLink string
	for _, f := range versions[0].Formats {
		switch f.Type {
		case "PDF":
			pdfLinks = append(pdfLinks, f.URL)
		case "Formatted Text":
			if textLink == "" {
				textLink = f.URL
			}
		}
	}

	if len(pdfLinks) == 0 || textLink == "" {
		b.EnrichmentError = fmt.Sprintf("missing links for bill %s", key)
		log.Printf("ingest: warning: %s", b.EnrichmentError)
		return b
	}

	b.TextLink = textLink
	b.PDFLinks = pdfLinks
	b.HasText = true
	return b
}
