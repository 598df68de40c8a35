package congress

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxTextBytes caps how much bill text is read into memory; the
// largest published bills are a few megabytes of formatted text.
const maxTextBytes = 16 << 20

// TextFetcher downloads bill text (and cached PDF assets) from the
// links recorded during enrichment. Shared by the indexer and the
// summary path.
type TextFetcher struct {
	httpClient *http.Client
}

// NewTextFetcher creates a fetcher with the given timeout.
func NewTextFetcher(timeout time.Duration) *TextFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TextFetcher{httpClient: &http.Client{Timeout: timeout}}
}

// FetchText downloads the document at the given URL and returns its
// body as a string.
func (f *TextFetcher) FetchText(ctx context.Context, rawURL string) (string, error) {
	body, err := f.fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// FetchBytes downloads the document at the given URL as raw bytes,
// used for PDF assets.
func (f *TextFetcher) FetchBytes(ctx context.Context, rawURL string) ([]byte, error) {
	return f.fetch(ctx, rawURL)
}

func (f *TextFetcher) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", rawURL, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %s", rawURL, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTextBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rawURL, err)
	}
	return body, nil
}
