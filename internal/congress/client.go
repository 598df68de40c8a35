// Package congress is a minimal client for the Congress.gov v3 API,
// covering the paginated bill listing and per-bill text-versions
// endpoints used by ingestion and indexing.
package congress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/openlegis/billchat/internal/bills"
)

// ErrUpstreamUnavailable wraps listing failures; the ingestion
// coordinator logs these and retries on the next polling cycle.
var ErrUpstreamUnavailable = errors.New("congress api unavailable")

const (
	defaultBaseURL = "https://api.congress.gov/v3"
	pageLimit      = 250
)

// Client talks to the Congress.gov API. All requests pass through a
// shared rate limiter so listing, enrichment and backfill traffic
// together stay under the upstream quota.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (used in tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithRequestsPerSecond adjusts the client-side rate limit.
func WithRequestsPerSecond(rps float64) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// New creates a Client with a 30 second request timeout and a
// one-request-per-second limit, matching the upstream's guidance.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(1), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Candidate is one raw bill from the listing endpoint, before
// enrichment and normalization.
type Candidate struct {
	Congress     int    `json:"congress"`
	Type         string `json:"type"`
	Number       string `json:"number"`
	Title        string `json:"title"`
	UpdateDate   string `json:"updateDate"`
	LatestAction struct {
		ActionDate string `json:"actionDate"`
		Text       string `json:"text"`
	} `json:"latestAction"`
}

// Key returns the candidate's normalized natural key.
func (c Candidate) Key() bills.Key {
	return bills.NewKey(c.Congress, c.Type, c.Number)
}

type listResponse struct {
	Bills      []Candidate `json:"bills"`
	Pagination struct {
		Next string `json:"next"`
	} `json:"pagination"`
}

// RecentBills pages through the bill listing, following the
// pagination cursor until exhausted, and returns all candidates
// updated since the given time.
func (c *Client) RecentBills(ctx context.Context, since time.Time) ([]Candidate, error) {
	u := fmt.Sprintf("%s/bill?format=json&fromDateTime=%s&sort=updateDate+asc&limit=%d",
		c.baseURL, url.QueryEscape(since.UTC().Format("2006-01-02T15:04:05Z")), pageLimit)

	var all []Candidate
	err := c.forEachPage(ctx, u, func(page []Candidate) error {
		all = append(all, page...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// CongressBills pages through every bill of one congress, invoking fn
// per page. Used by the backfill command, where collecting the entire
// listing in memory is not worthwhile.
func (c *Client) CongressBills(ctx context.Context, congress int, fn func(page []Candidate) error) error {
	u := fmt.Sprintf("%s/bill/%d?format=json&sort=updateDate+asc&limit=%d", c.baseURL, congress, pageLimit)
	return c.forEachPage(ctx, u, fn)
}

func (c *Client) forEachPage(ctx context.Context, pageURL string, fn func([]Candidate) error) error {
	for pageURL != "" {
		var resp listResponse
		if err := c.getJSON(ctx, pageURL, &resp); err != nil {
			return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
		if err := fn(resp.Bills); err != nil {
			return err
		}
		pageURL = resp.Pagination.Next
	}
	return nil
}

// TextFormat is one downloadable representation of a bill text version.
type TextFormat struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// TextVersion groups the formats published for one version of a bill.
type TextVersion struct {
	Date    string       `json:"date"`
	Formats []TextFormat `json:"formats"`
}

type textVersionsResponse struct {
	TextVersions []TextVersion `json:"textVersions"`
}

// TextVersions fetches the available text representations for a bill.
func (c *Client) TextVersions(ctx context.Context, key bills.Key) ([]TextVersion, error) {
	u := fmt.Sprintf("%s/bill/%d/%s/%s/text?format=json",
		c.baseURL, key.Congress, url.PathEscape(strings.ToLower(key.Type)), url.PathEscape(key.Number))

	var resp textVersionsResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("fetching text versions for %s: %w", key, err)
	}
	return resp.TextVersions, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parsing url: %w", err)
	}
	q := u.Query()
	q.Set("api_key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
