// Package feed fetches arXiv API results and normalizes them into items.
package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/mmcdole/gofeed/atom"

	"github.com/matheuskafuri/paperpress/internal/config"
	"github.com/matheuskafuri/paperpress/internal/store"
)

// DefaultBaseURL is the arXiv API query endpoint.
const DefaultBaseURL = "https://export.arxiv.org/api/query"

// maxRetries bounds how many times a single GET is reissued after a
// transient failure.
const maxRetries = 3

var retryStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

type Fetcher interface {
	Fetch(ctx context.Context, q config.Query) ([]store.Item, error)
}

// Client queries the arXiv API and parses the Atom responses.
type Client struct {
	BaseURL   string
	UserAgent string

	httpClient   *http.Client
	parser       *atom.Parser
	log          *slog.Logger
	retryInitial time.Duration
}

func NewClient(userAgent string, log *slog.Logger) *Client {
	return &Client{
		BaseURL:      DefaultBaseURL,
		UserAgent:    userAgent,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		parser:       &atom.Parser{},
		log:          log,
		retryInitial: 800 * time.Millisecond,
	}
}

// Fetch runs a single configured query and returns its normalized items.
func (c *Client) Fetch(ctx context.Context, q config.Query) ([]store.Item, error) {
	params := url.Values{}
	params.Set("search_query", q.SearchQuery)
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(q.MaxResults))
	params.Set("sortBy", q.SortBy)
	params.Set("sortOrder", q.SortOrder)

	body, err := c.get(ctx, c.BaseURL+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("fetching query %q: %w", q.SearchQuery, err)
	}
	defer body.Close()

	f, err := c.parser.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parsing feed for query %q: %w", q.SearchQuery, err)
	}

	items := make([]store.Item, 0, len(f.Entries))
	for _, entry := range f.Entries {
		if entry == nil {
			continue
		}
		items = append(items, normalizeEntry(entry))
	}
	return items, nil
}

// get issues the GET with a bounded retry budget. Connection errors and
// 429/500/502/503/504 responses are retried with exponential backoff; a
// Retry-After header overrides the computed delay. Any other status ends
// the request immediately.
func (c *Client) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInitial
	bo.Multiplier = 2

	var (
		lastErr    error
		retryAfter time.Duration
	)
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := bo.NextBackOff()
			if retryAfter > 0 {
				delay = retryAfter
			}
			c.log.Warn("retrying arxiv request", "attempt", attempt, "retry_in", delay, "err", lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		retryAfter = 0

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.UserAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusOK {
			return resp.Body, nil
		}

		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		statusErr := fmt.Errorf("arxiv API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
		if !retryStatus[resp.StatusCode] {
			return nil, statusErr
		}
		lastErr = statusErr
		retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	}
	return nil, fmt.Errorf("giving up after %d retries: %w", maxRetries, lastErr)
}

func parseRetryAfter(value string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func normalizeEntry(e *atom.Entry) store.Item {
	entryID := strings.TrimSpace(e.ID)
	return store.Item{
		ID:          itemID(entryID),
		Source:      "arxiv",
		Title:       cleanWS(e.Title),
		URL:         entryURL(e, entryID),
		PublishedAt: publishedAt(e),
		Authors:     authorNames(e),
		Abstract:    cleanWS(e.Summary),
		Raw: store.RawMeta{
			EntryID:         entryID,
			PDFURL:          pdfLink(e),
			Categories:      categoryTerms(e),
			PrimaryCategory: primaryCategory(e),
		},
	}
}

// itemID derives the stable item ID from the entry's ID URL. arXiv entry
// IDs look like http://arxiv.org/abs/2405.00001v1; anything without an
// /abs/ segment is used verbatim.
func itemID(entryID string) string {
	id := entryID
	if i := strings.LastIndex(id, "/abs/"); i >= 0 {
		id = id[i+len("/abs/"):]
	}
	return "arxiv:" + strings.TrimSpace(id)
}

func cleanWS(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func entryURL(e *atom.Entry, entryID string) string {
	u := ""
	for _, l := range e.Links {
		if l == nil || l.Href == "" {
			continue
		}
		// Links without a rel are alternate links per the Atom spec.
		if l.Rel == "alternate" || l.Rel == "" {
			u = l.Href
			break
		}
	}
	if u == "" {
		u = entryID
	}
	u = strings.TrimSpace(u)
	if strings.HasPrefix(u, "http://") {
		u = "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

func publishedAt(e *atom.Entry) string {
	raw, parsed := e.Published, e.PublishedParsed
	if raw == "" {
		raw, parsed = e.Updated, e.UpdatedParsed
	}
	if raw == "" || parsed == nil {
		return ""
	}
	return parsed.UTC().Format(time.RFC3339)
}

func authorNames(e *atom.Entry) []string {
	var names []string
	for _, a := range e.Authors {
		if a == nil {
			continue
		}
		if name := strings.TrimSpace(a.Name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func categoryTerms(e *atom.Entry) []string {
	var terms []string
	for _, c := range e.Categories {
		if c == nil {
			continue
		}
		if term := strings.TrimSpace(c.Term); term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}

func primaryCategory(e *atom.Entry) string {
	exts, ok := e.Extensions["arxiv"]
	if !ok {
		return ""
	}
	for _, ex := range exts["primary_category"] {
		if term := strings.TrimSpace(ex.Attrs["term"]); term != "" {
			return term
		}
	}
	return ""
}

func pdfLink(e *atom.Entry) string {
	for _, l := range e.Links {
		if l != nil && l.Type == "application/pdf" && l.Href != "" {
			return l.Href
		}
	}
	return ""
}

// Batch pairs a configured query with the items it returned.
type Batch struct {
	Query config.Query
	Items []store.Item
}

// FetchAll runs every configured query in order, one request at a time.
// Any failure aborts the collect run.
func FetchAll(ctx context.Context, fetcher Fetcher, queries []config.Query) ([]Batch, error) {
	batches := make([]Batch, 0, len(queries))
	for _, q := range queries {
		items, err := fetcher.Fetch(ctx, q)
		if err != nil {
			return nil, err
		}
		batches = append(batches, Batch{Query: q, Items: items})
	}
	return batches, nil
}

// Merge folds query batches into one list keyed by item ID. The first
// occurrence of an ID is canonical; later occurrences only union their
// query name into raw.queries. Unnamed queries tag nothing.
func Merge(batches []Batch) []store.Item {
	var out []store.Item
	byID := make(map[string]int)
	for _, b := range batches {
		name := strings.TrimSpace(b.Query.Name)
		for _, it := range b.Items {
			i, ok := byID[it.ID]
			if !ok {
				if name != "" {
					it.Raw.Queries = []string{name}
				}
				byID[it.ID] = len(out)
				out = append(out, it)
				continue
			}
			if name != "" && !containsString(out[i].Raw.Queries, name) {
				out[i].Raw.Queries = append(out[i].Raw.Queries, name)
			}
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
