// Package search implements the client for the paginated article search API.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/JakeFAU/knowledgesync/internal/article"
)

// ErrStatus is wrapped by Fetch when the API answers with a non-2xx status.
var ErrStatus = errors.New("unexpected status")

// DefaultBaseURL is the production search endpoint.
const DefaultBaseURL = "https://www.library.hbs.edu/api/search/query"

// DefaultQuery holds the fixed index, facet, filter and sort parameters.
func DefaultQuery() map[string]string {
	return map[string]string{
		"index":   "modern",
		"facets":  "industry,faculty,unit",
		"filters": "(subset:working-knowledge AND contentType:Article)",
		"sort":    "sortDate:desc",
	}
}

// Config controls the search client.
type Config struct {
	BaseURL   string
	Query     map[string]string
	UserAgent string
	Timeout   time.Duration
}

// Page is one decoded response.
type Page struct {
	Offset int
	Hits   []article.Hit
	// Raw is the undecoded response body, kept for archival.
	Raw []byte
}

type response struct {
	Hits []article.Hit `json:"hits"`
}

// Waiter paces outbound requests.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Option customizes a Client.
type Option func(*Client)

// WithLimiter makes Fetch wait on w before every request.
func WithLimiter(w Waiter) Option {
	return func(c *Client) { c.limiter = w }
}

// Client fetches pages from the search API.
type Client struct {
	http    *http.Client
	cfg     Config
	limiter Waiter
}

// New constructs a Client. A nil httpClient gets one with cfg.Timeout.
func New(cfg Config, httpClient *http.Client, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid search base url: %w", err)
	}
	if cfg.Query == nil {
		cfg.Query = DefaultQuery()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	c := &Client{http: httpClient, cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// PageURL builds the request URL for one page.
func (c *Client) PageURL(offset, size int) string {
	q := url.Values{}
	q.Set("from", strconv.Itoa(offset))
	q.Set("size", strconv.Itoa(size))
	for k, v := range c.cfg.Query {
		q.Set(k, v)
	}
	u, _ := url.Parse(c.cfg.BaseURL) // validated in New
	u.RawQuery = q.Encode()
	return u.String()
}

// Fetch requests the page starting at offset.
func (c *Client) Fetch(ctx context.Context, offset, size int) (Page, error) {
	pageURL := c.PageURL(offset, size)
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, pageURL); err != nil {
			return Page{}, fmt.Errorf("get page at offset %d: %w", offset, err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Page{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("get page at offset %d: %w", offset, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Page{}, fmt.Errorf("get page at offset %d: %w: %d", offset, ErrStatus, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Page{}, fmt.Errorf("read page at offset %d: %w", offset, err)
	}
	var decoded response
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Page{}, fmt.Errorf("decode page at offset %d: %w", offset, err)
	}
	return Page{Offset: offset, Hits: decoded.Hits, Raw: body}, nil
}
