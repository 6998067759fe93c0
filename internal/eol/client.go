package eol

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nickromney-org/runtime-eol-checker/internal/retry"
	"github.com/nickromney-org/runtime-eol-checker/pkg/types"
	"github.com/parnurzeal/gorequest"
)

// DefaultBaseURL is the public endoflife.date API
const DefaultBaseURL = "https://endoflife.date/api"

const defaultTimeout = 30 * time.Second

// FeedURL returns the feed endpoint for a product, e.g. nodejs -> .../nodejs.json
func FeedURL(baseURL, product string) string {
	return fmt.Sprintf("%s/%s.json", strings.TrimSuffix(baseURL, "/"), product)
}

// Client fetches release cycles from an endoflife.date style feed
type Client struct {
	retries int
	backoff retry.Backoff
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithRetries sets how many times a failed fetch is retried
func WithRetries(n int) Option {
	return func(c *Client) { c.retries = n }
}

// WithBackoff replaces the wait between retries
func WithBackoff(b retry.Backoff) Option {
	return func(c *Client) { c.backoff = b }
}

// WithTimeout bounds a single request when the context has no deadline
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger used for retry messages
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a feed client
func NewClient(opts ...Option) *Client {
	c := &Client{
		retries: 3,
		backoff: retry.Quadratic,
		timeout: defaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchFeed returns the records in the order the feed lists them
func (c *Client) FetchFeed(ctx context.Context, endpoint string) ([]types.VersionRecord, error) {
	var body []byte
	attempt := 0
	err := retry.Do(ctx, c.retries, c.backoff, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			c.logger.Debug("retrying eol feed fetch", "url", endpoint, "attempt", attempt)
		}
		var err error
		body, err = c.get(ctx, endpoint)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrFeedUnavailable, err)
	}

	var records []types.VersionRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("%w: unable to parse JSON from %s: %w", types.ErrFeedUnavailable, endpoint, err)
	}
	return records, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, retry.Permanent(err)
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	resp, body, errs := gorequest.New().
		Get(endpoint).
		Set("Accept", "application/json").
		Timeout(timeout).
		EndBytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to fetch %s: %w", endpoint, errs[0])
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status code: %d, url: %s", resp.StatusCode, endpoint)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}
	return body, nil
}
