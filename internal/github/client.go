package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	gh "github.com/google/go-github/v57/github"
	"github.com/nickromney-org/runtime-eol-checker/internal/manifest"
	"github.com/nickromney-org/runtime-eol-checker/internal/retry"
	"github.com/nickromney-org/runtime-eol-checker/pkg/types"
	"github.com/samber/lo"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Client wraps the GitHub API client for manifest reads and issue tracking
type Client struct {
	gh      *gh.Client
	limiter *rate.Limiter
	retries int
	backoff retry.Backoff
	logger  *slog.Logger

	// maxIssuePages bounds the open-issue listing; hitting it is an error
	maxIssuePages int
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another API root (GitHub Enterprise, tests).
// The URL must end with a slash.
func WithBaseURL(u *url.URL) Option {
	return func(c *Client) { c.gh.BaseURL = u }
}

// WithRetries sets how many times idempotent reads are retried
func WithRetries(n int) Option {
	return func(c *Client) { c.retries = n }
}

// WithBackoff replaces the wait between retries
func WithBackoff(b retry.Backoff) Option {
	return func(c *Client) { c.backoff = b }
}

// WithRateLimit caps the request rate across every caller sharing the client
func WithRateLimit(every time.Duration, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Every(every), burst) }
}

// WithMaxIssuePages caps how many pages of open issues are scanned
func WithMaxIssuePages(n int) Option {
	return func(c *Client) { c.maxIssuePages = n }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a new GitHub API client
func NewClient(token string, opts ...Option) *Client {
	var client *gh.Client

	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		tc := oauth2.NewClient(context.Background(), ts)
		client = gh.NewClient(tc)
	} else {
		client = gh.NewClient(nil)
	}

	c := &Client{
		gh:      client,
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 10),
		retries: 3,
		backoff: retry.Quadratic,
		logger:  slog.Default(),

		maxIssuePages: 100,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchManifest reads a base64-encoded JSON manifest from a repository
func (c *Client) FetchManifest(ctx context.Context, loc types.Location) ([]types.ManifestEntry, error) {
	var content string
	err := c.read(ctx, "get manifest", func(ctx context.Context) (*gh.Response, error) {
		file, _, resp, err := c.gh.Repositories.GetContents(ctx, loc.Owner, loc.Repo, loc.Path, nil)
		if err != nil {
			return resp, err
		}
		if file == nil {
			return resp, retry.Permanent(fmt.Errorf("%s is a directory", loc))
		}
		content, err = file.GetContent()
		if err != nil {
			return resp, retry.Permanent(fmt.Errorf("failed to decode %s: %w", loc, err))
		}
		return resp, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrManifestUnavailable, loc, err)
	}

	entries, err := manifest.Parse([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrManifestUnavailable, loc, err)
	}
	return entries, nil
}

// FindOpenIssueByTitle returns the open issue with exactly this title, or nil.
// Only an explicit 404 counts as "no issue"; any other failure is an error so
// callers never create duplicates because a listing silently failed.
func (c *Client) FindOpenIssueByTitle(ctx context.Context, owner, repo, title string) (*types.Issue, error) {
	opts := &gh.IssueListByRepoOptions{
		State:       "open",
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	for page := 1; ; {
		opts.Page = page

		var issues []*gh.Issue
		var resp *gh.Response
		notFound := false
		err := c.read(ctx, "list issues", func(ctx context.Context) (*gh.Response, error) {
			var err error
			issues, resp, err = c.gh.Issues.ListByRepo(ctx, owner, repo, opts)
			if resp != nil && resp.StatusCode == http.StatusNotFound {
				notFound = true
				return resp, nil
			}
			return resp, err
		})
		if err != nil {
			return nil, fmt.Errorf("%w: failed to list issues for %s/%s (page %d): %w", types.ErrTrackerUnavailable, owner, repo, page, err)
		}
		if notFound {
			return nil, nil
		}

		match, ok := lo.Find(issues, func(i *gh.Issue) bool {
			return !i.IsPullRequest() && i.GetTitle() == title
		})
		if ok {
			return convertIssue(match), nil
		}

		if resp == nil || resp.NextPage == 0 {
			return nil, nil
		}
		// An unfinished listing must not read as "no duplicate"
		if page >= c.maxIssuePages {
			return nil, fmt.Errorf("%w: %s/%s has more than %d pages of open issues", types.ErrTrackerUnavailable, owner, repo, c.maxIssuePages)
		}
		page = resp.NextPage
	}
}

// CreateIssue opens a new issue. It is never retried: deduplication is the
// caller's job and a blind retry could open the same issue twice.
func (c *Client) CreateIssue(ctx context.Context, owner, repo string, intent types.NotificationIntent) (*types.Issue, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrTrackerUnavailable, err)
	}

	labels := intent.Labels()
	issue, _, err := c.gh.Issues.Create(ctx, owner, repo, &gh.IssueRequest{
		Title:  gh.String(intent.Title),
		Body:   gh.String(intent.Body),
		Labels: &labels,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create issue in %s/%s: %w", types.ErrTrackerUnavailable, owner, repo, err)
	}

	return convertIssue(issue), nil
}

// read runs an idempotent API call through the rate limiter with retries
func (c *Client) read(ctx context.Context, op string, call func(ctx context.Context) (*gh.Response, error)) error {
	attempt := 0
	return retry.Do(ctx, c.retries, c.backoff, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			c.logger.Debug("retrying github call", "op", op, "attempt", attempt)
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}

		resp, err := call(ctx)
		if err == nil {
			return nil
		}
		if !retryable(resp, err) {
			return retry.Permanent(err)
		}
		return err
	})
}

func retryable(resp *gh.Response, err error) bool {
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if resp == nil {
		return true
	}
	code := resp.StatusCode
	return code == http.StatusTooManyRequests || code >= 500 || code < 400
}

func convertIssue(issue *gh.Issue) *types.Issue {
	return &types.Issue{
		Number: issue.GetNumber(),
		Title:  issue.GetTitle(),
		URL:    issue.GetHTMLURL(),
		Labels: lo.Map(issue.Labels, func(l *gh.Label, _ int) string { return l.GetName() }),
	}
}
