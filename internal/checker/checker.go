package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nickromney-org/runtime-eol-checker/internal/chat"
	"github.com/nickromney-org/runtime-eol-checker/internal/config"
	"github.com/nickromney-org/runtime-eol-checker/internal/eol"
	"github.com/nickromney-org/runtime-eol-checker/internal/manifest"
	"github.com/nickromney-org/runtime-eol-checker/internal/notify"
	"github.com/nickromney-org/runtime-eol-checker/pkg/policy"
	"github.com/nickromney-org/runtime-eol-checker/pkg/types"
)

// FeedClient fetches a tool's release cycles from the EOL feed
type FeedClient interface {
	FetchFeed(ctx context.Context, endpoint string) ([]types.VersionRecord, error)
}

// ManifestSource fetches a tool's versions manifest
type ManifestSource interface {
	FetchManifest(ctx context.Context, loc types.Location) ([]types.ManifestEntry, error)
}

// IssueTracker looks up and opens notification issues
type IssueTracker interface {
	FindOpenIssueByTitle(ctx context.Context, owner, repo, title string) (*types.Issue, error)
	CreateIssue(ctx context.Context, owner, repo string, intent types.NotificationIntent) (*types.Issue, error)
}

// Notifier delivers the chat message that accompanies a new issue
type Notifier interface {
	Send(ctx context.Context, msg chat.Message) (bool, error)
}

// Dependencies are the collaborators a Checker talks to
type Dependencies struct {
	Feed      FeedClient
	Manifests ManifestSource
	Tracker   IssueTracker
	Notifier  Notifier
}

// Checker evaluates tracked tools against their manifests and EOL dates
type Checker struct {
	deps   Dependencies
	config CheckerConfig
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Checker
type Option func(*Checker)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Checker) { c.now = now }
}

// WithLogger sets the decision logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Checker) { c.logger = l }
}

// NewChecker creates a new checker
func NewChecker(deps Dependencies, config CheckerConfig, opts ...Option) *Checker {
	c := &Checker{
		deps:   deps,
		config: config,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// evaluation carries one tool's progress through the states
type evaluation struct {
	tool   config.Tool
	out    Outcome
	logger *slog.Logger
}

func (e *evaluation) advance(s State) {
	e.out.State = s
	e.logger.Debug("state", "state", s)
}

func (e *evaluation) fail(err error) Outcome {
	e.out.Stage = e.out.State
	e.out.State = StateFailed
	e.out.Err = fmt.Errorf("%s: %s: %w", e.tool.Name, e.out.Stage, err)
	e.logger.Error("evaluation failed", "stage", e.out.Stage, "error", err)
	return e.out
}

func (e *evaluation) finish(s State) Outcome {
	e.advance(s)
	return e.out
}

// Evaluate runs the decision pipeline for one tool. Failures are reported in
// the returned Outcome rather than as an error so callers can keep going.
func (c *Checker) Evaluate(ctx context.Context, tool config.Tool) Outcome {
	e := &evaluation{
		tool:   tool,
		out:    Outcome{Tool: tool.Name, State: StateStart},
		logger: c.logger.With("tool", tool.Name),
	}

	if err := c.config.Validate(); err != nil {
		return e.fail(fmt.Errorf("invalid configuration: %w", err))
	}

	now := c.now()

	endpoint := eol.FeedURL(c.config.FeedBaseURL, tool.FeedProduct)
	records, err := call(ctx, c.config.CallTimeout, func(ctx context.Context) ([]types.VersionRecord, error) {
		return c.deps.Feed.FetchFeed(ctx, endpoint)
	})
	if err != nil {
		return e.fail(classify(types.ErrFeedUnavailable, err))
	}
	e.advance(StateFeedFetched)

	sel, err := tool.Rule.Select(records, now)
	if err != nil {
		return e.fail(err)
	}
	v := sel.Record
	e.out.Cycle, e.out.Version, e.out.Deadline = v.Cycle, v.Latest, sel.Deadline
	e.logger.Info("version under evaluation",
		"cycle", v.Cycle,
		"version", v.Latest,
		"eol", v.EOL.String(),
		"deadline", sel.Deadline.Format("2006-01-02"),
		"strategy", tool.Rule.Strategy)

	entries, err := call(ctx, c.config.CallTimeout, func(ctx context.Context) ([]types.ManifestEntry, error) {
		return c.deps.Manifests.FetchManifest(ctx, tool.Manifest)
	})
	if err != nil {
		return e.fail(classify(types.ErrManifestUnavailable, err))
	}
	e.advance(StateManifestFetched)

	mismatch, ref, err := compareWithManifest(v, entries)
	if err != nil {
		return e.fail(err)
	}
	e.out.ManifestVersion = ref.Version
	e.logger.Info("manifest comparison",
		"api_version", v.Latest,
		"manifest_version", ref.Version,
		"mismatch", mismatch)

	situation := notify.Situation{Tool: tool.Name, APIVersion: v.Latest}
	if mismatch {
		e.advance(StateMismatchPath)
		situation.Category = types.CategoryManifestMismatch
		situation.ManifestVersion = ref.Version
		situation.ManifestReleaseURL = ref.ReleaseURL
	} else {
		e.advance(StatePolicyPath)
		beyond := policy.IsBeyondHorizon(sel.Deadline, now, c.config.HorizonMonths)
		e.logger.Info("horizon check",
			"deadline", sel.Deadline.Format("2006-01-02"),
			"months_until", policy.MonthsUntil(sel.Deadline, now),
			"horizon_months", c.config.HorizonMonths,
			"beyond_horizon", beyond)
		if beyond {
			return e.finish(StateNoActionNeeded)
		}
		situation.Category = types.CategoryDeprecationNotice
		situation.EOLDate = sel.Deadline
	}

	intent, err := notify.Compose(situation)
	if err != nil {
		return e.fail(err)
	}
	e.out.Intent = &intent

	return c.notify(ctx, e, intent)
}

// notify opens an issue for intent unless an open one already carries its title
func (c *Checker) notify(ctx context.Context, e *evaluation, intent types.NotificationIntent) Outcome {
	owner, repo := c.config.TrackerOwner, c.config.TrackerRepo

	existing, err := call(ctx, c.config.CallTimeout, func(ctx context.Context) (*types.Issue, error) {
		return c.deps.Tracker.FindOpenIssueByTitle(ctx, owner, repo, intent.Title)
	})
	if err != nil {
		return e.fail(classify(types.ErrTrackerUnavailable, err))
	}
	if existing != nil {
		e.out.IssueURL = existing.URL
		e.logger.Info("dedup check", "title", intent.Title, "duplicate", true, "issue", existing.URL)
		return e.finish(StateNotifySkippedDuplicate)
	}
	e.logger.Info("dedup check", "title", intent.Title, "duplicate", false)

	issue, err := call(ctx, c.config.CallTimeout, func(ctx context.Context) (*types.Issue, error) {
		return c.deps.Tracker.CreateIssue(ctx, owner, repo, intent)
	})
	if err != nil {
		return e.fail(classify(types.ErrTrackerUnavailable, err))
	}
	e.out.IssueURL = issue.URL
	e.logger.Info("issue created", "title", intent.Title, "category", intent.Category, "issue", issue.URL)

	sent, err := call(ctx, c.config.CallTimeout, func(ctx context.Context) (bool, error) {
		return c.deps.Notifier.Send(ctx, chat.Message{Intent: intent, IssueURL: issue.URL, RunID: c.config.RunID})
	})
	switch {
	case err != nil:
		e.out.ChatErr = classify(types.ErrNotificationDeliveryFailed, err)
		e.logger.Warn("chat notification failed", "error", err)
	case !sent:
		e.logger.Info("chat notification skipped", "reason", "no webhook configured")
	default:
		e.out.ChatSent = true
		e.logger.Info("chat notification sent")
	}

	return e.finish(StateNotifyCreated)
}

// compareWithManifest reports whether the manifest's entry for the release
// line differs from the feed's latest release, in either direction. A line
// with no stable manifest entry is a mismatch against NoManifestVersion.
func compareWithManifest(v types.VersionRecord, entries []types.ManifestEntry) (mismatch bool, ref types.ManifestEntry, err error) {
	ref, found, err := manifest.Reference(entries, v.Cycle)
	if err != nil {
		return false, types.ManifestEntry{}, err
	}
	if !found {
		return true, types.ManifestEntry{Version: notify.NoManifestVersion}, nil
	}

	ord, err := policy.CompareVersions(v.Latest, ref.Version)
	if err != nil {
		return false, types.ManifestEntry{}, err
	}
	return ord != policy.Equal, ref, nil
}

// call runs fn with the per-call timeout applied
func call[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx)
}

// classify tags err with kind unless it already carries it
func classify(kind, err error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
