package checker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/nickromney-org/runtime-eol-checker/internal/chat"
	"github.com/nickromney-org/runtime-eol-checker/internal/config"
	"github.com/nickromney-org/runtime-eol-checker/internal/eol"
	"github.com/nickromney-org/runtime-eol-checker/internal/github"
	"github.com/nickromney-org/runtime-eol-checker/internal/notify"
	"github.com/nickromney-org/runtime-eol-checker/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedBase = "https://feed.test/api"

type fakeFeed struct {
	mu      sync.Mutex
	records map[string][]types.VersionRecord
	errs    map[string]error
	block   bool
}

func (f *fakeFeed) FetchFeed(ctx context.Context, endpoint string) ([]types.VersionRecord, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[endpoint]; err != nil {
		return nil, err
	}
	records, ok := f.records[endpoint]
	if !ok {
		return nil, fmt.Errorf("unexpected status code: 404, url: %s", endpoint)
	}
	return records, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	disabled bool
	err      error
	sent     []chat.Message
}

func (n *fakeNotifier) Send(ctx context.Context, msg chat.Message) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.disabled {
		return false, nil
	}
	if n.err != nil {
		return false, n.err
	}
	n.sent = append(n.sent, msg)
	return true, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func feedURL(tool config.Tool) string {
	return eol.FeedURL(feedBase, tool.FeedProduct)
}

func manifestOf(versions ...string) []types.ManifestEntry {
	entries := make([]types.ManifestEntry, len(versions))
	for i, v := range versions {
		entries[i] = types.ManifestEntry{Version: v, Stable: true}
	}
	return entries
}

type fixture struct {
	feed     *fakeFeed
	gh       *github.MockClient
	notifier *fakeNotifier
	now      time.Time
	config   CheckerConfig
}

func newFixture(now time.Time) *fixture {
	return &fixture{
		feed:     &fakeFeed{records: map[string][]types.VersionRecord{}, errs: map[string]error{}},
		gh:       &github.MockClient{Manifests: map[string][]types.ManifestEntry{}},
		notifier: &fakeNotifier{},
		now:      now,
		config: CheckerConfig{
			FeedBaseURL:   feedBase,
			TrackerOwner:  "org",
			TrackerRepo:   "tracker",
			HorizonMonths: 6,
			CallTimeout:   time.Second,
			RunID:         "test-run",
		},
	}
}

func (f *fixture) set(tool config.Tool, records []types.VersionRecord, manifest []types.ManifestEntry) {
	f.feed.records[feedURL(tool)] = records
	if manifest != nil {
		f.gh.Manifests[tool.Manifest.String()] = manifest
	}
}

func (f *fixture) checker() *Checker {
	return NewChecker(Dependencies{
		Feed:      f.feed,
		Manifests: f.gh,
		Tracker:   f.gh,
		Notifier:  f.notifier,
	}, f.config,
		WithClock(func() time.Time { return f.now }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func TestEvaluate_DeprecationNoticeCreated(t *testing.T) {
	f := newFixture(day(2026, 2, 1))
	f.set(config.ToolNode, []types.VersionRecord{
		{Cycle: "20", Latest: "20.5.0", EOL: types.EOLDate{Date: day(2026, 4, 30)}, LTS: types.LTSTrue},
	}, manifestOf("20.5.0"))

	out := f.checker().Evaluate(context.Background(), config.ToolNode)

	require.NoError(t, out.Err)
	assert.Equal(t, StateNotifyCreated, out.State)
	require.NotNil(t, out.Intent)
	assert.Equal(t, types.CategoryDeprecationNotice, out.Intent.Category)
	assert.Contains(t, out.Intent.Title, "20.5.0")
	assert.Equal(t, 1, f.gh.CreatedCount())
	assert.True(t, out.ChatSent)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, out.IssueURL, f.notifier.sent[0].IssueURL)
	assert.Equal(t, "test-run", f.notifier.sent[0].RunID)
}

func TestEvaluate_ManifestMismatch(t *testing.T) {
	tests := []struct {
		name            string
		cycle           string
		wantManifestVer string
	}{
		{name: "manifest lists an older release", cycle: "", wantManifestVer: "3.11.0"},
		{name: "manifest lacks the release line", cycle: "3.12", wantManifestVer: notify.NoManifestVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(day(2026, 2, 1))
			f.set(config.ToolPython, []types.VersionRecord{
				{Cycle: tt.cycle, Latest: "3.12.0", EOL: types.EOLDate{Date: day(2028, 1, 1)}},
			}, manifestOf("3.11.0"))

			out := f.checker().Evaluate(context.Background(), config.ToolPython)

			require.NoError(t, out.Err)
			assert.Equal(t, StateNotifyCreated, out.State)
			assert.Equal(t, types.CategoryManifestMismatch, out.Intent.Category)
			assert.Equal(t, tt.wantManifestVer, out.ManifestVersion)
			assert.Contains(t, out.Intent.Body, "3.12.0")
			assert.Contains(t, out.Intent.Body, tt.wantManifestVer)
			assert.Equal(t, 1, f.gh.CreatedCount())
		})
	}
}

func TestEvaluate_ManifestAheadOfFeedIsMismatch(t *testing.T) {
	f := newFixture(day(2026, 2, 1))
	f.set(config.ToolNode, []types.VersionRecord{
		{Cycle: "20", Latest: "20.5.0", EOL: types.EOLDate{Date: day(2027, 4, 30)}, LTS: types.LTSTrue},
	}, []types.ManifestEntry{
		{Version: "20.4.0", Stable: true},
		{Version: "20.6.0", Stable: true, ReleaseURL: "https://github.com/actions/node-versions/releases/tag/20.6.0-1"},
	})

	out := f.checker().Evaluate(context.Background(), config.ToolNode)

	require.NoError(t, out.Err)
	assert.Equal(t, StateNotifyCreated, out.State)
	assert.Equal(t, "20.6.0", out.ManifestVersion)
	require.NotNil(t, out.Intent)
	assert.Equal(t, types.CategoryManifestMismatch, out.Intent.Category)
	assert.Contains(t, out.Intent.Body, "20.6.0")
	assert.Contains(t, out.Intent.Body, "releases/tag/20.6.0-1")
	assert.Equal(t, 1, f.gh.CreatedCount())
}

func TestEvaluate_UnstableManifestEntryIsIgnored(t *testing.T) {
	f := newFixture(day(2026, 2, 1))
	f.set(config.ToolNode, []types.VersionRecord{
		{Cycle: "20", Latest: "20.5.0", EOL: types.EOLDate{Date: day(2027, 4, 30)}, LTS: types.LTSTrue},
	}, []types.ManifestEntry{
		{Version: "20.5.0", Stable: true},
		{Version: "20.6.0-rc.1", Stable: false},
	})

	out := f.checker().Evaluate(context.Background(), config.ToolNode)

	require.NoError(t, out.Err)
	assert.Equal(t, StateNoActionNeeded, out.State)
	assert.Equal(t, "20.5.0", out.ManifestVersion)
}

func TestEvaluate_GoUsesSecondRecordAndReleaseDate(t *testing.T) {
	f := newFixture(day(2026, 1, 1))
	f.set(config.ToolGo, []types.VersionRecord{
		{Latest: "1.21.0", LatestReleaseDate: types.Date{Time: day(2025, 8, 1)}},
		{Latest: "1.20.0", LatestReleaseDate: types.Date{Time: day(2025, 1, 1)}, EOL: types.EOLDate{Reached: false}},
	}, manifestOf("1.20.0"))

	out := f.checker().Evaluate(context.Background(), config.ToolGo)

	require.NoError(t, out.Err)
	assert.Equal(t, StateNotifyCreated, out.State)
	assert.Equal(t, "1.20.0", out.Version)
	assert.Equal(t, day(2025, 7, 1), out.Deadline)
	assert.Equal(t, types.CategoryDeprecationNotice, out.Intent.Category)
	assert.Contains(t, out.Intent.Title, "2025-07-01")
}

func TestEvaluate_NoActionNeeded(t *testing.T) {
	f := newFixture(day(2026, 2, 1))
	f.set(config.ToolPython, []types.VersionRecord{
		{Cycle: "3.12", Latest: "3.12.7", EOL: types.EOLDate{Date: day(2026, 12, 1)}},
	}, manifestOf("3.12.7"))

	out := f.checker().Evaluate(context.Background(), config.ToolPython)

	require.NoError(t, out.Err)
	assert.Equal(t, StateNoActionNeeded, out.State)
	assert.Nil(t, out.Intent)
	assert.Equal(t, 0, f.gh.CreatedCount())
	assert.Empty(t, f.notifier.sent)
}

func TestEvaluate_DuplicateIsSkipped(t *testing.T) {
	eolDate := day(2026, 4, 30)
	f := newFixture(day(2026, 2, 1))
	f.set(config.ToolNode, []types.VersionRecord{
		{Cycle: "20", Latest: "20.5.0", EOL: types.EOLDate{Date: eolDate}, LTS: types.LTSTrue},
	}, manifestOf("20.5.0"))
	existing := notify.DeprecationNotice("Node", "20.5.0", eolDate)
	f.gh.OpenIssues = []types.Issue{{Number: 7, Title: existing.Title, URL: "https://github.com/org/tracker/issues/7"}}

	out := f.checker().Evaluate(context.Background(), config.ToolNode)

	require.NoError(t, out.Err)
	assert.Equal(t, StateNotifySkippedDuplicate, out.State)
	assert.Equal(t, "https://github.com/org/tracker/issues/7", out.IssueURL)
	assert.Equal(t, 0, f.gh.CreatedCount())
	assert.Empty(t, f.notifier.sent)
}

func TestEvaluate_SecondRunIsIdempotent(t *testing.T) {
	f := newFixture(day(2026, 2, 1))
	f.set(config.ToolNode, []types.VersionRecord{
		{Cycle: "20", Latest: "20.5.0", EOL: types.EOLDate{Date: day(2026, 4, 30)}, LTS: types.LTSTrue},
	}, manifestOf("20.5.0"))
	c := f.checker()

	first := c.Evaluate(context.Background(), config.ToolNode)
	second := c.Evaluate(context.Background(), config.ToolNode)

	assert.Equal(t, StateNotifyCreated, first.State)
	assert.Equal(t, StateNotifySkippedDuplicate, second.State)
	assert.Equal(t, 1, f.gh.CreatedCount())
}

func TestEvaluate_Failures(t *testing.T) {
	nodeFeed := []types.VersionRecord{
		{Cycle: "20", Latest: "20.5.0", EOL: types.EOLDate{Date: day(2026, 4, 30)}, LTS: types.LTSTrue},
	}

	tests := []struct {
		name      string
		setup     func(f *fixture)
		wantKind  error
		wantStage State
	}{
		{
			name: "feed unavailable",
			setup: func(f *fixture) {
				f.feed.errs[feedURL(config.ToolNode)] = errors.New("connection refused")
			},
			wantKind:  types.ErrFeedUnavailable,
			wantStage: StateStart,
		},
		{
			name: "manifest unavailable",
			setup: func(f *fixture) {
				f.set(config.ToolNode, nodeFeed, nil)
				f.gh.ManifestErr = errors.New("decode failure")
			},
			wantKind:  types.ErrManifestUnavailable,
			wantStage: StateFeedFetched,
		},
		{
			name: "invalid feed version",
			setup: func(f *fixture) {
				f.set(config.ToolNode, []types.VersionRecord{
					{Cycle: "20", Latest: "twenty", EOL: types.EOLDate{Date: day(2026, 4, 30)}, LTS: types.LTSTrue},
				}, manifestOf("20.5.0"))
			},
			wantKind:  types.ErrInvalidVersionFormat,
			wantStage: StateManifestFetched,
		},
		{
			name: "issue listing fails",
			setup: func(f *fixture) {
				f.set(config.ToolNode, nodeFeed, manifestOf("20.5.0"))
				f.gh.ListErr = errors.New("503 service unavailable")
			},
			wantKind:  types.ErrTrackerUnavailable,
			wantStage: StatePolicyPath,
		},
		{
			name: "issue creation fails",
			setup: func(f *fixture) {
				f.set(config.ToolNode, nodeFeed, manifestOf("20.5.0"))
				f.gh.CreateErr = errors.New("502 bad gateway")
			},
			wantKind:  types.ErrTrackerUnavailable,
			wantStage: StatePolicyPath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(day(2026, 2, 1))
			tt.setup(f)

			out := f.checker().Evaluate(context.Background(), config.ToolNode)

			assert.Equal(t, StateFailed, out.State)
			assert.True(t, out.Failed())
			assert.Equal(t, tt.wantStage, out.Stage)
			assert.ErrorIs(t, out.Err, tt.wantKind)
			assert.ErrorContains(t, out.Err, "Node")
			assert.Equal(t, 0, f.gh.CreatedCount())
		})
	}
}

func TestEvaluate_NoCandidateFails(t *testing.T) {
	f := newFixture(day(2026, 2, 1))
	f.set(config.ToolGo, []types.VersionRecord{{Latest: "1.23.0"}}, manifestOf("1.23.0"))

	out := f.checker().Evaluate(context.Background(), config.ToolGo)

	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, StateFeedFetched, out.Stage)
}

func TestEvaluate_ChatFailureIsNotFatal(t *testing.T) {
	f := newFixture(day(2026, 2, 1))
	f.set(config.ToolNode, []types.VersionRecord{
		{Cycle: "20", Latest: "20.5.0", EOL: types.EOLDate{Date: day(2026, 4, 30)}, LTS: types.LTSTrue},
	}, manifestOf("20.5.0"))
	f.notifier.err = errors.New("webhook returned 500")

	out := f.checker().Evaluate(context.Background(), config.ToolNode)

	require.NoError(t, out.Err)
	assert.Equal(t, StateNotifyCreated, out.State)
	assert.False(t, out.ChatSent)
	assert.ErrorIs(t, out.ChatErr, types.ErrNotificationDeliveryFailed)
	assert.Equal(t, 1, f.gh.CreatedCount())
}

func TestEvaluate_ChatSkippedWithoutWebhook(t *testing.T) {
	f := newFixture(day(2026, 2, 1))
	f.set(config.ToolNode, []types.VersionRecord{
		{Cycle: "20", Latest: "20.5.0", EOL: types.EOLDate{Date: day(2026, 4, 30)}, LTS: types.LTSTrue},
	}, manifestOf("20.5.0"))
	f.notifier.disabled = true

	out := f.checker().Evaluate(context.Background(), config.ToolNode)

	require.NoError(t, out.Err)
	assert.Equal(t, StateNotifyCreated, out.State)
	assert.False(t, out.ChatSent)
	assert.NoError(t, out.ChatErr)
}

func TestEvaluate_CallTimeout(t *testing.T) {
	f := newFixture(day(2026, 2, 1))
	f.feed.block = true
	f.config.CallTimeout = 20 * time.Millisecond

	out := f.checker().Evaluate(context.Background(), config.ToolNode)

	assert.Equal(t, StateFailed, out.State)
	assert.ErrorIs(t, out.Err, types.ErrFeedUnavailable)
	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
}

func TestEvaluate_InvalidConfig(t *testing.T) {
	f := newFixture(day(2026, 2, 1))
	f.config.TrackerRepo = ""

	out := f.checker().Evaluate(context.Background(), config.ToolNode)
	assert.Equal(t, StateFailed, out.State)
	assert.ErrorContains(t, out.Err, "tracker repository is required")
}

func TestState_IsTerminal(t *testing.T) {
	terminal := []State{StateNotifySkippedDuplicate, StateNotifyCreated, StateNoActionNeeded, StateFailed}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), s)
	}
	for _, s := range []State{StateStart, StateFeedFetched, StateManifestFetched, StateMismatchPath, StatePolicyPath} {
		assert.False(t, s.IsTerminal(), s)
	}
	assert.Panics(t, func() { State("bogus").IsTerminal() })
}

func TestOutcome_MarshalJSON(t *testing.T) {
	intent := notify.DeprecationNotice("Node", "20.5.0", day(2026, 4, 30))
	out := Outcome{
		Tool:     "Node",
		State:    StateNotifyCreated,
		Version:  "20.5.0",
		Deadline: day(2026, 4, 30),
		Intent:   &intent,
		IssueURL: "https://github.com/org/tracker/issues/1",
	}

	data, err := json.Marshal(out)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "notify_created", got["state"])
	assert.Equal(t, "2026-04-30", got["deadline"])
	assert.Equal(t, intent.Title, got["title"])
	assert.Equal(t, "deprecation-notice", got["category"])
	assert.NotContains(t, got, "error")

	failed := Outcome{Tool: "Go", State: StateFailed, Stage: StateFeedFetched, Err: errors.New("boom")}
	data, err = json.Marshal(failed)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"error":"boom"`)
	assert.Contains(t, string(data), `"stage":"feed_fetched"`)
}
