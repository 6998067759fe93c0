package checker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nickromney-org/runtime-eol-checker/pkg/types"
)

// State is a step of a tool evaluation
type State string

const (
	StateStart           State = "start"
	StateFeedFetched     State = "feed_fetched"
	StateManifestFetched State = "manifest_fetched"
	StateMismatchPath    State = "mismatch_path"
	StatePolicyPath      State = "policy_path"

	// Terminal states
	StateNotifySkippedDuplicate State = "notify_skipped_duplicate"
	StateNotifyCreated          State = "notify_created"
	StateNoActionNeeded         State = "no_action_needed"
	StateFailed                 State = "failed"
)

// IsTerminal reports whether an evaluation ends in this state
func (s State) IsTerminal() bool {
	switch s {
	case StateNotifySkippedDuplicate, StateNotifyCreated, StateNoActionNeeded, StateFailed:
		return true
	case StateStart, StateFeedFetched, StateManifestFetched, StateMismatchPath, StatePolicyPath:
		return false
	default:
		panic(fmt.Sprintf("unknown evaluation state %q", string(s)))
	}
}

// Outcome is the result of evaluating one tool
type Outcome struct {
	Tool  string `json:"tool"`
	State State  `json:"state"`
	// Stage is the last state reached before a failure
	Stage State `json:"stage,omitempty"`

	Cycle           string    `json:"cycle,omitempty"`
	Version         string    `json:"version,omitempty"`
	ManifestVersion string    `json:"manifest_version,omitempty"`
	Deadline        time.Time `json:"-"`

	Intent   *types.NotificationIntent `json:"-"`
	IssueURL string                    `json:"issue_url,omitempty"`
	ChatSent bool                      `json:"chat_sent"`

	// ChatErr is a delivery failure; it does not fail the evaluation
	ChatErr error `json:"-"`
	Err     error `json:"-"`
}

// Failed reports whether the evaluation failed
func (o Outcome) Failed() bool {
	return o.State == StateFailed
}

// MarshalJSON implements custom JSON marshaling
func (o Outcome) MarshalJSON() ([]byte, error) {
	type Alias Outcome
	out := struct {
		Deadline string         `json:"deadline,omitempty"`
		Title    string         `json:"title,omitempty"`
		Category types.Category `json:"category,omitempty"`
		ChatErr  string         `json:"chat_error,omitempty"`
		Error    string         `json:"error,omitempty"`
		Alias
	}{
		Alias: Alias(o),
	}

	if !o.Deadline.IsZero() {
		out.Deadline = o.Deadline.Format("2006-01-02")
	}
	if o.Intent != nil {
		out.Title = o.Intent.Title
		out.Category = o.Intent.Category
	}
	if o.ChatErr != nil {
		out.ChatErr = o.ChatErr.Error()
	}
	if o.Err != nil {
		out.Error = o.Err.Error()
	}
	return json.Marshal(out)
}

// CheckerConfig holds configuration for the checker
type CheckerConfig struct {
	FeedBaseURL   string
	TrackerOwner  string
	TrackerRepo   string
	HorizonMonths int
	// CallTimeout bounds every gateway call; zero means no bound
	CallTimeout time.Duration
	RunID       string
}

// Validate checks if the configuration is valid
func (c CheckerConfig) Validate() error {
	if c.FeedBaseURL == "" {
		return fmt.Errorf("feed base URL is required")
	}
	if c.TrackerOwner == "" || c.TrackerRepo == "" {
		return fmt.Errorf("tracker repository is required")
	}
	if c.HorizonMonths < 0 {
		return fmt.Errorf("horizon_months must be non-negative")
	}
	if c.CallTimeout < 0 {
		return fmt.Errorf("call_timeout must be non-negative")
	}
	return nil
}
