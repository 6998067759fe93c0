package policy

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/nickromney-org/runtime-eol-checker/pkg/policy"
	"github.com/nickromney-org/runtime-eol-checker/pkg/types"
	"github.com/samber/lo"
)

// Strategy selects how a tool's release under evaluation is chosen
type Strategy string

const (
	// StrategyStandard evaluates the supported release line closest to end of life
	StrategyStandard Strategy = "standard"
	// StrategyGo evaluates the second newest release line. Go supports a
	// major release until two newer ones exist, so the feed rarely has an
	// end-of-life date for it.
	StrategyGo Strategy = "go"
)

// GoSupportMonths is added to a Go release's latest release date to get its deadline
const GoSupportMonths = 6

// ErrNoCandidate is returned when the feed has no release to evaluate
var ErrNoCandidate = errors.New("no release to evaluate")

// Rule is a tool's selection policy
type Rule struct {
	Strategy Strategy
	// RequireLTS drops release lines the feed marks as explicitly non-LTS
	RequireLTS bool
}

// Selection is the release under evaluation and the date its support ends
type Selection struct {
	Record   types.VersionRecord
	Deadline time.Time
}

// Select picks the release under evaluation from the feed
func (r Rule) Select(records []types.VersionRecord, now time.Time) (Selection, error) {
	switch r.Strategy {
	case StrategyStandard:
		return r.selectStandard(records, now)
	case StrategyGo:
		return selectGo(records)
	default:
		return Selection{}, fmt.Errorf("unknown selection strategy %q", r.Strategy)
	}
}

func (r Rule) selectStandard(records []types.VersionRecord, now time.Time) (Selection, error) {
	supported := lo.Filter(records, func(rec types.VersionRecord, _ int) bool {
		if !rec.EOL.IsDate() || !policy.IsAtOrAfter(rec.EOL.Date, now) {
			return false
		}
		return !r.RequireLTS || rec.LTS != types.LTSFalse
	})
	if len(supported) == 0 {
		return Selection{}, fmt.Errorf("%w: no supported release line in %d records", ErrNoCandidate, len(records))
	}

	// The feed lists newest first; reversed, the soonest to expire leads.
	slices.Reverse(supported)
	v := supported[0]

	return Selection{Record: v, Deadline: policy.CalendarDay(v.EOL.Date)}, nil
}

func selectGo(records []types.VersionRecord) (Selection, error) {
	if len(records) < 2 {
		return Selection{}, fmt.Errorf("%w: need at least 2 Go release lines, got %d", ErrNoCandidate, len(records))
	}

	v := records[1]
	if v.LatestReleaseDate.IsZero() {
		return Selection{}, fmt.Errorf("%w: release line %s has no latest release date", ErrNoCandidate, v.Cycle)
	}

	deadline := policy.CalendarDay(v.LatestReleaseDate.Time).AddDate(0, GoSupportMonths, 0)
	return Selection{Record: v, Deadline: deadline}, nil
}
