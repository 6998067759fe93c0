package policy

import (
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/nickromney-org/runtime-eol-checker/pkg/types"
)

// DefaultHorizonMonths is how far ahead of an end-of-life date we start warning
const DefaultHorizonMonths = 6

// Ordering is the result of comparing two versions
type Ordering int

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

func (o Ordering) String() string {
	switch o {
	case Less:
		return "lt"
	case Equal:
		return "eq"
	case Greater:
		return "gt"
	default:
		return fmt.Sprintf("Ordering(%d)", int(o))
	}
}

// CompareVersions orders a against b by semantic version precedence
func CompareVersions(a, b string) (Ordering, error) {
	va, err := ParseVersion(a)
	if err != nil {
		return 0, err
	}
	vb, err := ParseVersion(b)
	if err != nil {
		return 0, err
	}
	return Ordering(va.Compare(vb)), nil
}

// ParseVersion parses a version string, tolerating a leading "v" and
// missing minor/patch parts the way release tags are usually written
func ParseVersion(s string) (*semver.Version, error) {
	v, err := semver.NewVersion(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", types.ErrInvalidVersionFormat, s, err)
	}
	return v, nil
}

// CalendarDay drops the time of day and zone, keeping the date as UTC midnight
func CalendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsAtOrAfter reports whether date falls on or after reference, by calendar day
func IsAtOrAfter(date, reference time.Time) bool {
	return !CalendarDay(date).Before(CalendarDay(reference))
}

// MonthsUntil returns the floor of the calendar months from now until date.
// Dates in the past give negative values, rounded away from zero.
func MonthsUntil(date, now time.Time) int {
	d, n := CalendarDay(date), CalendarDay(now)
	months := (d.Year()-n.Year())*12 + int(d.Month()) - int(n.Month())
	if d.Day() < n.Day() {
		months--
	}
	return months
}

// IsBeyondHorizon reports whether date is strictly later than now plus
// horizonMonths. A date exactly on the horizon is not beyond it.
func IsBeyondHorizon(date, now time.Time, horizonMonths int) bool {
	horizon := CalendarDay(now).AddDate(0, horizonMonths, 0)
	return CalendarDay(date).After(horizon)
}
