package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/araddon/dateparse"
)

const dateLayout = "2006-01-02"

// Date is a calendar date as published by the EOL feed
type Date struct {
	time.Time
}

// UnmarshalJSON accepts any date string the feed uses; null leaves the date zero
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}

	t, err := parseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// MarshalJSON writes the date back in feed format
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

// EOLDate is the feed's eol field: either a date or a boolean.
// A boolean false means no end of life has been announced; true means the
// line has ended without a published date.
type EOLDate struct {
	Date    time.Time
	Reached bool
}

// IsDate reports whether the feed published an actual date
func (e EOLDate) IsDate() bool {
	return !e.Date.IsZero()
}

func (e *EOLDate) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		e.Reached = b
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("eol must be a date or boolean: %s", data)
	}

	t, err := parseDate(s)
	if err != nil {
		return err
	}
	e.Date = t
	return nil
}

func (e EOLDate) MarshalJSON() ([]byte, error) {
	if e.IsDate() {
		return json.Marshal(e.Date.Format(dateLayout))
	}
	return json.Marshal(e.Reached)
}

func (e EOLDate) String() string {
	if e.IsDate() {
		return e.Date.Format(dateLayout)
	}
	if e.Reached {
		return "ended"
	}
	return "not announced"
}

// LTSFlag is the feed's lts field, which may be a boolean, a date string
// (the day the line entered LTS) or missing entirely
type LTSFlag int

const (
	LTSAbsent LTSFlag = iota
	LTSFalse
	LTSTrue
)

func (l *LTSFlag) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*l = LTSAbsent
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if b {
			*l = LTSTrue
		} else {
			*l = LTSFalse
		}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("lts must be a boolean or string: %s", data)
	}
	*l = LTSTrue
	return nil
}

func (l LTSFlag) MarshalJSON() ([]byte, error) {
	switch l {
	case LTSTrue:
		return []byte("true"), nil
	case LTSFalse:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// VersionRecord is one release line of a tool as reported by the EOL feed
type VersionRecord struct {
	Cycle             string  `json:"cycle"`
	Latest            string  `json:"latest"`
	EOL               EOLDate `json:"eol"`
	LatestReleaseDate Date    `json:"latestReleaseDate"`
	LTS               LTSFlag `json:"lts"`
}

// ManifestEntry is one version listed in a tool's versions manifest
type ManifestEntry struct {
	Version    string `json:"version"`
	Stable     bool   `json:"stable"`
	ReleaseURL string `json:"release_url,omitempty"`
}

// Location identifies a file in a source-control repository
type Location struct {
	Owner string
	Repo  string
	Path  string
}

// FullName returns owner/repo
func (l Location) FullName() string {
	return fmt.Sprintf("%s/%s", l.Owner, l.Repo)
}

func (l Location) String() string {
	return fmt.Sprintf("%s/%s/%s", l.Owner, l.Repo, l.Path)
}

func parseDate(s string) (time.Time, error) {
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
