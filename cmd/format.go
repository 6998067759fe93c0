package cmd

import (
	"fmt"
	"time"

	colour "github.com/fatih/color"
	"github.com/nickromney-org/runtime-eol-checker/internal/checker"
	"github.com/nickromney-org/runtime-eol-checker/pkg/policy"
)

// formatUKDate formats a date in UK format: "25 Jul 2024"
func formatUKDate(t time.Time) string {
	return t.Format("2 Jan 2006")
}

// formatDaysAgo returns a human-readable string for days
func formatDaysAgo(days int) string {
	if days < 0 {
		return formatDaysInFuture(-days)
	}
	if days == 0 {
		return "today"
	}
	if days == 1 {
		return "1 day ago"
	}
	return fmt.Sprintf("%d days ago", days)
}

// formatDaysInFuture returns a human-readable string for future days
func formatDaysInFuture(days int) string {
	if days == 0 {
		return "today"
	}
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

// formatDeadline renders a deadline as a UK date, or "-" when unknown
func formatDeadline(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return formatUKDate(t)
}

// formatDeadlineDistance describes how far a deadline is from now
func formatDeadlineDistance(deadline, now time.Time) string {
	days := int(policy.CalendarDay(deadline).Sub(policy.CalendarDay(now)).Hours() / 24)
	if days < 0 {
		return "ended " + formatDaysAgo(-days)
	}
	if days == 0 {
		return "ends today"
	}
	return formatDaysInFuture(days) + " left"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// describeOutcome is the one-line summary of an evaluation
func describeOutcome(o checker.Outcome, now time.Time) string {
	label := o.Tool
	if o.Version != "" {
		label = fmt.Sprintf("%s %s", o.Tool, o.Version)
	}

	switch o.State {
	case checker.StateNotifyCreated:
		return fmt.Sprintf("%s: %s (opened %s)", label, o.Intent.Title, o.IssueURL)
	case checker.StateNotifySkippedDuplicate:
		return fmt.Sprintf("%s: already tracked in %s", label, o.IssueURL)
	case checker.StateNoActionNeeded:
		return fmt.Sprintf("%s: supported until %s (%s), manifest is current",
			label, formatUKDate(o.Deadline), formatDeadlineDistance(o.Deadline, now))
	case checker.StateFailed:
		return fmt.Sprintf("%s: failed at %s: %v", label, o.Stage, o.Err)
	default:
		return fmt.Sprintf("%s: %s", label, o.State)
	}
}

func getStateIcon(state checker.State) string {
	switch state {
	case checker.StateNoActionNeeded:
		return "✅"
	case checker.StateNotifySkippedDuplicate:
		return "🔁"
	case checker.StateNotifyCreated:
		return "⚠️ "
	case checker.StateFailed:
		return "🚨"
	default:
		return "ℹ️ "
	}
}

func getStateColour(state checker.State) *colour.Color {
	switch state {
	case checker.StateNoActionNeeded:
		return green
	case checker.StateNotifySkippedDuplicate:
		return cyan
	case checker.StateNotifyCreated:
		return yellow
	case checker.StateFailed:
		return red
	default:
		return cyan
	}
}

func getStateText(state checker.State) string {
	switch state {
	case checker.StateNoActionNeeded:
		return "OK"
	case checker.StateNotifySkippedDuplicate:
		return "Already tracked"
	case checker.StateNotifyCreated:
		return "Issue opened"
	case checker.StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}
