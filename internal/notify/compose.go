// Package notify turns evaluation findings into notification intents.
//
// Titles are the deduplication key against open issues on the tracker, so
// their templates must not change between runs: a different title for the
// same finding opens a second issue.
package notify

import (
	"fmt"
	"time"

	"github.com/nickromney-org/runtime-eol-checker/pkg/types"
)

const (
	mismatchTitle    = "[%s] Versions manifest does not match latest release %s"
	deprecationTitle = "[%s] Version %s reaches end of life on %s"

	// NoManifestVersion stands in when the manifest has nothing for a release line
	NoManifestVersion = "none"
)

// Situation carries the facts a notification is built from.
// ManifestVersion and ManifestReleaseURL are used for mismatches, EOLDate
// for deprecation notices.
type Situation struct {
	Category           types.Category
	Tool               string
	APIVersion         string
	ManifestVersion    string
	ManifestReleaseURL string
	EOLDate            time.Time
}

// Compose builds the intent for a situation
func Compose(s Situation) (types.NotificationIntent, error) {
	switch s.Category {
	case types.CategoryManifestMismatch:
		return ManifestMismatch(s.Tool, s.APIVersion, s.ManifestVersion, s.ManifestReleaseURL), nil
	case types.CategoryDeprecationNotice:
		return DeprecationNotice(s.Tool, s.APIVersion, s.EOLDate), nil
	default:
		return types.NotificationIntent{}, fmt.Errorf("unknown notification category %q", s.Category)
	}
}

// ManifestMismatch reports a manifest that disagrees with the feed's latest
// release, whether it is behind, ahead, or missing the release line
func ManifestMismatch(tool, apiVersion, manifestVersion, releaseURL string) types.NotificationIntent {
	if manifestVersion == "" {
		manifestVersion = NoManifestVersion
	}

	body := fmt.Sprintf(
		"The endoflife.date API reports **%s %s** as the latest release, "+
			"but the newest matching entry in the versions manifest is **%s**.\n\n"+
			"Please reconcile the versions manifest with %s %s.",
		tool, apiVersion, manifestVersion, tool, apiVersion)
	if releaseURL != "" {
		body += fmt.Sprintf("\n\nManifest entry: %s", releaseURL)
	}

	return types.NotificationIntent{
		Title:    fmt.Sprintf(mismatchTitle, tool, apiVersion),
		Body:     body,
		Category: types.CategoryManifestMismatch,
	}
}

// DeprecationNotice warns that a version is close to or past end of life
func DeprecationNotice(tool, version string, eol time.Time) types.NotificationIntent {
	body := fmt.Sprintf(
		"%s %s reaches end of life on **%s**.\n\n"+
			"After that date it will no longer receive security fixes. "+
			"Please plan an upgrade to a supported %s release.",
		tool, version, formatUKDate(eol), tool)

	return types.NotificationIntent{
		Title:    fmt.Sprintf(deprecationTitle, tool, version, eol.Format("2006-01-02")),
		Body:     body,
		Category: types.CategoryDeprecationNotice,
	}
}

// formatUKDate formats a date in UK format: "25 Jul 2024"
func formatUKDate(t time.Time) string {
	return t.Format("2 Jan 2006")
}
