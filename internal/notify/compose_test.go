package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/nickromney-org/runtime-eol-checker/pkg/types"
)

func TestManifestMismatch(t *testing.T) {
	intent := ManifestMismatch("Python", "3.12.0", "3.11.0", "")

	if intent.Title != "[Python] Versions manifest does not match latest release 3.12.0" {
		t.Errorf("unexpected title %q", intent.Title)
	}
	if intent.Category != types.CategoryManifestMismatch {
		t.Errorf("category = %s, want %s", intent.Category, types.CategoryManifestMismatch)
	}
	for _, want := range []string{"3.12.0", "3.11.0", "reconcile the versions manifest"} {
		if !strings.Contains(intent.Body, want) {
			t.Errorf("body missing %q: %s", want, intent.Body)
		}
	}
}

func TestManifestMismatch_NoEntry(t *testing.T) {
	intent := ManifestMismatch("Go", "1.23.0", "", "")
	if !strings.Contains(intent.Body, "**none**") {
		t.Errorf("body should name the missing manifest version: %s", intent.Body)
	}
}

func TestManifestMismatch_ManifestAhead(t *testing.T) {
	intent := ManifestMismatch("Node", "20.5.0", "20.6.0", "https://github.com/actions/node-versions/releases/tag/20.6.0-1")

	for _, want := range []string{"20.5.0", "**20.6.0**", "Manifest entry: https://github.com/actions/node-versions/releases/tag/20.6.0-1"} {
		if !strings.Contains(intent.Body, want) {
			t.Errorf("body missing %q: %s", want, intent.Body)
		}
	}
}

func TestDeprecationNotice(t *testing.T) {
	eol := time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)
	intent := DeprecationNotice("Node", "20.5.0", eol)

	if intent.Title != "[Node] Version 20.5.0 reaches end of life on 2026-04-30" {
		t.Errorf("unexpected title %q", intent.Title)
	}
	if intent.Category != types.CategoryDeprecationNotice {
		t.Errorf("category = %s, want %s", intent.Category, types.CategoryDeprecationNotice)
	}
	if !strings.Contains(intent.Body, "30 Apr 2026") {
		t.Errorf("body should contain the UK formatted date: %s", intent.Body)
	}
}

func TestCompose_TitlesAreStable(t *testing.T) {
	eol := time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)
	situations := []Situation{
		{Category: types.CategoryDeprecationNotice, Tool: "Node", APIVersion: "20.5.0", EOLDate: eol},
		{Category: types.CategoryManifestMismatch, Tool: "Python", APIVersion: "3.12.0", ManifestVersion: "3.11.0"},
	}

	for _, s := range situations {
		first, err := Compose(s)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, _ := Compose(s)
		if first != second {
			t.Errorf("compose is not deterministic for %+v", s)
		}
	}
}

func TestCompose_TitlesAreDistinct(t *testing.T) {
	eol := time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)
	titles := map[string]bool{}
	for _, s := range []Situation{
		{Category: types.CategoryDeprecationNotice, Tool: "Node", APIVersion: "20.5.0", EOLDate: eol},
		{Category: types.CategoryDeprecationNotice, Tool: "Node", APIVersion: "20.5.1", EOLDate: eol},
		{Category: types.CategoryDeprecationNotice, Tool: "Python", APIVersion: "20.5.0", EOLDate: eol},
		{Category: types.CategoryManifestMismatch, Tool: "Node", APIVersion: "20.5.0"},
	} {
		intent, err := Compose(s)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if titles[intent.Title] {
			t.Errorf("duplicate title %q", intent.Title)
		}
		titles[intent.Title] = true
	}
}

func TestCompose_UnknownCategory(t *testing.T) {
	if _, err := Compose(Situation{Category: "other"}); err == nil {
		t.Error("expected error for unknown category")
	}
}
