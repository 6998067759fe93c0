package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/nickromney-org/runtime-eol-checker/internal/checker"
	"github.com/nickromney-org/runtime-eol-checker/internal/config"
	"github.com/nickromney-org/runtime-eol-checker/internal/eol"
	"github.com/nickromney-org/runtime-eol-checker/internal/github"
	"github.com/nickromney-org/runtime-eol-checker/internal/manifest"
	"github.com/nickromney-org/runtime-eol-checker/pkg/policy"
	"github.com/nickromney-org/runtime-eol-checker/pkg/types"
	"github.com/samber/lo"
)

func main() {
	token := flag.String("token", os.Getenv("GITHUB_TOKEN"), "GitHub token")
	manifestDir := flag.String("manifest-dir", os.Getenv("MANIFEST_DIR"), "Read manifests from this directory instead of GitHub")
	baseURL := flag.String("base-url", eol.DefaultBaseURL, "EOL feed base URL")
	flag.Parse()

	var source checker.ManifestSource = github.NewClient(*token)
	if *manifestDir != "" {
		source = manifest.NewFileSource(*manifestDir)
	}
	feed := eol.NewClient()
	ctx := context.Background()

	behind := 0
	for _, tool := range config.TrackedTools() {
		records, err := feed.FetchFeed(ctx, eol.FeedURL(*baseURL, tool.FeedProduct))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching %s feed: %v\n", tool.Name, err)
			os.Exit(1)
		}
		entries, err := source.FetchManifest(ctx, tool.Manifest)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching %s manifest: %v\n", tool.Name, err)
			os.Exit(1)
		}

		newest, err := newestRelease(records)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s feed: %v\n", tool.Name, err)
			os.Exit(1)
		}

		if listed(entries, newest) {
			fmt.Printf("✅ %s manifest is current (latest: %s)\n", tool.Name, newest)
			continue
		}
		behind++
		fmt.Printf("⚠️  %s manifest needs update (latest available: %s, not in %s)\n", tool.Name, newest, tool.Manifest)
	}

	if behind > 0 {
		os.Exit(1)
	}
}

// newestRelease returns the highest latest version across all cycles
func newestRelease(records []types.VersionRecord) (string, error) {
	if len(records) == 0 {
		return "", fmt.Errorf("feed is empty")
	}
	newest := records[0].Latest
	for _, r := range records[1:] {
		ord, err := policy.CompareVersions(r.Latest, newest)
		if err != nil {
			return "", err
		}
		if ord == policy.Greater {
			newest = r.Latest
		}
	}
	return newest, nil
}

// listed reports whether the manifest carries version, ignoring "v" prefixes
func listed(entries []types.ManifestEntry, version string) bool {
	return lo.ContainsBy(entries, func(e types.ManifestEntry) bool {
		ord, err := policy.CompareVersions(e.Version, version)
		return err == nil && ord == policy.Equal
	})
}
