package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/nickromney-org/runtime-eol-checker/pkg/policy"
	"github.com/nickromney-org/runtime-eol-checker/pkg/types"
)

// Parse decodes a versions manifest: a JSON array of objects with at least a version field
func Parse(data []byte) ([]types.ManifestEntry, error) {
	var entries []types.ManifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return entries, nil
}

// Reference returns the newest manifest entry belonging to a release cycle.
// A one-part cycle ("20") matches on major, a two-part cycle ("3.12") on
// major.minor. An empty cycle matches every entry. Entries not marked stable
// are skipped. found is false when no stable entry belongs to the cycle.
func Reference(entries []types.ManifestEntry, cycle string) (ref types.ManifestEntry, found bool, err error) {
	match, err := cycleMatcher(cycle)
	if err != nil {
		return types.ManifestEntry{}, false, err
	}

	// Manifests are stored oldest first; scan newest first.
	newestFirst := slices.Clone(entries)
	slices.Reverse(newestFirst)

	var best *semver.Version
	for _, entry := range newestFirst {
		if !entry.Stable {
			continue
		}
		v, err := policy.ParseVersion(entry.Version)
		if err != nil {
			return types.ManifestEntry{}, false, fmt.Errorf("manifest entry: %w", err)
		}
		if !match(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
			ref = entry
		}
	}

	return ref, best != nil, nil
}

func cycleMatcher(cycle string) (func(*semver.Version) bool, error) {
	if cycle == "" {
		return func(*semver.Version) bool { return true }, nil
	}

	parts := strings.Split(cycle, ".")
	nums := make([]uint64, 0, 2)
	for _, p := range parts[:min(len(parts), 2)] {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: cycle %q", types.ErrInvalidVersionFormat, cycle)
		}
		nums = append(nums, n)
	}

	return func(v *semver.Version) bool {
		if v.Major() != nums[0] {
			return false
		}
		return len(nums) == 1 || v.Minor() == nums[1]
	}, nil
}

// FileSource reads manifests from a local directory laid out as
// <dir>/<owner>/<repo>/<path>
type FileSource struct {
	dir string
}

// NewFileSource creates a file-backed manifest source
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// FetchManifest reads and parses the manifest for loc
func (f *FileSource) FetchManifest(ctx context.Context, loc types.Location) ([]types.ManifestEntry, error) {
	path := filepath.Join(f.dir, loc.Owner, loc.Repo, filepath.FromSlash(loc.Path))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", types.ErrManifestUnavailable, path, err)
	}

	entries, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrManifestUnavailable, path, err)
	}
	return entries, nil
}
