package github

import (
	"context"
	"fmt"
	"sync"

	"github.com/nickromney-org/runtime-eol-checker/pkg/types"
)

// MockClient is an in-memory stand-in for Client, safe for concurrent use
type MockClient struct {
	mu sync.Mutex

	// Manifests keyed by Location.String()
	Manifests   map[string][]types.ManifestEntry
	ManifestErr error

	OpenIssues []types.Issue
	ListErr    error
	CreateErr  error

	Created []types.NotificationIntent
}

// FetchManifest returns the mocked manifest for loc
func (m *MockClient) FetchManifest(ctx context.Context, loc types.Location) ([]types.ManifestEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ManifestErr != nil {
		return nil, m.ManifestErr
	}
	entries, ok := m.Manifests[loc.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s not found", types.ErrManifestUnavailable, loc)
	}
	return entries, nil
}

// FindOpenIssueByTitle searches the mocked open issues
func (m *MockClient) FindOpenIssueByTitle(ctx context.Context, owner, repo, title string) (*types.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListErr != nil {
		return nil, m.ListErr
	}
	for i := range m.OpenIssues {
		if m.OpenIssues[i].Title == title {
			issue := m.OpenIssues[i]
			return &issue, nil
		}
	}
	return nil, nil
}

// CreateIssue records the intent and adds it to the open issues
func (m *MockClient) CreateIssue(ctx context.Context, owner, repo string, intent types.NotificationIntent) (*types.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.Created = append(m.Created, intent)
	issue := types.Issue{
		Number: len(m.OpenIssues) + 1,
		Title:  intent.Title,
		URL:    fmt.Sprintf("https://github.com/%s/%s/issues/%d", owner, repo, len(m.OpenIssues)+1),
		Labels: intent.Labels(),
	}
	m.OpenIssues = append(m.OpenIssues, issue)
	return &issue, nil
}

// CreatedCount returns how many issues were created
func (m *MockClient) CreatedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Created)
}
