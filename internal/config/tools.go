package config

import (
	"fmt"
	"strings"

	"github.com/nickromney-org/runtime-eol-checker/internal/policy"
	"github.com/nickromney-org/runtime-eol-checker/pkg/types"
)

const manifestPath = "versions-manifest.json"

// Tool is a tracked tool family: where its EOL feed lives, where its
// versions manifest lives and how its release under evaluation is chosen
type Tool struct {
	Name        string       // Display name used in notifications (e.g., "Node")
	FeedProduct string       // endoflife.date product (e.g., "nodejs")
	Manifest    types.Location
	Rule        policy.Rule
}

// Predefined tool configurations
var (
	ToolNode = Tool{
		Name:        "Node",
		FeedProduct: "nodejs",
		Manifest:    types.Location{Owner: "actions", Repo: "node-versions", Path: manifestPath},
		Rule:        policy.Rule{Strategy: policy.StrategyStandard, RequireLTS: true},
	}

	ToolPython = Tool{
		Name:        "Python",
		FeedProduct: "python",
		Manifest:    types.Location{Owner: "actions", Repo: "python-versions", Path: manifestPath},
		Rule:        policy.Rule{Strategy: policy.StrategyStandard},
	}

	ToolGo = Tool{
		Name:        "Go",
		FeedProduct: "go",
		Manifest:    types.Location{Owner: "actions", Repo: "go-versions", Path: manifestPath},
		Rule:        policy.Rule{Strategy: policy.StrategyGo},
	}
)

// TrackedTools returns every tool evaluated in a run
func TrackedTools() []Tool {
	return []Tool{ToolNode, ToolPython, ToolGo}
}

// GetPredefinedTool returns a predefined tool by name
func GetPredefinedTool(name string) (*Tool, error) {
	tools := map[string]Tool{
		"node":   ToolNode,
		"nodejs": ToolNode, // Alias
		"python": ToolPython,
		"py":     ToolPython, // Alias
		"go":     ToolGo,
		"golang": ToolGo, // Alias
	}

	tool, ok := tools[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
	return &tool, nil
}

// ParseRepositoryString parses "owner/repo" format or a github.com URL
func ParseRepositoryString(repoStr string) (owner, repo string, err error) {
	// Check if it's a GitHub URL
	if strings.Contains(repoStr, "github.com") {
		// https://github.com/owner/repo -> owner/repo
		parts := strings.Split(repoStr, "github.com/")
		if len(parts) == 2 {
			repoStr = strings.TrimSuffix(parts[1], "/")
			repoStr = strings.TrimSuffix(repoStr, ".git")
			repoStr = strings.Split(repoStr, "/issues")[0]
		}
	}

	parts := strings.Split(repoStr, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository format: %s (expected: owner/repo)", repoStr)
	}
	return parts[0], parts[1], nil
}
