package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nickromney-org/runtime-eol-checker/internal/eol"
	pkgpolicy "github.com/nickromney-org/runtime-eol-checker/pkg/policy"
)

// Config holds process-wide settings, read from the environment
type Config struct {
	GitHubToken     string
	SlackWebhookURL string

	// Repository that receives the notification issues
	TrackerOwner string
	TrackerRepo  string

	FeedBaseURL string
	// ManifestDir, when set, replaces the GitHub manifest source with local files
	ManifestDir string

	CallTimeout   time.Duration
	MaxRetries    int
	HorizonMonths int
	LogFormat     string
}

// Load reads an optional env file, then the environment. Variables already
// set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := &Config{
		GitHubToken:     detectGitHubToken(os.Getenv("GITHUB_TOKEN")),
		SlackWebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
		FeedBaseURL:     lookupEnv("EOL_FEED_BASE_URL", eol.DefaultBaseURL),
		ManifestDir:     os.Getenv("MANIFEST_DIR"),
		LogFormat:       lookupEnv("LOG_FORMAT", "text"),
	}

	if repo := os.Getenv("TRACKER_REPOSITORY"); repo != "" {
		owner, name, err := ParseRepositoryString(repo)
		if err != nil {
			return nil, fmt.Errorf("TRACKER_REPOSITORY: %w", err)
		}
		cfg.TrackerOwner, cfg.TrackerRepo = owner, name
	}

	var err error
	if cfg.CallTimeout, err = time.ParseDuration(lookupEnv("CALL_TIMEOUT", "30s")); err != nil {
		return nil, fmt.Errorf("CALL_TIMEOUT: %w", err)
	}
	if cfg.MaxRetries, err = strconv.Atoi(lookupEnv("MAX_RETRIES", "3")); err != nil {
		return nil, fmt.Errorf("MAX_RETRIES: %w", err)
	}
	if cfg.HorizonMonths, err = strconv.Atoi(lookupEnv("HORIZON_MONTHS", strconv.Itoa(pkgpolicy.DefaultHorizonMonths))); err != nil {
		return nil, fmt.Errorf("HORIZON_MONTHS: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.GitHubToken == "" {
		return fmt.Errorf("GITHUB_TOKEN is required")
	}
	if c.TrackerOwner == "" || c.TrackerRepo == "" {
		return fmt.Errorf("TRACKER_REPOSITORY is required (owner/repo)")
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("CALL_TIMEOUT must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must be non-negative")
	}
	if c.HorizonMonths < 0 {
		return fmt.Errorf("HORIZON_MONTHS must be non-negative")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// TrackerFullName returns owner/repo of the tracking repository
func (c *Config) TrackerFullName() string {
	return fmt.Sprintf("%s/%s", c.TrackerOwner, c.TrackerRepo)
}

func lookupEnv(key, defaultValue string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultValue
}

// detectGitHubToken falls back to the GitHub CLI when no token is set
func detectGitHubToken(providedToken string) string {
	if providedToken != "" {
		return providedToken
	}

	ghToken, err := getGitHubCLIToken()
	if err == nil && ghToken != "" {
		return ghToken
	}
	return ""
}

// getGitHubCLIToken attempts to retrieve a token from the GitHub CLI
func getGitHubCLIToken() (string, error) {
	cmd := exec.Command("gh", "auth", "token")
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}

	token := strings.TrimSpace(string(output))
	if token == "" {
		return "", fmt.Errorf("gh auth token returned empty")
	}
	return token, nil
}
