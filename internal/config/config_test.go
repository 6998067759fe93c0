package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nickromney-org/runtime-eol-checker/internal/eol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"GITHUB_TOKEN", "SLACK_WEBHOOK_URL", "TRACKER_REPOSITORY", "EOL_FEED_BASE_URL",
	"MANIFEST_DIR", "CALL_TIMEOUT", "MAX_RETRIES", "HORIZON_MONTHS", "LOG_FORMAT",
}

// clearEnv blanks every config variable for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	t.Setenv("TRACKER_REPOSITORY", "org/tracker")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "ghp_test", cfg.GitHubToken)
	assert.Equal(t, "org", cfg.TrackerOwner)
	assert.Equal(t, "tracker", cfg.TrackerRepo)
	assert.Equal(t, "org/tracker", cfg.TrackerFullName())
	assert.Equal(t, eol.DefaultBaseURL, cfg.FeedBaseURL)
	assert.Equal(t, 30*time.Second, cfg.CallTimeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 6, cfg.HorizonMonths)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Empty(t, cfg.SlackWebhookURL)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_RETRIES", "1")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"GITHUB_TOKEN=ghp_file\n"+
			"TRACKER_REPOSITORY=https://github.com/org/tracker\n"+
			"SLACK_WEBHOOK_URL=https://hooks.slack.com/services/x\n"+
			"CALL_TIMEOUT=5s\n"+
			"MAX_RETRIES=9\n"), 0o600))

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "ghp_file", cfg.GitHubToken)
	assert.Equal(t, "https://hooks.slack.com/services/x", cfg.SlackWebhookURL)
	assert.Equal(t, 5*time.Second, cfg.CallTimeout)
	assert.Equal(t, 1, cfg.MaxRetries, "environment wins over the env file")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing tracker",
			env:     map[string]string{"GITHUB_TOKEN": "x"},
			wantErr: "TRACKER_REPOSITORY is required",
		},
		{
			name:    "bad tracker",
			env:     map[string]string{"GITHUB_TOKEN": "x", "TRACKER_REPOSITORY": "tracker"},
			wantErr: "invalid repository format",
		},
		{
			name:    "bad timeout",
			env:     map[string]string{"GITHUB_TOKEN": "x", "TRACKER_REPOSITORY": "o/r", "CALL_TIMEOUT": "soon"},
			wantErr: "CALL_TIMEOUT",
		},
		{
			name:    "negative retries",
			env:     map[string]string{"GITHUB_TOKEN": "x", "TRACKER_REPOSITORY": "o/r", "MAX_RETRIES": "-1"},
			wantErr: "MAX_RETRIES must be non-negative",
		},
		{
			name:    "bad log format",
			env:     map[string]string{"GITHUB_TOKEN": "x", "TRACKER_REPOSITORY": "o/r", "LOG_FORMAT": "xml"},
			wantErr: "LOG_FORMAT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
