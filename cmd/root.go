package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	colour "github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/nickromney-org/runtime-eol-checker/internal/chat"
	"github.com/nickromney-org/runtime-eol-checker/internal/checker"
	"github.com/nickromney-org/runtime-eol-checker/internal/config"
	"github.com/nickromney-org/runtime-eol-checker/internal/eol"
	"github.com/nickromney-org/runtime-eol-checker/internal/github"
	"github.com/nickromney-org/runtime-eol-checker/internal/manifest"
	"github.com/spf13/cobra"
)

var (
	verbose     bool
	jsonOutput  bool
	ciOutput    bool
	envFile     string
	showVersion bool

	// Version information (set via SetVersionInfo from main)
	appVersion = "dev"
	buildTime  = "unknown"
	gitCommit  = "unknown"

	// Colours for output
	green  = colour.New(colour.FgGreen, colour.Bold)
	yellow = colour.New(colour.FgYellow, colour.Bold)
	red    = colour.New(colour.FgRed, colour.Bold)
	cyan   = colour.New(colour.FgCyan)
	grey   = colour.New(colour.FgHiBlack) // Faint grey for timestamps
)

// SetVersionInfo sets the version information from the main package
func SetVersionInfo(version, build, commit string) {
	appVersion = version
	buildTime = build
	gitCommit = commit
}

var rootCmd = &cobra.Command{
	Use:   "runtime-eol-check",
	Short: "Check Node, Python and Go against their EOL dates and versions manifests",
	Long: `Check the runtimes tracked by the hosted toolcache (Node, Python, Go).

For each runtime the newest supported release is compared against the
versions manifest, and its end-of-life date against a six month horizon.
Anything that needs attention is raised once as an issue in the tracking
repository, with an optional Slack message.

Configuration is read from the environment (or a .env file):
  GITHUB_TOKEN, TRACKER_REPOSITORY, SLACK_WEBHOOK_URL, EOL_FEED_BASE_URL,
  MANIFEST_DIR, CALL_TIMEOUT, MAX_RETRIES, HORIZON_MONTHS, LOG_FORMAT`,
	Example: `  # Run all checks
  TRACKER_REPOSITORY=my-org/toolcache-tracking runtime-eol-check

  # Use a different env file and debug logging
  runtime-eol-check --env-file ci.env -v

  # JSON output for automation
  runtime-eol-check --json`,
	RunE: run,
}

func init() {
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose (debug) logging")
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.Flags().BoolVar(&ciOutput, "ci", false, "format output for CI/GitHub Actions")
	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "env file to load before reading the environment")
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "show version information")
}

// Execute runs the root command until it finishes or the process is interrupted
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func run(cmd *cobra.Command, args []string) error {
	// Disable automatic usage printing on error
	cmd.SilenceUsage = true

	if showVersion {
		fmt.Printf("runtime-eol-checker %s\n", appVersion)
		fmt.Printf("Build time: %s\n", buildTime)
		fmt.Printf("Git commit: %s\n", gitCommit)
		return nil
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	runID := uuid.New().String()
	logger := newLogger(os.Stderr, cfg.LogFormat, verbose).With("run_id", runID)

	chk := checker.NewChecker(buildDependencies(cfg, logger), checker.CheckerConfig{
		FeedBaseURL:   cfg.FeedBaseURL,
		TrackerOwner:  cfg.TrackerOwner,
		TrackerRepo:   cfg.TrackerRepo,
		HorizonMonths: cfg.HorizonMonths,
		CallTimeout:   cfg.CallTimeout,
		RunID:         runID,
	}, checker.WithLogger(logger))

	tools := config.TrackedTools()
	outcomes, runErr := chk.Run(cmd.Context(), tools)

	now := time.Now().UTC()
	switch {
	case jsonOutput:
		if err := outputJSON(os.Stdout, runID, now, outcomes); err != nil {
			return err
		}
	case ciOutput:
		outputCI(os.Stdout, cfg.TrackerFullName(), now, outcomes)
	default:
		outputTerminal(os.Stdout, cfg.TrackerFullName(), now, outcomes)
	}

	if runErr != nil {
		return fmt.Errorf("%d of %d checks failed: %w", countFailed(outcomes), len(tools), runErr)
	}
	return nil
}

// newLogger builds the decision logger; debug level when verbose
func newLogger(w io.Writer, format string, verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// buildDependencies wires the gateways from configuration
func buildDependencies(cfg *config.Config, logger *slog.Logger) checker.Dependencies {
	feed := eol.NewClient(
		eol.WithRetries(cfg.MaxRetries),
		eol.WithTimeout(cfg.CallTimeout),
		eol.WithLogger(logger),
	)
	gh := github.NewClient(cfg.GitHubToken,
		github.WithRetries(cfg.MaxRetries),
		github.WithLogger(logger),
	)

	var manifests checker.ManifestSource = gh
	if cfg.ManifestDir != "" {
		logger.Info("reading manifests from local directory", "dir", cfg.ManifestDir)
		manifests = manifest.NewFileSource(cfg.ManifestDir)
	}

	return checker.Dependencies{
		Feed:      feed,
		Manifests: manifests,
		Tracker:   gh,
		Notifier:  chat.NewSlackNotifier(cfg.SlackWebhookURL),
	}
}

// report is the --json document
type report struct {
	RunID     string            `json:"run_id"`
	CheckedAt time.Time         `json:"checked_at"`
	Failed    int               `json:"failed"`
	Outcomes  []checker.Outcome `json:"outcomes"`
}

func outputJSON(w io.Writer, runID string, now time.Time, outcomes []checker.Outcome) error {
	data, err := json.MarshalIndent(report{
		RunID:     runID,
		CheckedAt: now,
		Failed:    countFailed(outcomes),
		Outcomes:  outcomes,
	}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func outputTerminal(w io.Writer, tracker string, now time.Time, outcomes []checker.Outcome) {
	cyan.Fprintf(w, "📋 Runtime EOL Check (%s)\n", tracker)
	cyan.Fprintln(w, "─────────────────────────────────────")

	for _, o := range outcomes {
		getStateColour(o.State).Fprintf(w, "%s %s\n", getStateIcon(o.State), describeOutcome(o, now))
		if o.ChatErr != nil {
			yellow.Fprintf(w, "   ⚠️  Slack notification failed: %v\n", o.ChatErr)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-8s %-10s %-10s %-14s %s\n", "Tool", "Version", "Manifest", "Deadline", "Result")
	for _, o := range outcomes {
		fmt.Fprintf(w, "%-8s %-10s %-10s %-14s %s\n",
			o.Tool, orDash(o.Version), orDash(o.ManifestVersion), formatDeadline(o.Deadline), getStateText(o.State))
	}

	grey.Fprintf(w, "\nChecked at: %s\n", now.Format("2 Jan 2006 15:04:05 MST"))
}

func outputCI(w io.Writer, tracker string, now time.Time, outcomes []checker.Outcome) {
	fmt.Fprintln(w, "::group::📋 Runtime EOL Check")
	fmt.Fprintf(w, "Tracking repository: %s\n", tracker)
	for _, o := range outcomes {
		fmt.Fprintf(w, "%s %s\n", getStateIcon(o.State), describeOutcome(o, now))
	}
	fmt.Fprintln(w, "::endgroup::")

	for _, o := range outcomes {
		switch o.State {
		case checker.StateFailed:
			fmt.Fprintf(w, "::error title=%s check failed::%v\n", o.Tool, o.Err)
		case checker.StateNotifyCreated:
			fmt.Fprintf(w, "::warning title=%s::%s\n", o.Intent.Title, o.IssueURL)
		case checker.StateNotifySkippedDuplicate:
			fmt.Fprintf(w, "::notice title=%s already tracked::%s\n", o.Tool, o.IssueURL)
		}
		if o.ChatErr != nil {
			fmt.Fprintf(w, "::warning title=Slack notification failed::%v\n", o.ChatErr)
		}
	}

	if summaryFile := os.Getenv("GITHUB_STEP_SUMMARY"); summaryFile != "" {
		if err := writeGitHubSummary(summaryFile, now, outcomes); err != nil {
			fmt.Fprintf(w, "::warning::Failed to write job summary: %v\n", err)
		}
	}
}

func writeGitHubSummary(summaryFile string, now time.Time, outcomes []checker.Outcome) error {
	f, err := os.OpenFile(summaryFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(f, "## 📋 Runtime EOL Check\n\n")
	fmt.Fprintf(f, "| Tool | Version | Manifest | Deadline | Result |\n")
	fmt.Fprintf(f, "|------|---------|----------|----------|--------|\n")
	for _, o := range outcomes {
		result := getStateText(o.State)
		if o.IssueURL != "" {
			result = fmt.Sprintf("[%s](%s)", result, o.IssueURL)
		}
		fmt.Fprintf(f, "| %s | %s | %s | %s | %s %s |\n",
			o.Tool, orDash(o.Version), orDash(o.ManifestVersion), formatDeadline(o.Deadline), getStateIcon(o.State), result)
	}

	if failed := countFailed(outcomes); failed > 0 {
		fmt.Fprintf(f, "\n### ⚠️ %d check(s) failed\n\n", failed)
		for _, o := range outcomes {
			if o.Failed() {
				fmt.Fprintf(f, "- **%s** at `%s`: %v\n", o.Tool, o.Stage, o.Err)
			}
		}
	}

	fmt.Fprintf(f, "\n*Checked at: %s*\n", now.Format("2 Jan 2006 15:04:05 MST"))
	fmt.Fprintf(f, "\n---\n\n")
	return nil
}

func countFailed(outcomes []checker.Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Failed() {
			n++
		}
	}
	return n
}
