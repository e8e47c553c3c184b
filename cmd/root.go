// Package cmd provides the CLI commands for combine-prs.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/clhore/combine-dependabot-pull-requests/internal/domain"
)

// Logger defines the logging interface used by the command.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
}

// Dependencies holds all injectable dependencies for the command.
// This enables testing by allowing mock implementations to be injected.
type Dependencies struct {
	// LoggerFactory creates a logger instance.
	LoggerFactory func() Logger

	// ConfigLoader loads application configuration.
	ConfigLoader func() (*AppConfig, error)

	// RepositoryFactory opens the working copy at path.
	RepositoryFactory func(path string, log Logger) (domain.Repository, error)

	// PullRequestServiceFactory creates the hosting API client.
	// When dryRun is set the returned service must not create pull requests.
	PullRequestServiceFactory func(cfg *AppConfig, dryRun bool, log Logger) (domain.PullRequestService, error)

	// CombinerFactory creates a Combiner with the given dependencies.
	CombinerFactory func(
		repo domain.Repository,
		prs domain.PullRequestService,
		cfg *AppConfig,
		dryRun bool,
		log Logger,
	) domain.Combiner

	// ReportWriterFactory creates a ReportWriter for the given destination.
	ReportWriterFactory func(path string) domain.ReportWriter

	// Stdout is the writer for standard output (for the run summary).
	Stdout io.Writer

	// Stderr is the writer for standard error (for warnings/errors).
	Stderr io.Writer
}

// AppConfig holds application configuration loaded by ConfigLoader.
type AppConfig struct {
	Token         string
	APIURL        string
	Owner         string
	Repo          string
	Repository    string
	BaseBranch    string
	CombineBranch string
	Author        string
	GitUserName   string
	GitUserEmail  string

	// OutputJSON is the report destination; empty disables the report.
	OutputJSON string

	// LogLevel is the log level setting.
	LogLevel string

	// LogAppName is the application name for logging.
	LogAppName string
}

// Command-line flags.
var (
	dryRun  bool
	verbose bool
)

// defaultDeps holds the production dependencies.
// This is set by the production wiring in main or via SetDefaultDependencies.
var defaultDeps *Dependencies

// SetDefaultDependencies sets the default dependencies for production use.
// This should be called from main() before Execute().
func SetDefaultDependencies(deps *Dependencies) {
	defaultDeps = deps
}

// NewRootCmd creates the root command for combine-prs.
func NewRootCmd() *cobra.Command {
	return NewRootCmdWithDeps(defaultDeps)
}

// NewRootCmdWithDeps creates the root command with explicit dependencies.
// This is the primary constructor that enables testing via dependency injection.
func NewRootCmdWithDeps(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "combine-prs [path]",
		Short: "Combine open bot dependency pull requests into one pull request",
		Long: `combine-prs consolidates the open pull requests of a dependency bot into a
single combination branch and a single pull request.

It lists the open pull requests targeting the base branch, keeps those
authored by the configured bot, and cherry-picks each head commit onto the
combination branch. Pull requests that conflict are skipped, pull requests
whose change is already present are omitted. The branch is pushed and the
combined pull request opened only when there is something new.

Configuration is read from the environment (GITHUB_TOKEN, GITHUB_REPOSITORY,
BASE_BRANCH, COMBINE_BRANCH, PR_USER, GIT_USERNAME, GIT_EMAIL, OUTPUT_JSON).

Examples:
  # Combine pull requests in the current directory
  combine-prs

  # Combine pull requests in a specific checkout
  combine-prs /path/to/repo

  # Show what would happen without pushing or opening a pull request
  combine-prs --dry-run

  # Enable verbose logging
  combine-prs -v`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCombine(cmd, args, deps)
		},
	}

	// Define flags
	rootCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false,
		"Reconcile locally without pushing or opening a pull request")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose/debug logging")

	return rootCmd
}

// runCombine executes the combination with injected dependencies.
func runCombine(cmd *cobra.Command, args []string, deps *Dependencies) error {
	if deps == nil {
		return errors.New("dependencies not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	repoPath := "."
	if len(args) > 0 {
		repoPath = args[0]
	}

	stderr := deps.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	stdout := deps.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	// Set log level based on verbose flag (best-effort)
	if verbose {
		if err := os.Setenv("LOG_LEVEL", "debug"); err != nil {
			writef(stderr, "warning: could not set log level: %v\n", err)
		}
	}

	log := deps.LoggerFactory()

	log.Info(ctx, "starting combine-prs", map[string]interface{}{
		"path":    repoPath,
		"dry_run": dryRun,
		"verbose": verbose,
	})

	cfg, err := deps.ConfigLoader()
	if err != nil {
		log.Error(ctx, "failed to load configuration", err, nil)
		return fmt.Errorf("configuration error: %w", err)
	}

	repo, err := deps.RepositoryFactory(repoPath, log)
	if err != nil {
		log.Error(ctx, "failed to open git repository", err, map[string]interface{}{
			"path": repoPath,
		})
		if errors.Is(err, domain.ErrRepositoryNotFound) {
			return fmt.Errorf("not a git repository: %s", repoPath)
		}
		return err
	}

	prs, err := deps.PullRequestServiceFactory(cfg, dryRun, log)
	if err != nil {
		log.Error(ctx, "failed to initialize GitHub client", err, nil)
		return fmt.Errorf("github client error: %w", err)
	}

	combiner := deps.CombinerFactory(repo, prs, cfg, dryRun, log)
	out, err := combiner.Combine(ctx, domain.CombineInput{
		Owner:         cfg.Owner,
		Repo:          cfg.Repo,
		BaseBranch:    cfg.BaseBranch,
		CombineBranch: cfg.CombineBranch,
		Author:        cfg.Author,
		GitUserName:   cfg.GitUserName,
		GitUserEmail:  cfg.GitUserEmail,
	})
	if err != nil {
		log.Error(ctx, "failed to combine pull requests", err, map[string]interface{}{
			"branch": cfg.CombineBranch,
			"base":   cfg.BaseBranch,
		})
		return combineError(err)
	}

	if cfg.OutputJSON != "" {
		report := domain.NewReport(out.Outcomes, out.PullRequest, cfg.CombineBranch, cfg.BaseBranch)
		if err := deps.ReportWriterFactory(cfg.OutputJSON).WriteReport(report); err != nil {
			log.Error(ctx, "failed to write report", err, map[string]interface{}{
				"path": cfg.OutputJSON,
			})
			return fmt.Errorf("output error: %w", err)
		}
	}

	writeSummary(stdout, out)

	log.Info(ctx, "combine-prs complete", map[string]interface{}{
		"combined": len(out.Outcomes.Combined),
		"failed":   len(out.Outcomes.Failed),
		"omitted":  len(out.Outcomes.Omitted),
		"pushed":   out.Pushed,
	})

	return nil
}

// combineError shortens pipeline failures to a message naming the failed stage.
func combineError(err error) error {
	switch {
	case errors.Is(err, domain.ErrBranchSetup):
		return fmt.Errorf("branch setup failed: %w", err)
	case errors.Is(err, domain.ErrRestoreFailed):
		return fmt.Errorf("working branch left in an unknown state: %w", err)
	case errors.Is(err, domain.ErrHostingAPI):
		return fmt.Errorf("github api error: %w", err)
	default:
		return err
	}
}

// writeSummary prints one line per outcome list and the combined pull request URL.
func writeSummary(w io.Writer, out *domain.CombineOutput) {
	writef(w, "combined: %d, failed: %d, omitted: %d\n",
		len(out.Outcomes.Combined), len(out.Outcomes.Failed), len(out.Outcomes.Omitted))
	if out.PullRequest != nil && out.PullRequest.HTMLURL != "" {
		writef(w, "%s\n", out.PullRequest.HTMLURL)
	}
}

// Execute runs the root command. The command context is cancelled on
// SIGINT and SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	rootCmd := NewRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// writef writes a formatted message to the given writer.
// This is a best-effort operation; errors are intentionally ignored
// because there is no recovery action if the write fails.
func writef(w io.Writer, format string, args ...any) {
	_, err := fmt.Fprintf(w, format, args...)
	if err != nil {
		return
	}
}
