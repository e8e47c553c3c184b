package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clhore/combine-dependabot-pull-requests/internal/domain"
)

// mockLogger implements the Logger interface for testing.
type mockLogger struct{}

func (m *mockLogger) Info(_ context.Context, _ string, _ map[string]interface{})           {}
func (m *mockLogger) Debug(_ context.Context, _ string, _ map[string]interface{})          {}
func (m *mockLogger) Warn(_ context.Context, _ string, _ map[string]interface{})           {}
func (m *mockLogger) Error(_ context.Context, _ string, _ error, _ map[string]interface{}) {}

// stubRepository satisfies domain.Repository; the command never calls it directly.
type stubRepository struct {
	domain.Repository
}

// stubPullRequestService satisfies domain.PullRequestService.
type stubPullRequestService struct {
	domain.PullRequestService
}

// mockCombiner implements domain.Combiner for testing.
type mockCombiner struct {
	output *domain.CombineOutput
	err    error
	input  domain.CombineInput
}

func (m *mockCombiner) Combine(_ context.Context, input domain.CombineInput) (*domain.CombineOutput, error) {
	m.input = input
	return m.output, m.err
}

// mockReportWriter implements domain.ReportWriter for testing.
type mockReportWriter struct {
	report   *domain.Report
	writeErr error
}

func (m *mockReportWriter) WriteReport(report *domain.Report) error {
	m.report = report
	return m.writeErr
}

func testConfig() *AppConfig {
	return &AppConfig{
		Token:         "ghs_test",
		Owner:         "octo-org",
		Repo:          "app",
		Repository:    "octo-org/app",
		BaseBranch:    "main",
		CombineBranch: "combine-dependabot",
		Author:        "dependabot[bot]",
		GitUserName:   "github-actions",
		GitUserEmail:  "github-actions@users.noreply.github.com",
	}
}

// testHarness wires dependencies that succeed and records what they were given.
type testHarness struct {
	deps       *Dependencies
	cfg        *AppConfig
	combiner   *mockCombiner
	writer     *mockReportWriter
	stdout     *bytes.Buffer
	reportPath string
	dryRun     bool
}

func newTestHarness() *testHarness {
	h := &testHarness{
		cfg: testConfig(),
		combiner: &mockCombiner{output: &domain.CombineOutput{
			Outcomes: domain.Outcomes{
				Combined: []domain.OutcomeEntry{{Number: 1, Title: "Bump a", URL: "u1"}},
				Failed:   []domain.OutcomeEntry{{Number: 2, Title: "Bump b", URL: "u2"}},
			},
			Pushed:      true,
			PullRequest: &domain.PullRequest{Number: 9, HTMLURL: "https://github.com/octo-org/app/pull/9"},
		}},
		writer: &mockReportWriter{},
		stdout: &bytes.Buffer{},
	}
	h.deps = &Dependencies{
		LoggerFactory: func() Logger { return &mockLogger{} },
		ConfigLoader:  func() (*AppConfig, error) { return h.cfg, nil },
		RepositoryFactory: func(_ string, _ Logger) (domain.Repository, error) {
			return &stubRepository{}, nil
		},
		PullRequestServiceFactory: func(_ *AppConfig, dry bool, _ Logger) (domain.PullRequestService, error) {
			h.dryRun = dry
			return &stubPullRequestService{}, nil
		},
		CombinerFactory: func(_ domain.Repository, _ domain.PullRequestService, _ *AppConfig, _ bool, _ Logger) domain.Combiner {
			return h.combiner
		},
		ReportWriterFactory: func(path string) domain.ReportWriter {
			h.reportPath = path
			return h.writer
		},
		Stdout: h.stdout,
		Stderr: io.Discard,
	}
	return h
}

func TestNewRootCmd(t *testing.T) {
	// Set default deps so NewRootCmd() works
	SetDefaultDependencies(&Dependencies{})
	cmd := NewRootCmd()

	require.NotNil(t, cmd)
	assert.Equal(t, "combine-prs [path]", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)
	assert.True(t, cmd.SilenceUsage)

	dryRunFlag := cmd.Flags().Lookup("dry-run")
	require.NotNil(t, dryRunFlag)
	assert.Equal(t, "n", dryRunFlag.Shorthand)
	assert.Equal(t, "false", dryRunFlag.DefValue)

	verboseFlag := cmd.Flags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)
}

func TestNewRootCmd_MaxArgs(t *testing.T) {
	SetDefaultDependencies(&Dependencies{})
	cmd := NewRootCmd()

	require.NoError(t, cmd.Args(cmd, []string{}))
	require.NoError(t, cmd.Args(cmd, []string{"/path/to/repo"}))
	require.Error(t, cmd.Args(cmd, []string{"/path/one", "/path/two"}))
}

func TestNewRootCmd_HelpOutput(t *testing.T) {
	SetDefaultDependencies(&Dependencies{})
	cmd := NewRootCmd()

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "combine-prs")
	assert.Contains(t, output, "--dry-run")
	assert.Contains(t, output, "--verbose")
}

func TestRootCmd_NilDependencies(t *testing.T) {
	cmd := NewRootCmdWithDeps(nil)
	cmd.SetArgs([]string{"."})

	err := cmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "dependencies not configured")
}

func TestRootCmd_Success(t *testing.T) {
	// Arrange
	h := newTestHarness()
	h.cfg.OutputJSON = "/tmp/result.json"
	cmd := NewRootCmdWithDeps(h.deps)
	cmd.SetArgs([]string{"."})

	// Act
	err := cmd.Execute()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.CombineInput{
		Owner:         "octo-org",
		Repo:          "app",
		BaseBranch:    "main",
		CombineBranch: "combine-dependabot",
		Author:        "dependabot[bot]",
		GitUserName:   "github-actions",
		GitUserEmail:  "github-actions@users.noreply.github.com",
	}, h.combiner.input)
	assert.False(t, h.dryRun)

	assert.Equal(t, "/tmp/result.json", h.reportPath)
	require.NotNil(t, h.writer.report)
	assert.Equal(t, "combine-dependabot", h.writer.report.Branch)
	assert.Equal(t, "main", h.writer.report.Base)
	assert.Len(t, h.writer.report.CombinedPRs, 1)
	assert.Len(t, h.writer.report.FailedPRs, 1)
	assert.Empty(t, h.writer.report.OmittedPRs)
	assert.Equal(t, 9, h.writer.report.PRCombine.Number)

	assert.Equal(t, "combined: 1, failed: 1, omitted: 0\nhttps://github.com/octo-org/app/pull/9\n", h.stdout.String())
}

func TestRootCmd_NoReportWithoutOutputPath(t *testing.T) {
	h := newTestHarness()
	cmd := NewRootCmdWithDeps(h.deps)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Empty(t, h.reportPath)
	assert.Nil(t, h.writer.report)
}

func TestRootCmd_NoCandidatesStillWritesReport(t *testing.T) {
	h := newTestHarness()
	h.cfg.OutputJSON = "/tmp/result.json"
	h.combiner.output = &domain.CombineOutput{}
	cmd := NewRootCmdWithDeps(h.deps)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	require.NotNil(t, h.writer.report)
	assert.NotNil(t, h.writer.report.CombinedPRs)
	assert.Empty(t, h.writer.report.CombinedPRs)
	assert.Nil(t, h.writer.report.PRCombine)
	assert.Equal(t, "combined: 0, failed: 0, omitted: 0\n", h.stdout.String())
}

func TestRootCmd_DryRunFlag(t *testing.T) {
	h := newTestHarness()
	cmd := NewRootCmdWithDeps(h.deps)
	cmd.SetArgs([]string{"--dry-run"})

	require.NoError(t, cmd.Execute())
	assert.True(t, h.dryRun)
}

func TestRootCmd_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(h *testHarness)
		wantMsg string
	}{
		{
			name: "config load error",
			mutate: func(h *testHarness) {
				h.deps.ConfigLoader = func() (*AppConfig, error) {
					return nil, errors.New("GITHUB_TOKEN missing")
				}
			},
			wantMsg: "configuration error",
		},
		{
			name: "not a repository",
			mutate: func(h *testHarness) {
				h.deps.RepositoryFactory = func(_ string, _ Logger) (domain.Repository, error) {
					return nil, domain.ErrRepositoryNotFound
				}
			},
			wantMsg: "not a git repository: .",
		},
		{
			name: "github client error",
			mutate: func(h *testHarness) {
				h.deps.PullRequestServiceFactory = func(_ *AppConfig, _ bool, _ Logger) (domain.PullRequestService, error) {
					return nil, errors.New("parse error")
				}
			},
			wantMsg: "github client error",
		},
		{
			name: "branch setup failure",
			mutate: func(h *testHarness) {
				h.combiner.err = fmt.Errorf("%w %q: exit status 128", domain.ErrBranchSetup, "combine-dependabot")
			},
			wantMsg: "branch setup failed",
		},
		{
			name: "hosting api failure",
			mutate: func(h *testHarness) {
				h.combiner.err = fmt.Errorf("failed to list: %w", domain.ErrHostingAPI)
			},
			wantMsg: "github api error",
		},
		{
			name: "restore failure",
			mutate: func(h *testHarness) {
				h.combiner.err = domain.ErrRestoreFailed
			},
			wantMsg: "unknown state",
		},
		{
			name: "report write failure",
			mutate: func(h *testHarness) {
				h.cfg.OutputJSON = "/nonexistent/result.json"
				h.writer.writeErr = errors.New("permission denied")
			},
			wantMsg: "output error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHarness()
			tt.mutate(h)
			cmd := NewRootCmdWithDeps(h.deps)
			cmd.SetArgs([]string{"."})

			err := cmd.Execute()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestRootCmd_FatalErrorWritesNoReport(t *testing.T) {
	h := newTestHarness()
	h.cfg.OutputJSON = "/tmp/result.json"
	h.combiner.err = domain.ErrRestoreFailed
	cmd := NewRootCmdWithDeps(h.deps)
	cmd.SetArgs([]string{})

	require.Error(t, cmd.Execute())
	assert.Nil(t, h.writer.report)
	assert.Empty(t, h.stdout.String())
}
