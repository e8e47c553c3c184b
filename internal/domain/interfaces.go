// Package domain defines the core business entities and interfaces for combine-prs.
// This package contains no external dependencies and represents the innermost layer
// of the CLEAN architecture.
package domain

import (
	"context"
	"errors"
)

// Domain errors for repository preparation, reconciliation and publishing.
var (
	// ErrRepositoryNotFound indicates the specified path is not a valid Git repository.
	ErrRepositoryNotFound = errors.New("git repository not found at specified path")

	// ErrBranchSetup indicates the working branch could not be created or resumed.
	ErrBranchSetup = errors.New("failed to set up combination branch")

	// ErrHostingAPI indicates a request to the hosting platform failed.
	ErrHostingAPI = errors.New("hosting API request failed")

	// ErrRestoreFailed indicates the working branch could not be returned to its
	// pre-replay state after a failed cherry-pick.
	ErrRestoreFailed = errors.New("failed to restore working branch after conflict")

	// ErrCommitNotFound indicates a commit object is not present in the local repository.
	ErrCommitNotFound = errors.New("commit not found in local repository")

	// ErrCherryPickConflict indicates a cherry-pick stopped on conflicting changes.
	// Any other cherry-pick failure is an environment problem, not a conflict.
	ErrCherryPickConflict = errors.New("cherry-pick conflict")
)

// AdvisoryError wraps a failure whose effect is cosmetic. Callers log it and continue.
type AdvisoryError struct {
	Op  string
	Err error
}

// NewAdvisoryError wraps err as an advisory failure of op.
func NewAdvisoryError(op string, err error) *AdvisoryError {
	return &AdvisoryError{Op: op, Err: err}
}

func (e *AdvisoryError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *AdvisoryError) Unwrap() error {
	return e.Err
}

// IsAdvisory reports whether err is, or wraps, an AdvisoryError.
func IsAdvisory(err error) bool {
	var advisory *AdvisoryError
	return errors.As(err, &advisory)
}

// Repository is the local working copy the combination is built in.
// Mutating operations drive the git command line; queries may read the
// object database directly.
type Repository interface {
	// ConfigureIdentity sets the committer name and email.
	// Failures are returned as *AdvisoryError.
	ConfigureIdentity(ctx context.Context, name, email string) error

	// Fetch updates all remote-tracking refs.
	Fetch(ctx context.Context) error

	// FetchPullHead fetches the head commit of pull request number from origin.
	FetchPullHead(ctx context.Context, number int) error

	// RemoteBranchExists reports whether branch exists on origin.
	RemoteBranchExists(ctx context.Context, branch string) (bool, error)

	// RefExists reports whether ref resolves to a commit locally.
	RefExists(ctx context.Context, ref string) (bool, error)

	// Checkout switches the working tree to branch.
	Checkout(ctx context.Context, branch string) error

	// CreateBranch creates or resets branch at start and checks it out, without tracking.
	CreateBranch(ctx context.Context, branch, start string) error

	// ResetHard moves the current branch and working tree to ref.
	ResetHard(ctx context.Context, ref string) error

	// HeadSHA returns the commit the current branch points at.
	HeadSHA(ctx context.Context) (string, error)

	// HasCommit reports whether commit sha is present locally.
	HasCommit(ctx context.Context, sha string) (bool, error)

	// IsAncestor reports whether sha is reachable from HEAD.
	IsAncestor(ctx context.Context, sha string) (bool, error)

	// CommitIsEmpty reports whether sha introduces no change relative to its parent.
	CommitIsEmpty(ctx context.Context, sha string) (bool, error)

	// CherryPick replays sha onto HEAD with the theirs-biased strategy,
	// dropping it when it would be empty.
	CherryPick(ctx context.Context, sha string) error

	// SkipCherryPick abandons an in-progress cherry-pick.
	SkipCherryPick(ctx context.Context) error

	// WorkingTreeDirty reports whether the working tree has uncommitted changes.
	WorkingTreeDirty(ctx context.Context) (bool, error)

	// Upstream returns the upstream tracking ref of the current branch.
	// ok is false when no upstream is configured.
	Upstream(ctx context.Context) (upstream string, ok bool, err error)

	// AheadCount returns how many commits HEAD has that upstream does not.
	AheadCount(ctx context.Context, upstream string) (int, error)

	// ForcePush pushes branch to origin, overwriting the remote ref and setting upstream.
	ForcePush(ctx context.Context, branch string) error
}

// PullRequestService is the hosting platform API used by a run.
type PullRequestService interface {
	// ListCandidates returns open pull requests targeting base authored by author,
	// in the order the API returns them.
	ListCandidates(ctx context.Context, owner, repo, base, author string) ([]Candidate, error)

	// FindOpenPullRequest returns the open pull request from head into base, or nil.
	FindOpenPullRequest(ctx context.Context, owner, repo, head, base string) (*PullRequest, error)

	// CreatePullRequest opens a new pull request.
	CreatePullRequest(ctx context.Context, owner, repo string, pr NewPullRequest) (*PullRequest, error)
}

// ReportWriter writes the run report to an output destination.
type ReportWriter interface {
	// WriteReport writes the report.
	WriteReport(report *Report) error
}

// Combiner runs the whole combination pipeline.
type Combiner interface {
	// Combine prepares the branch, reconciles candidates and publishes the result.
	Combine(ctx context.Context, input CombineInput) (*CombineOutput, error)
}
