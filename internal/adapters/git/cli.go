// Package git provides adapters for interacting with local Git repositories.
// This package implements domain.Repository: history-changing operations run
// the git command line, as does the ancestry check so that it stays correct on
// shallow clones. The other read-only queries use go-git/v5.
package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/clhore/combine-dependabot-pull-requests/internal/domain"
)

// Logger defines the logging interface for the git adapter.
// This interface enables dependency injection and testability.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
}

// remoteName is the remote every branch is fetched from and pushed to.
const remoteName = "origin"

// Repository implements domain.Repository for a working copy on disk.
type Repository struct {
	path   string
	runner Runner
	logger Logger
}

// NewRepository creates a Repository for the working copy at path.
// Returns domain.ErrRepositoryNotFound if the path is not a valid Git repository.
func NewRepository(path string, log Logger) (*Repository, error) {
	return NewRepositoryWithRunner(path, NewExecRunner(), log)
}

// NewRepositoryWithRunner creates a Repository that executes git through runner.
func NewRepositoryWithRunner(path string, runner Runner, log Logger) (*Repository, error) {
	if _, err := git.PlainOpen(path); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrRepositoryNotFound, path)
	}

	return &Repository{
		path:   path,
		runner: runner,
		logger: log,
	}, nil
}

// run executes a git command in the repository directory.
func (r *Repository) run(ctx context.Context, args ...string) (string, error) {
	r.logger.Debug(ctx, "running git", map[string]interface{}{
		"args": strings.Join(args, " "),
		"path": r.path,
	})
	return r.runner.Run(ctx, r.path, args...)
}

// ConfigureIdentity sets the global committer name and email.
// Any failure is returned as *domain.AdvisoryError.
func (r *Repository) ConfigureIdentity(ctx context.Context, name, email string) error {
	if _, err := r.run(ctx, "config", "--global", "user.name", name); err != nil {
		return domain.NewAdvisoryError("configure git user.name", err)
	}
	if _, err := r.run(ctx, "config", "--global", "user.email", email); err != nil {
		return domain.NewAdvisoryError("configure git user.email", err)
	}
	return nil
}

// Fetch updates the remote-tracking refs of every remote.
func (r *Repository) Fetch(ctx context.Context) error {
	if _, err := r.run(ctx, "fetch", "--all"); err != nil {
		return fmt.Errorf("failed to fetch: %w", err)
	}
	return nil
}

// FetchPullHead fetches refs/pull/<number>/head from origin so the pull
// request head commit is available even when it lives in a fork.
func (r *Repository) FetchPullHead(ctx context.Context, number int) error {
	ref := fmt.Sprintf("pull/%d/head", number)
	if _, err := r.run(ctx, "fetch", remoteName, ref); err != nil {
		return fmt.Errorf("failed to fetch %s: %w", ref, err)
	}
	return nil
}

// RemoteBranchExists reports whether refs/heads/<branch> exists on origin.
func (r *Repository) RemoteBranchExists(ctx context.Context, branch string) (bool, error) {
	out, err := r.run(ctx, "ls-remote", "--heads", remoteName, branch)
	if err != nil {
		return false, fmt.Errorf("failed to list remote branches: %w", err)
	}

	want := "refs/heads/" + branch
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 && fields[1] == want {
			return true, nil
		}
	}
	return false, nil
}

// RefExists reports whether ref resolves to a commit.
func (r *Repository) RefExists(ctx context.Context, ref string) (bool, error) {
	_, err := r.run(ctx, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if err == nil {
		return true, nil
	}
	// rev-parse --verify --quiet exits 1 for a ref that does not resolve.
	if exitCode(err) == 1 {
		return false, nil
	}
	return false, fmt.Errorf("failed to resolve %s: %w", ref, err)
}

// IsAncestor reports whether sha is HEAD or one of its ancestors.
// A commit that is not present locally cannot be part of HEAD's history,
// so it yields false without an error.
func (r *Repository) IsAncestor(ctx context.Context, sha string) (bool, error) {
	present, err := r.HasCommit(ctx, sha)
	if err != nil || !present {
		return false, err
	}

	_, err = r.run(ctx, "merge-base", "--is-ancestor", sha, "HEAD")
	ok := err == nil
	// merge-base --is-ancestor exits 1 when sha is not an ancestor.
	if err != nil && exitCode(err) != 1 {
		return false, fmt.Errorf("failed to check ancestry of %s: %w", sha, err)
	}

	r.logger.Debug(ctx, "checked ancestry", map[string]interface{}{
		"commit":      sha,
		"is_ancestor": ok,
	})
	return ok, nil
}

// Checkout switches to branch, creating a tracking branch when only the
// remote one exists.
func (r *Repository) Checkout(ctx context.Context, branch string) error {
	if _, err := r.run(ctx, "checkout", branch); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", branch, err)
	}
	return nil
}

// CreateBranch creates or resets branch at start and checks it out.
// The branch is created without an upstream.
func (r *Repository) CreateBranch(ctx context.Context, branch, start string) error {
	if _, err := r.run(ctx, "checkout", "--no-track", "-B", branch, start); err != nil {
		return fmt.Errorf("failed to create branch %s from %s: %w", branch, start, err)
	}
	return nil
}

// ResetHard moves the current branch, index and working tree to ref.
func (r *Repository) ResetHard(ctx context.Context, ref string) error {
	if _, err := r.run(ctx, "reset", "--hard", ref); err != nil {
		return fmt.Errorf("failed to reset to %s: %w", ref, err)
	}
	return nil
}

// CherryPick replays sha onto HEAD. Conflicting hunks take the incoming
// version and a replay that ends up empty is dropped.
// A pick that stops on conflicts (exit status 1) wraps domain.ErrCherryPickConflict.
func (r *Repository) CherryPick(ctx context.Context, sha string) error {
	_, err := r.run(ctx, "cherry-pick", "--strategy=recursive", "-X", "theirs", "--empty=drop", sha)
	if err == nil {
		return nil
	}
	if exitCode(err) == 1 {
		return fmt.Errorf("%w: %s: %w", domain.ErrCherryPickConflict, sha, err)
	}
	return fmt.Errorf("failed to cherry-pick %s: %w", sha, err)
}

// SkipCherryPick abandons the in-progress cherry-pick.
func (r *Repository) SkipCherryPick(ctx context.Context) error {
	if _, err := r.run(ctx, "cherry-pick", "--skip"); err != nil {
		return fmt.Errorf("failed to skip cherry-pick: %w", err)
	}
	return nil
}

// WorkingTreeDirty reports whether git status shows any change.
func (r *Repository) WorkingTreeDirty(ctx context.Context) (bool, error) {
	out, err := r.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("failed to read status: %w", err)
	}
	return out != "", nil
}

// Upstream returns the upstream of the current branch.
// A branch without an upstream yields ok == false and no error.
func (r *Repository) Upstream(ctx context.Context) (string, bool, error) {
	out, err := r.run(ctx, "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{u}")
	if err != nil {
		if exitCode(err) > 0 {
			r.logger.Debug(ctx, "no upstream configured", map[string]interface{}{
				"error": err.Error(),
			})
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to resolve upstream: %w", err)
	}
	return out, out != "", nil
}

// AheadCount returns the number of commits reachable from HEAD but not from upstream.
func (r *Repository) AheadCount(ctx context.Context, upstream string) (int, error) {
	out, err := r.run(ctx, "rev-list", "--count", upstream+"..HEAD")
	if err != nil {
		return 0, fmt.Errorf("failed to count commits ahead of %s: %w", upstream, err)
	}

	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("unexpected rev-list output %q: %w", out, err)
	}
	return n, nil
}

// ForcePush pushes branch to origin, replacing the remote ref, and sets it as upstream.
func (r *Repository) ForcePush(ctx context.Context, branch string) error {
	if _, err := r.run(ctx, "push", "-u", remoteName, branch, "--force"); err != nil {
		return fmt.Errorf("failed to push %s: %w", branch, err)
	}
	return nil
}
