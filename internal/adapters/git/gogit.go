package git

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/clhore/combine-dependabot-pull-requests/internal/domain"
)

// open opens the repository with go-git. Every query opens it anew so that
// refs and objects written by the git command line are always visible.
func (r *Repository) open() (*git.Repository, error) {
	repo, err := git.PlainOpen(r.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrRepositoryNotFound, r.path)
	}
	return repo, nil
}

// HeadSHA returns the full commit SHA of HEAD.
func (r *Repository) HeadSHA(_ context.Context) (string, error) {
	repo, err := r.open()
	if err != nil {
		return "", err
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// HasCommit reports whether commit sha is present in the object database.
func (r *Repository) HasCommit(_ context.Context, sha string) (bool, error) {
	repo, err := r.open()
	if err != nil {
		return false, err
	}

	_, err = lookupCommit(repo, sha)
	if errors.Is(err, domain.ErrCommitNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CommitIsEmpty reports whether sha changes nothing relative to its first
// parent. A root commit is compared against the empty tree, and so is a
// commit whose parent lies beyond the boundary of a shallow clone.
func (r *Repository) CommitIsEmpty(ctx context.Context, sha string) (bool, error) {
	repo, err := r.open()
	if err != nil {
		return false, err
	}

	commit, err := lookupCommit(repo, sha)
	if err != nil {
		return false, err
	}

	tree, err := commit.Tree()
	if err != nil {
		return false, fmt.Errorf("failed to get tree of %s: %w", sha, err)
	}

	parentTree, err := firstParentTree(repo, commit)
	if err != nil {
		return false, err
	}

	changes, err := object.DiffTreeWithOptions(ctx, parentTree, tree, nil)
	if err != nil {
		return false, fmt.Errorf("failed to diff %s against its parent: %w", sha, err)
	}

	r.logger.Debug(ctx, "computed commit diff", map[string]interface{}{
		"commit":   sha,
		"parents":  commit.NumParents(),
		"boundary": commit.NumParents() > 0 && parentTree == nil,
		"changes":  len(changes),
	})
	return len(changes) == 0, nil
}

// firstParentTree returns the tree of the first parent of commit, or nil when
// there is no parent to compare against.
func firstParentTree(repo *git.Repository, commit *object.Commit) (*object.Tree, error) {
	if commit.NumParents() == 0 {
		return nil, nil
	}

	shallow, err := repo.Storer.Shallow()
	if err != nil {
		return nil, fmt.Errorf("failed to read shallow commits: %w", err)
	}
	for _, h := range shallow {
		if h == commit.Hash {
			return nil, nil
		}
	}

	parent, err := commit.Parent(0)
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		// A pull request head fetched on its own can arrive without its parents.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get parent of %s: %w", commit.Hash, err)
	}

	tree, err := parent.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree of parent of %s: %w", commit.Hash, err)
	}
	return tree, nil
}

// lookupCommit resolves sha to a commit object.
// Returns domain.ErrCommitNotFound when the object is absent.
func lookupCommit(repo *git.Repository, sha string) (*object.Commit, error) {
	if !plumbing.IsHash(sha) {
		return nil, fmt.Errorf("%w: invalid commit SHA %q", domain.ErrCommitNotFound, sha)
	}

	commit, err := repo.CommitObject(plumbing.NewHash(sha))
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrCommitNotFound, sha)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read commit %s: %w", sha, err)
	}
	return commit, nil
}
