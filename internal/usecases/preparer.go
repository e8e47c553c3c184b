// Package usecases contains the application business logic.
// This package orchestrates domain entities and interfaces to fulfill use cases.
package usecases

import (
	"context"
	"fmt"

	"github.com/clhore/combine-dependabot-pull-requests/internal/domain"
)

// Logger defines the logging interface required by the use cases.
// This abstracts the logger dependency to avoid coupling to a specific implementation.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
}

// Preparer makes sure the local combination branch exists and matches
// either its remote counterpart or the base branch tip.
type Preparer struct {
	repo   domain.Repository
	logger Logger
}

// NewPreparer creates a new Preparer.
func NewPreparer(repo domain.Repository, log Logger) *Preparer {
	return &Preparer{
		repo:   repo,
		logger: log,
	}
}

// Prepare configures the committer identity, fetches, and then resumes the
// remote combination branch or forks it fresh from the base branch.
// Identity failures are advisory; every other failure wraps domain.ErrBranchSetup.
func (p *Preparer) Prepare(ctx context.Context, input domain.CombineInput) error {
	if err := p.configureIdentity(ctx, input); err != nil {
		return err
	}

	branch := input.CombineBranch

	p.logger.Info(ctx, "setting up combination branch", map[string]interface{}{
		"branch": branch,
		"base":   input.BaseBranch,
	})

	if err := p.repo.Fetch(ctx); err != nil {
		return fmt.Errorf("%w %q: %w", domain.ErrBranchSetup, branch, err)
	}

	exists, err := p.repo.RemoteBranchExists(ctx, branch)
	if err != nil {
		return fmt.Errorf("%w %q: %w", domain.ErrBranchSetup, branch, err)
	}

	if exists {
		p.logger.Info(ctx, "remote combination branch exists, resuming it", map[string]interface{}{
			"branch": branch,
		})
		if err := p.repo.Checkout(ctx, branch); err != nil {
			return fmt.Errorf("%w %q: %w", domain.ErrBranchSetup, branch, err)
		}
		if err := p.repo.ResetHard(ctx, remoteRef(branch)); err != nil {
			return fmt.Errorf("%w %q: %w", domain.ErrBranchSetup, branch, err)
		}
		return nil
	}

	start, err := p.startPoint(ctx, input.BaseBranch)
	if err != nil {
		return fmt.Errorf("%w %q: %w", domain.ErrBranchSetup, branch, err)
	}

	p.logger.Info(ctx, "creating combination branch", map[string]interface{}{
		"branch": branch,
		"start":  start,
	})
	if err := p.repo.CreateBranch(ctx, branch, start); err != nil {
		return fmt.Errorf("%w %q: %w", domain.ErrBranchSetup, branch, err)
	}
	return nil
}

// configureIdentity logs advisory failures and returns only fatal ones.
func (p *Preparer) configureIdentity(ctx context.Context, input domain.CombineInput) error {
	err := p.repo.ConfigureIdentity(ctx, input.GitUserName, input.GitUserEmail)
	switch {
	case err == nil:
		p.logger.Info(ctx, "git identity configured", map[string]interface{}{
			"user_name":  input.GitUserName,
			"user_email": input.GitUserEmail,
		})
		return nil
	case domain.IsAdvisory(err):
		p.logger.Warn(ctx, "failed to set git config", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	default:
		return fmt.Errorf("failed to configure git identity: %w", err)
	}
}

// startPoint prefers the freshly fetched remote base over the local branch.
func (p *Preparer) startPoint(ctx context.Context, base string) (string, error) {
	remote := remoteRef(base)
	ok, err := p.repo.RefExists(ctx, remote)
	if err != nil {
		return "", err
	}
	if ok {
		return remote, nil
	}
	return base, nil
}

func remoteRef(branch string) string {
	return "origin/" + branch
}
