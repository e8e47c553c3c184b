package usecases

import (
	"context"
	"fmt"

	"github.com/clhore/combine-dependabot-pull-requests/internal/domain"
)

const (
	pullRequestTitlePrefix = "Combine Pull Requests from "
	pullRequestBodyHeader  = "This pull request was automatically created by combining the following Dependabot PRs:\n\n"
)

// PublishInput carries what the publisher needs beyond the run parameters.
type PublishInput struct {
	domain.CombineInput

	// Combined is the number of candidates replayed in this run.
	Combined int

	// PRListText is the body list of combined candidates.
	PRListText string
}

// Publisher pushes the working branch and opens the combined pull request.
type Publisher struct {
	repo   domain.Repository
	prs    domain.PullRequestService
	logger Logger
	dryRun bool
}

// NewPublisher creates a new Publisher. When dryRun is set the branch is
// never pushed.
func NewPublisher(repo domain.Repository, prs domain.PullRequestService, log Logger, dryRun bool) *Publisher {
	return &Publisher{
		repo:   repo,
		prs:    prs,
		logger: log,
		dryRun: dryRun,
	}
}

// HasChanges reports whether the working branch has anything the remote lacks:
// uncommitted changes, no upstream at all, or commits ahead of the upstream.
func (p *Publisher) HasChanges(ctx context.Context) (bool, error) {
	dirty, err := p.workingTreeDirty(ctx)
	if err != nil || dirty {
		return dirty, err
	}

	upstream, ok, err := p.hasUpstream(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		p.logger.Debug(ctx, "branch has no upstream", nil)
		return true, nil
	}

	return p.aheadOfUpstream(ctx, upstream)
}

func (p *Publisher) workingTreeDirty(ctx context.Context) (bool, error) {
	dirty, err := p.repo.WorkingTreeDirty(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check working tree: %w", err)
	}
	if dirty {
		p.logger.Debug(ctx, "working tree has uncommitted changes", nil)
	}
	return dirty, nil
}

func (p *Publisher) hasUpstream(ctx context.Context) (string, bool, error) {
	upstream, ok, err := p.repo.Upstream(ctx)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve upstream: %w", err)
	}
	return upstream, ok, nil
}

func (p *Publisher) aheadOfUpstream(ctx context.Context, upstream string) (bool, error) {
	ahead, err := p.repo.AheadCount(ctx, upstream)
	if err != nil {
		return false, fmt.Errorf("failed to count commits ahead of %s: %w", upstream, err)
	}
	p.logger.Debug(ctx, "commits ahead of upstream", map[string]interface{}{
		"upstream": upstream,
		"ahead":    ahead,
	})
	return ahead > 0, nil
}

// Publish pushes the branch when it has changes and, when at least one
// candidate was combined, returns the open combined pull request, reusing
// an existing one before creating a new one.
// pushed is false when nothing needed pushing or the run is a dry run.
func (p *Publisher) Publish(ctx context.Context, input PublishInput) (pr *domain.PullRequest, pushed bool, err error) {
	changed, err := p.HasChanges(ctx)
	if err != nil {
		return nil, false, err
	}
	if !changed {
		p.logger.Info(ctx, "no changes to push", map[string]interface{}{
			"branch": input.CombineBranch,
		})
		return nil, false, nil
	}

	if p.dryRun {
		p.logger.Info(ctx, "dry run, skipping push", map[string]interface{}{
			"branch": input.CombineBranch,
		})
	} else {
		p.logger.Info(ctx, "pushing combination branch", map[string]interface{}{
			"branch": input.CombineBranch,
		})
		if err := p.repo.ForcePush(ctx, input.CombineBranch); err != nil {
			return nil, false, fmt.Errorf("failed to push branch %q: %w", input.CombineBranch, err)
		}
		pushed = true
	}

	if input.Combined == 0 {
		p.logger.Info(ctx, "no pull requests combined, not opening a pull request", nil)
		return nil, pushed, nil
	}

	pr, err = p.openPullRequest(ctx, input)
	if err != nil {
		return nil, pushed, err
	}
	return pr, pushed, nil
}

func (p *Publisher) openPullRequest(ctx context.Context, input PublishInput) (*domain.PullRequest, error) {
	head := input.Owner + ":" + input.CombineBranch

	existing, err := p.prs.FindOpenPullRequest(ctx, input.Owner, input.Repo, head, input.BaseBranch)
	if err != nil {
		return nil, fmt.Errorf("failed to look up combined pull request: %w", err)
	}
	if existing != nil {
		p.logger.Info(ctx, "combined pull request already open, reusing it", map[string]interface{}{
			"pr_number": existing.Number,
			"url":       existing.HTMLURL,
		})
		return existing, nil
	}

	created, err := p.prs.CreatePullRequest(ctx, input.Owner, input.Repo, domain.NewPullRequest{
		Title: pullRequestTitlePrefix + input.Author,
		Body:  pullRequestBodyHeader + input.PRListText,
		Head:  input.CombineBranch,
		Base:  input.BaseBranch,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create combined pull request: %w", err)
	}

	p.logger.Info(ctx, "combined pull request created", map[string]interface{}{
		"pr_number": created.Number,
		"url":       created.HTMLURL,
	})
	return created, nil
}
