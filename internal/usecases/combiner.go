package usecases

import (
	"context"
	"fmt"

	"github.com/clhore/combine-dependabot-pull-requests/internal/domain"
)

// PipelineCombiner implements domain.Combiner by running the preparer,
// the candidate listing, the reconciler and the publisher in sequence.
type PipelineCombiner struct {
	prs        domain.PullRequestService
	preparer   *Preparer
	reconciler *Reconciler
	publisher  *Publisher
	logger     Logger
}

// NewCombiner creates a new PipelineCombiner.
func NewCombiner(
	repo domain.Repository,
	prs domain.PullRequestService,
	log Logger,
	dryRun bool,
) *PipelineCombiner {
	return &PipelineCombiner{
		prs:        prs,
		preparer:   NewPreparer(repo, log),
		reconciler: NewReconciler(repo, log),
		publisher:  NewPublisher(repo, prs, log, dryRun),
		logger:     log,
	}
}

// Combine runs one combination. A run without candidates stops after
// preparation and pushes nothing.
func (c *PipelineCombiner) Combine(ctx context.Context, input domain.CombineInput) (*domain.CombineOutput, error) {
	if err := c.preparer.Prepare(ctx, input); err != nil {
		return nil, err
	}

	candidates, err := c.prs.ListCandidates(ctx, input.Owner, input.Repo, input.BaseBranch, input.Author)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate pull requests: %w", err)
	}

	c.logger.Info(ctx, "candidate pull requests found", map[string]interface{}{
		"count":  len(candidates),
		"author": input.Author,
	})

	if len(candidates) == 0 {
		c.logger.Info(ctx, "no open pull requests to combine", nil)
		return &domain.CombineOutput{}, nil
	}

	result, err := c.reconciler.Reconcile(ctx, candidates)
	if err != nil {
		return nil, err
	}

	pr, pushed, err := c.publisher.Publish(ctx, PublishInput{
		CombineInput: input,
		Combined:     len(result.Outcomes.Combined),
		PRListText:   result.PRListText,
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info(ctx, "combination complete", map[string]interface{}{
		"combined": len(result.Outcomes.Combined),
		"failed":   len(result.Outcomes.Failed),
		"omitted":  len(result.Outcomes.Omitted),
		"pushed":   pushed,
	})

	return &domain.CombineOutput{
		Outcomes:    result.Outcomes,
		Pushed:      pushed,
		PullRequest: pr,
	}, nil
}
