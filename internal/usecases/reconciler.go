package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/clhore/combine-dependabot-pull-requests/internal/domain"
)

// Reasons attached to each classification in the logs.
const (
	reasonAlreadyApplied    = "already-applied"
	reasonEmptyDiff         = "empty-diff"
	reasonEmptyReplay       = "empty-replay"
	reasonConflict          = "conflict"
	reasonCommitUnavailable = "commit-unavailable"
	reasonReplayed          = "replayed"
)

// ReconcileResult is the classification of every candidate of a run.
type ReconcileResult struct {
	Outcomes domain.Outcomes

	// PRListText is one "- #<number>" line per combined candidate, in order.
	PRListText string
}

// Reconciler replays candidate commits onto the working branch.
type Reconciler struct {
	repo   domain.Repository
	logger Logger
}

// NewReconciler creates a new Reconciler.
func NewReconciler(repo domain.Repository, log Logger) *Reconciler {
	return &Reconciler{
		repo:   repo,
		logger: log,
	}
}

// Reconcile classifies every candidate, in order, as combined, failed or
// omitted. A conflicting candidate never stops the ones after it.
// Only repository failures unrelated to a single candidate are returned.
func (r *Reconciler) Reconcile(ctx context.Context, candidates []domain.Candidate) (*ReconcileResult, error) {
	result := &ReconcileResult{}
	var list strings.Builder

	for _, c := range candidates {
		r.logger.Info(ctx, "processing pull request", map[string]interface{}{
			"pr_number": c.Number,
			"title":     c.Title,
			"commit":    c.HeadSHA,
		})

		outcome, reason, err := r.reconcileOne(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("reconciling pull request #%d: %w", c.Number, err)
		}

		result.Outcomes.Add(c, outcome)
		if outcome == domain.OutcomeCombined {
			fmt.Fprintf(&list, "- #%d\n", c.Number)
		}

		r.logger.Info(ctx, "pull request classified", map[string]interface{}{
			"pr_number": c.Number,
			"outcome":   outcome.String(),
			"reason":    reason,
		})
	}

	result.PRListText = list.String()
	return result, nil
}

// reconcileOne classifies a single candidate and replays it when it carries a change.
func (r *Reconciler) reconcileOne(ctx context.Context, c domain.Candidate) (domain.Outcome, string, error) {
	applied, err := r.repo.IsAncestor(ctx, c.HeadSHA)
	if err != nil {
		return 0, "", err
	}
	if applied {
		r.logger.Info(ctx, "commit is already present in the branch", map[string]interface{}{
			"pr_number": c.Number,
			"commit":    c.HeadSHA,
		})
		return domain.OutcomeOmitted, reasonAlreadyApplied, nil
	}

	available, err := r.ensureCommit(ctx, c)
	if err != nil {
		return 0, "", err
	}
	if !available {
		return domain.OutcomeFailed, reasonCommitUnavailable, nil
	}

	empty, err := r.repo.CommitIsEmpty(ctx, c.HeadSHA)
	if err != nil {
		return 0, "", err
	}
	if empty {
		return domain.OutcomeOmitted, reasonEmptyDiff, nil
	}

	return r.replay(ctx, c)
}

// ensureCommit makes the candidate commit available locally, fetching the
// pull request head from origin when the branch fetch did not bring it in.
func (r *Reconciler) ensureCommit(ctx context.Context, c domain.Candidate) (bool, error) {
	ok, err := r.repo.HasCommit(ctx, c.HeadSHA)
	if err != nil || ok {
		return ok, err
	}

	if err := r.repo.FetchPullHead(ctx, c.Number); err != nil {
		r.logger.Warn(ctx, "failed to fetch pull request head", map[string]interface{}{
			"pr_number": c.Number,
			"error":     err.Error(),
		})
		return false, nil
	}

	ok, err = r.repo.HasCommit(ctx, c.HeadSHA)
	if err != nil {
		return false, err
	}
	if !ok {
		r.logger.Warn(ctx, "pull request head commit not available", map[string]interface{}{
			"pr_number": c.Number,
			"commit":    c.HeadSHA,
		})
	}
	return ok, nil
}

// replay cherry-picks the candidate. On conflict the in-flight pick is
// skipped and the branch is reset to the tip it had before the attempt.
// Any other cherry-pick failure aborts the run.
func (r *Reconciler) replay(ctx context.Context, c domain.Candidate) (domain.Outcome, string, error) {
	pre, err := r.repo.HeadSHA(ctx)
	if err != nil {
		return 0, "", err
	}

	r.logger.Info(ctx, "cherry-picking commit", map[string]interface{}{
		"pr_number": c.Number,
		"commit":    c.HeadSHA,
	})

	if pickErr := r.repo.CherryPick(ctx, c.HeadSHA); pickErr != nil {
		if !errors.Is(pickErr, domain.ErrCherryPickConflict) {
			return 0, "", pickErr
		}
		r.logger.Warn(ctx, "conflict detected, skipping commit", map[string]interface{}{
			"pr_number": c.Number,
			"error":     pickErr.Error(),
		})
		if err := r.restore(ctx, pre); err != nil {
			return 0, "", err
		}
		return domain.OutcomeFailed, reasonConflict, nil
	}

	post, err := r.repo.HeadSHA(ctx)
	if err != nil {
		return 0, "", err
	}
	if post == pre {
		return domain.OutcomeOmitted, reasonEmptyReplay, nil
	}

	r.logger.Info(ctx, "cherry-pick completed", map[string]interface{}{
		"pr_number": c.Number,
		"commit":    c.HeadSHA,
		"tip":       post,
	})
	return domain.OutcomeCombined, reasonReplayed, nil
}

// restore abandons a failed pick and returns the branch to tip.
func (r *Reconciler) restore(ctx context.Context, tip string) error {
	if err := r.repo.SkipCherryPick(ctx); err != nil {
		r.logger.Debug(ctx, "cherry-pick skip failed, resetting", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if err := r.repo.ResetHard(ctx, tip); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrRestoreFailed, err)
	}

	now, err := r.repo.HeadSHA(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrRestoreFailed, err)
	}
	if now != tip {
		return fmt.Errorf("%w: tip is %s, expected %s", domain.ErrRestoreFailed, now, tip)
	}
	return nil
}
