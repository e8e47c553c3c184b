package github

import (
	"context"

	"github.com/clhore/combine-dependabot-pull-requests/internal/domain"
)

// DryClient is a domain.PullRequestService that makes no changes on GitHub.
// Pull request creation is simulated and always succeeds, all read
// operations are forwarded to the wrapped service.
type DryClient struct {
	clt    domain.PullRequestService
	logger Logger
}

// NewDryClient wraps clt so that no write reaches GitHub.
func NewDryClient(clt domain.PullRequestService, log Logger) *DryClient {
	return &DryClient{
		clt:    clt,
		logger: log,
	}
}

// ListCandidates forwards to the wrapped service.
func (c *DryClient) ListCandidates(ctx context.Context, owner, repo, base, author string) ([]domain.Candidate, error) {
	return c.clt.ListCandidates(ctx, owner, repo, base, author)
}

// FindOpenPullRequest forwards to the wrapped service.
func (c *DryClient) FindOpenPullRequest(ctx context.Context, owner, repo, head, base string) (*domain.PullRequest, error) {
	return c.clt.FindOpenPullRequest(ctx, owner, repo, head, base)
}

// CreatePullRequest logs the pull request that would be opened and returns it unnumbered.
func (c *DryClient) CreatePullRequest(ctx context.Context, owner, repo string, pr domain.NewPullRequest) (*domain.PullRequest, error) {
	c.logger.Info(ctx, "simulated creating of pull request, nothing created on github", map[string]interface{}{
		"repository": owner + "/" + repo,
		"head":       pr.Head,
		"base":       pr.Base,
		"title":      pr.Title,
	})

	return &domain.PullRequest{
		Title:   pr.Title,
		Body:    pr.Body,
		State:   "open",
		HeadRef: pr.Head,
		BaseRef: pr.Base,
	}, nil
}
