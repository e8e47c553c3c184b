// Package github provides the GitHub REST API adapter.
// This package implements domain.PullRequestService using go-github.
package github

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"golang.org/x/oauth2"

	"github.com/clhore/combine-dependabot-pull-requests/internal/domain"
)

// DefaultHTTPClientTimeout bounds every API request.
const DefaultHTTPClientTimeout = time.Minute

// DefaultAPIURL is the public GitHub REST endpoint.
const DefaultAPIURL = "https://api.github.com/"

// maxPerPage is the largest page size the pulls endpoint serves.
const maxPerPage = 100

// Logger defines the logging interface for the GitHub adapter.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
}

// Client implements domain.PullRequestService against the GitHub REST API.
// Every operation is attempted exactly once.
type Client struct {
	restClt *gh.Client
	logger  Logger
}

// New returns a client authenticated with token.
// apiURL selects a GitHub Enterprise Server endpoint; empty means github.com.
func New(token, apiURL string, log Logger) (*Client, error) {
	restClt := gh.NewClient(newHTTPClient(token))

	if apiURL != "" && strings.TrimSuffix(apiURL, "/") != strings.TrimSuffix(DefaultAPIURL, "/") {
		var err error
		restClt, err = restClt.WithEnterpriseURLs(apiURL, apiURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", apiURL, err)
		}
	}

	return NewWithClient(restClt, log), nil
}

// NewWithClient wraps an existing go-github client.
func NewWithClient(restClt *gh.Client, log Logger) *Client {
	return &Client{
		restClt: restClt,
		logger:  log,
	}
}

func newHTTPClient(apiToken string) *http.Client {
	if apiToken == "" {
		return &http.Client{
			Timeout: DefaultHTTPClientTimeout,
		}
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: apiToken},
	)

	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = DefaultHTTPClientTimeout

	return tc
}

// ListCandidates returns the open pull requests into base authored by author.
// Only the first page of results is read.
func (c *Client) ListCandidates(ctx context.Context, owner, repo, base, author string) ([]domain.Candidate, error) {
	prs, _, err := c.restClt.PullRequests.List(ctx, owner, repo, &gh.PullRequestListOptions{
		State:       "open",
		Base:        base,
		ListOptions: gh.ListOptions{PerPage: maxPerPage},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing pull requests of %s/%s: %w", domain.ErrHostingAPI, owner, repo, err)
	}

	candidates := make([]domain.Candidate, 0, len(prs))
	for _, pr := range prs {
		if pr.GetUser().GetLogin() != author {
			continue
		}
		candidates = append(candidates, domain.Candidate{
			Number:  pr.GetNumber(),
			Title:   pr.GetTitle(),
			HeadSHA: pr.GetHead().GetSHA(),
			HeadRef: pr.GetHead().GetRef(),
			URL:     pr.GetHTMLURL(),
			Author:  pr.GetUser().GetLogin(),
		})
	}

	c.logger.Debug(ctx, "listed pull requests", map[string]interface{}{
		"base":       base,
		"author":     author,
		"open":       len(prs),
		"candidates": len(candidates),
	})

	return candidates, nil
}

// FindOpenPullRequest returns the open pull request from head into base.
// head is in owner:branch form. Returns nil when there is none.
func (c *Client) FindOpenPullRequest(ctx context.Context, owner, repo, head, base string) (*domain.PullRequest, error) {
	prs, _, err := c.restClt.PullRequests.List(ctx, owner, repo, &gh.PullRequestListOptions{
		State:       "open",
		Head:        head,
		Base:        base,
		ListOptions: gh.ListOptions{PerPage: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: looking up pull request from %s: %w", domain.ErrHostingAPI, head, err)
	}

	if len(prs) == 0 {
		return nil, nil
	}
	return mapPullRequest(prs[0]), nil
}

// CreatePullRequest opens a pull request.
func (c *Client) CreatePullRequest(ctx context.Context, owner, repo string, pr domain.NewPullRequest) (*domain.PullRequest, error) {
	created, _, err := c.restClt.PullRequests.Create(ctx, owner, repo, &gh.NewPullRequest{
		Title: gh.Ptr(pr.Title),
		Head:  gh.Ptr(pr.Head),
		Base:  gh.Ptr(pr.Base),
		Body:  gh.Ptr(pr.Body),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating pull request from %s: %w", domain.ErrHostingAPI, pr.Head, err)
	}

	c.logger.Info(ctx, "pull request created", map[string]interface{}{
		"number": created.GetNumber(),
		"url":    created.GetHTMLURL(),
	})

	return mapPullRequest(created), nil
}

func mapPullRequest(pr *gh.PullRequest) *domain.PullRequest {
	return &domain.PullRequest{
		Number:  pr.GetNumber(),
		Title:   pr.GetTitle(),
		Body:    pr.GetBody(),
		State:   pr.GetState(),
		HTMLURL: pr.GetHTMLURL(),
		APIURL:  pr.GetURL(),
		HeadRef: pr.GetHead().GetRef(),
		BaseRef: pr.GetBase().GetRef(),
	}
}
