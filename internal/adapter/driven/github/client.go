// Package github implements the GitHub ports using the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/shurcooL/githubv4"

	"github.com/ericfisherdev/pyautofix/internal/domain/model"
	"github.com/ericfisherdev/pyautofix/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitHub = (*Client)(nil)

// Client implements driven.GitHub for a single App installation.
type Client struct {
	gh  *gh.Client
	gql *githubv4.Client
}

// newClient wraps an http.Client that already authenticates as an
// installation. apiURL is empty for github.com.
func newClient(httpClient *http.Client, apiURL string) (*Client, error) {
	client := gh.NewClient(httpClient)
	graphqlURL := "https://api.github.com/graphql"

	if apiURL != "" {
		u, err := url.Parse(strings.TrimSuffix(apiURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parsing base URL: %w", err)
		}
		client.BaseURL = u
		graphqlURL = graphqlEndpoint(u)
	}

	return &Client{
		gh:  client,
		gql: githubv4.NewEnterpriseClient(graphqlURL, httpClient),
	}, nil
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	return newClient(httpClient, baseURL)
}

// graphqlEndpoint derives the GraphQL URL from a REST base URL. GitHub
// Enterprise serves REST under /api/v3/ and GraphQL under /api/graphql.
func graphqlEndpoint(rest *url.URL) string {
	u := *rest
	if strings.HasSuffix(u.Path, "/api/v3/") {
		u.Path = strings.TrimSuffix(u.Path, "v3/") + "graphql"
	} else {
		u.Path = "/graphql"
	}
	return u.String()
}

// ListPullRequestFiles returns the filenames changed by a pull request.
// It handles pagination automatically.
func (c *Client) ListPullRequestFiles(ctx context.Context, owner, repo string, number int) ([]string, error) {
	opts := &gh.ListOptions{PerPage: 100}
	var files []string

	for {
		page, resp, err := c.gh.PullRequests.ListFiles(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, apiError(fmt.Sprintf("listing files for %s/%s#%d (page %d)", owner, repo, number, opts.Page), err)
		}

		logRateLimit(resp, owner+"/"+repo+"/files", opts.Page, len(page))

		for _, f := range page {
			files = append(files, f.GetFilename())
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	if files == nil {
		files = []string{}
	}
	return files, nil
}

// GetPullRequest fetches a single pull request.
func (c *Client) GetPullRequest(ctx context.Context, owner, repo string, number int) (model.PullRequestPayload, error) {
	pr, _, err := c.gh.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return model.PullRequestPayload{}, apiError(fmt.Sprintf("getting pull request %s/%s#%d", owner, repo, number), err)
	}
	return mapPullRequest(owner, repo, pr), nil
}

// mapPullRequest converts a go-github pull request into an unvalidated payload.
func mapPullRequest(owner, repo string, pr *gh.PullRequest) model.PullRequestPayload {
	return model.PullRequestPayload{
		Owner:            owner,
		Repo:             repo,
		Number:           pr.GetNumber(),
		HeadSHA:          pr.GetHead().GetSHA(),
		HeadRef:          pr.GetHead().GetRef(),
		HeadRepoFullName: pr.GetHead().GetRepo().GetFullName(),
		HTMLURL:          pr.GetHTMLURL(),
	}
}

// FindOpenIssueByTitle scans open issues (pull requests excluded) for an
// exact title match.
func (c *Client) FindOpenIssueByTitle(ctx context.Context, owner, repo, title string) (*model.Issue, error) {
	opts := &gh.IssueListByRepoOptions{
		State:       "open",
		Sort:        "created",
		Direction:   "asc",
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	for {
		issues, resp, err := c.gh.Issues.ListByRepo(ctx, owner, repo, opts)
		if err != nil {
			return nil, apiError(fmt.Sprintf("listing issues for %s/%s (page %d)", owner, repo, opts.ListOptions.Page), err)
		}

		for _, is := range issues {
			if is.IsPullRequest() || is.GetTitle() != title {
				continue
			}
			issue := mapIssue(is)
			return &issue, nil
		}

		if resp.NextPage == 0 {
			return nil, nil
		}
		opts.ListOptions.Page = resp.NextPage
	}
}

// PermissionLevel returns the user's effective permission on the repository.
func (c *Client) PermissionLevel(ctx context.Context, owner, repo, login string) (string, error) {
	level, _, err := c.gh.Repositories.GetPermissionLevel(ctx, owner, repo, login)
	if err != nil {
		return "", apiError(fmt.Sprintf("getting permission of %s on %s/%s", login, owner, repo), err)
	}
	return level.GetPermission(), nil
}

func mapIssue(is *gh.Issue) model.Issue {
	return model.Issue{
		Number: is.GetNumber(),
		Title:  is.GetTitle(),
		Body:   is.GetBody(),
		Author: model.Actor{Login: is.GetUser().GetLogin(), ID: is.GetUser().GetID()},
	}
}

// logRateLimit logs rate limit information from a GitHub API response.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}
