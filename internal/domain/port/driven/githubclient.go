package driven

import (
	"context"

	"github.com/ericfisherdev/pyautofix/internal/domain/model"
)

// PermissionChecker resolves a user's permission level on a repository.
type PermissionChecker interface {
	// PermissionLevel returns "admin", "write", "read" or "none".
	PermissionLevel(ctx context.Context, owner, repo, login string) (string, error)
}

// GitHubClient defines the driven port for reading from the GitHub API.
// Every call is scoped to one App installation.
type GitHubClient interface {
	PermissionChecker

	// ListPullRequestFiles returns the paths of all files changed by a pull request.
	ListPullRequestFiles(ctx context.Context, owner, repo string, number int) ([]string, error)
	// GetPullRequest fetches a pull request as an unvalidated payload.
	GetPullRequest(ctx context.Context, owner, repo string, number int) (model.PullRequestPayload, error)
	// FindOpenIssueByTitle returns the first open issue with exactly the given
	// title, or (nil, nil) when none exists.
	FindOpenIssueByTitle(ctx context.Context, owner, repo, title string) (*model.Issue, error)
	// IssueLastEditor returns the user who last edited the issue body, or
	// (nil, nil) when the body was never edited.
	IssueLastEditor(ctx context.Context, owner, repo string, number int) (*model.Actor, error)
}
