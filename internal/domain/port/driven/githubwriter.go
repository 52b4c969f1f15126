package driven

import (
	"context"

	"github.com/ericfisherdev/pyautofix/internal/domain/model"
)

// GitHubWriter defines the driven port for GitHub write operations.
// It is kept separate from GitHubClient so read-only collaborators cannot mutate.
type GitHubWriter interface {
	// CreateCheckRun opens an in_progress check run on headSHA and returns its id.
	CreateCheckRun(ctx context.Context, owner, repo string, name model.CheckRunName, headSHA string, output model.CheckOutput) (int64, error)
	// CompleteCheckRun moves a check run to completed with the given outcome.
	CompleteCheckRun(ctx context.Context, owner, repo string, id int64, name model.CheckRunName, outcome model.CheckOutcome) error
	// CreateIssueComment posts a comment on a pull request's conversation.
	CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) error
	// CreateIssue opens a new issue.
	CreateIssue(ctx context.Context, owner, repo, title, body string) (*model.Issue, error)
	// UpdateIssueBody replaces an issue's body.
	UpdateIssueBody(ctx context.Context, owner, repo string, number int, body string) error
}

// GitHub is the full installation-scoped API surface.
type GitHub interface {
	GitHubClient
	GitHubWriter
}
