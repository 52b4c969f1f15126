package github

import (
	"context"
	"fmt"

	"github.com/shurcooL/githubv4"

	"github.com/ericfisherdev/pyautofix/internal/domain/model"
)

// IssueLastEditor asks the GraphQL API who last edited the issue body. The
// REST API does not expose the editor.
func (c *Client) IssueLastEditor(ctx context.Context, owner, repo string, number int) (*model.Actor, error) {
	var query struct {
		Repository struct {
			Issue struct {
				LastEditedAt *githubv4.DateTime
				Editor       *struct {
					Typename string `graphql:"__typename"`
					Login    string
					User     struct {
						DatabaseID int64 `graphql:"databaseId"`
					} `graphql:"... on User"`
				}
			} `graphql:"issue(number: $number)"`
		} `graphql:"repository(owner: $owner, name: $repo)"`
	}

	variables := map[string]any{
		"owner":  githubv4.String(owner),
		"repo":   githubv4.String(repo),
		"number": githubv4.Int(number),
	}

	if err := c.gql.Query(ctx, &query, variables); err != nil {
		return nil, apiError(fmt.Sprintf("querying editor of %s/%s#%d", owner, repo, number), err)
	}

	issue := query.Repository.Issue
	if issue.LastEditedAt == nil || issue.Editor == nil || issue.Editor.Login == "" {
		return nil, nil
	}

	return &model.Actor{
		Login: issue.Editor.Login,
		ID:    issue.Editor.User.DatabaseID,
		Bot:   issue.Editor.Typename == "Bot",
	}, nil
}
