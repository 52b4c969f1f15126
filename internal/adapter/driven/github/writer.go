package github

import (
	"context"
	"fmt"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/pyautofix/internal/domain/model"
)

// CreateCheckRun opens an in_progress check run on headSHA.
func (c *Client) CreateCheckRun(ctx context.Context, owner, repo string, name model.CheckRunName, headSHA string, output model.CheckOutput) (int64, error) {
	run, _, err := c.gh.Checks.CreateCheckRun(ctx, owner, repo, gh.CreateCheckRunOptions{
		Name:      string(name),
		HeadSHA:   headSHA,
		Status:    gh.Ptr("in_progress"),
		StartedAt: &gh.Timestamp{Time: time.Now()},
		Output:    mapOutput(output),
	})
	if err != nil {
		return 0, apiError(fmt.Sprintf("creating check run %q on %s/%s", name, owner, repo), err)
	}
	return run.GetID(), nil
}

// CompleteCheckRun sets a check run to completed with the given conclusion.
func (c *Client) CompleteCheckRun(ctx context.Context, owner, repo string, id int64, name model.CheckRunName, outcome model.CheckOutcome) error {
	_, _, err := c.gh.Checks.UpdateCheckRun(ctx, owner, repo, id, gh.UpdateCheckRunOptions{
		Name:        string(name),
		Status:      gh.Ptr("completed"),
		Conclusion:  gh.Ptr(string(outcome.Conclusion)),
		CompletedAt: &gh.Timestamp{Time: time.Now()},
		Output:      mapOutput(outcome.Output),
	})
	if err != nil {
		return apiError(fmt.Sprintf("completing check run %d on %s/%s", id, owner, repo), err)
	}
	return nil
}

// CreateIssueComment posts a comment on the pull request conversation.
func (c *Client) CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) error {
	_, _, err := c.gh.Issues.CreateComment(ctx, owner, repo, number, &gh.IssueComment{Body: gh.Ptr(body)})
	if err != nil {
		return apiError(fmt.Sprintf("creating comment on %s/%s#%d", owner, repo, number), err)
	}
	return nil
}

// CreateIssue opens an issue.
func (c *Client) CreateIssue(ctx context.Context, owner, repo, title, body string) (*model.Issue, error) {
	is, _, err := c.gh.Issues.Create(ctx, owner, repo, &gh.IssueRequest{Title: gh.Ptr(title), Body: gh.Ptr(body)})
	if err != nil {
		return nil, apiError(fmt.Sprintf("creating issue on %s/%s", owner, repo), err)
	}
	issue := mapIssue(is)
	return &issue, nil
}

// UpdateIssueBody replaces the issue body.
func (c *Client) UpdateIssueBody(ctx context.Context, owner, repo string, number int, body string) error {
	_, _, err := c.gh.Issues.Edit(ctx, owner, repo, number, &gh.IssueRequest{Body: gh.Ptr(body)})
	if err != nil {
		return apiError(fmt.Sprintf("updating issue %s/%s#%d", owner, repo, number), err)
	}
	return nil
}

// check run output fields are capped by the API at 65535 characters.
const maxOutputLen = 65535

func mapOutput(o model.CheckOutput) *gh.CheckRunOutput {
	out := &gh.CheckRunOutput{
		Title:   gh.Ptr(o.Title),
		Summary: gh.Ptr(truncate(o.Summary, maxOutputLen)),
	}
	if o.Text != "" {
		out.Text = gh.Ptr(truncate(o.Text, maxOutputLen))
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	const marker = "\n\n… (truncated)"
	return strings.ToValidUTF8(s[:n-len(marker)], "") + marker
}
