package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingField is returned when an inbound pull request payload lacks one
// of the fields the engine needs to act on it.
var ErrMissingField = errors.New("missing required field")

// PullRequestPayload is the raw pull request data carried by a webhook
// delivery. Any field may be empty until Validate accepts it.
type PullRequestPayload struct {
	Owner            string
	Repo             string
	Number           int
	HeadSHA          string
	HeadRef          string
	HeadRepoFullName string
	HTMLURL          string
}

// PullRequestContext is the validated snapshot of a pull request that one
// event works against. It is only produced by PullRequestPayload.Validate
// and is passed by value.
type PullRequestContext struct {
	Owner            string
	Repo             string
	Number           int
	HeadSHA          string
	HeadRef          string
	HeadRepoFullName string
	HTMLURL          string
}

// Validate checks that every required field is present and returns the
// immutable context. The first missing field is reported.
func (p PullRequestPayload) Validate() (PullRequestContext, error) {
	fields := []struct {
		name  string
		value string
	}{
		{"repository.owner", p.Owner},
		{"repository.name", p.Repo},
		{"pull_request.head.sha", p.HeadSHA},
		{"pull_request.head.ref", p.HeadRef},
		{"pull_request.head.repo.full_name", p.HeadRepoFullName},
		{"pull_request.html_url", p.HTMLURL},
	}

	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return PullRequestContext{}, fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}

	if p.Number <= 0 {
		return PullRequestContext{}, fmt.Errorf("%w: pull_request.number", ErrMissingField)
	}

	return PullRequestContext(p), nil
}

// FullName returns "owner/repo" for the base repository.
func (c PullRequestContext) FullName() string {
	return c.Owner + "/" + c.Repo
}

// Key identifies the pull request independent of its head commit.
func (c PullRequestContext) Key() string {
	return fmt.Sprintf("%s/%s#%d", c.Owner, c.Repo, c.Number)
}
