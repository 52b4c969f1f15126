package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/pyautofix/internal/domain/model"
)

func TestCheckRuns_OpenAllAndFinalize(t *testing.T) {
	gh := newFakeGitHub()
	checks := NewCheckRuns(gh, testPR)

	require.NoError(t, checks.OpenAll(context.Background()))
	assert.Equal(t, model.CheckRunNames, gh.created)

	ok := model.CheckOutcome{Conclusion: model.ConclusionSuccess, Output: model.CheckOutput{Title: "ok"}}
	require.NoError(t, checks.Finalize(context.Background(), Both(ok, ok)))
	assert.Len(t, gh.completed, 2)
	assert.Equal(t, ok, gh.completed[model.CheckRunPrimary])
	assert.Equal(t, ok, gh.completed[model.CheckRunAutofix])
}

func TestCheckRuns_OpenAllAbortsOnFirstFailure(t *testing.T) {
	gh := newFakeGitHub()
	gh.createErr[model.CheckRunPrimary] = errors.New("403 resource not accessible")
	checks := NewCheckRuns(gh, testPR)

	err := checks.OpenAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCheckSetup)
	assert.Empty(t, gh.created)

	_, opened := checks.ID(model.CheckRunAutofix)
	assert.False(t, opened)
}

func TestCheckRuns_PartialSetFinalizesOpenedOnly(t *testing.T) {
	gh := newFakeGitHub()
	gh.createErr[model.CheckRunAutofix] = errors.New("boom")
	checks := NewCheckRuns(gh, testPR)

	require.Error(t, checks.OpenAll(context.Background()))
	assert.Equal(t, []model.CheckRunName{model.CheckRunPrimary}, gh.created)

	failed := model.CheckOutcome{Conclusion: model.ConclusionFailure}
	require.NoError(t, checks.Finalize(context.Background(), Both(failed, failed)))
	assert.Len(t, gh.completed, 1)
	assert.Contains(t, gh.completed, model.CheckRunPrimary)
}

func TestCheckRuns_FinalizeWithoutOpenIsNoop(t *testing.T) {
	gh := newFakeGitHub()
	checks := NewCheckRuns(gh, testPR)

	outcome := model.CheckOutcome{Conclusion: model.ConclusionSuccess}
	assert.NoError(t, checks.Finalize(context.Background(), Both(outcome, outcome)))
	assert.Empty(t, gh.completed)
}

type failingCompleter struct {
	*fakeGitHub
}

func (failingCompleter) CompleteCheckRun(context.Context, string, string, int64, model.CheckRunName, model.CheckOutcome) error {
	return errors.New("422 unprocessable")
}

func TestCheckRuns_FinalizeJoinsErrors(t *testing.T) {
	gh := failingCompleter{newFakeGitHub()}
	checks := NewCheckRuns(gh, testPR)
	require.NoError(t, checks.OpenAll(context.Background()))

	outcome := model.CheckOutcome{Conclusion: model.ConclusionSuccess}
	err := checks.Finalize(context.Background(), Both(outcome, outcome))
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(model.CheckRunPrimary))
	assert.Contains(t, err.Error(), string(model.CheckRunAutofix))
}
