package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/pyautofix/internal/domain/model"
)

func TestParseSettings(t *testing.T) {
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		body    string
		enabled bool
		enabler string
		at      *time.Time
	}{
		{name: "empty body", body: ""},
		{name: "not json", body: "please enable unsafe fixes"},
		{name: "json array", body: `[true]`},
		{name: "disabled", body: `{"enableUnsafeFixes": false}`},
		{name: "enabled without enabler", body: `{"enableUnsafeFixes": true}`, enabled: true},
		{name: "string true is not enabled", body: `{"enableUnsafeFixes": "true"}`},
		{
			name:    "fully attributed",
			body:    `{"enableUnsafeFixes": true, "unsafeFixesEnabledBy": {"login": "octocat", "id": 1}, "unsafeFixesEnabledAt": "2026-05-01T12:00:00Z"}`,
			enabled: true,
			enabler: "octocat",
			at:      &at,
		},
		{
			name:    "blank enabler login",
			body:    `{"enableUnsafeFixes": true, "unsafeFixesEnabledBy": {"login": " "}}`,
			enabled: true,
		},
		{
			name:    "malformed enabler keeps enable flag",
			body:    `{"enableUnsafeFixes": true, "unsafeFixesEnabledBy": "octocat", "unsafeFixesEnabledAt": "yesterday"}`,
			enabled: true,
		},
		{name: "surrounding whitespace", body: "\n  {\"enableUnsafeFixes\": true}\n", enabled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSettings(tt.body)
			assert.Equal(t, tt.enabled, got.EnableUnsafeFixes)
			if tt.enabler == "" {
				assert.Nil(t, got.UnsafeFixesEnabledBy)
			} else {
				require.NotNil(t, got.UnsafeFixesEnabledBy)
				assert.Equal(t, tt.enabler, got.UnsafeFixesEnabledBy.Login)
			}
			if tt.at == nil {
				assert.Nil(t, got.UnsafeFixesEnabledAt)
			} else {
				require.NotNil(t, got.UnsafeFixesEnabledAt)
				assert.True(t, tt.at.Equal(*got.UnsafeFixesEnabledAt))
			}
		})
	}
}

func TestSettingsStore_LoadMissingIssue(t *testing.T) {
	gh := newFakeGitHub()

	snap, err := NewSettingsStore(nil).Load(context.Background(), gh, "octo", "widgets")
	require.NoError(t, err)
	assert.Nil(t, snap.Issue)
	assert.False(t, snap.Settings.EnableUnsafeFixes)
}

func TestSettingsStore_LoadFindError(t *testing.T) {
	gh := newFakeGitHub()
	gh.findErr = errors.New("boom")

	_, err := NewSettingsStore(nil).Load(context.Background(), gh, "octo", "widgets")
	require.Error(t, err)
}

func TestSettingsStore_DisabledSkipsEditorLookup(t *testing.T) {
	gh := newFakeGitHub()
	gh.settingsIssue = &model.Issue{Number: 3, Title: model.SettingsIssueTitle, Body: `{"enableUnsafeFixes": false}`}
	gh.editorErr = errors.New("must not be called")

	snap, err := NewSettingsStore(nil).Load(context.Background(), gh, "octo", "widgets")
	require.NoError(t, err)
	assert.NoError(t, snap.EditorErr)
	assert.Nil(t, snap.LastEditor)
}

func TestSettingsStore_BackfillsEnabler(t *testing.T) {
	now := time.Date(2026, 6, 2, 9, 30, 0, 0, time.UTC)
	gh := newFakeGitHub()
	gh.settingsIssue = &model.Issue{
		Number: 3,
		Title:  model.SettingsIssueTitle,
		Body:   `{"enableUnsafeFixes": true, "note": "keep me"}`,
		Author: model.Actor{Login: "author", ID: 5},
	}
	gh.lastEditor = &model.Actor{Login: "admin-user", ID: 7}

	store := NewSettingsStore(func() time.Time { return now })
	snap, err := store.Load(context.Background(), gh, "octo", "widgets")
	require.NoError(t, err)

	// The event that triggered the backfill still sees the unattributed settings.
	assert.Nil(t, snap.Settings.UnsafeFixesEnabledBy)

	require.Len(t, gh.updatedBodies, 1)
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(gh.updatedBodies[0]), &raw))
	assert.Equal(t, "keep me", raw["note"])
	assert.Equal(t, true, raw["enableUnsafeFixes"])
	assert.Equal(t, "2026-06-02T09:30:00Z", raw["unsafeFixesEnabledAt"])

	rewritten := ParseSettings(gh.updatedBodies[0])
	require.NotNil(t, rewritten.UnsafeFixesEnabledBy)
	assert.Equal(t, "admin-user", rewritten.UnsafeFixesEnabledBy.Login)
	assert.Equal(t, int64(7), rewritten.UnsafeFixesEnabledBy.ID)
}

func TestSettingsStore_BackfillFallsBackToAuthor(t *testing.T) {
	gh := newFakeGitHub()
	gh.settingsIssue = &model.Issue{
		Number: 3,
		Title:  model.SettingsIssueTitle,
		Body:   `{"enableUnsafeFixes": true}`,
		Author: model.Actor{Login: "author", ID: 5},
	}

	_, err := NewSettingsStore(nil).Load(context.Background(), gh, "octo", "widgets")
	require.NoError(t, err)

	require.Len(t, gh.updatedBodies, 1)
	rewritten := ParseSettings(gh.updatedBodies[0])
	require.NotNil(t, rewritten.UnsafeFixesEnabledBy)
	assert.Equal(t, "author", rewritten.UnsafeFixesEnabledBy.Login)
}

func TestSettingsStore_BackfillSkipsBotEditor(t *testing.T) {
	gh := newFakeGitHub()
	gh.settingsIssue = &model.Issue{
		Number: 3,
		Title:  model.SettingsIssueTitle,
		Body:   `{"enableUnsafeFixes": true}`,
		Author: model.Actor{Login: "author", ID: 5},
	}
	gh.lastEditor = &model.Actor{Login: "pyautofix[bot]", ID: 900, Bot: true}

	_, err := NewSettingsStore(nil).Load(context.Background(), gh, "octo", "widgets")
	require.NoError(t, err)

	require.Len(t, gh.updatedBodies, 1)
	rewritten := ParseSettings(gh.updatedBodies[0])
	require.NotNil(t, rewritten.UnsafeFixesEnabledBy)
	assert.Equal(t, "author", rewritten.UnsafeFixesEnabledBy.Login)
}

func TestSettingsStore_BackfillFailureIsNotFatal(t *testing.T) {
	gh := newFakeGitHub()
	gh.settingsIssue = &model.Issue{Number: 3, Title: model.SettingsIssueTitle, Body: `{"enableUnsafeFixes": true}`, Author: model.Actor{Login: "author"}}
	gh.updateErr = errors.New("forbidden")

	snap, err := NewSettingsStore(nil).Load(context.Background(), gh, "octo", "widgets")
	require.NoError(t, err)
	assert.True(t, snap.Settings.EnableUnsafeFixes)
}

func TestSettingsStore_NoBackfillWhenAttributed(t *testing.T) {
	gh := newFakeGitHub()
	gh.settingsIssue = &model.Issue{
		Number: 3,
		Title:  model.SettingsIssueTitle,
		Body:   `{"enableUnsafeFixes": true, "unsafeFixesEnabledBy": {"login": "octocat", "id": 1}}`,
	}
	gh.lastEditor = &model.Actor{Login: "octocat", ID: 1}

	snap, err := NewSettingsStore(nil).Load(context.Background(), gh, "octo", "widgets")
	require.NoError(t, err)
	assert.Empty(t, gh.updatedBodies)
	require.NotNil(t, snap.LastEditor)
	assert.Equal(t, "octocat", snap.LastEditor.Login)
}

func TestSettingsStore_InitSettings(t *testing.T) {
	gh := newFakeGitHub()
	store := NewSettingsStore(nil)

	issue, created, err := store.InitSettings(context.Background(), gh, "octo", "widgets")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, model.SettingsIssueTitle, issue.Title)
	require.Len(t, gh.createdIssues, 1)
	assert.False(t, ParseSettings(gh.createdIssues[0]).EnableUnsafeFixes)

	gh.settingsIssue = issue
	again, created, err := store.InitSettings(context.Background(), gh, "octo", "widgets")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, issue.Number, again.Number)
	assert.Len(t, gh.createdIssues, 1)
}
