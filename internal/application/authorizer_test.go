package application

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/pyautofix/internal/domain/model"
)

func settingsGitHub(body string, editor *model.Actor) *fakeGitHub {
	gh := newFakeGitHub()
	gh.settingsIssue = &model.Issue{Number: 1, Title: model.SettingsIssueTitle, Body: body}
	gh.lastEditor = editor
	return gh
}

const attributedBody = `{"enableUnsafeFixes": %t, "unsafeFixesEnabledBy": {"login": "octocat", "id": 1}}`

func TestUnsafeAllowed_Matrix(t *testing.T) {
	octocat := &model.Actor{Login: "octocat", ID: 1}

	for _, plan := range []model.Plan{model.PlanFree, model.PlanPro} {
		for _, enabled := range []bool{false, true} {
			for _, admin := range []bool{false, true} {
				name := fmt.Sprintf("plan=%s/enabled=%t/admin=%t", plan, enabled, admin)
				t.Run(name, func(t *testing.T) {
					gh := settingsGitHub(fmt.Sprintf(attributedBody, enabled), octocat)

					level := "write"
					if admin {
						level = model.PermissionAdmin
					}
					perms := &mockPermissions{}
					perms.On("PermissionLevel", mock.Anything, "octo", "widgets", "octocat").Return(level, nil)

					auth := NewAuthorizer(NewSettingsStore(nil), "")
					d := auth.Resolve(context.Background(), gh, perms, "octo", "widgets")

					want := plan == model.PlanPro && enabled && admin
					assert.Equal(t, want, UnsafeAllowed(plan, d))
					assert.Equal(t, enabled, d.Requested)

					if !enabled {
						perms.AssertNotCalled(t, "PermissionLevel", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
						assert.Empty(t, d.SkipReason)
						return
					}
					perms.AssertExpectations(t)
					if admin {
						assert.Empty(t, d.SkipReason)
					} else {
						assert.Equal(t, SkipReasonNotAdmin, d.SkipReason)
					}
				})
			}
		}
	}
}

func TestAuthorizer_LookupErrorFailsClosed(t *testing.T) {
	gh := settingsGitHub(fmt.Sprintf(attributedBody, true), nil)
	perms := &mockPermissions{}
	perms.On("PermissionLevel", mock.Anything, "octo", "widgets", "octocat").Return("", errors.New("502 bad gateway"))

	d := NewAuthorizer(NewSettingsStore(nil), "").Resolve(context.Background(), gh, perms, "octo", "widgets")

	assert.True(t, d.Requested)
	assert.False(t, d.AdminVerified)
	assert.Equal(t, SkipReasonNotAdmin, d.SkipReason)
	assert.False(t, UnsafeAllowed(model.PlanPro, d))
}

func TestAuthorizer_NoEnabler(t *testing.T) {
	gh := settingsGitHub(`{"enableUnsafeFixes": true}`, nil)
	perms := &mockPermissions{}

	d := NewAuthorizer(NewSettingsStore(nil), "").Resolve(context.Background(), gh, perms, "octo", "widgets")

	assert.True(t, d.Requested)
	assert.False(t, d.AdminVerified)
	assert.Equal(t, SkipReasonNotAdmin, d.SkipReason)
	perms.AssertNotCalled(t, "PermissionLevel", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthorizer_NonAdminEditorDenied(t *testing.T) {
	gh := settingsGitHub(fmt.Sprintf(attributedBody, true), &model.Actor{Login: "mallory", ID: 66})
	perms := &mockPermissions{}
	perms.On("PermissionLevel", mock.Anything, "octo", "widgets", "octocat").Return(model.PermissionAdmin, nil)
	perms.On("PermissionLevel", mock.Anything, "octo", "widgets", "mallory").Return("write", nil)

	d := NewAuthorizer(NewSettingsStore(nil), "").Resolve(context.Background(), gh, perms, "octo", "widgets")

	assert.False(t, d.AdminVerified)
	assert.Equal(t, SkipReasonNotAdmin, d.SkipReason)
	perms.AssertExpectations(t)
}

func TestAuthorizer_AdminEditorAllowed(t *testing.T) {
	gh := settingsGitHub(fmt.Sprintf(attributedBody, true), &model.Actor{Login: "other-admin", ID: 8})
	perms := &mockPermissions{}
	perms.On("PermissionLevel", mock.Anything, "octo", "widgets", "octocat").Return(model.PermissionAdmin, nil)
	perms.On("PermissionLevel", mock.Anything, "octo", "widgets", "other-admin").Return(model.PermissionAdmin, nil)

	d := NewAuthorizer(NewSettingsStore(nil), "").Resolve(context.Background(), gh, perms, "octo", "widgets")

	assert.True(t, d.AdminVerified)
	assert.Equal(t, "octocat", d.Enabler.Login)
}

func TestAuthorizer_BackfillThenVerify(t *testing.T) {
	const appBot = "pyautofix[bot]"

	gh := newFakeGitHub()
	gh.settingsIssue = &model.Issue{Number: 1, Title: model.SettingsIssueTitle, Body: `{"enableUnsafeFixes": true}`}
	gh.lastEditor = &model.Actor{Login: "alice", ID: 10}
	perms := &mockPermissions{}
	perms.On("PermissionLevel", mock.Anything, "octo", "widgets", "alice").Return(model.PermissionAdmin, nil)

	auth := NewAuthorizer(NewSettingsStore(nil), appBot)

	// First event: unattributed, so it is denied and the enabler is backfilled.
	first := auth.Resolve(context.Background(), gh, perms, "octo", "widgets")
	assert.False(t, first.AdminVerified)
	require.Len(t, gh.updatedBodies, 1)

	// The backfill was the App's own edit.
	gh.settingsIssue.Body = gh.updatedBodies[0]
	gh.lastEditor = &model.Actor{Login: appBot, ID: 900, Bot: true}

	second := auth.Resolve(context.Background(), gh, perms, "octo", "widgets")
	assert.True(t, second.AdminVerified)
	assert.Empty(t, second.SkipReason)
	require.NotNil(t, second.Enabler)
	assert.Equal(t, "alice", second.Enabler.Login)
	assert.True(t, UnsafeAllowed(model.PlanPro, second))
	perms.AssertNotCalled(t, "PermissionLevel", mock.Anything, "octo", "widgets", appBot)
}

func TestAuthorizer_ForeignBotEditorDenied(t *testing.T) {
	gh := settingsGitHub(fmt.Sprintf(attributedBody, true), &model.Actor{Login: "other-app[bot]", ID: 901, Bot: true})
	perms := &mockPermissions{}
	perms.On("PermissionLevel", mock.Anything, "octo", "widgets", "octocat").Return(model.PermissionAdmin, nil)
	perms.On("PermissionLevel", mock.Anything, "octo", "widgets", "other-app[bot]").Return("write", nil)

	d := NewAuthorizer(NewSettingsStore(nil), "pyautofix[bot]").Resolve(context.Background(), gh, perms, "octo", "widgets")

	assert.False(t, d.AdminVerified)
	assert.Equal(t, SkipReasonNotAdmin, d.SkipReason)
	perms.AssertExpectations(t)
}

func TestAuthorizer_EditorCaseInsensitive(t *testing.T) {
	gh := settingsGitHub(fmt.Sprintf(attributedBody, true), &model.Actor{Login: "OctoCat", ID: 1})
	perms := &mockPermissions{}
	perms.On("PermissionLevel", mock.Anything, "octo", "widgets", "octocat").Return(model.PermissionAdmin, nil).Once()

	d := NewAuthorizer(NewSettingsStore(nil), "").Resolve(context.Background(), gh, perms, "octo", "widgets")

	assert.True(t, d.AdminVerified)
	perms.AssertNumberOfCalls(t, "PermissionLevel", 1)
}

func TestAuthorizer_EditorLookupErrorFailsClosed(t *testing.T) {
	gh := settingsGitHub(fmt.Sprintf(attributedBody, true), nil)
	gh.editorErr = errors.New("graphql unavailable")
	perms := &mockPermissions{}

	d := NewAuthorizer(NewSettingsStore(nil), "").Resolve(context.Background(), gh, perms, "octo", "widgets")

	assert.False(t, d.AdminVerified)
	assert.Equal(t, SkipReasonNotAdmin, d.SkipReason)
	perms.AssertNotCalled(t, "PermissionLevel", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthorizer_SettingsReadErrorDisables(t *testing.T) {
	gh := newFakeGitHub()
	gh.findErr = errors.New("boom")
	perms := &mockPermissions{}

	d := NewAuthorizer(NewSettingsStore(nil), "").Resolve(context.Background(), gh, perms, "octo", "widgets")

	assert.Equal(t, AuthDecision{}, d)
}
