package application

import (
	"context"
	"strings"

	"github.com/chainguard-dev/clog"

	"github.com/ericfisherdev/pyautofix/internal/domain/model"
	"github.com/ericfisherdev/pyautofix/internal/domain/port/driven"
)

// SkipReasonNotAdmin is reported whenever unsafe fixes were requested but no
// repository admin could be verified as having enabled them.
const SkipReasonNotAdmin = "unsafe fixes requested but not enabled by a repo admin; skipping"

// AuthDecision is the outcome of resolving the unsafe-fix policy of one
// repository.
type AuthDecision struct {
	Requested     bool
	AdminVerified bool
	SkipReason    string
	// Enabler is the verified admin, set only when AdminVerified is true.
	Enabler *model.Actor
}

// UnsafeAllowed reports whether unsafe fixes may run: the installation must
// be on the pro plan, the repository must request them, and an admin must
// be verified as having enabled them.
func UnsafeAllowed(plan model.Plan, d AuthDecision) bool {
	return plan == model.PlanPro && d.Requested && d.AdminVerified
}

// Authorizer combines the settings issue with live permission lookups.
type Authorizer struct {
	settings *SettingsStore
	appBot   string
}

// NewAuthorizer creates an Authorizer reading settings through store.
// appBot is the App's own bot login ("<slug>[bot]"); edits it makes while
// backfilling the enabler do not count as a foreign edit. An empty appBot
// exempts no one.
func NewAuthorizer(store *SettingsStore, appBot string) *Authorizer {
	return &Authorizer{settings: store, appBot: appBot}
}

// Resolve decides whether unsafe fixes are requested and admin-enabled for
// owner/repo. Permission lookups go through perms. Every lookup failure
// resolves to "not verified".
//
// When the settings issue was edited by someone other than the recorded
// enabler, that editor must be an admin too, so rewriting the attribution
// by hand does not borrow an admin's name. The App's own backfill edit is
// the exception.
func (a *Authorizer) Resolve(ctx context.Context, gh driven.GitHub, perms driven.PermissionChecker, owner, repo string) AuthDecision {
	log := clog.FromContext(ctx)

	snap, err := a.settings.Load(ctx, gh, owner, repo)
	if err != nil {
		log.Warn("reading repository settings, using defaults", "error", err)
		return AuthDecision{}
	}
	if !snap.Settings.EnableUnsafeFixes {
		return AuthDecision{}
	}

	denied := AuthDecision{Requested: true, SkipReason: SkipReasonNotAdmin}

	enabler := snap.Settings.UnsafeFixesEnabledBy
	if enabler == nil {
		return denied
	}
	if snap.EditorErr != nil {
		return denied
	}

	if !isAdmin(ctx, perms, owner, repo, enabler.Login) {
		return denied
	}
	if editor := snap.LastEditor; editor != nil && !strings.EqualFold(editor.Login, enabler.Login) && !a.isAppBot(editor) {
		if !isAdmin(ctx, perms, owner, repo, editor.Login) {
			log.Warn("settings issue last edited by a non-admin", "editor", editor.Login, "enabler", enabler.Login)
			return denied
		}
	}

	return AuthDecision{Requested: true, AdminVerified: true, Enabler: enabler}
}

func (a *Authorizer) isAppBot(actor *model.Actor) bool {
	return actor.Bot && a.appBot != "" && strings.EqualFold(actor.Login, a.appBot)
}

func isAdmin(ctx context.Context, perms driven.PermissionChecker, owner, repo, login string) bool {
	level, err := perms.PermissionLevel(ctx, owner, repo, login)
	if err != nil {
		clog.FromContext(ctx).Warn("permission lookup failed", "login", login, "error", err)
		return false
	}
	return level == model.PermissionAdmin
}
