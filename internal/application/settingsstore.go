package application

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"

	"github.com/ericfisherdev/pyautofix/internal/domain/model"
	"github.com/ericfisherdev/pyautofix/internal/domain/port/driven"
)

// Keys of the settings issue JSON body.
const (
	keyEnableUnsafeFixes    = "enableUnsafeFixes"
	keyUnsafeFixesEnabledBy = "unsafeFixesEnabledBy"
	keyUnsafeFixesEnabledAt = "unsafeFixesEnabledAt"
)

// SettingsSnapshot is what one read of the settings issue produced.
type SettingsSnapshot struct {
	Settings model.RepoSettings
	// Issue is nil when the repository has no settings issue.
	Issue *model.Issue
	// LastEditor is who last edited the issue body, populated only when
	// unsafe fixes are enabled. Nil means the body was never edited or the
	// lookup failed, in which case EditorErr is set.
	LastEditor *model.Actor
	EditorErr  error
}

// SettingsStore reads and maintains the per-repository settings issue.
type SettingsStore struct {
	now func() time.Time
}

// NewSettingsStore creates a SettingsStore. A nil now uses time.Now.
func NewSettingsStore(now func() time.Time) *SettingsStore {
	if now == nil {
		now = time.Now
	}
	return &SettingsStore{now: now}
}

// Load reads the settings issue of owner/repo. A missing issue yields the
// disabled defaults. When unsafe fixes are enabled without an attributed
// enabler, the attribution is backfilled from the issue's last editor and
// written back, but the returned snapshot keeps the settings as read so the
// current event is still treated as unattributed.
func (s *SettingsStore) Load(ctx context.Context, gh driven.GitHub, owner, repo string) (SettingsSnapshot, error) {
	issue, err := gh.FindOpenIssueByTitle(ctx, owner, repo, model.SettingsIssueTitle)
	if err != nil {
		return SettingsSnapshot{}, fmt.Errorf("finding settings issue: %w", err)
	}
	if issue == nil {
		return SettingsSnapshot{}, nil
	}

	snap := SettingsSnapshot{
		Settings: ParseSettings(issue.Body),
		Issue:    issue,
	}
	if !snap.Settings.EnableUnsafeFixes {
		return snap, nil
	}

	snap.LastEditor, snap.EditorErr = gh.IssueLastEditor(ctx, owner, repo, issue.Number)
	if snap.EditorErr != nil {
		clog.FromContext(ctx).Warn("looking up settings issue editor", "issue", issue.Number, "error", snap.EditorErr)
	}

	if snap.Settings.UnsafeFixesEnabledBy == nil && snap.EditorErr == nil {
		s.backfill(ctx, gh, owner, repo, issue, snap.LastEditor)
	}

	return snap, nil
}

// backfill records who enabled unsafe fixes. A bot editor is never recorded;
// the issue author is used instead. Failures are logged only.
func (s *SettingsStore) backfill(ctx context.Context, gh driven.GitHub, owner, repo string, issue *model.Issue, editor *model.Actor) {
	enabler := editor
	if enabler == nil || enabler.Bot {
		enabler = &issue.Author
	}
	if enabler.Login == "" {
		return
	}

	body, err := withAttribution(issue.Body, *enabler, s.now().UTC())
	if err != nil {
		clog.FromContext(ctx).Warn("rewriting settings issue body", "issue", issue.Number, "error", err)
		return
	}
	if err := gh.UpdateIssueBody(ctx, owner, repo, issue.Number, body); err != nil {
		clog.FromContext(ctx).Warn("backfilling unsafe fixes enabler", "issue", issue.Number, "error", err)
		return
	}
	clog.FromContext(ctx).Info("recorded unsafe fixes enabler", "issue", issue.Number, "enabler", enabler.Login)
}

// InitSettings creates the settings issue with disabled defaults unless one
// is already open. It reports whether an issue was created.
func (s *SettingsStore) InitSettings(ctx context.Context, gh driven.GitHub, owner, repo string) (*model.Issue, bool, error) {
	existing, err := gh.FindOpenIssueByTitle(ctx, owner, repo, model.SettingsIssueTitle)
	if err != nil {
		return nil, false, fmt.Errorf("finding settings issue: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	body, err := json.MarshalIndent(model.RepoSettings{}, "", "  ")
	if err != nil {
		return nil, false, fmt.Errorf("encoding default settings: %w", err)
	}
	issue, err := gh.CreateIssue(ctx, owner, repo, model.SettingsIssueTitle, string(body))
	if err != nil {
		return nil, false, fmt.Errorf("creating settings issue: %w", err)
	}
	return issue, true, nil
}

// ParseSettings decodes a settings issue body. Each field is read on its
// own; a missing or malformed field keeps its disabled default, and a body
// that is not a JSON object yields the defaults entirely.
func ParseSettings(body string) model.RepoSettings {
	var settings model.RepoSettings

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &raw); err != nil {
		return settings
	}

	if v, ok := raw[keyEnableUnsafeFixes]; ok {
		var enabled bool
		if json.Unmarshal(v, &enabled) == nil {
			settings.EnableUnsafeFixes = enabled
		}
	}

	if v, ok := raw[keyUnsafeFixesEnabledBy]; ok {
		var actor model.Actor
		if json.Unmarshal(v, &actor) == nil && strings.TrimSpace(actor.Login) != "" {
			settings.UnsafeFixesEnabledBy = &actor
		}
	}

	if v, ok := raw[keyUnsafeFixesEnabledAt]; ok {
		var s string
		if json.Unmarshal(v, &s) == nil {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				settings.UnsafeFixesEnabledAt = &t
			}
		}
	}

	return settings
}

// withAttribution sets the enabler fields in body, leaving every other key
// as it was.
func withAttribution(body string, enabler model.Actor, at time.Time) (string, error) {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &raw); err != nil {
		return "", fmt.Errorf("decoding settings body: %w", err)
	}

	by, err := json.Marshal(enabler)
	if err != nil {
		return "", err
	}
	stamp, err := json.Marshal(at.Format(time.RFC3339))
	if err != nil {
		return "", err
	}
	raw[keyUnsafeFixesEnabledBy] = by
	raw[keyUnsafeFixesEnabledAt] = stamp

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(raw); err != nil {
		return "", fmt.Errorf("encoding settings body: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
