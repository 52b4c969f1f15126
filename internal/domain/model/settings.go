package model

import "time"

// SettingsIssueTitle is the exact title of the issue whose body stores a
// repository's RepoSettings as JSON.
const SettingsIssueTitle = "Python Autofix Pro Settings"

// PermissionAdmin is the repository permission level required to enable
// unsafe fixes.
const PermissionAdmin = "admin"

// Actor is a GitHub user referenced by login and numeric id.
type Actor struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
	// Bot is set for GitHub App accounts. It is never stored in the settings body.
	Bot bool `json:"-"`
}

// RepoSettings is the per-repository configuration read from the settings
// issue. The zero value is the all-disabled default.
type RepoSettings struct {
	EnableUnsafeFixes    bool       `json:"enableUnsafeFixes"`
	UnsafeFixesEnabledBy *Actor     `json:"unsafeFixesEnabledBy"`
	UnsafeFixesEnabledAt *time.Time `json:"unsafeFixesEnabledAt"`
}

// Issue is the subset of a GitHub issue the settings store works with.
type Issue struct {
	Number int
	Title  string
	Body   string
	Author Actor
}
