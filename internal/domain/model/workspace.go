package model

// WorkspaceSpec describes which branch of which repository a workspace holds.
type WorkspaceSpec struct {
	RepoFullName string // head repository, owner/name
	Ref          string // head branch name
}
