package driven

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/ericfisherdev/pyautofix/internal/domain/model"
)

// Workspace is a private working copy of one branch.
type Workspace interface {
	// Dir is the root of the working tree.
	Dir() string
	// HasChanges reports whether the working tree differs from HEAD.
	HasChanges(ctx context.Context) (bool, error)
	// CommitAll stages every change and commits it, returning the new commit hash.
	CommitAll(ctx context.Context, message string) (string, error)
	// Push publishes the workspace branch to the same branch on origin.
	// It never force-pushes.
	Push(ctx context.Context) error
	// Close removes the working copy from disk.
	Close() error
}

// WorkspaceFactory creates workspaces. Create must leave nothing on disk
// when it fails.
type WorkspaceFactory interface {
	Create(ctx context.Context, spec model.WorkspaceSpec, token oauth2.TokenSource) (Workspace, error)
}
