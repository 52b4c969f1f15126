package driven

import (
	"context"

	"golang.org/x/oauth2"
)

// Installation bundles the API client and git credential of one GitHub App
// installation.
type Installation struct {
	ID     int64
	GitHub GitHub
	// Token yields short-lived installation access tokens for git transport.
	Token oauth2.TokenSource
}

// InstallationProvider exchanges an installation id for scoped credentials.
type InstallationProvider interface {
	Installation(ctx context.Context, installationID int64) (*Installation, error)
}
