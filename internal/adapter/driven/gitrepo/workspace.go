// Package gitrepo implements the Workspace port with go-git. Each workspace
// is a single-branch clone in its own temporary directory.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"golang.org/x/oauth2"

	"github.com/ericfisherdev/pyautofix/internal/domain/model"
	"github.com/ericfisherdev/pyautofix/internal/domain/port/driven"
)

const cloneDirPrefix = "pyautofix-"

// Compile-time interface satisfaction checks.
var (
	_ driven.WorkspaceFactory = (*Factory)(nil)
	_ driven.Workspace        = (*Workspace)(nil)
)

// Identity is the commit author and committer.
type Identity struct {
	Name  string
	Email string
}

// Factory clones pull request head branches into temporary directories.
type Factory struct {
	baseDir  string
	identity Identity
	// remoteURL maps a head repository full name to its clone URL.
	remoteURL func(repoFullName string) string
}

// Option configures a Factory.
type Option func(*Factory)

// WithBaseDir places workspaces under dir instead of os.TempDir().
func WithBaseDir(dir string) Option {
	return func(f *Factory) { f.baseDir = dir }
}

// WithRemoteURL overrides how clone URLs are built. Tests point it at local
// repositories.
func WithRemoteURL(fn func(repoFullName string) string) Option {
	return func(f *Factory) { f.remoteURL = fn }
}

// WithGitHubHost builds clone URLs against a GitHub Enterprise host.
func WithGitHubHost(host string) Option {
	return func(f *Factory) {
		f.remoteURL = func(repoFullName string) string {
			return fmt.Sprintf("https://%s/%s.git", host, repoFullName)
		}
	}
}

// NewFactory returns a Factory that commits as identity.
func NewFactory(identity Identity, opts ...Option) *Factory {
	f := &Factory{
		identity: identity,
		remoteURL: func(repoFullName string) string {
			return fmt.Sprintf("https://github.com/%s.git", repoFullName)
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Workspace is a checked-out branch in a directory it owns.
type Workspace struct {
	dir      string
	ref      plumbing.ReferenceName
	repo     *git.Repository
	token    oauth2.TokenSource
	identity Identity
}

// Create clones spec.Ref of spec.RepoFullName, fetches the branch tip again
// and hard-resets the local branch onto it. The directory is removed if any
// step fails.
func (f *Factory) Create(ctx context.Context, spec model.WorkspaceSpec, token oauth2.TokenSource) (driven.Workspace, error) {
	dir, err := os.MkdirTemp(f.baseDir, cloneDirPrefix)
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}

	ws, err := f.clone(ctx, dir, spec, token)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	return ws, nil
}

func (f *Factory) clone(ctx context.Context, dir string, spec model.WorkspaceSpec, token oauth2.TokenSource) (*Workspace, error) {
	remote := f.remoteURL(spec.RepoFullName)
	ref := plumbing.NewBranchReferenceName(spec.Ref)
	clog.FromContext(ctx).Info("cloning head branch", "repo", spec.RepoFullName, "ref", spec.Ref, "dir", dir)

	auth, err := basicAuth(token)
	if err != nil {
		return nil, fmt.Errorf("getting token: %w", err)
	}

	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           remote,
		ReferenceName: ref,
		SingleBranch:  true,
		Auth:          auth,
	})
	if err != nil {
		return nil, remoteError("cloning repository", err)
	}

	err = repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: git.DefaultRemoteName,
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec(fmt.Sprintf("+%s:refs/remotes/origin/%s", ref, spec.Ref))},
		Auth:       auth,
		Force:      true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil, remoteError("fetching head ref", err)
	}

	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName(git.DefaultRemoteName, spec.Ref), true)
	if err != nil {
		return nil, fmt.Errorf("resolving origin/%s: %w", spec.Ref, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("getting worktree: %w", err)
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Branch: ref, Force: true}); err != nil {
		return nil, fmt.Errorf("checking out %s: %w", spec.Ref, err)
	}
	if err := worktree.Reset(&git.ResetOptions{Commit: remoteRef.Hash(), Mode: git.HardReset}); err != nil {
		return nil, fmt.Errorf("resetting to origin/%s: %w", spec.Ref, err)
	}

	return &Workspace{
		dir:      dir,
		ref:      ref,
		repo:     repo,
		token:    token,
		identity: f.identity,
	}, nil
}

// Dir returns the working tree root.
func (w *Workspace) Dir() string { return w.dir }

// HasChanges reports whether any tracked or untracked file differs from HEAD.
func (w *Workspace) HasChanges(_ context.Context) (bool, error) {
	worktree, err := w.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("getting worktree: %w", err)
	}
	status, err := worktree.Status()
	if err != nil {
		return false, fmt.Errorf("computing status: %w", err)
	}
	return !status.IsClean(), nil
}

// CommitAll stages all changes and commits them as the factory identity.
func (w *Workspace) CommitAll(_ context.Context, message string) (string, error) {
	worktree, err := w.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("getting worktree: %w", err)
	}

	if err := worktree.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", fmt.Errorf("staging changes: %w", err)
	}

	sig := &object.Signature{Name: w.identity.Name, Email: w.identity.Email, When: time.Now()}
	hash, err := worktree.Commit(message, &git.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		return "", fmt.Errorf("committing: %w", err)
	}
	return hash.String(), nil
}

// Push sends the local branch to the branch of the same name on origin.
func (w *Workspace) Push(ctx context.Context) error {
	auth, err := basicAuth(w.token)
	if err != nil {
		return fmt.Errorf("getting token: %w", err)
	}

	refSpec := gitconfig.RefSpec(fmt.Sprintf("%s:%s", w.ref, w.ref))
	clog.FromContext(ctx).Info("pushing fixes", "refspec", refSpec.String())

	err = w.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: git.DefaultRemoteName,
		RefSpecs:   []gitconfig.RefSpec{refSpec},
		Auth:       auth,
		Force:      false,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return remoteError("pushing", err)
	}
	return nil
}

// Close removes the workspace directory.
func (w *Workspace) Close() error {
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("removing workspace %s: %w", w.dir, err)
	}
	return nil
}

func basicAuth(token oauth2.TokenSource) (transport.AuthMethod, error) {
	if token == nil {
		return nil, nil
	}
	tok, err := token.Token()
	if err != nil {
		return nil, err
	}
	return &githttp.BasicAuth{
		Username: "x-access-token",
		Password: tok.AccessToken,
	}, nil
}

// remoteError maps go-git transport sentinels onto HTTP-like status codes so
// they classify the same way as REST failures.
func remoteError(op string, err error) error {
	status := 0
	switch {
	case errors.Is(err, transport.ErrAuthenticationRequired):
		status = 401
	case errors.Is(err, transport.ErrAuthorizationFailed):
		status = 403
	case errors.Is(err, transport.ErrRepositoryNotFound):
		status = 404
	}
	return &driven.APIError{Op: op, StatusCode: status, Err: err}
}
