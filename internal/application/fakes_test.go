package application

import (
	"context"
	"errors"
	"sync"

	"github.com/stretchr/testify/mock"
	"golang.org/x/oauth2"

	"github.com/ericfisherdev/pyautofix/internal/domain/model"
	"github.com/ericfisherdev/pyautofix/internal/domain/port/driven"
)

// fakeGitHub is an in-memory driven.GitHub that records writes.
type fakeGitHub struct {
	mu sync.Mutex

	files    []string
	filesErr error

	pulls map[int]model.PullRequestPayload

	settingsIssue *model.Issue
	findErr       error
	lastEditor    *model.Actor
	editorErr     error
	updateErr     error
	updatedBodies []string
	createdIssues []string

	permissions   map[string]string
	permissionErr error

	createErr map[model.CheckRunName]error
	nextID    int64
	created   []model.CheckRunName
	completed map[model.CheckRunName]model.CheckOutcome

	commentErr error
	comments   []string
}

var _ driven.GitHub = (*fakeGitHub)(nil)

func newFakeGitHub() *fakeGitHub {
	return &fakeGitHub{
		pulls:       map[int]model.PullRequestPayload{},
		permissions: map[string]string{},
		createErr:   map[model.CheckRunName]error{},
		completed:   map[model.CheckRunName]model.CheckOutcome{},
	}
}

func (f *fakeGitHub) PermissionLevel(_ context.Context, _, _, login string) (string, error) {
	if f.permissionErr != nil {
		return "", f.permissionErr
	}
	if level, ok := f.permissions[login]; ok {
		return level, nil
	}
	return "read", nil
}

func (f *fakeGitHub) ListPullRequestFiles(context.Context, string, string, int) ([]string, error) {
	return f.files, f.filesErr
}

func (f *fakeGitHub) GetPullRequest(_ context.Context, _, _ string, number int) (model.PullRequestPayload, error) {
	p, ok := f.pulls[number]
	if !ok {
		return model.PullRequestPayload{}, &driven.APIError{Op: "get pull request", StatusCode: 404, Err: errors.New("Not Found")}
	}
	return p, nil
}

func (f *fakeGitHub) FindOpenIssueByTitle(_ context.Context, _, _, title string) (*model.Issue, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.settingsIssue != nil && f.settingsIssue.Title == title {
		issue := *f.settingsIssue
		return &issue, nil
	}
	return nil, nil
}

func (f *fakeGitHub) IssueLastEditor(context.Context, string, string, int) (*model.Actor, error) {
	return f.lastEditor, f.editorErr
}

func (f *fakeGitHub) CreateCheckRun(_ context.Context, _, _ string, name model.CheckRunName, _ string, _ model.CheckOutput) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.createErr[name]; err != nil {
		return 0, err
	}
	f.nextID++
	f.created = append(f.created, name)
	return f.nextID, nil
}

func (f *fakeGitHub) CompleteCheckRun(_ context.Context, _, _ string, _ int64, name model.CheckRunName, outcome model.CheckOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed[name] = outcome
	return nil
}

func (f *fakeGitHub) CreateIssueComment(_ context.Context, _, _ string, _ int, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commentErr != nil {
		return f.commentErr
	}
	f.comments = append(f.comments, body)
	return nil
}

func (f *fakeGitHub) CreateIssue(_ context.Context, _, _, title, body string) (*model.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdIssues = append(f.createdIssues, body)
	return &model.Issue{Number: 99, Title: title, Body: body}, nil
}

func (f *fakeGitHub) UpdateIssueBody(_ context.Context, _, _ string, _ int, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updatedBodies = append(f.updatedBodies, body)
	return nil
}

// mockPermissions is a testify mock of driven.PermissionChecker.
type mockPermissions struct {
	mock.Mock
}

func (m *mockPermissions) PermissionLevel(ctx context.Context, owner, repo, login string) (string, error) {
	args := m.Called(ctx, owner, repo, login)
	return args.String(0), args.Error(1)
}

// fakeRunner answers commands from a table keyed by the command line.
type fakeRunner struct {
	mu       sync.Mutex
	results  map[string]model.CommandResult
	errs     map[string]error
	commands []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{results: map[string]model.CommandResult{}, errs: map[string]error{}}
}

func (r *fakeRunner) on(cmdline string, res model.CommandResult) *fakeRunner {
	r.results[cmdline] = res
	return r
}

func (r *fakeRunner) fail(cmdline string, err error) *fakeRunner {
	r.errs[cmdline] = err
	return r
}

func (r *fakeRunner) Run(_ context.Context, cmd model.Command) (model.CommandResult, error) {
	line := cmd.String()

	r.mu.Lock()
	r.commands = append(r.commands, line)
	r.mu.Unlock()

	if err := r.errs[line]; err != nil {
		return model.CommandResult{ExitCode: -1}, err
	}
	res := r.results[line]
	if cmd.Check && !res.OK() {
		return res, &driven.ExitError{Command: line, Result: res}
	}
	return res, nil
}

func (r *fakeRunner) ran(cmdline string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.commands {
		if c == cmdline {
			return true
		}
	}
	return false
}

// fakeWorkspace is a driven.Workspace over a plain directory.
type fakeWorkspace struct {
	dir       string
	dirty     bool
	commitErr error
	pushErr   error
	committed []string
	pushed    bool
	closed    bool
}

func (w *fakeWorkspace) Dir() string { return w.dir }

func (w *fakeWorkspace) HasChanges(context.Context) (bool, error) { return w.dirty, nil }

func (w *fakeWorkspace) CommitAll(_ context.Context, message string) (string, error) {
	if w.commitErr != nil {
		return "", w.commitErr
	}
	w.committed = append(w.committed, message)
	return "c0ffee", nil
}

func (w *fakeWorkspace) Push(context.Context) error {
	if w.pushErr != nil {
		return w.pushErr
	}
	w.pushed = true
	return nil
}

func (w *fakeWorkspace) Close() error {
	w.closed = true
	return nil
}

type fakeWorkspaces struct {
	ws    *fakeWorkspace
	err   error
	specs []model.WorkspaceSpec
}

func (f *fakeWorkspaces) Create(_ context.Context, spec model.WorkspaceSpec, _ oauth2.TokenSource) (driven.Workspace, error) {
	f.specs = append(f.specs, spec)
	if f.err != nil {
		return nil, f.err
	}
	return f.ws, nil
}

// fakeInstallations hands out one installation backed by gh.
type fakeInstallations struct {
	gh  *fakeGitHub
	err error
}

func (f *fakeInstallations) Installation(_ context.Context, id int64) (*driven.Installation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &driven.Installation{
		ID:     id,
		GitHub: f.gh,
		Token:  oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "ghs_testtoken"}),
	}, nil
}

// fakePipeline returns a canned result and records requests.
type fakePipeline struct {
	mu       sync.Mutex
	result   model.AutofixResult
	err      error
	panicMsg string
	requests []PipelineRequest
}

func (p *fakePipeline) Run(_ context.Context, req PipelineRequest) (model.AutofixResult, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()
	if p.panicMsg != "" {
		panic(p.panicMsg)
	}
	return p.result, p.err
}

// recordingUsage collects usage records.
type recordingUsage struct {
	mu      sync.Mutex
	records []model.UsageRecord
}

func (u *recordingUsage) Record(_ context.Context, rec model.UsageRecord) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.records = append(u.records, rec)
	return nil
}

type staticPlans model.Plan

func (p staticPlans) PlanFor(int64) model.Plan { return model.Plan(p) }
