package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"golang.org/x/oauth2"

	"github.com/ericfisherdev/pyautofix/internal/domain/model"
	"github.com/ericfisherdev/pyautofix/internal/domain/port/driven"
)

// Pipeline stage names, in execution order.
const (
	StageClone  = "clone"
	StageTool   = "tool"
	StageFormat = "format"
	StageLint   = "lint-fix"
	StageIsort  = "isort"
	StageCommit = "commit"
	StageVerify = "verify"
)

// Summary texts.
const (
	SummaryPushed        = "Applied automatic fixes and pushed them to `%s`."
	SummaryClean         = "No fixes needed. Ruff format and lint checks pass."
	SummaryRemaining     = "Applied automatic fixes, but lint issues remain."
	SummaryUnfixable     = "Ruff reported issues that could not be fixed automatically."
	SummaryFormatFailed  = "ruff format failed. This usually means a file has a syntax error."
	SummaryToolMissing   = "ruff is not installed on the autofix runner."
	SuffixUnsafeEnabled  = "Unsafe fixes: enabled (Pro)."
	SuffixHiddenUpsell   = "Additional fixes are available with unsafe fixes (Pro plan, enabled by a repo admin)."
	DefaultCommitMessage = "style: apply automatic ruff fixes"
)

// StageError is a fatal pipeline failure attributed to one stage.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// PipelineConfig names the external tools and the commit message.
type PipelineConfig struct {
	RuffBin       string
	IsortBin      string
	PipBin        string
	CommitMessage string
}

// PipelineRequest is one run of the pipeline against a pull request.
type PipelineRequest struct {
	PR          model.PullRequestContext
	Token       oauth2.TokenSource
	UnsafeFixes bool
	// SkipReason explains why requested unsafe fixes were not applied.
	SkipReason string
}

// Runner runs the autofix pipeline. The orchestrator depends on this
// interface so it can be exercised without processes or git.
type Runner interface {
	Run(ctx context.Context, req PipelineRequest) (model.AutofixResult, error)
}

// Pipeline clones the head branch, applies ruff fixes, pushes them back and
// verifies the result.
type Pipeline struct {
	runner     driven.CommandRunner
	workspaces driven.WorkspaceFactory
	cfg        PipelineConfig
}

var _ Runner = (*Pipeline)(nil)

// NewPipeline creates a Pipeline. Empty config fields take their defaults.
func NewPipeline(runner driven.CommandRunner, workspaces driven.WorkspaceFactory, cfg PipelineConfig) *Pipeline {
	if cfg.RuffBin == "" {
		cfg.RuffBin = "ruff"
	}
	if cfg.IsortBin == "" {
		cfg.IsortBin = "isort"
	}
	if cfg.PipBin == "" {
		cfg.PipBin = "pip"
	}
	if cfg.CommitMessage == "" {
		cfg.CommitMessage = DefaultCommitMessage
	}
	return &Pipeline{runner: runner, workspaces: workspaces, cfg: cfg}
}

// Run executes every stage in order. A fatal stage failure is returned as
// *StageError; tool-reported failures are folded into the result. The
// workspace is removed before Run returns.
func (p *Pipeline) Run(ctx context.Context, req PipelineRequest) (model.AutofixResult, error) {
	log := clog.FromContext(ctx)
	start := time.Now()

	ws, err := p.workspaces.Create(ctx, model.WorkspaceSpec{
		RepoFullName: req.PR.HeadRepoFullName,
		Ref:          req.PR.HeadRef,
	}, req.Token)
	if err != nil {
		return model.AutofixResult{}, &StageError{Stage: StageClone, Err: err}
	}
	defer func() {
		if err := ws.Close(); err != nil {
			log.Warn("removing workspace", "dir", ws.Dir(), "error", err)
		}
	}()

	r := &pipelineRun{p: p, req: req, ws: ws}
	stages := []struct {
		name string
		fn   func(context.Context) (bool, error)
	}{
		{StageTool, r.checkTool},
		{StageFormat, r.format},
		{StageLint, r.lintFix},
		{StageIsort, r.isort},
		{StageCommit, r.commit},
		{StageVerify, r.verify},
	}

	for _, s := range stages {
		log.Debug("pipeline stage", "stage", s.name)
		stop, err := s.fn(ctx)
		if err != nil {
			return model.AutofixResult{}, &StageError{Stage: s.name, Err: err}
		}
		if stop {
			log.Info("pipeline stopped early", "stage", s.name)
			break
		}
	}

	result := r.result()
	log.Info("pipeline finished",
		"check", result.CheckConclusion,
		"applied", result.AppliedFixes,
		"unsafe", result.UnsafeFixesUsed,
		"duration", time.Since(start),
	)
	return result, nil
}

// pipelineRun is the state of one Pipeline.Run.
type pipelineRun struct {
	p   *Pipeline
	req PipelineRequest
	ws  driven.Workspace

	toolMissing  bool
	formatFailed bool
	lintRan      bool
	hidden       bool
	applied      bool
	commitSHA    string
	verified     bool
	details      []string
}

func (r *pipelineRun) command(name string, args ...string) model.Command {
	return model.Command{Name: name, Args: args, Dir: r.ws.Dir()}
}

func (r *pipelineRun) section(title string, res model.CommandResult) {
	out := strings.TrimSpace(res.Combined())
	if out == "" {
		return
	}
	r.details = append(r.details, fmt.Sprintf("**%s** (exit %d)\n\n```\n%s\n```", title, res.ExitCode, out))
}

func (r *pipelineRun) checkTool(ctx context.Context) (bool, error) {
	res, err := r.p.runner.Run(ctx, r.command(r.p.cfg.RuffBin, "--version"))
	if errors.Is(err, driven.ErrCommandNotFound) {
		r.toolMissing = true
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if !res.OK() {
		r.toolMissing = true
		r.section("ruff --version", res)
		return true, nil
	}
	clog.FromContext(ctx).Debug("ruff resolved", "version", strings.TrimSpace(res.Stdout))
	return false, nil
}

func (r *pipelineRun) format(ctx context.Context) (bool, error) {
	res, err := r.p.runner.Run(ctx, r.command(r.p.cfg.RuffBin, "format", "."))
	if err != nil {
		return false, err
	}
	if !res.OK() {
		r.formatFailed = true
		r.details = append(r.details, "ruff format failed.")
		r.section("ruff format", res)
		return true, nil
	}
	return false, nil
}

func (r *pipelineRun) lintFix(ctx context.Context) (bool, error) {
	args := []string{"check", ".", "--fix"}
	if r.req.UnsafeFixes {
		args = append(args, "--unsafe-fixes")
	}
	res, err := r.p.runner.Run(ctx, r.command(r.p.cfg.RuffBin, args...))
	if err != nil {
		return false, err
	}
	r.lintRan = true
	r.hidden = r.hidden || HasHiddenFixes(res.Combined())
	if !res.OK() {
		clog.FromContext(ctx).Info("lint issues remain after fix", "exit", res.ExitCode)
	}
	return false, nil
}

func (r *pipelineRun) isort(ctx context.Context) (bool, error) {
	log := clog.FromContext(ctx)

	file, ok := DetectIsortConfig(r.ws.Dir())
	if !ok {
		return false, nil
	}
	log.Info("isort configuration found", "file", file)

	if err := r.ensureIsort(ctx); err != nil {
		log.Warn("isort unavailable, skipping", "error", err)
		return false, nil
	}

	res, err := r.p.runner.Run(ctx, r.command(r.p.cfg.IsortBin, "."))
	switch {
	case err != nil:
		log.Warn("running isort", "error", err)
	case !res.OK():
		log.Warn("isort failed", "exit", res.ExitCode, "stderr", res.Stderr)
	}
	return false, nil
}

func (r *pipelineRun) ensureIsort(ctx context.Context) error {
	res, err := r.p.runner.Run(ctx, r.command(r.p.cfg.IsortBin, "--version"))
	if err == nil && res.OK() {
		return nil
	}
	if err != nil && !errors.Is(err, driven.ErrCommandNotFound) {
		return err
	}

	install := r.command(r.p.cfg.PipBin, "install", "isort")
	install.Check = true
	if _, err := r.p.runner.Run(ctx, install); err != nil {
		return fmt.Errorf("installing isort: %w", err)
	}
	return nil
}

func (r *pipelineRun) commit(ctx context.Context) (bool, error) {
	dirty, err := r.ws.HasChanges(ctx)
	if err != nil {
		return false, fmt.Errorf("reading working tree status: %w", err)
	}
	if !dirty {
		return false, nil
	}

	sha, err := r.ws.CommitAll(ctx, r.p.cfg.CommitMessage)
	if err != nil {
		return false, fmt.Errorf("committing fixes: %w", err)
	}
	if err := r.ws.Push(ctx); err != nil {
		return false, fmt.Errorf("pushing to %s: %w", r.req.PR.HeadRef, err)
	}

	r.applied = true
	r.commitSHA = sha
	clog.FromContext(ctx).Info("pushed fixes", "ref", r.req.PR.HeadRef, "commit", sha)
	return false, nil
}

func (r *pipelineRun) verify(ctx context.Context) (bool, error) {
	formatRes, err := r.p.runner.Run(ctx, r.command(r.p.cfg.RuffBin, "format", "--check", "."))
	if err != nil {
		return false, err
	}
	checkRes, err := r.p.runner.Run(ctx, r.command(r.p.cfg.RuffBin, "check", "."))
	if err != nil {
		return false, err
	}

	r.hidden = r.hidden || HasHiddenFixes(checkRes.Combined())
	r.verified = formatRes.OK() && checkRes.OK()
	if !formatRes.OK() {
		r.section("ruff format --check", formatRes)
	}
	if !checkRes.OK() {
		r.section("ruff check", checkRes)
	}
	return false, nil
}

// result maps the run to both check conclusions. The autofix run reports
// success whenever the pipeline actually ran, even if nothing could be
// fixed. A missing ruff is the one exception: nothing ran, so the autofix
// run is neutral rather than a success it did not earn, and no suffix is
// appended to the not-installed message. Neutral is one of the two
// conclusions the autofix run may carry, alongside success.
func (r *pipelineRun) result() model.AutofixResult {
	res := model.AutofixResult{
		CheckConclusion:      model.ConclusionFailure,
		AutofixConclusion:    model.ConclusionSuccess,
		AppliedFixes:         r.applied,
		UnsafeFixesUsed:      r.req.UnsafeFixes && r.lintRan,
		HiddenFixesAvailable: r.hidden,
		CommitSHA:            r.commitSHA,
		Details:              strings.Join(r.details, "\n\n"),
	}

	switch {
	case r.toolMissing:
		res.AutofixConclusion = model.ConclusionNeutral
		res.Summary = SummaryToolMissing
		return res
	case r.formatFailed:
		res.Summary = SummaryFormatFailed
	case r.verified && r.applied:
		res.CheckConclusion = model.ConclusionSuccess
		res.Summary = fmt.Sprintf(SummaryPushed, r.req.PR.HeadRef)
	case r.verified:
		res.CheckConclusion = model.ConclusionSuccess
		res.Summary = SummaryClean
	case r.applied:
		res.Summary = SummaryRemaining
	default:
		res.Summary = SummaryUnfixable
	}

	if suffix := summarySuffix(res.UnsafeFixesUsed, r.req.SkipReason, res.HiddenFixesAvailable); suffix != "" {
		res.Summary += " " + suffix
	}
	return res
}

// summarySuffix picks at most one note, in priority order.
func summarySuffix(unsafeUsed bool, skipReason string, hidden bool) string {
	switch {
	case unsafeUsed:
		return SuffixUnsafeEnabled
	case skipReason != "":
		return skipReason
	case hidden:
		return SuffixHiddenUpsell
	}
	return ""
}

// HasHiddenFixes reports whether ruff output announces fixes that are only
// applied with --unsafe-fixes, as in "1 hidden fix can be enabled with the
// `--unsafe-fixes` option".
func HasHiddenFixes(output string) bool {
	lower := strings.ToLower(output)
	return strings.Contains(lower, "hidden fix") && strings.Contains(lower, "--unsafe-fixes")
}
