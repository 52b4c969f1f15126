package application

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"

	"github.com/ericfisherdev/pyautofix/internal/domain/model"
	"github.com/ericfisherdev/pyautofix/internal/domain/port/driven"
)

// SummarySkipped is reported on both check runs when a pull request touches
// no Python files.
const SummarySkipped = "Skipped: no Python changes."

// PlanLookup resolves the plan of an installation.
type PlanLookup interface {
	PlanFor(installationID int64) model.Plan
}

// OrchestratorDeps are the collaborators of an Orchestrator.
type OrchestratorDeps struct {
	Installations      driven.InstallationProvider
	Plans              PlanLookup
	Authorizer         *Authorizer
	Pipeline           Runner
	Ledger             *CommentLedger
	Usage              driven.UsageRecorder
	TroubleshootingURL string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Orchestrator drives one webhook event from validation to finalized check
// runs. A single Orchestrator serves all events concurrently; its only
// shared state is the comment ledger.
type Orchestrator struct {
	installations      driven.InstallationProvider
	plans              PlanLookup
	authorizer         *Authorizer
	pipeline           Runner
	ledger             *CommentLedger
	usage              driven.UsageRecorder
	troubleshootingURL string
	now                func() time.Time
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Ledger == nil {
		deps.Ledger = NewCommentLedger()
	}
	return &Orchestrator{
		installations:      deps.Installations,
		plans:              deps.Plans,
		authorizer:         deps.Authorizer,
		pipeline:           deps.Pipeline,
		ledger:             deps.Ledger,
		usage:              deps.Usage,
		troubleshootingURL: deps.TroubleshootingURL,
		now:                deps.Now,
	}
}

// Handle processes one event. Actions the engine does not react to are
// ignored without side effects.
func (o *Orchestrator) Handle(ctx context.Context, ev model.Event) error {
	switch e := ev.(type) {
	case model.PullRequestEvent:
		if !model.IsProcessableAction(e.Action) {
			clog.FromContext(ctx).Debug("ignoring pull_request action", "action", e.Action)
			return nil
		}
		return o.process(ctx, e.InstallationID, e.Action, e.Payload)

	case model.CheckSuiteEvent:
		if e.Action != model.ActionRerequested {
			clog.FromContext(ctx).Debug("ignoring check_suite action", "action", e.Action)
			return nil
		}
		return o.rerun(ctx, e)

	default:
		return fmt.Errorf("unsupported event kind %q", ev.Kind())
	}
}

// rerun processes every pull request of a re-requested check suite whose
// head still points at the suite's commit.
func (o *Orchestrator) rerun(ctx context.Context, e model.CheckSuiteEvent) error {
	log := clog.FromContext(ctx).With("repo", e.Owner+"/"+e.Repo, "sha", e.HeadSHA)
	if len(e.PullNumbers) == 0 {
		log.Debug("check suite has no pull requests")
		return nil
	}

	inst, err := o.installations.Installation(ctx, e.InstallationID)
	if err != nil {
		return fmt.Errorf("obtaining installation %d: %w", e.InstallationID, err)
	}

	var errs []error
	for _, number := range e.PullNumbers {
		payload, err := inst.GitHub.GetPullRequest(ctx, e.Owner, e.Repo, number)
		if err != nil {
			errs = append(errs, fmt.Errorf("fetching pull request %d: %w", number, err))
			continue
		}
		if payload.HeadSHA != e.HeadSHA {
			log.Info("pull request head moved since the suite ran, skipping", "pr", number)
			continue
		}
		if err := o.process(ctx, e.InstallationID, model.ActionRerequested, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) process(ctx context.Context, installationID int64, action string, payload model.PullRequestPayload) (err error) {
	start := o.now()
	rec := model.UsageRecord{
		InstallationID: installationID,
		Repo:           payload.Owner + "/" + payload.Repo,
		PullNumber:     payload.Number,
		HeadSHA:        payload.HeadSHA,
		Action:         action,
		Plan:           o.plans.PlanFor(installationID),
		Outcome:        model.UsageOutcomeError,
	}
	defer func() {
		rec.RecordedAt = o.now()
		rec.Duration = rec.RecordedAt.Sub(start)
		if o.usage == nil {
			return
		}
		if rerr := o.usage.Record(context.WithoutCancel(ctx), rec); rerr != nil {
			clog.FromContext(ctx).Warn("recording usage", "error", rerr)
		}
	}()

	pr, verr := payload.Validate()
	if verr != nil {
		clog.FromContext(ctx).Warn("rejecting pull request event", "action", action, "error", verr)
		rec.Outcome = model.UsageOutcomeInvalid
		return nil
	}

	ctx = clog.WithLogger(ctx, clog.FromContext(ctx).With(
		"repo", pr.FullName(),
		"pr", pr.Number,
		"sha", pr.HeadSHA,
		"action", action,
	))

	var (
		inst   *driven.Installation
		checks *CheckRuns
	)
	defer func() {
		if r := recover(); r != nil {
			err = o.fail(ctx, pr, inst, checks, fmt.Errorf("panic: %v", r), &rec)
		}
	}()

	inst, err = o.installations.Installation(ctx, installationID)
	if err != nil {
		inst = nil
		return o.fail(ctx, pr, nil, nil, fmt.Errorf("obtaining installation credential: %w", err), &rec)
	}

	checks = NewCheckRuns(inst.GitHub, pr)
	if err := checks.OpenAll(ctx); err != nil {
		return o.fail(ctx, pr, inst, checks, err, &rec)
	}

	files, err := inst.GitHub.ListPullRequestFiles(ctx, pr.Owner, pr.Repo, pr.Number)
	if err != nil {
		return o.fail(ctx, pr, inst, checks, fmt.Errorf("listing changed files: %w", err), &rec)
	}
	if !HasPythonChanges(files) {
		skipped := model.CheckOutcome{
			Conclusion: model.ConclusionSuccess,
			Output:     model.CheckOutput{Title: "Skipped", Summary: SummarySkipped},
		}
		if err := checks.Finalize(ctx, Both(skipped, skipped)); err != nil {
			clog.FromContext(ctx).Warn("finalizing skipped checks", "error", err)
		}
		rec.Outcome = model.UsageOutcomeSkipped
		rec.Summary = SummarySkipped
		clog.FromContext(ctx).Info("no python changes, skipped")
		return nil
	}

	decision := o.authorizer.Resolve(ctx, inst.GitHub, inst.GitHub, pr.Owner, pr.Repo)
	unsafe := UnsafeAllowed(rec.Plan, decision)
	clog.FromContext(ctx).Info("resolved unsafe fix policy",
		"plan", rec.Plan,
		"requested", decision.Requested,
		"admin_verified", decision.AdminVerified,
		"unsafe", unsafe,
	)

	result, err := o.pipeline.Run(ctx, PipelineRequest{
		PR:          pr,
		Token:       inst.Token,
		UnsafeFixes: unsafe,
		SkipReason:  decision.SkipReason,
	})
	if err != nil {
		return o.fail(ctx, pr, inst, checks, err, &rec)
	}

	if err := checks.Finalize(ctx, outcomesFor(result)); err != nil {
		clog.FromContext(ctx).Warn("finalizing checks", "error", err)
	}

	rec.Outcome = model.UsageOutcomeCompleted
	rec.Summary = result.Summary
	rec.AppliedFixes = result.AppliedFixes
	rec.UnsafeFixes = result.UnsafeFixesUsed

	if result.ShouldComment() {
		rec.Commented = o.comment(ctx, inst.GitHub, pr, resultComment(result, pr))
	}
	return nil
}

// fail reports a top-level failure on whatever was set up so far and
// returns err.
func (o *Orchestrator) fail(ctx context.Context, pr model.PullRequestContext, inst *driven.Installation, checks *CheckRuns, err error, rec *model.UsageRecord) error {
	report := Classify(err, o.troubleshootingURL)
	message := Redact(report.Summary())
	detail := Redact(err.Error())

	clog.FromContext(ctx).Error("autofix failed", "error", detail, "status", report.StatusCode)

	rec.Outcome = model.UsageOutcomeError
	rec.Summary = message

	if checks != nil {
		primary := model.CheckOutcome{
			Conclusion: model.ConclusionFailure,
			Output:     model.CheckOutput{Title: report.Title, Summary: message, Text: detail},
		}
		autofix := model.CheckOutcome{
			Conclusion: model.ConclusionNeutral,
			Output:     model.CheckOutput{Title: report.Title, Summary: message},
		}
		if ferr := checks.Finalize(ctx, Both(primary, autofix)); ferr != nil {
			clog.FromContext(ctx).Warn("finalizing failed checks", "error", ferr)
		}
	}

	if inst != nil {
		body := fmt.Sprintf("**%s**\n\n%s\n\n%s", report.Title, message, pr.HTMLURL)
		rec.Commented = o.comment(ctx, inst.GitHub, pr, body)
	}
	return err
}

// comment posts body unless this head commit was already commented on.
func (o *Orchestrator) comment(ctx context.Context, w driven.GitHubWriter, pr model.PullRequestContext, body string) bool {
	if !o.ledger.Claim(pr.Key(), pr.HeadSHA) {
		clog.FromContext(ctx).Debug("already commented on this commit")
		return false
	}
	if err := w.CreateIssueComment(ctx, pr.Owner, pr.Repo, pr.Number, body); err != nil {
		o.ledger.Release(pr.Key(), pr.HeadSHA)
		clog.FromContext(ctx).Warn("posting comment", "error", Redact(err.Error()))
		return false
	}
	return true
}

func outcomesFor(r model.AutofixResult) map[model.CheckRunName]model.CheckOutcome {
	primaryTitle := "Ruff checks passed"
	if r.CheckConclusion != model.ConclusionSuccess {
		primaryTitle = "Ruff checks failed"
	}

	autofixTitle := "Autofix ran"
	switch {
	case r.AutofixConclusion == model.ConclusionNeutral:
		autofixTitle = "Autofix unavailable"
	case r.AppliedFixes:
		autofixTitle = "Autofix applied fixes"
	}

	return Both(
		model.CheckOutcome{
			Conclusion: r.CheckConclusion,
			Output:     model.CheckOutput{Title: primaryTitle, Summary: r.Summary, Text: r.Details},
		},
		model.CheckOutcome{
			Conclusion: r.AutofixConclusion,
			Output:     model.CheckOutput{Title: autofixTitle, Summary: r.Summary},
		},
	)
}

func resultComment(r model.AutofixResult, pr model.PullRequestContext) string {
	var b strings.Builder
	b.WriteString("**Python Autofix**\n\n")
	b.WriteString(r.Summary)
	if r.CommitSHA != "" {
		fmt.Fprintf(&b, "\n\nCommit: %s", r.CommitSHA)
	}
	b.WriteString("\n\n")
	b.WriteString(pr.HTMLURL)
	return b.String()
}

// HasPythonChanges reports whether any path is a Python source or stub file.
func HasPythonChanges(files []string) bool {
	for _, f := range files {
		switch path.Ext(f) {
		case ".py", ".pyi":
			return true
		}
	}
	return false
}
