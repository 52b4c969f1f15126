package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/pyautofix/internal/domain/model"
	"github.com/ericfisherdev/pyautofix/internal/domain/port/driven"
)

// ErrCheckSetup wraps the failure to open one of the tracked check runs.
var ErrCheckSetup = errors.New("check run setup failed")

var queuedOutput = model.CheckOutput{
	Title:   "Queued",
	Summary: "Python Autofix is running.",
}

// CheckRuns manages the check runs of one event. It is not shared between
// events.
type CheckRuns struct {
	w  driven.GitHubWriter
	pr model.PullRequestContext

	mu  sync.Mutex
	ids map[model.CheckRunName]int64
}

// NewCheckRuns creates the lifecycle manager for pr.
func NewCheckRuns(w driven.GitHubWriter, pr model.PullRequestContext) *CheckRuns {
	return &CheckRuns{w: w, pr: pr, ids: make(map[model.CheckRunName]int64)}
}

// Open creates the named check run in progress on the head commit.
func (c *CheckRuns) Open(ctx context.Context, name model.CheckRunName) (int64, error) {
	id, err := c.w.CreateCheckRun(ctx, c.pr.Owner, c.pr.Repo, name, c.pr.HeadSHA, queuedOutput)
	if err != nil {
		return 0, fmt.Errorf("opening check run %q: %w", name, err)
	}

	c.mu.Lock()
	c.ids[name] = id
	c.mu.Unlock()

	clog.FromContext(ctx).Debug("opened check run", "name", name, "id", id)
	return id, nil
}

// OpenAll opens every tracked check run in order and stops at the first
// failure, leaving the runs opened so far in place.
func (c *CheckRuns) OpenAll(ctx context.Context) error {
	for _, name := range model.CheckRunNames {
		if _, err := c.Open(ctx, name); err != nil {
			return fmt.Errorf("%w: %w", ErrCheckSetup, err)
		}
	}
	return nil
}

// ID returns the id of an opened run.
func (c *CheckRuns) ID(name model.CheckRunName) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.ids[name]
	return id, ok
}

// Finalize completes the given runs concurrently. Names that were never
// opened are skipped. Every update is attempted; failures are joined.
func (c *CheckRuns) Finalize(ctx context.Context, outcomes map[model.CheckRunName]model.CheckOutcome) error {
	log := clog.FromContext(ctx)

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)

	for name, outcome := range outcomes {
		id, ok := c.ID(name)
		if !ok {
			log.Info("check run was not opened, skipping finalize", "name", name)
			continue
		}

		g.Go(func() error {
			if err := c.w.CompleteCheckRun(ctx, c.pr.Owner, c.pr.Repo, id, name, outcome); err != nil {
				log.Error("finalizing check run", "name", name, "id", id, "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("finalizing check run %q: %w", name, err))
				mu.Unlock()
			}
			return nil
		})
	}

	_ = g.Wait()
	return errors.Join(errs...)
}

// Both returns an outcome map assigning primary and autofix outcomes.
func Both(primary, autofix model.CheckOutcome) map[model.CheckRunName]model.CheckOutcome {
	return map[model.CheckRunName]model.CheckOutcome{
		model.CheckRunPrimary: primary,
		model.CheckRunAutofix: autofix,
	}
}
