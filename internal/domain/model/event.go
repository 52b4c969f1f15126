package model

// Pull request actions the engine reacts to. ActionRerequested is synthesized
// when a check suite re-run is requested for a pull request's head commit.
const (
	ActionOpened         = "opened"
	ActionSynchronize    = "synchronize"
	ActionReopened       = "reopened"
	ActionReadyForReview = "ready_for_review"
	ActionRerequested    = "rerequested"
)

// IsProcessableAction reports whether a pull_request action triggers a run.
func IsProcessableAction(action string) bool {
	switch action {
	case ActionOpened, ActionSynchronize, ActionReopened, ActionReadyForReview:
		return true
	}
	return false
}

// Event is an inbound webhook delivery the orchestrator understands.
// The set of implementations is closed: PullRequestEvent and CheckSuiteEvent.
type Event interface {
	// Installation returns the GitHub App installation the delivery belongs to.
	Installation() int64
	// Kind returns the webhook event type name.
	Kind() string

	sealed()
}

// PullRequestEvent is a "pull_request" delivery.
type PullRequestEvent struct {
	DeliveryID     string
	Action         string
	InstallationID int64
	Payload        PullRequestPayload
}

func (e PullRequestEvent) Installation() int64 { return e.InstallationID }
func (e PullRequestEvent) Kind() string        { return "pull_request" }
func (PullRequestEvent) sealed()               {}

// CheckSuiteEvent is a "check_suite" delivery. PullNumbers lists the pull
// requests GitHub associates with the suite's head commit.
type CheckSuiteEvent struct {
	DeliveryID     string
	Action         string
	InstallationID int64
	Owner          string
	Repo           string
	HeadSHA        string
	PullNumbers    []int
}

func (e CheckSuiteEvent) Installation() int64 { return e.InstallationID }
func (e CheckSuiteEvent) Kind() string        { return "check_suite" }
func (CheckSuiteEvent) sealed()               {}
