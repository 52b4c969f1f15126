package model

import "time"

// UsageOutcome is the terminal state an event reached.
type UsageOutcome string

const (
	UsageOutcomeCompleted UsageOutcome = "completed"
	UsageOutcomeSkipped   UsageOutcome = "skipped"
	UsageOutcomeInvalid   UsageOutcome = "invalid"
	UsageOutcomeError     UsageOutcome = "error"
)

// UsageRecord is emitted once per processed event.
type UsageRecord struct {
	ID             int64
	InstallationID int64
	Repo           string // owner/name
	PullNumber     int
	HeadSHA        string
	Action         string
	Plan           Plan
	Outcome        UsageOutcome
	Summary        string
	AppliedFixes   bool
	UnsafeFixes    bool
	Commented      bool
	Duration       time.Duration
	RecordedAt     time.Time
}
