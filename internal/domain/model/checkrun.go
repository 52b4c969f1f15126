package model

// CheckRunName identifies one of the two check runs opened per event.
type CheckRunName string

const (
	// CheckRunPrimary reports whether the code passes format and lint checks.
	CheckRunPrimary CheckRunName = "Python Autofix / lint"
	// CheckRunAutofix reports whether the automation itself ran.
	CheckRunAutofix CheckRunName = "Python Autofix / autofix"
)

// CheckRunNames lists the tracked check runs in the order they are opened.
var CheckRunNames = []CheckRunName{CheckRunPrimary, CheckRunAutofix}

// Conclusion is the terminal state of a completed check run.
type Conclusion string

const (
	ConclusionSuccess Conclusion = "success"
	ConclusionFailure Conclusion = "failure"
	ConclusionNeutral Conclusion = "neutral"
)

// CheckOutput is the title/summary/text block shown on a check run page.
type CheckOutput struct {
	Title   string
	Summary string
	Text    string
}

// CheckOutcome is what a check run is finalized with.
type CheckOutcome struct {
	Conclusion Conclusion
	Output     CheckOutput
}
