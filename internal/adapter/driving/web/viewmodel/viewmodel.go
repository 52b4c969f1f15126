// Package viewmodel defines presentation-ready structs for the HTML pages.
// View models decouple templ components from domain model types.
package viewmodel

// RunViewModel is one row of the runs table. Summary holds sanitized HTML
// and is written to the page unescaped.
type RunViewModel struct {
	Repository   string
	PullNumber   int
	PullURL      string
	ShortSHA     string
	Action       string
	Plan         string
	Outcome      string
	OutcomeClass string
	Summary      string
	Fixes        string
	Duration     string
	RecordedAt   string
}

// RunsPageViewModel is the data of the runs page.
type RunsPageViewModel struct {
	Title string
	Runs  []RunViewModel
	Limit int
}
