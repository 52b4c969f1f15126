package model

// AutofixResult is the outcome of one pipeline run. It drives both check
// run conclusions and the decision to comment on the pull request.
type AutofixResult struct {
	CheckConclusion      Conclusion // success or failure
	AutofixConclusion    Conclusion // success or neutral
	Summary              string
	Details              string
	AppliedFixes         bool
	UnsafeFixesUsed      bool
	HiddenFixesAvailable bool
	CommitSHA            string
}

// ShouldComment reports whether the pull request gets a follow-up comment.
func (r AutofixResult) ShouldComment() bool {
	return r.AppliedFixes || r.CheckConclusion == ConclusionFailure
}
