package application

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/ericfisherdev/pyautofix/internal/domain/port/driven"
)

// FailureReport is the user-facing explanation of a top-level failure.
type FailureReport struct {
	Title      string
	Reason     string
	Hint       string
	StatusCode int
}

// Summary is the text shown on check runs and comments.
func (f FailureReport) Summary() string {
	if f.Hint == "" {
		return f.Reason
	}
	return f.Reason + " " + f.Hint
}

// Classify maps an error to a report. troubleshootingURL is linked from the
// generic fallback.
func Classify(err error, troubleshootingURL string) FailureReport {
	status := driven.StatusCode(err)
	report := FailureReport{Title: "Python Autofix failed", StatusCode: status}

	switch {
	case status == http.StatusUnauthorized:
		report.Reason = "GitHub rejected the app's credentials."
		report.Hint = "Check the app id and private key configured for the service."
	case status == http.StatusForbidden:
		report.Reason = "The app lacks permission for this repository."
		report.Hint = "Grant the app contents, checks, issues and pull requests write access, and allow edits from maintainers on forks."
	case status == http.StatusNotFound:
		report.Reason = "A repository, branch or pull request could not be found."
		report.Hint = "The head branch may have been deleted or the app may not be installed on the head repository."
	case status == http.StatusUnprocessableEntity:
		report.Reason = "GitHub rejected the request as unprocessable."
		report.Hint = "The head commit may have changed while the autofix was running."
	case errors.Is(err, driven.ErrCommandNotFound):
		report.Reason = "A required tool is not installed on the autofix runner."
		report.Hint = troubleshootingHint(troubleshootingURL)
	case errors.Is(err, ErrCheckSetup):
		report.Reason = "Python Autofix could not create its check runs."
		report.Hint = troubleshootingHint(troubleshootingURL)
	default:
		report.Reason = "Python Autofix hit an unexpected error."
		report.Hint = troubleshootingHint(troubleshootingURL)
	}
	return report
}

func troubleshootingHint(url string) string {
	if url == "" {
		return ""
	}
	return "See " + url + " for troubleshooting."
}

var redactions = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i)(authorization:\s*)(bearer|token|basic)\s+\S+`), "${1}${2} [REDACTED]"},
	{regexp.MustCompile(`x-access-token:[^@\s]+@`), "x-access-token:[REDACTED]@"},
	{regexp.MustCompile(`(://)[^/@\s:]+:[^/@\s]+@`), "${1}[REDACTED]@"},
	{regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{20,}`), "[REDACTED]"},
	{regexp.MustCompile(`\bgithub_pat_[A-Za-z0-9_]{20,}`), "[REDACTED]"},
}

// Redact strips credentials from s before it is logged or shown to users.
func Redact(s string) string {
	for _, r := range redactions {
		s = r.re.ReplaceAllString(s, r.repl)
	}
	return s
}
