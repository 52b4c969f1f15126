package web

import (
	"fmt"
	"strings"
	"time"

	vm "github.com/ericfisherdev/pyautofix/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/pyautofix/internal/domain/model"
)

const shortSHALength = 7

// toRunViewModel converts a usage record to a table row. The summary is
// rendered as sanitized Markdown.
func toRunViewModel(rec model.UsageRecord, githubHost string) vm.RunViewModel {
	sha := rec.HeadSHA
	if len(sha) > shortSHALength {
		sha = sha[:shortSHALength]
	}

	return vm.RunViewModel{
		Repository:   rec.Repo,
		PullNumber:   rec.PullNumber,
		PullURL:      fmt.Sprintf("https://%s/%s/pull/%d", githubHost, rec.Repo, rec.PullNumber),
		ShortSHA:     sha,
		Action:       rec.Action,
		Plan:         string(rec.Plan),
		Outcome:      string(rec.Outcome),
		OutcomeClass: outcomeClass(rec.Outcome),
		Summary:      RenderMarkdown(rec.Summary),
		Fixes:        fixesLabel(rec),
		Duration:     rec.Duration.Round(time.Millisecond).String(),
		RecordedAt:   rec.RecordedAt.UTC().Format("2006-01-02 15:04:05 MST"),
	}
}

// fixesLabel describes what the event changed, e.g. "pushed (unsafe) · commented".
func fixesLabel(rec model.UsageRecord) string {
	var parts []string
	if rec.AppliedFixes {
		label := "pushed"
		if rec.UnsafeFixes {
			label += " (unsafe)"
		}
		parts = append(parts, label)
	}
	if rec.Commented {
		parts = append(parts, "commented")
	}
	return strings.Join(parts, " · ")
}

func outcomeClass(o model.UsageOutcome) string {
	switch o {
	case model.UsageOutcomeCompleted:
		return "ok"
	case model.UsageOutcomeSkipped:
		return "muted"
	case model.UsageOutcomeInvalid:
		return "warn"
	default:
		return "bad"
	}
}
