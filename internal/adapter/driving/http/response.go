package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/pyautofix/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// WebhookResponse acknowledges a webhook delivery.
type WebhookResponse struct {
	Status   string `json:"status"`
	Delivery string `json:"delivery,omitempty"`
}

// RunResponse is the JSON representation of one usage record.
type RunResponse struct {
	ID             int64  `json:"id"`
	InstallationID int64  `json:"installation_id"`
	Repository     string `json:"repository"`
	PullNumber     int    `json:"pull_number"`
	HeadSHA        string `json:"head_sha"`
	Action         string `json:"action"`
	Plan           string `json:"plan"`
	Outcome        string `json:"outcome"`
	Summary        string `json:"summary"`
	AppliedFixes   bool   `json:"applied_fixes"`
	UnsafeFixes    bool   `json:"unsafe_fixes"`
	Commented      bool   `json:"commented"`
	DurationMS     int64  `json:"duration_ms"`
	RecordedAt     string `json:"recorded_at"`
}

// toRunResponse converts a usage record to its JSON representation.
func toRunResponse(rec model.UsageRecord) RunResponse {
	return RunResponse{
		ID:             rec.ID,
		InstallationID: rec.InstallationID,
		Repository:     rec.Repo,
		PullNumber:     rec.PullNumber,
		HeadSHA:        rec.HeadSHA,
		Action:         rec.Action,
		Plan:           string(rec.Plan),
		Outcome:        string(rec.Outcome),
		Summary:        rec.Summary,
		AppliedFixes:   rec.AppliedFixes,
		UnsafeFixes:    rec.UnsafeFixes,
		Commented:      rec.Commented,
		DurationMS:     rec.Duration.Milliseconds(),
		RecordedAt:     rec.RecordedAt.UTC().Format(time.RFC3339),
	}
}
