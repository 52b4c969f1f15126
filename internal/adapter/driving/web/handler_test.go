package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/pyautofix/internal/domain/model"
)

type stubUsageStore struct {
	records []model.UsageRecord
	err     error
}

func (s *stubUsageStore) Record(context.Context, model.UsageRecord) error { return nil }

func (s *stubUsageStore) ListRecent(context.Context, int) ([]model.UsageRecord, error) {
	return s.records, s.err
}

func serve(t *testing.T, store *stubUsageStore, path string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewHandler(store, "github.example.com", slog.Default())

	mux := http.NewServeMux()
	RegisterRoutes(mux, h)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRuns_RendersRecords(t *testing.T) {
	store := &stubUsageStore{records: []model.UsageRecord{{
		Repo:         "octo/widgets",
		PullNumber:   7,
		HeadSHA:      "abc123def456",
		Action:       model.ActionSynchronize,
		Plan:         model.PlanPro,
		Outcome:      model.UsageOutcomeCompleted,
		Summary:      "Applied automatic fixes and pushed them to `feature`. <script>alert(1)</script>",
		AppliedFixes: true,
		UnsafeFixes:  true,
		Duration:     1500 * time.Millisecond,
		RecordedAt:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}}}

	rec := serve(t, store, "/runs")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, `href="https://github.example.com/octo/widgets/pull/7"`)
	assert.Contains(t, body, "octo/widgets#7")
	assert.Contains(t, body, "<code>abc123d</code>")
	assert.Contains(t, body, "<code>feature</code>")
	assert.Contains(t, body, "<td>pushed (unsafe)</td>")
	assert.Contains(t, body, "1.5s")
	assert.Contains(t, body, `class="ok"`)
	assert.NotContains(t, body, "<script>alert(1)</script>")
}

func TestRuns_Empty(t *testing.T) {
	rec := serve(t, &stubUsageStore{}, "/runs")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No events recorded yet.")
}

func TestRuns_StoreError(t *testing.T) {
	rec := serve(t, &stubUsageStore{err: errors.New("db closed")}, "/runs")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRootRedirectsToRuns(t *testing.T) {
	rec := serve(t, &stubUsageStore{}, "/")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/runs", rec.Header().Get("Location"))
}

func TestStaticStylesheet(t *testing.T) {
	rec := serve(t, &stubUsageStore{}, "/static/style.css")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "border-collapse")
}

func TestRuns_LayoutAndEscaping(t *testing.T) {
	store := &stubUsageStore{records: []model.UsageRecord{{
		Repo:       `octo/<b>widgets</b>`,
		PullNumber: 3,
		HeadSHA:    "abc",
		Outcome:    model.UsageOutcomeSkipped,
		Commented:  true,
		RecordedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}}}

	rec := serve(t, store, "/runs")

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(strings.ToLower(body), "<!doctype html>"))
	assert.Contains(t, body, "<title>Python Autofix runs</title>")
	assert.Contains(t, body, `<link rel="stylesheet" href="/static/style.css">`)
	assert.Contains(t, body, "Last 100 events, newest first.")
	assert.Contains(t, body, "octo/&lt;b&gt;widgets&lt;/b&gt;#3")
	assert.NotContains(t, body, "<b>widgets</b>")
	assert.Contains(t, body, `class="muted"`)
	assert.Contains(t, body, "<td>commented</td>")
}

func TestFixesLabel(t *testing.T) {
	tests := []struct {
		name string
		rec  model.UsageRecord
		want string
	}{
		{name: "nothing", rec: model.UsageRecord{}, want: ""},
		{name: "pushed", rec: model.UsageRecord{AppliedFixes: true}, want: "pushed"},
		{name: "pushed unsafe", rec: model.UsageRecord{AppliedFixes: true, UnsafeFixes: true}, want: "pushed (unsafe)"},
		{name: "pushed and commented", rec: model.UsageRecord{AppliedFixes: true, Commented: true}, want: "pushed · commented"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fixesLabel(tt.rec))
		})
	}
}

func TestOutcomeClass(t *testing.T) {
	assert.Equal(t, "ok", outcomeClass(model.UsageOutcomeCompleted))
	assert.Equal(t, "muted", outcomeClass(model.UsageOutcomeSkipped))
	assert.Equal(t, "warn", outcomeClass(model.UsageOutcomeInvalid))
	assert.Equal(t, "bad", outcomeClass(model.UsageOutcomeError))
}
