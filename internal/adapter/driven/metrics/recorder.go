// Package metrics exports per-event usage as Prometheus metrics.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ericfisherdev/pyautofix/internal/domain/model"
	"github.com/ericfisherdev/pyautofix/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.UsageRecorder = (*Recorder)(nil)

// Recorder turns usage records into counters and a duration histogram.
type Recorder struct {
	events   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	comments prometheus.Counter
}

// NewRecorder registers the metrics with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pyautofix_events_total",
				Help: "Processed pull request events by action, plan and outcome",
			},
			[]string{"action", "plan", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pyautofix_pipeline_duration_seconds",
				Help:    "Time from receiving an event to its terminal state",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"outcome"},
		),
		comments: factory.NewCounter(prometheus.CounterOpts{
			Name: "pyautofix_comments_total",
			Help: "Pull request comments posted",
		}),
	}
}

// Record implements driven.UsageRecorder.
func (r *Recorder) Record(_ context.Context, rec model.UsageRecord) error {
	outcome := string(rec.Outcome)
	r.events.WithLabelValues(rec.Action, string(rec.Plan), outcome).Inc()
	r.duration.WithLabelValues(outcome).Observe(rec.Duration.Seconds())
	if rec.Commented {
		r.comments.Inc()
	}
	return nil
}
