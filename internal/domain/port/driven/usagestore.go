package driven

import (
	"context"

	"github.com/ericfisherdev/pyautofix/internal/domain/model"
)

// UsageRecorder receives the one usage record emitted per processed event.
type UsageRecorder interface {
	Record(ctx context.Context, rec model.UsageRecord) error
}

// UsageStore persists usage records and lists them back.
type UsageStore interface {
	UsageRecorder
	ListRecent(ctx context.Context, limit int) ([]model.UsageRecord, error)
}
