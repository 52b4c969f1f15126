package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/chainguard-dev/clog"

	"github.com/ericfisherdev/pyautofix/internal/domain/model"
	"github.com/ericfisherdev/pyautofix/internal/domain/port/driven"
)

// EventHandler processes one event to completion.
type EventHandler interface {
	Handle(ctx context.Context, ev model.Event) error
}

// Dispatcher runs each event on its own goroutine, detached from the
// request that delivered it, and tracks them so shutdown can drain.
type Dispatcher struct {
	handler  EventHandler
	wg       sync.WaitGroup
	inFlight atomic.Int64
}

// NewDispatcher creates a Dispatcher handing events to h.
func NewDispatcher(h EventHandler) *Dispatcher {
	return &Dispatcher{handler: h}
}

// Dispatch starts handling ev in the background and returns immediately.
// ctx supplies values such as the logger; its cancellation is ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, ev model.Event) {
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	d.inFlight.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.inFlight.Add(-1)

		if err := d.handler.Handle(ctx, ev); err != nil {
			clog.FromContext(ctx).Error("event failed", "kind", ev.Kind(), "installation", ev.Installation(), "error", Redact(err.Error()))
		}
	}()
}

// InFlight returns the number of events still being handled.
func (d *Dispatcher) InFlight() int64 {
	return d.inFlight.Load()
}

// Wait blocks until every dispatched event finished or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UsageRecorders fans a usage record out to several recorders.
type UsageRecorders []driven.UsageRecorder

var _ driven.UsageRecorder = UsageRecorders(nil)

// Record delivers rec to every recorder and joins their errors.
func (rs UsageRecorders) Record(ctx context.Context, rec model.UsageRecord) error {
	var errs []error
	for _, r := range rs {
		if err := r.Record(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
