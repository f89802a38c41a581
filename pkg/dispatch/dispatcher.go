package dispatch

import (
	"context"
	"fmt"
	"time"

	"logship/pkg/diag"
	"logship/pkg/metrics"
	"logship/pkg/model"
)

// Store delivers a normalized batch to the document store.
type Store interface {
	Add(ctx context.Context, records []model.Record) error
	BufferSize() int
}

// Observer is told how long every completed batch send took.
type Observer interface {
	Observe(ctx context.Context, elapsed time.Duration, payload []model.Record)
}

// Options configures a Dispatcher.
type Options struct {
	Observer    Observer
	Diagnostics diag.Diagnostics
	Metrics     *metrics.Metrics
}

// Dispatcher sends each full buffer on its own goroutine. Concurrency is
// unbounded and batches may complete in any order.
type Dispatcher struct {
	store    Store
	observer Observer
	diag     diag.Diagnostics
	metrics  *metrics.Metrics
	inFlight *InFlight
}

func NewDispatcher(store Store, opts Options) *Dispatcher {
	return &Dispatcher{
		store:    store,
		observer: opts.Observer,
		diag:     diag.OrNop(opts.Diagnostics),
		metrics:  opts.Metrics,
		inFlight: NewInFlight(),
	}
}

// InFlight exposes the outstanding-send counter.
func (d *Dispatcher) InFlight() *InFlight {
	return d.inFlight
}

// OnBufferFull normalizes events and sends them in the background. Events
// that fail to normalize are dropped. It never blocks on I/O and never
// panics into the caller.
func (d *Dispatcher) OnBufferFull(events []*model.RawEvent) {
	if d == nil || d.store == nil || len(events) == 0 {
		return
	}

	records := make([]model.Record, 0, len(events))
	for _, ev := range events {
		rec, err := model.Normalize(ev)
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return
	}

	d.inFlight.Begin()
	d.metrics.BatchStarted()
	go d.send(records)
}

func (d *Dispatcher) send(records []model.Record) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.diag.Report(model.LevelError, "Failed to async send logging events", fmt.Errorf("panic: %v", r))
		}
		d.metrics.BatchFinished(time.Since(start))
		d.inFlight.End()
	}()

	ctx := context.Background()
	if err := d.store.Add(ctx, records); err != nil {
		d.diag.Report(model.LevelError, "Failed to add logging events to the document store", err)
	}
	if d.observer != nil {
		d.observer.Observe(ctx, time.Since(start), records)
	}
}

// Wait blocks until every send finished or timeout elapsed.
func (d *Dispatcher) Wait(timeout time.Duration) error {
	if d.inFlight.WaitTimeout(timeout) {
		return nil
	}
	return fmt.Errorf("%w: %d document store sends still in flight after %s",
		model.ErrShutdownTimeout, d.inFlight.Count(), timeout)
}
