// Package appender connects the filter gate to the two delivery paths and
// lets a whole appender set be swapped at runtime.
package appender

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"logship/pkg/diag"
	"logship/pkg/engine"
	"logship/pkg/metrics"
	"logship/pkg/model"
)

// Appender accepts events from the host. Append must never block on I/O.
type Appender interface {
	Name() string
	Append(ev *model.RawEvent)
	Close() error
}

// FileOptions configures a FileAppender.
type FileOptions struct {
	Name         string
	Gate         *engine.Gate
	Sink         engine.Sink
	QueueSize    int
	CloseTimeout time.Duration
	Clock        clock.Clock
	Diagnostics  diag.Diagnostics
	Metrics      *metrics.Metrics
	// Deferred leaves the worker stopped until Start. Events still queue.
	Deferred bool
}

// FileAppender queues events into a ring buffer drained by a background
// worker into a local sink.
type FileAppender struct {
	name         string
	gate         *engine.Gate
	sink         engine.Sink
	worker       *engine.Worker
	closeTimeout time.Duration
	closing      atomic.Bool
}

// NewFileAppender starts the drain worker, unless the gate threshold is Off,
// in which case the appender accepts nothing and owns no worker. With
// Deferred set the worker waits for Start.
func NewFileAppender(opts FileOptions) *FileAppender {
	if opts.Name == "" {
		opts.Name = "file"
	}
	a := &FileAppender{
		name:         opts.Name,
		gate:         opts.Gate,
		sink:         opts.Sink,
		closeTimeout: opts.CloseTimeout,
	}
	if opts.Sink == nil || opts.Gate.Threshold() == model.LevelOff {
		return a
	}

	a.worker = engine.NewWorker(opts.Sink, engine.WorkerOptions{
		Name:        opts.Name,
		QueueSize:   opts.QueueSize,
		Clock:       opts.Clock,
		Diagnostics: opts.Diagnostics,
		Metrics:     opts.Metrics,
	})
	if !opts.Deferred {
		a.worker.Start()
	}
	return a
}

// Start begins draining a deferred appender. It is a no-op otherwise.
func (a *FileAppender) Start() {
	if a.Active() {
		a.worker.Start()
	}
}

func (a *FileAppender) Name() string { return a.name }

// Active reports whether the appender has a running worker.
func (a *FileAppender) Active() bool {
	return a != nil && a.worker != nil
}

func (a *FileAppender) Append(ev *model.RawEvent) {
	if !a.Active() {
		return
	}
	if out, ok := a.gate.Allow(ev); ok {
		a.worker.Enqueue(out)
	}
}

// TryReport writes a pipeline diagnostic into the file when the appender is
// running and its gate admits the level.
func (a *FileAppender) TryReport(level model.Level, msg string, err error) bool {
	if !a.Active() || a.closing.Load() {
		return false
	}
	ev := model.NewEvent(level, "logship.appender", model.PlainMessage{Value: msg}, err)
	out, ok := a.gate.Allow(ev)
	if !ok {
		return false
	}
	a.worker.Enqueue(out)
	return true
}

// Close drains the buffer within the close timeout and closes the sink.
func (a *FileAppender) Close() error {
	if !a.Active() || !a.closing.CompareAndSwap(false, true) {
		return nil
	}
	err := a.worker.Close(a.closeTimeout)
	if c, ok := a.sink.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
