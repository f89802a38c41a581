package appender

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"logship/pkg/alert"
	"logship/pkg/diag"
	"logship/pkg/dispatch"
	"logship/pkg/engine"
	"logship/pkg/index"
	"logship/pkg/metrics"
	"logship/pkg/model"
	"logship/pkg/output"
)

// DefaultDocumentCloseTimeout bounds the wait for in-flight sends on Close.
const DefaultDocumentCloseTimeout = 30 * time.Second

// DocumentOptions configures a DocumentAppender.
type DocumentOptions struct {
	Name             string
	Gate             *engine.Gate
	Repository       string
	ConnectionString string
	// BufferSize is both the accumulation threshold and the bulk threshold.
	BufferSize    int
	FlushInterval time.Duration
	CloseTimeout  time.Duration
	Sink          *output.DocumentSink

	Alert    alert.Settings
	Counter  alert.DayCounter
	Notifier alert.Notifier

	// Local receives diagnostics first, unless the appender is closing.
	Local       diag.TryReporter
	Diagnostics diag.Diagnostics
	Clock       clock.Clock
	Metrics     *metrics.Metrics
}

// DocumentAppender accumulates events and ships full buffers to the
// document store in the background.
type DocumentAppender struct {
	name         string
	gate         *engine.Gate
	acc          *dispatch.Accumulator
	dispatcher   *dispatch.Dispatcher
	closeTimeout time.Duration
	closing      atomic.Bool

	local     diag.TryReporter
	secondary diag.Diagnostics
}

// NewDocumentAppender validates the index settings and builds the send
// path. A configuration error means the appender does not start. With an
// Off threshold the appender is inert.
func NewDocumentAppender(opts DocumentOptions) (*DocumentAppender, error) {
	if opts.Name == "" {
		opts.Name = "document"
	}
	if opts.BufferSize == 0 {
		opts.BufferSize = dispatch.DefaultBufferSize
	}
	if opts.CloseTimeout <= 0 {
		opts.CloseTimeout = DefaultDocumentCloseTimeout
	}

	a := &DocumentAppender{
		name:         opts.Name,
		gate:         opts.Gate,
		closeTimeout: opts.CloseTimeout,
		local:        opts.Local,
		secondary:    diag.OrNop(opts.Diagnostics),
	}
	if opts.Gate.Threshold() == model.LevelOff {
		return a, nil
	}

	builder, err := index.Open(opts.Repository, opts.ConnectionString, opts.BufferSize, opts.Clock)
	if err != nil {
		a.Report(model.LevelError, "Failed to validate the index repository or connection string", err)
		return nil, err
	}
	store := output.NewDocumentStore(builder, opts.Sink, opts.Metrics)

	alertSettings := opts.Alert
	alertSettings.BufferSize = opts.BufferSize
	notifier := opts.Notifier
	if notifier == nil && alertSettings.EmailEnabled() {
		smtpNotifier, err := alert.NewSMTPNotifier(alertSettings, a)
		if err != nil {
			a.Report(model.LevelWarn, "Alert emails are disabled", err)
		} else {
			notifier = smtpNotifier
		}
	}
	policy := alert.NewPolicy(alertSettings, alert.Options{
		Counter:     opts.Counter,
		Notifier:    notifier,
		Diagnostics: a,
		Clock:       opts.Clock,
		Metrics:     opts.Metrics,
	})

	a.dispatcher = dispatch.NewDispatcher(store, dispatch.Options{
		Observer:    policy,
		Diagnostics: a,
		Metrics:     opts.Metrics,
	})
	a.acc = dispatch.NewAccumulator(opts.BufferSize, a.dispatcher.OnBufferFull)
	a.acc.StartFlusher(opts.FlushInterval)
	return a, nil
}

func (a *DocumentAppender) Name() string { return a.name }

// Active reports whether the appender ships events.
func (a *DocumentAppender) Active() bool {
	return a != nil && a.acc != nil
}

// InFlight returns the outstanding send counter, or nil when inactive.
func (a *DocumentAppender) InFlight() *dispatch.InFlight {
	if !a.Active() {
		return nil
	}
	return a.dispatcher.InFlight()
}

func (a *DocumentAppender) Append(ev *model.RawEvent) {
	if !a.Active() || a.closing.Load() {
		return
	}
	if out, ok := a.gate.Allow(ev); ok {
		a.acc.Append(out)
	}
}

// Report routes a diagnostic into the local file appender, falling back to
// the secondary channel when closing or when the file appender declines.
func (a *DocumentAppender) Report(level model.Level, msg string, err error) {
	fb := diag.Fallback{Secondary: a.secondary}
	if !a.closing.Load() {
		fb.Primary = a.local
	}
	fb.Report(level, fmt.Sprintf("DocumentAppender [%s]: %s.", a.name, msg), err)
}

// Close flushes the partial buffer and waits for in-flight sends up to the
// close timeout. In-flight requests are not cancelled.
func (a *DocumentAppender) Close() error {
	if !a.Active() || !a.closing.CompareAndSwap(false, true) {
		return nil
	}
	a.acc.Stop()
	a.acc.Flush()
	if err := a.dispatcher.Wait(a.closeTimeout); err != nil {
		a.Report(model.LevelError, "Failed to send all queued events before logger close", err)
		return err
	}
	return nil
}
