package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/time/rate"

	"logship/pkg/diag"
	"logship/pkg/metrics"
	"logship/pkg/model"
)

const (
	// DefaultIdleSleep is how long the worker waits when the buffer is empty.
	DefaultIdleSleep = 10 * time.Millisecond
	// DefaultOverflowWindow bounds overflow reports to one per window.
	DefaultOverflowWindow = 30 * time.Second
	// DefaultCloseTimeout bounds the drain on Close.
	DefaultCloseTimeout = 5 * time.Second
	// DefaultNoticeWait bounds how long Close waits on the sink for the
	// forced-shutdown notice before handing it to diagnostics.
	DefaultNoticeWait = 50 * time.Millisecond
)

// Sink is the synchronous downstream of a Worker. Deliver is called from the
// worker goroutine and, for the forced-shutdown notice, from a goroutine
// spawned by Close, so implementations must be safe for concurrent use.
type Sink interface {
	Deliver(ev *model.RawEvent) error
}

// State is the lifecycle state of a Worker.
type State int32

const (
	StateRunning State = iota
	StateShuttingDown
	StateForceStopped
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting-down"
	case StateForceStopped:
		return "force-stopped"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// WorkerOptions configures a Worker.
type WorkerOptions struct {
	Name           string
	QueueSize      int
	IdleSleep      time.Duration
	OverflowWindow time.Duration
	Clock          clock.Clock
	// Diagnostics receives failures that can't be written to the sink itself.
	Diagnostics diag.Diagnostics
	Metrics     *metrics.Metrics
}

// Worker drains a RingBuffer into a Sink on a single background goroutine.
// It is the only consumer of its buffer, so events reach the sink in
// enqueue order.
type Worker struct {
	name     string
	buffer   *RingBuffer[*model.RawEvent]
	sink     Sink
	idle     time.Duration
	clock    clock.Clock
	fallback diag.Diagnostics
	metrics  *metrics.Metrics

	state        atomic.Int32
	shuttingDown atomic.Bool
	forceStop    atomic.Bool
	restarts     atomic.Int64

	startOnce sync.Once
	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
	doneOnce  sync.Once

	ovMu      sync.Mutex
	ovCount   int
	ovPending bool
	ovLimiter *rate.Limiter

	// pollHook is a test seam, nil outside tests. It runs at the top of
	// every loop iteration; see export_test.go.
	pollHook func()
}

// NewWorker creates a worker and its buffer. Call Start to begin draining.
func NewWorker(sink Sink, opts WorkerOptions) *Worker {
	if opts.IdleSleep <= 0 {
		opts.IdleSleep = DefaultIdleSleep
	}
	if opts.OverflowWindow <= 0 {
		opts.OverflowWindow = DefaultOverflowWindow
	}
	if opts.Name == "" {
		opts.Name = "file"
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	w := &Worker{
		name:      opts.Name,
		sink:      sink,
		idle:      opts.IdleSleep,
		clock:     opts.Clock,
		fallback:  diag.OrNop(opts.Diagnostics),
		metrics:   opts.Metrics,
		done:      make(chan struct{}),
		ovLimiter: rate.NewLimiter(rate.Every(opts.OverflowWindow), 1),
	}
	w.buffer = NewRingBuffer[*model.RawEvent](opts.QueueSize, w.onOverflow)
	return w
}

// Enqueue hands an event to the worker. It never blocks.
func (w *Worker) Enqueue(ev *model.RawEvent) {
	w.buffer.Enqueue(ev)
}

// Buffer exposes the underlying ring buffer.
func (w *Worker) Buffer() *RingBuffer[*model.RawEvent] {
	return w.buffer
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Restarts returns how many times the loop was respawned after a fault.
func (w *Worker) Restarts() int64 {
	return w.restarts.Load()
}

// Start launches the drain loop under its supervisor.
func (w *Worker) Start() {
	w.startOnce.Do(func() {
		go w.supervise()
	})
}

// supervise runs the drain loop and spawns a fresh one whenever the loop
// dies from a fault, unless shutdown was requested.
func (w *Worker) supervise() {
	for {
		faults := make(chan any, 1)
		go func() {
			defer func() { faults <- recover() }()
			w.loop()
		}()

		fault := <-faults
		if fault == nil {
			return
		}
		w.fallback.Report(model.LevelError, "drain worker: loop fault", fmt.Errorf("%v", fault))
		if w.shuttingDown.Load() {
			return
		}
		w.restarts.Add(1)
	}
}

func (w *Worker) loop() {
	for !w.shuttingDown.Load() {
		if w.pollHook != nil {
			w.pollHook()
		}
		w.reportOverflow()

		ev, ok := w.buffer.TryDequeue()
		if !ok {
			time.Sleep(w.idle)
			continue
		}
		w.deliver(ev)
	}

	// Drain what is left once, unless Close gave up waiting.
	for !w.forceStop.Load() {
		ev, ok := w.buffer.TryDequeue()
		if !ok {
			break
		}
		w.deliver(ev)
	}

	w.state.CompareAndSwap(int32(StateShuttingDown), int32(StateFinished))
	w.doneOnce.Do(func() { close(w.done) })
}

func (w *Worker) deliver(ev *model.RawEvent) {
	defer func() {
		if r := recover(); r != nil {
			w.metrics.DeliveryFailed(w.name, 1)
			w.fallback.Report(model.LevelError, "drain worker: panic delivering event", fmt.Errorf("%v", r))
		}
	}()
	if err := w.sink.Deliver(Annotate(ev)); err != nil {
		w.metrics.DeliveryFailed(w.name, 1)
		w.fallback.Report(model.LevelError, "drain worker: deliver failed", err)
		return
	}
	w.metrics.Delivered(w.name, 1)
}

// Annotate prefixes the rendered message with the thread tag carried by a
// routed envelope.
func Annotate(ev *model.RawEvent) *model.RawEvent {
	routed, ok := ev.Routed()
	if !ok || routed.Thread == "" {
		return ev
	}
	out := *ev
	out.RenderedMessage = "[Thread " + routed.Thread + "] " + ev.RenderedMessage
	return &out
}

func (w *Worker) onOverflow() {
	w.metrics.RingOverflow(w.name)

	w.ovMu.Lock()
	w.ovCount++
	if !w.ovPending && w.ovLimiter.AllowN(w.clock.Now(), 1) {
		w.ovPending = true
	}
	w.ovMu.Unlock()
}

func (w *Worker) reportOverflow() {
	w.ovMu.Lock()
	if !w.ovPending {
		w.ovMu.Unlock()
		return
	}
	lost := w.ovCount
	w.ovPending = false
	w.ovCount = 0
	w.ovMu.Unlock()

	w.notice(model.LevelError, fmt.Sprintf(
		"Buffer overflow. %d logging events have been lost in the last 30 seconds. [QueueSizeLimit: %d]",
		lost, w.buffer.Cap()), nil)
}

// notice writes a diagnostic straight to the sink, bypassing the buffer.
func (w *Worker) notice(level model.Level, msg string, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.fallback.Report(level, msg, fmt.Errorf("sink panic: %v", r))
		}
	}()
	ev := model.NewEvent(level, "logship.engine.Worker", model.PlainMessage{Value: msg}, err)
	if derr := w.sink.Deliver(ev); derr != nil {
		w.fallback.Report(level, msg, derr)
	}
}

// forcedNotice writes the shutdown notice without letting a stuck sink hold
// up Close. If the sink has not taken it within DefaultNoticeWait, or
// rejects it, the notice goes to diagnostics instead.
func (w *Worker) forcedNotice(msg string) {
	var claimed atomic.Bool
	delivered := make(chan struct{})
	go func() {
		defer close(delivered)
		defer func() {
			if r := recover(); r != nil && claimed.CompareAndSwap(false, true) {
				w.fallback.Report(model.LevelFatal, msg, fmt.Errorf("sink panic: %v", r))
			}
		}()
		ev := model.NewEvent(model.LevelFatal, "logship.engine.Worker", model.PlainMessage{Value: msg}, nil)
		if err := w.sink.Deliver(ev); err != nil && claimed.CompareAndSwap(false, true) {
			w.fallback.Report(model.LevelFatal, msg, err)
			return
		}
		claimed.CompareAndSwap(false, true)
	}()

	timer := time.NewTimer(DefaultNoticeWait)
	defer timer.Stop()
	select {
	case <-delivered:
	case <-timer.C:
		if claimed.CompareAndSwap(false, true) {
			w.fallback.Report(model.LevelFatal, msg, fmt.Errorf("%s sink did not accept the notice within %s", w.name, DefaultNoticeWait))
		}
	}
}

// Close requests shutdown and waits up to timeout for the buffer to drain.
// On timeout the drain is abandoned, one fatal notice is written and
// ErrShutdownTimeout is returned. Close returns within timeout plus
// DefaultNoticeWait even when the sink is stuck. Close is idempotent.
func (w *Worker) Close(timeout time.Duration) error {
	w.closeOnce.Do(func() {
		if timeout <= 0 {
			timeout = DefaultCloseTimeout
		}
		w.state.CompareAndSwap(int32(StateRunning), int32(StateShuttingDown))
		w.shuttingDown.Store(true)
		// A worker closed before Start still drains what it holds.
		w.Start()

		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-w.done:
			return
		case <-timer.C:
		}

		w.forceStop.Store(true)
		w.state.Store(int32(StateForceStopped))
		w.forcedNotice("Unable to clear out the buffer in the allotted time, forcing a shutdown")
		w.closeErr = fmt.Errorf("%w: %s drain did not finish within %s", model.ErrShutdownTimeout, w.name, timeout)
	})
	return w.closeErr
}
