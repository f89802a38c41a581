package dispatch

import (
	"sync"
	"time"

	"logship/pkg/model"
)

// DefaultBufferSize is the accumulation threshold used when none is set.
const DefaultBufferSize = 512

// Accumulator collects events until BufferSize of them are pending and then
// hands the batch over on the appending goroutine.
type Accumulator struct {
	mu      sync.Mutex
	size    int
	pending []*model.RawEvent
	onFull  func(batch []*model.RawEvent)

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewAccumulator creates an accumulator. A size below 1 means 1: every
// event is handed over on its own.
func NewAccumulator(size int, onFull func(batch []*model.RawEvent)) *Accumulator {
	if size < 1 {
		size = 1
	}
	return &Accumulator{
		size:    size,
		pending: make([]*model.RawEvent, 0, size),
		onFull:  onFull,
		stop:    make(chan struct{}),
	}
}

// Append adds ev and hands the batch over once it is full.
func (a *Accumulator) Append(ev *model.RawEvent) {
	a.mu.Lock()
	a.pending = append(a.pending, ev)
	if len(a.pending) < a.size {
		a.mu.Unlock()
		return
	}
	batch := a.takeLocked()
	a.mu.Unlock()

	a.onFull(batch)
}

// Flush hands over whatever is pending, if anything.
func (a *Accumulator) Flush() {
	a.mu.Lock()
	if len(a.pending) == 0 {
		a.mu.Unlock()
		return
	}
	batch := a.takeLocked()
	a.mu.Unlock()

	a.onFull(batch)
}

// Len returns the number of pending events.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

func (a *Accumulator) takeLocked() []*model.RawEvent {
	batch := a.pending
	a.pending = make([]*model.RawEvent, 0, a.size)
	return batch
}

// StartFlusher flushes partial batches every interval until Stop.
func (a *Accumulator) StartFlusher(interval time.Duration) {
	if interval <= 0 {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.Flush()
			case <-a.stop:
				return
			}
		}
	}()
}

// Stop ends the flusher. Pending events stay pending.
func (a *Accumulator) Stop() {
	a.stopOnce.Do(func() { close(a.stop) })
	a.wg.Wait()
}
