// Package dispatch hands full event buffers to the document store on
// background goroutines and tracks how many sends are outstanding.
package dispatch

import (
	"context"
	"sync"
	"time"
)

// InFlight counts outstanding sends. Its idle signal is set exactly when
// the count is zero.
type InFlight struct {
	mu    sync.Mutex
	count int
	idle  chan struct{}
}

func NewInFlight() *InFlight {
	idle := make(chan struct{})
	close(idle)
	return &InFlight{idle: idle}
}

// Begin registers a send. It must happen before the send is spawned.
func (f *InFlight) Begin() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.count == 0 {
		f.idle = make(chan struct{})
	}
	f.count++
}

// End marks a send finished, on success and failure alike.
func (f *InFlight) End() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.count == 0 {
		return
	}
	f.count--
	if f.count == 0 {
		close(f.idle)
	}
}

// Count returns the number of outstanding sends.
func (f *InFlight) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// Idle returns a channel closed once no sends are outstanding.
func (f *InFlight) Idle() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.idle
}

// Wait blocks until idle or ctx is done and reports whether it became idle.
func (f *InFlight) Wait(ctx context.Context) bool {
	select {
	case <-f.Idle():
		return true
	case <-ctx.Done():
		return false
	}
}

// WaitTimeout is Wait bounded by a duration.
func (f *InFlight) WaitTimeout(timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return f.Wait(ctx)
}
