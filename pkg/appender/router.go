package appender

import (
	"errors"
	"fmt"
	"sync/atomic"

	"logship/pkg/diag"
	"logship/pkg/model"
)

// Set is one activated group of appenders. Events go to every member in
// order; closing the set closes each member.
type Set struct {
	appenders []Appender
}

// NewSet groups appenders. Nil members are skipped.
func NewSet(appenders ...Appender) *Set {
	s := &Set{}
	for _, a := range appenders {
		if a != nil {
			s.appenders = append(s.appenders, a)
		}
	}
	return s
}

// Appenders returns the members of the set.
func (s *Set) Appenders() []Appender {
	if s == nil {
		return nil
	}
	return s.appenders
}

func (s *Set) Append(ev *model.RawEvent) {
	if s == nil {
		return
	}
	for _, a := range s.appenders {
		a.Append(ev)
	}
}

// Start starts members that were built deferred.
func (s *Set) Start() {
	if s == nil {
		return
	}
	for _, a := range s.appenders {
		if st, ok := a.(interface{ Start() }); ok {
			st.Start()
		}
	}
}

// Close closes the members in reverse order, so diagnostics of later
// members can still reach earlier ones.
func (s *Set) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	for i := len(s.appenders) - 1; i >= 0; i-- {
		if err := s.appenders[i].Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.appenders[i].Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Router is the host-facing entry point. The active set can be replaced
// while events are flowing.
type Router struct {
	current atomic.Pointer[Set]
	diag    diag.Diagnostics
}

func NewRouter(initial *Set, d diag.Diagnostics) *Router {
	r := &Router{diag: diag.OrNop(d)}
	if initial == nil {
		initial = NewSet()
	}
	r.current.Store(initial)
	initial.Start()
	return r
}

// Current returns the active set.
func (r *Router) Current() *Set {
	return r.current.Load()
}

// Append hands events to the active set. It never panics into the caller.
func (r *Router) Append(events ...*model.RawEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			r.diag.Report(model.LevelError, "Failed to append logging event", fmt.Errorf("panic: %v", rec))
		}
	}()
	set := r.current.Load()
	for _, ev := range events {
		if ev != nil {
			set.Append(ev)
		}
	}
}

// Reload activates next and closes the previous set with its normal
// bounded shutdown. Events reach next at once, but deferred members only
// start draining after the previous set is closed, so two writers never
// share a file.
func (r *Router) Reload(next *Set) error {
	if next == nil {
		next = NewSet()
	}
	prev := r.current.Swap(next)
	defer next.Start()
	if prev == nil || prev == next {
		return nil
	}
	return prev.Close()
}

// Close shuts down the active set. Later appends are discarded.
func (r *Router) Close() error {
	prev := r.current.Swap(NewSet())
	return prev.Close()
}
