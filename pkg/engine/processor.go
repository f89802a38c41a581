package engine

import "logship/pkg/model"

// Processor defines the interface for any component that transforms or filters events
// before they are accepted by an appender.
type Processor interface {
	// Process applies logic to the event.
	// It returns the (potentially replaced) event, a bool indicating if the event should be DROPPED, and any error.
	// If drop is true, the chain stops processing this event.
	// Implementations must not mutate the event they receive; return a copy instead.
	Process(ctx *ProcessingContext, ev *model.RawEvent) (*model.RawEvent, bool, error)

	// Name returns the identifier of the processor (for metrics/logging).
	Name() string
}
