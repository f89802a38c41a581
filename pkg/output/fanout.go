package output

import (
	"fmt"
	"sync"

	"logship/pkg/engine"
	"logship/pkg/model"
)

// FanOutSink delivers each event to multiple sinks in parallel.
type FanOutSink struct {
	sinks []engine.Sink
}

func NewFanOutSink(sinks ...engine.Sink) *FanOutSink {
	return &FanOutSink{
		sinks: sinks,
	}
}

func (f *FanOutSink) Deliver(ev *model.RawEvent) error {
	if len(f.sinks) == 1 {
		return f.sinks[0].Deliver(ev)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(f.sinks))

	for i, s := range f.sinks {
		wg.Add(1)
		go func(idx int, s engine.Sink) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[idx] = fmt.Errorf("sink panic: %v", r)
				}
			}()
			if err := s.Deliver(ev); err != nil {
				errs[idx] = err
			}
		}(i, s)
	}
	wg.Wait()

	// For simple error handling, return the first error found
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}
