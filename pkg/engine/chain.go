package engine

import "logship/pkg/model"

// ProcessorChain manages a sequential list of processors.
type ProcessorChain struct {
	processors []Processor
}

// NewProcessorChain creates a chain with the given list of processors.
func NewProcessorChain(processors ...Processor) *ProcessorChain {
	return &ProcessorChain{
		processors: processors,
	}
}

// Len returns the number of processors in the chain.
func (c *ProcessorChain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.processors)
}

// Process runs the event through all processors in the chain.
// It stops if a processor returns drop=true or an error.
func (c *ProcessorChain) Process(ctx *ProcessingContext, ev *model.RawEvent) (*model.RawEvent, bool, error) {
	if c == nil {
		return ev, false, nil
	}
	var drop bool
	var err error

	for _, p := range c.processors {
		ev, drop, err = p.Process(ctx, ev)
		if err != nil {
			return ev, false, err
		}
		if drop {
			return ev, true, nil
		}
	}

	return ev, false, nil
}
