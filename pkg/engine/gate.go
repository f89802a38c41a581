package engine

import (
	"context"

	"logship/pkg/model"
)

// Gate decides whether an appender accepts an event: the level threshold
// first, then the processor chain.
type Gate struct {
	threshold model.Level
	chain     *ProcessorChain
}

// NewGate builds a gate. A nil chain only applies the threshold.
func NewGate(threshold model.Level, chain *ProcessorChain) *Gate {
	return &Gate{threshold: threshold, chain: chain}
}

// Threshold returns the minimum accepted level.
func (g *Gate) Threshold() model.Level {
	if g == nil {
		return model.LevelDebug
	}
	return g.threshold
}

// Enabled reports whether events of this level can pass at all.
func (g *Gate) Enabled(level model.Level) bool {
	if g == nil {
		return true
	}
	return g.threshold != model.LevelOff && level >= g.threshold
}

// Allow returns the event to append, possibly rewritten by the chain, and
// whether it passed. A failing processor lets the unmodified event through.
func (g *Gate) Allow(ev *model.RawEvent) (out *model.RawEvent, ok bool) {
	if ev == nil || !g.Enabled(ev.Level) {
		return nil, false
	}
	if g == nil || g.chain.Len() == 0 {
		return ev, true
	}

	defer func() {
		if r := recover(); r != nil {
			out, ok = ev, true
		}
	}()
	processed, drop, err := g.chain.Process(NewProcessingContext(context.Background()), ev)
	if err != nil {
		return ev, true
	}
	if drop {
		return nil, false
	}
	return processed, true
}
