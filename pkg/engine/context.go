package engine

import (
	"context"
	"encoding/json"

	"logship/pkg/model"
)

// ProcessingContext holds per-event state shared by the processors of a chain.
type ProcessingContext struct {
	context.Context

	doc    []byte
	docFor *model.RawEvent
}

// NewProcessingContext wraps ctx for one pass through a chain.
func NewProcessingContext(ctx context.Context) *ProcessingContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &ProcessingContext{Context: ctx}
}

// Document returns the JSON encoding of the normalized event. It is computed
// once per event and reused by every processor that asks for it.
func (c *ProcessingContext) Document(ev *model.RawEvent) []byte {
	if c == nil {
		return encodeDocument(ev)
	}
	if c.docFor != ev {
		c.doc = encodeDocument(ev)
		c.docFor = ev
	}
	return c.doc
}

func encodeDocument(ev *model.RawEvent) []byte {
	rec, err := model.Normalize(ev)
	if err != nil {
		return nil
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil
	}
	return b
}
