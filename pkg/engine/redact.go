package engine

import (
	"strings"

	"logship/pkg/model"
)

// RedactionProcessor replaces occurrences of a target string in the rendered
// message with a mask.
type RedactionProcessor struct {
	name   string
	target string
	mask   string
}

func NewRedactionProcessor(name string, target string, mask string) *RedactionProcessor {
	return &RedactionProcessor{
		name:   name,
		target: target,
		mask:   mask,
	}
}

func (r *RedactionProcessor) Name() string {
	return r.name
}

func (r *RedactionProcessor) Process(ctx *ProcessingContext, ev *model.RawEvent) (*model.RawEvent, bool, error) {
	if r.target == "" || !strings.Contains(ev.RenderedMessage, r.target) {
		return ev, false, nil
	}
	// Copy: the caller may still hold the original event.
	redacted := *ev
	redacted.RenderedMessage = strings.ReplaceAll(ev.RenderedMessage, r.target, r.mask)
	return &redacted, false, nil
}
