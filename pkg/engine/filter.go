package engine

import (
	"strings"

	"logship/pkg/model"
)

// FilterProcessor drops events whose rendered message contains any of the
// blocked words.
type FilterProcessor struct {
	name       string
	blockWords []string
}

func NewFilterProcessor(name string, blockWords []string) *FilterProcessor {
	words := make([]string, 0, len(blockWords))
	for _, w := range blockWords {
		if w != "" {
			words = append(words, w)
		}
	}
	return &FilterProcessor{
		name:       name,
		blockWords: words,
	}
}

func (f *FilterProcessor) Name() string {
	return f.name
}

func (f *FilterProcessor) Process(ctx *ProcessingContext, ev *model.RawEvent) (*model.RawEvent, bool, error) {
	// Naive O(N*M) check.
	for _, word := range f.blockWords {
		if strings.Contains(ev.RenderedMessage, word) {
			return ev, true, nil // DROP
		}
	}
	return ev, false, nil
}
