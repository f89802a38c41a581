package output

import (
	"io"
	"os"
	"sync"

	"logship/pkg/model"
)

// ConsoleSink writes events to stdout, or any writer.
type ConsoleSink struct {
	mu     sync.Mutex
	w      io.Writer
	layout Layout
}

func NewConsoleSink(w io.Writer, layout Layout) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleSink{w: w, layout: layout}
}

func (c *ConsoleSink) Deliver(ev *model.RawEvent) error {
	entry, err := c.layout.Format(ev)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.w.Write(entry)
	return err
}
