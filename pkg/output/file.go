package output

import (
	"fmt"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"logship/pkg/model"
)

// FileOptions configures a rolling file sink.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	Layout     Layout
}

// FileSink appends events to a size-rolled local file.
type FileSink struct {
	mu     sync.Mutex
	file   *lumberjack.Logger
	layout Layout
}

func NewFileSink(opts FileOptions) (*FileSink, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("%w: file sink needs a path", model.ErrConfiguration)
	}
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 100
	}
	return &FileSink{
		file: &lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
			LocalTime:  true,
		},
		layout: opts.Layout,
	}, nil
}

func (f *FileSink) Deliver(ev *model.RawEvent) error {
	entry, err := f.layout.Format(ev)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.file.Write(entry); err != nil {
		return fmt.Errorf("%w: write %s: %v", model.ErrDelivery, f.file.Filename, err)
	}
	return nil
}

// Rotate starts a new file immediately.
func (f *FileSink) Rotate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Rotate()
}

func (f *FileSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Close()
}
