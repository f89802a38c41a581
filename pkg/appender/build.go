package appender

import (
	"fmt"
	"io"
	"os"

	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"

	"logship/pkg/alert"
	"logship/pkg/config"
	"logship/pkg/diag"
	"logship/pkg/engine"
	"logship/pkg/metrics"
	"logship/pkg/model"
	"logship/pkg/output"
)

// Deps are the process-wide collaborators shared by every appender set.
type Deps struct {
	Diagnostics diag.Diagnostics
	Metrics     *metrics.Metrics
	// Redis backs the shared alert counter when the config asks for it.
	Redis   redis.UniversalClient
	Clock   clock.Clock
	Console io.Writer
	// DocumentSink overrides the HTTP sink, mostly for tests.
	DocumentSink *output.DocumentSink
	// DeferStart builds file appenders stopped, so a reload can start them
	// only after the previous set has released the same file.
	DeferStart bool
}

// Build activates the appenders described by cfg. On error nothing is left
// running.
func Build(cfg *config.Config, deps Deps) (*Set, error) {
	secondary := diag.OrNop(deps.Diagnostics)

	// 1. Local file path
	var file *FileAppender
	if cfg.File.Enabled {
		gate, err := buildGate(cfg.File.Threshold, cfg.File.Filters)
		if err != nil {
			return nil, err
		}
		sink, err := buildFileSink(cfg.File, deps.Console)
		if err != nil {
			return nil, err
		}
		file = NewFileAppender(FileOptions{
			Name:         "file",
			Gate:         gate,
			Sink:         sink,
			QueueSize:    cfg.File.QueueSize,
			CloseTimeout: cfg.File.CloseTimeout,
			Clock:        deps.Clock,
			Diagnostics:  secondary,
			Metrics:      deps.Metrics,
			Deferred:     deps.DeferStart,
		})
	}

	// 2. Document store path
	var doc *DocumentAppender
	if cfg.Document.Enabled {
		gate, err := buildGate(cfg.Document.Threshold, cfg.Document.Filters)
		if err != nil {
			file.Close()
			return nil, err
		}

		sink := deps.DocumentSink
		if sink == nil {
			sink = output.NewDocumentSink(cfg.Document.RequestTimeout)
		}
		var counter alert.DayCounter
		if cfg.Document.Alert.SharedCounter && deps.Redis != nil {
			counter = alert.NewRedisCounter(deps.Redis, "")
		}

		opts := DocumentOptions{
			Name:             "document",
			Gate:             gate,
			Repository:       cfg.Document.Repository,
			ConnectionString: cfg.Document.ConnectionString,
			BufferSize:       cfg.Document.BufferSize,
			FlushInterval:    cfg.Document.FlushInterval,
			CloseTimeout:     cfg.Document.CloseTimeout,
			Sink:             sink,
			Alert:            alertSettings(cfg.Document.Alert),
			Counter:          counter,
			Diagnostics:      secondary,
			Clock:            deps.Clock,
			Metrics:          deps.Metrics,
		}
		if file.Active() {
			opts.Local = file
		}
		doc, err = NewDocumentAppender(opts)
		if err != nil {
			file.Close()
			return nil, err
		}
	}

	var members []Appender
	if file != nil {
		members = append(members, file)
	}
	if doc != nil {
		members = append(members, doc)
	}
	return NewSet(members...), nil
}

func buildGate(threshold string, fc config.FilterConfig) (*engine.Gate, error) {
	chain, err := buildChain(fc)
	if err != nil {
		return nil, err
	}
	return engine.NewGate(model.ParseLevel(threshold), chain), nil
}

func buildChain(fc config.FilterConfig) (*engine.ProcessorChain, error) {
	var processors []engine.Processor
	if len(fc.BlockWords) > 0 {
		processors = append(processors, engine.NewFilterProcessor("block_words", fc.BlockWords))
	}
	for i, r := range fc.Redactions {
		if r.Target == "" {
			continue
		}
		processors = append(processors, engine.NewRedactionProcessor(fmt.Sprintf("redact_%d", i), r.Target, r.Mask))
	}
	for _, r := range fc.Attributes {
		proc, err := engine.NewAttributeFilterProcessor(engine.AttributeFilterConfig{
			Name:      r.Name,
			Attribute: r.Attribute,
			Path:      r.Path,
			Operator:  engine.Operator(r.Operator),
			Value:     r.Value,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: attribute filter %q: %v", model.ErrConfiguration, r.Name, err)
		}
		processors = append(processors, proc)
	}
	return engine.NewProcessorChain(processors...), nil
}

func buildFileSink(fc config.FileConfig, console io.Writer) (engine.Sink, error) {
	layout := output.ParseLayout(fc.Layout)
	file, err := output.NewFileSink(output.FileOptions{
		Path:       fc.Path,
		MaxSizeMB:  fc.MaxSizeMB,
		MaxBackups: fc.MaxBackups,
		MaxAgeDays: fc.MaxAgeDays,
		Compress:   fc.Compress,
		Layout:     layout,
	})
	if err != nil {
		return nil, err
	}
	if !fc.Console {
		return file, nil
	}
	if console == nil {
		console = os.Stdout
	}
	return &closingFanOut{
		FanOutSink: output.NewFanOutSink(file, output.NewConsoleSink(console, layout)),
		file:       file,
	}, nil
}

// closingFanOut closes the file behind a console mirror.
type closingFanOut struct {
	*output.FanOutSink
	file *output.FileSink
}

func (c *closingFanOut) Close() error { return c.file.Close() }

func alertSettings(ac config.AlertConfig) alert.Settings {
	return alert.Settings{
		LocalAlert: ac.LocalAlert,
		EmailAlert: ac.EmailAlert,
		SMTPHost:   ac.SMTPHost,
		From:       ac.From,
		To:         ac.To,
		User:       ac.User,
		Password:   ac.Password,
		Domain:     ac.Domain,
		Async:      ac.Async,
		DailyCap:   ac.DailyCap,
	}
}
