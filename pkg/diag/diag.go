// Package diag is the local side channel for pipeline failures. Nothing
// reported here is ever returned to the logging call that caused it.
package diag

import (
	"go.uber.org/zap"

	"logship/pkg/model"
)

// Diagnostics receives warnings and errors raised inside the pipeline.
type Diagnostics interface {
	Report(level model.Level, msg string, err error)
}

// Func adapts a function to Diagnostics.
type Func func(level model.Level, msg string, err error)

func (f Func) Report(level model.Level, msg string, err error) { f(level, msg, err) }

// Nop discards everything.
func Nop() Diagnostics {
	return Func(func(model.Level, string, error) {})
}

type zapDiagnostics struct {
	log *zap.Logger
}

// NewLogger reports through a zap logger.
func NewLogger(log *zap.Logger) Diagnostics {
	if log == nil {
		log = zap.NewNop()
	}
	return zapDiagnostics{log: log}
}

func (z zapDiagnostics) Report(level model.Level, msg string, err error) {
	var fields []zap.Field
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	switch {
	case level >= model.LevelFatal:
		// zap.Fatal exits the process; FATAL is recorded as a field instead.
		z.log.Error(msg, append(fields, zap.String("severity", "FATAL"))...)
	case level == model.LevelError:
		z.log.Error(msg, fields...)
	case level == model.LevelWarn:
		z.log.Warn(msg, fields...)
	case level == model.LevelInfo:
		z.log.Info(msg, fields...)
	default:
		z.log.Debug(msg, fields...)
	}
}

// TryReporter accepts a report only when it can handle it.
type TryReporter interface {
	TryReport(level model.Level, msg string, err error) bool
}

// Fallback sends reports to Primary and uses Secondary when Primary is nil
// or declines.
type Fallback struct {
	Primary   TryReporter
	Secondary Diagnostics
}

func (f Fallback) Report(level model.Level, msg string, err error) {
	if f.Primary != nil && f.Primary.TryReport(level, msg, err) {
		return
	}
	if f.Secondary != nil {
		f.Secondary.Report(level, msg, err)
	}
}

// OrNop returns d, or a no-op when d is nil.
func OrNop(d Diagnostics) Diagnostics {
	if d == nil {
		return Nop()
	}
	return d
}
