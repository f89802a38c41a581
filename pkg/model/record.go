package model

import (
	"errors"
	"fmt"
	"time"
)

// TimestampLayout is the round-trip UTC layout used for record timestamps.
const TimestampLayout = "2006-01-02T15:04:05.0000000Z"

// Record is the canonical, sink-agnostic shape of a log entry. Field names
// match the document layout existing indices were built with.
type Record struct {
	TimeStamp     string         `json:"TimeStamp"`
	Message       string         `json:"Message"`
	MessageObject any            `json:"MessageObject,omitempty"`
	Exception     *ExceptionInfo `json:"Exception,omitempty"`
	LoggerName    string         `json:"LoggerName"`
	Domain        string         `json:"Domain"`
	Level         string         `json:"Level"`
	LocationInfo  string         `json:"LocationInfo,omitempty"`
	ThreadName    string         `json:"ThreadName"`
	Service       string         `json:"Service,omitempty"`
}

// ExceptionInfo is a JSON-friendly view of an error chain.
type ExceptionInfo struct {
	Type           string         `json:"Type"`
	Message        string         `json:"Message"`
	StackTrace     string         `json:"StackTrace,omitempty"`
	Data           map[string]any `json:"Data,omitempty"`
	InnerException *ExceptionInfo `json:"InnerException,omitempty"`
}

// maxExceptionDepth bounds error chains that wrap themselves.
const maxExceptionDepth = 32

// NewExceptionInfo serializes err and everything it wraps. Errors may expose
// a stack via StackTrace() string and extra fields via Data() map[string]any.
func NewExceptionInfo(err error) *ExceptionInfo {
	return newExceptionInfo(err, 0)
}

func newExceptionInfo(err error, depth int) *ExceptionInfo {
	if err == nil || depth >= maxExceptionDepth {
		return nil
	}
	info := &ExceptionInfo{
		Type:    fmt.Sprintf("%T", err),
		Message: err.Error(),
	}
	if st, ok := err.(interface{ StackTrace() string }); ok {
		info.StackTrace = st.StackTrace()
	}
	if d, ok := err.(interface{ Data() map[string]any }); ok {
		info.Data = d.Data()
	}
	info.InnerException = newExceptionInfo(errors.Unwrap(err), depth+1)
	return info
}

// Normalize converts a raw event into a Record. Routed envelopes contribute
// their payload, service tag, thread and location.
func Normalize(e *RawEvent) (rec Record, err error) {
	if e == nil {
		return Record{}, fmt.Errorf("%w: nil event", ErrTransformation)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTransformation, r)
		}
	}()

	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	rec = Record{
		TimeStamp:  ts.UTC().Format(TimestampLayout),
		Message:    e.RenderedMessage,
		LoggerName: e.LoggerName,
		Domain:     e.Domain,
		Level:      e.Level.String(),
		ThreadName: e.ThreadName,
		Exception:  NewExceptionInfo(e.Err),
	}
	if rec.Domain == "" {
		rec.Domain = DefaultDomain
	}

	var payload any
	if routed, ok := e.Routed(); ok {
		payload = routed.Payload
		rec.Service = routed.Service
		if routed.Thread != "" {
			rec.ThreadName = routed.Thread
		}
		rec.LocationInfo = routed.Location
		if rec.LocationInfo == "" {
			rec.LocationInfo = e.Location.String()
		}
	} else if plain, ok := e.Message.(PlainMessage); ok {
		payload = plain.Value
	}
	rec.MessageObject = messageObject(payload)
	return rec, nil
}

func messageObject(v any) any {
	switch val := v.(type) {
	case nil, string:
		return nil
	case error:
		return NewExceptionInfo(val)
	default:
		return val
	}
}
