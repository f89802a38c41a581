package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultDomain names the current process in records that don't carry one.
var DefaultDomain = filepath.Base(os.Args[0])

// Message is the envelope a host attaches to an event. It is either a
// PlainMessage or a RoutedMessage; the choice is made once, when the host
// hands the event over.
type Message interface {
	isMessage()
}

// PlainMessage carries an arbitrary value with no routing information.
type PlainMessage struct {
	Value any
}

// RoutedMessage carries a payload plus routing and display hints.
type RoutedMessage struct {
	Payload  any
	Service  string
	Thread   string
	Location string
}

func (PlainMessage) isMessage()  {}
func (RoutedMessage) isMessage() {}

// NewRouted builds a routed envelope. Dots in the service tag become
// underscores so the tag stays usable as an index name fragment.
func NewRouted(payload any, service, thread string) RoutedMessage {
	return RoutedMessage{
		Payload: payload,
		Service: strings.ReplaceAll(service, ".", "_"),
		Thread:  thread,
	}
}

// Location identifies the call site of an event.
type Location struct {
	Class  string `json:"class,omitempty"`
	Method string `json:"method,omitempty"`
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
}

// String renders the location the way "full info" location strings look.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	return fmt.Sprintf("%s.%s(%s:%d)", l.Class, l.Method, l.File, l.Line)
}

// RawEvent is a log entry as handed over by the host.
type RawEvent struct {
	Level           Level
	Timestamp       time.Time
	LoggerName      string
	Domain          string
	ThreadName      string
	RenderedMessage string
	Message         Message
	Err             error
	Location        *Location
}

// NewEvent builds an event stamped with the current time and rendered from msg.
func NewEvent(level Level, logger string, msg Message, err error) *RawEvent {
	return &RawEvent{
		Level:           level,
		Timestamp:       time.Now(),
		LoggerName:      logger,
		Domain:          DefaultDomain,
		RenderedMessage: Render(msg),
		Message:         msg,
		Err:             err,
	}
}

// Routed returns the routed envelope of the event, if it has one.
func (e *RawEvent) Routed() (RoutedMessage, bool) {
	if e == nil {
		return RoutedMessage{}, false
	}
	switch m := e.Message.(type) {
	case RoutedMessage:
		return m, true
	case *RoutedMessage:
		if m != nil {
			return *m, true
		}
	}
	return RoutedMessage{}, false
}

// Service returns the service tag of a routed event, or "".
func (e *RawEvent) Service() string {
	m, _ := e.Routed()
	return m.Service
}

// Render turns an envelope into display text.
func Render(msg Message) string {
	switch m := msg.(type) {
	case nil:
		return ""
	case PlainMessage:
		return RenderValue(m.Value)
	case *PlainMessage:
		if m == nil {
			return ""
		}
		return RenderValue(m.Value)
	case RoutedMessage:
		return RenderValue(m.Payload)
	case *RoutedMessage:
		if m == nil {
			return ""
		}
		return RenderValue(m.Payload)
	default:
		return RenderValue(msg)
	}
}

// RenderValue renders a payload value: strings as-is, scalars with fmt and
// everything else as compact JSON.
func RenderValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.RawMessage:
		return compactJSON(val)
	case []byte:
		return string(val)
	case error:
		return val.Error()
	case fmt.Stringer:
		return val.String()
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(val)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(b)
}

func compactJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
