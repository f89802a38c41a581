package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type dataError struct {
	msg string
}

func (e *dataError) Error() string        { return e.msg }
func (e *dataError) StackTrace() string   { return "main.go:12" }
func (e *dataError) Data() map[string]any { return map[string]any{"order": 42} }

func TestRenderValue(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{name: "nil", input: nil, want: ""},
		{name: "string", input: "hello", want: "hello"},
		{name: "int", input: 42, want: "42"},
		{name: "bool", input: true, want: "true"},
		{name: "raw json", input: json.RawMessage(`{ "a" : 1 }`), want: `{"a":1}`},
		{name: "struct", input: struct {
			User string `json:"user"`
		}{User: "ada"}, want: `{"user":"ada"}`},
		{name: "error", input: errors.New("boom"), want: "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderValue(tt.input); got != tt.want {
				t.Errorf("RenderValue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewRoutedNormalizesService(t *testing.T) {
	m := NewRouted("payload", "billing.api", "7")
	if m.Service != "billing_api" {
		t.Fatalf("expected service billing_api, got %s", m.Service)
	}
	if Render(m) != "payload" {
		t.Fatalf("unexpected render: %s", Render(m))
	}
}

func TestNormalizeRoutedEvent(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 30, 0, 0, time.FixedZone("CET", 3600))
	payload := map[string]any{"order": "A-1"}
	routed := NewRouted(payload, "billing", "worker-3")
	routed.Location = "Billing.Charge(billing.go:10)"
	ev := &RawEvent{
		Level:           LevelWarn,
		Timestamp:       ts,
		LoggerName:      "billing.Charger",
		Domain:          "svc",
		ThreadName:      "1",
		RenderedMessage: Render(routed),
		Message:         routed,
	}

	got, err := Normalize(ev)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	want := Record{
		TimeStamp:     "2024-03-01T09:30:00.0000000Z",
		Message:       `{"order":"A-1"}`,
		MessageObject: payload,
		LoggerName:    "billing.Charger",
		Domain:        "svc",
		Level:         "WARN",
		LocationInfo:  "Billing.Charge(billing.go:10)",
		ThreadName:    "worker-3",
		Service:       "billing",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizePlainStringHasNoMessageObject(t *testing.T) {
	ev := NewEvent(LevelInfo, "app", PlainMessage{Value: "hello"}, nil)
	got, err := Normalize(ev)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if got.MessageObject != nil {
		t.Errorf("expected nil MessageObject, got %v", got.MessageObject)
	}
	if got.Service != "" {
		t.Errorf("expected no service, got %s", got.Service)
	}
	b, _ := json.Marshal(got)
	if strings.Contains(string(b), "MessageObject") || strings.Contains(string(b), "Exception") {
		t.Errorf("optional fields should be omitted: %s", b)
	}
}

func TestNormalizeExceptionChain(t *testing.T) {
	inner := &dataError{msg: "disk full"}
	outer := fmt.Errorf("write segment: %w", inner)
	ev := NewEvent(LevelError, "store", PlainMessage{Value: "flush failed"}, outer)

	got, err := Normalize(ev)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if got.Exception == nil {
		t.Fatal("expected exception")
	}
	if got.Exception.Message != "write segment: disk full" {
		t.Errorf("unexpected outer message: %s", got.Exception.Message)
	}
	in := got.Exception.InnerException
	if in == nil {
		t.Fatal("expected inner exception")
	}
	if in.Type != "*model.dataError" || in.StackTrace != "main.go:12" || in.Data["order"] != 42 {
		t.Errorf("unexpected inner exception: %+v", in)
	}
}

func TestNormalizeNilEvent(t *testing.T) {
	if _, err := Normalize(nil); !errors.Is(err, ErrTransformation) {
		t.Fatalf("expected ErrTransformation, got %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug": LevelDebug,
		"INFO":  LevelInfo,
		"warn":  LevelWarn,
		"Error": LevelError,
		"fatal": LevelFatal,
		"off":   LevelOff,
		"":      LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
