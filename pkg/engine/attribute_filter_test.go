package engine

import (
	"encoding/json"
	"errors"
	"testing"

	"logship/pkg/model"
)

func routedEvent(payload, service string) *model.RawEvent {
	return model.NewEvent(model.LevelInfo, "app.Handler",
		model.NewRouted(json.RawMessage(payload), service, ""), nil)
}

func plainEvent(level model.Level, msg string) *model.RawEvent {
	return model.NewEvent(level, "app.Handler", model.PlainMessage{Value: msg}, nil)
}

func TestAttributeFilter_EqualsOperator(t *testing.T) {
	proc, err := NewAttributeFilterProcessor(AttributeFilterConfig{
		Name:      "test",
		Attribute: "service",
		Operator:  OpEquals,
		Value:     "test-service",
	})
	if err != nil {
		t.Fatalf("Failed to create processor: %v", err)
	}

	tests := []struct {
		name     string
		input    *model.RawEvent
		wantDrop bool
	}{
		{
			name:     "exact match - drop",
			input:    routedEvent(`{"message": "hello"}`, "test-service"),
			wantDrop: true,
		},
		{
			name:     "no match - pass",
			input:    routedEvent(`{"message": "hello"}`, "prod-service"),
			wantDrop: false,
		},
		{
			name:     "partial match - pass (equals is exact)",
			input:    routedEvent(`{"message": "hello"}`, "test-service-v2"),
			wantDrop: false,
		},
		{
			name:     "service in payload - drop",
			input:    routedEvent(`{"service": "test-service"}`, ""),
			wantDrop: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, drop, err := proc.Process(nil, tt.input)
			if err != nil {
				t.Errorf("Process() error = %v", err)
			}
			if drop != tt.wantDrop {
				t.Errorf("Process() drop = %v, want %v", drop, tt.wantDrop)
			}
		})
	}
}

func TestAttributeFilter_ContainsOperator(t *testing.T) {
	proc, err := NewAttributeFilterProcessor(AttributeFilterConfig{
		Name:      "test",
		Attribute: "message",
		Operator:  OpContains,
		Value:     "healthcheck",
	})
	if err != nil {
		t.Fatalf("Failed to create processor: %v", err)
	}

	tests := []struct {
		name     string
		input    *model.RawEvent
		wantDrop bool
	}{
		{"contains match - drop", plainEvent(model.LevelInfo, "GET /healthcheck 200"), true},
		{"contains match at start - drop", plainEvent(model.LevelInfo, "healthcheck ok"), true},
		{"no match - pass", plainEvent(model.LevelInfo, "GET /orders 200"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, drop, _ := proc.Process(nil, tt.input)
			if drop != tt.wantDrop {
				t.Errorf("Process() drop = %v, want %v", drop, tt.wantDrop)
			}
		})
	}
}

func TestAttributeFilter_RegexOperator(t *testing.T) {
	proc, err := NewAttributeFilterProcessor(AttributeFilterConfig{
		Name:      "test",
		Attribute: "logger",
		Operator:  OpRegex,
		Value:     "^Noisy\\..*$",
	})
	if err != nil {
		t.Fatalf("Failed to create processor: %v", err)
	}

	tests := []struct {
		name     string
		logger   string
		wantDrop bool
	}{
		{"regex match - drop", "Noisy.Poller", true},
		{"regex match nested - drop", "Noisy.Cache.Evictor", true},
		{"no match - pass", "Orders.Api", false},
		{"anchored - pass", "My.Noisy.Poller", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := plainEvent(model.LevelInfo, "tick")
			ev.LoggerName = tt.logger
			_, drop, _ := proc.Process(nil, ev)
			if drop != tt.wantDrop {
				t.Errorf("Process() drop = %v, want %v", drop, tt.wantDrop)
			}
		})
	}
}

func TestAttributeFilter_LevelAttribute(t *testing.T) {
	proc, err := NewAttributeFilterProcessor(AttributeFilterConfig{
		Name:      "drop_debug",
		Attribute: "level",
		Value:     "DEBUG",
	})
	if err != nil {
		t.Fatalf("Failed to create processor: %v", err)
	}

	if _, drop, _ := proc.Process(nil, plainEvent(model.LevelDebug, "x")); !drop {
		t.Error("expected DEBUG event to be dropped")
	}
	if _, drop, _ := proc.Process(nil, plainEvent(model.LevelError, "x")); drop {
		t.Error("expected ERROR event to pass")
	}
}

func TestAttributeFilter_ExplicitPath(t *testing.T) {
	proc, err := NewAttributeFilterProcessor(AttributeFilterConfig{
		Name:     "test",
		Path:     "MessageObject/labels/app.name",
		Operator: OpEquals,
		Value:    "my-app",
	})
	if err != nil {
		t.Fatalf("Failed to create processor: %v", err)
	}

	tests := []struct {
		name     string
		input    *model.RawEvent
		wantDrop bool
	}{
		{
			name:     "nested path match - drop",
			input:    routedEvent(`{"labels": {"app.name": "my-app"}}`, "svc"),
			wantDrop: true,
		},
		{
			name:     "nested path no match - pass",
			input:    routedEvent(`{"labels": {"app.name": "other-app"}}`, "svc"),
			wantDrop: false,
		},
		{
			name:     "path not found - pass",
			input:    routedEvent(`{"other": "data"}`, "svc"),
			wantDrop: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, drop, _ := proc.Process(nil, tt.input)
			if drop != tt.wantDrop {
				t.Errorf("Process() drop = %v, want %v", drop, tt.wantDrop)
			}
		})
	}
}

func TestAttributeFilter_NumericValues(t *testing.T) {
	proc, err := NewAttributeFilterProcessor(AttributeFilterConfig{
		Name:      "test",
		Attribute: "http.status_code",
		Operator:  OpEquals,
		Value:     "200",
	})
	if err != nil {
		t.Fatalf("Failed to create processor: %v", err)
	}

	tests := []struct {
		name     string
		input    *model.RawEvent
		wantDrop bool
	}{
		{"integer status - drop", routedEvent(`{"http.status_code": 200}`, "web"), true},
		{"string status - drop", routedEvent(`{"http.status_code": "200"}`, "web"), true},
		{"other status - pass", routedEvent(`{"http.status_code": 500}`, "web"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, drop, _ := proc.Process(nil, tt.input)
			if drop != tt.wantDrop {
				t.Errorf("Process() drop = %v, want %v", drop, tt.wantDrop)
			}
		})
	}
}

type codedError struct{ code string }

func (e codedError) Error() string { return "failed with " + e.code }
func (e codedError) Data() map[string]any { return map[string]any{"code": e.code} }

func TestAttributeFilter_GenericSearchPaths(t *testing.T) {
	proc, err := NewAttributeFilterProcessor(AttributeFilterConfig{
		Name:      "test",
		Attribute: "code",
		Operator:  OpEquals,
		Value:     "E42",
	})
	if err != nil {
		t.Fatalf("Failed to create processor: %v", err)
	}

	fromPayload := routedEvent(`{"code": "E42"}`, "svc")
	fromException := model.NewEvent(model.LevelError, "app", model.PlainMessage{Value: "boom"}, codedError{code: "E42"})
	unrelated := routedEvent(`{"code": "E7"}`, "svc")

	if _, drop, _ := proc.Process(nil, fromPayload); !drop {
		t.Error("expected payload field to match")
	}
	if _, drop, _ := proc.Process(nil, fromException); !drop {
		t.Error("expected exception data field to match")
	}
	if _, drop, _ := proc.Process(nil, unrelated); drop {
		t.Error("expected unrelated value to pass")
	}
}

func TestAttributeFilter_ExceptionType(t *testing.T) {
	proc, err := NewAttributeFilterProcessor(AttributeFilterConfig{
		Name:      "test",
		Attribute: "exception.type",
		Operator:  OpContains,
		Value:     "codedError",
	})
	if err != nil {
		t.Fatalf("Failed to create processor: %v", err)
	}

	withErr := model.NewEvent(model.LevelError, "app", model.PlainMessage{Value: "boom"}, codedError{code: "E1"})
	withOther := model.NewEvent(model.LevelError, "app", model.PlainMessage{Value: "boom"}, errors.New("plain"))

	if _, drop, _ := proc.Process(nil, withErr); !drop {
		t.Error("expected exception type match to drop")
	}
	if _, drop, _ := proc.Process(nil, withOther); drop {
		t.Error("expected other exception type to pass")
	}
}

func TestAttributeFilter_SharedContextDocument(t *testing.T) {
	byService, _ := NewAttributeFilterProcessor(AttributeFilterConfig{Name: "svc", Attribute: "service", Value: "nope"})
	byLogger, _ := NewAttributeFilterProcessor(AttributeFilterConfig{Name: "log", Attribute: "logger", Value: "app.Handler"})
	chain := NewProcessorChain(byService, byLogger)

	ctx := NewProcessingContext(nil)
	_, drop, err := chain.Process(ctx, routedEvent(`{"a": 1}`, "billing"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !drop {
		t.Fatal("expected second processor to drop the event")
	}
	if len(ctx.Document(nil)) != 0 {
		t.Fatal("expected nil event to encode to an empty document")
	}
}

func TestAttributeFilter_InvalidConfig(t *testing.T) {
	_, err := NewAttributeFilterProcessor(AttributeFilterConfig{
		Name:     "test",
		Operator: OpEquals,
		Value:    "test",
	})
	if err == nil {
		t.Error("Expected error when neither attribute nor path specified")
	}

	_, err = NewAttributeFilterProcessor(AttributeFilterConfig{
		Name:      "test",
		Attribute: "service",
		Path:      "some/path",
		Operator:  OpEquals,
		Value:     "test",
	})
	if err == nil {
		t.Error("Expected error when both attribute and path specified")
	}

	_, err = NewAttributeFilterProcessor(AttributeFilterConfig{
		Name:      "test",
		Attribute: "service",
		Operator:  OpRegex,
		Value:     "[invalid",
	})
	if err == nil {
		t.Error("Expected error for invalid regex")
	}

	_, err = NewAttributeFilterProcessor(AttributeFilterConfig{
		Name:      "test",
		Attribute: "service",
		Operator:  "startswith",
		Value:     "x",
	})
	if err == nil {
		t.Error("Expected error for unknown operator")
	}
}

func TestConvertToGjsonPath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"MessageObject/labels/app.name", `MessageObject.labels.app\.name`},
		{"Exception/Data/http.code", `Exception.Data.http\.code`},
		{"simple", "simple"},
		{"deeply/nested/path/with.dots", `deeply.nested.path.with\.dots`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := convertToGjsonPath(tt.input); got != tt.expected {
				t.Errorf("convertToGjsonPath(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
