package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"logship/pkg/model"
)

// Operator defines the comparison operation for attribute filtering
type Operator string

const (
	OpEquals   Operator = "equals"
	OpContains Operator = "contains"
	OpRegex    Operator = "regex"
)

// wellKnownPaths defines where common attributes live in a normalized record.
// When the user specifies an "attribute" (not explicit "path"), we search these locations.
var wellKnownPaths = map[string][]string{
	"service": {
		"Service",
		"MessageObject.service",
		"MessageObject.service\\.name",
	},
	"level": {
		"Level",
	},
	"logger": {
		"LoggerName",
	},
	"thread": {
		"ThreadName",
	},
	"message": {
		"Message",
	},
	"exception.type": {
		"Exception.Type",
	},
}

// genericSearchPaths are tried for any attribute not in wellKnownPaths
var genericSearchPaths = []string{
	"%s",               // top-level record field
	"MessageObject.%s", // structured payload
	"Exception.Data.%s",
}

// AttributeFilterProcessor drops events based on values in their normalized
// JSON document. Supports well-known attributes (auto-search) and explicit paths.
type AttributeFilterProcessor struct {
	name     string
	attr     string // well-known attribute name (auto-search mode)
	path     string // explicit gjson path (explicit mode)
	operator Operator
	value    string
	regex    *regexp.Regexp // compiled regex if operator is OpRegex
}

// AttributeFilterConfig holds configuration for creating an AttributeFilterProcessor
type AttributeFilterConfig struct {
	Name      string
	Attribute string // use this for well-known attributes (auto-search)
	Path      string // use this for explicit paths, "/" separated
	Operator  Operator
	Value     string
}

// NewAttributeFilterProcessor creates a new attribute filter processor.
// Either Attribute or Path must be specified, not both.
func NewAttributeFilterProcessor(cfg AttributeFilterConfig) (*AttributeFilterProcessor, error) {
	if cfg.Attribute == "" && cfg.Path == "" {
		return nil, fmt.Errorf("either attribute or path must be specified")
	}
	if cfg.Attribute != "" && cfg.Path != "" {
		return nil, fmt.Errorf("cannot specify both attribute and path")
	}

	p := &AttributeFilterProcessor{
		name:     cfg.Name,
		attr:     cfg.Attribute,
		path:     cfg.Path,
		operator: cfg.Operator,
		value:    cfg.Value,
	}

	switch cfg.Operator {
	case "", OpEquals, OpContains:
	case OpRegex:
		re, err := regexp.Compile(cfg.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern: %w", err)
		}
		p.regex = re
	default:
		return nil, fmt.Errorf("unknown operator %q", cfg.Operator)
	}

	if p.operator == "" {
		p.operator = OpEquals
	}

	return p, nil
}

func (p *AttributeFilterProcessor) Name() string {
	return p.name
}

// Process checks if the event matches the filter criteria.
// Returns (event, drop=true, nil) if the attribute matches and the event should be dropped.
func (p *AttributeFilterProcessor) Process(ctx *ProcessingContext, ev *model.RawEvent) (*model.RawEvent, bool, error) {
	doc := ctx.Document(ev)
	// Fail-open: an event that can't be encoded passes through
	if len(doc) == 0 || !gjson.ValidBytes(doc) {
		return ev, false, nil
	}

	var value gjson.Result
	if p.path != "" {
		value = gjson.GetBytes(doc, convertToGjsonPath(p.path))
	} else {
		value = p.searchAttribute(doc)
	}

	// Attribute not found - pass through (fail-open)
	if !value.Exists() {
		return ev, false, nil
	}

	return ev, p.matchValue(value), nil
}

// searchAttribute looks for the attribute in well-known paths,
// falling back to generic search paths.
func (p *AttributeFilterProcessor) searchAttribute(doc []byte) gjson.Result {
	if paths, ok := wellKnownPaths[p.attr]; ok {
		for _, path := range paths {
			result := gjson.GetBytes(doc, path)
			if result.Exists() {
				return result
			}
		}
	}

	// Escape dots in attribute name for gjson
	escapedAttr := strings.ReplaceAll(p.attr, ".", "\\.")
	for _, pathTemplate := range genericSearchPaths {
		result := gjson.GetBytes(doc, fmt.Sprintf(pathTemplate, escapedAttr))
		if result.Exists() {
			return result
		}
	}

	return gjson.Result{}
}

// matchValue checks if the gjson result matches based on the operator
func (p *AttributeFilterProcessor) matchValue(value gjson.Result) bool {
	strValue := value.String()

	switch p.operator {
	case OpEquals:
		return strValue == p.value
	case OpContains:
		return strings.Contains(strValue, p.value)
	case OpRegex:
		if p.regex == nil {
			return false
		}
		return p.regex.MatchString(strValue)
	default:
		return false
	}
}

// convertToGjsonPath converts user-friendly path (using /) to gjson path.
// Example: "MessageObject/user/id.v2" -> "MessageObject.user.id\.v2"
func convertToGjsonPath(userPath string) string {
	parts := strings.Split(userPath, "/")
	for i, part := range parts {
		// Escape dots within each part (they're literal key names)
		parts[i] = strings.ReplaceAll(part, ".", "\\.")
	}
	return strings.Join(parts, ".")
}
