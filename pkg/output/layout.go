package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"logship/pkg/model"
)

// Layout selects how local sinks render an event.
type Layout string

const (
	// LayoutText renders "date [thread] LEVEL logger - message".
	LayoutText Layout = "text"
	// LayoutJSON renders the normalized record, one per line.
	LayoutJSON Layout = "json"
)

const textTimeLayout = "2006-01-02 15:04:05,000"

// ParseLayout defaults to LayoutText.
func ParseLayout(s string) Layout {
	if strings.EqualFold(strings.TrimSpace(s), string(LayoutJSON)) {
		return LayoutJSON
	}
	return LayoutText
}

// Format renders ev as one entry, terminated by a newline.
func (l Layout) Format(ev *model.RawEvent) ([]byte, error) {
	if ev == nil {
		return nil, fmt.Errorf("%w: nil event", model.ErrTransformation)
	}
	if l == LayoutJSON {
		rec, err := model.Normalize(ev)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrTransformation, err)
		}
		return append(b, '\n'), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s] %-5s %s - %s\n",
		ev.Timestamp.Format(textTimeLayout), ev.ThreadName, ev.Level, ev.LoggerName, ev.RenderedMessage)
	for err, depth := ev.Err, 0; err != nil && depth < 8; depth++ {
		fmt.Fprintf(&sb, "%T: %s\n", err, err.Error())
		err = errors.Unwrap(err)
	}
	return []byte(sb.String()), nil
}
