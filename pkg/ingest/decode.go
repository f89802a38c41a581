// Package ingest accepts newline-delimited JSON log events over TCP and UDP
// and hands them to the appender router.
package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/tidwall/gjson"

	"logship/pkg/model"
)

// Target receives decoded events. appender.Router satisfies it.
type Target interface {
	Append(events ...*model.RawEvent)
}

// Decode turns one line into an event. JSON objects may carry level, logger,
// domain, thread, timestamp (RFC 3339), message (any JSON value), service
// and error. A service field makes the event routed. Anything that is not a
// JSON object becomes a plain INFO message.
func Decode(line []byte) *model.RawEvent {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}
	if !gjson.ValidBytes(line) || !gjson.ParseBytes(line).IsObject() {
		return model.NewEvent(model.LevelInfo, "logship.ingest", model.PlainMessage{Value: string(line)}, nil)
	}

	doc := gjson.ParseBytes(line)
	level := model.ParseLevel(doc.Get("level").String())
	logger := doc.Get("logger").String()
	if logger == "" {
		logger = "logship.ingest"
	}

	var payload any
	if m := doc.Get("message"); m.Exists() {
		if m.Type == gjson.String {
			payload = m.String()
		} else {
			payload = json.RawMessage(m.Raw)
		}
	}

	var msg model.Message = model.PlainMessage{Value: payload}
	if service := doc.Get("service"); service.Exists() {
		msg = model.NewRouted(payload, service.String(), doc.Get("thread").String())
	}

	var err error
	if e := doc.Get("error").String(); e != "" {
		err = errors.New(e)
	}

	ev := model.NewEvent(level, logger, msg, err)
	if d := doc.Get("domain").String(); d != "" {
		ev.Domain = d
	}
	ev.ThreadName = doc.Get("thread").String()
	if ts, perr := time.Parse(time.RFC3339Nano, doc.Get("timestamp").String()); perr == nil {
		ev.Timestamp = ts
	}
	return ev
}
