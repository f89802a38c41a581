// Package alert watches how long document store sends take and raises local
// warnings and rate-limited email alerts for slow ones.
package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"os"
	"strings"
	"time"

	"github.com/benbjohnson/clock"

	"logship/pkg/diag"
	"logship/pkg/metrics"
	"logship/pkg/model"
)

// DefaultDailyCap is how many alert emails may go out per calendar day.
const DefaultDailyCap = 3

// Settings holds alert thresholds and email settings. A zero threshold
// disables that alert.
type Settings struct {
	LocalAlert time.Duration
	EmailAlert time.Duration

	SMTPHost string
	From     string
	To       string
	User     string
	Password string
	Domain   string
	Async    bool

	DailyCap int
	// BufferSize is quoted in alert texts.
	BufferSize int
}

// EmailEnabled reports whether enough is configured to send email.
func (s Settings) EmailEnabled() bool {
	return s.EmailAlert > 0 &&
		strings.TrimSpace(s.SMTPHost) != "" &&
		strings.TrimSpace(s.From) != "" &&
		strings.TrimSpace(s.To) != ""
}

// Options are the collaborators of a Policy.
type Options struct {
	Counter     DayCounter
	Notifier    Notifier
	Diagnostics diag.Diagnostics
	Clock       clock.Clock
	Metrics     *metrics.Metrics
}

// Policy decides what to do about a completed batch send. Each policy owns
// its day counter.
type Policy struct {
	settings Settings
	counter  DayCounter
	notifier Notifier
	diag     diag.Diagnostics
	clock    clock.Clock
	metrics  *metrics.Metrics
	hostname string
}

func NewPolicy(s Settings, opts Options) *Policy {
	if s.DailyCap <= 0 {
		s.DailyCap = DefaultDailyCap
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Counter == nil {
		opts.Counter = NewMemoryCounter()
	}
	host, _ := os.Hostname()
	return &Policy{
		settings: s,
		counter:  opts.Counter,
		notifier: opts.Notifier,
		diag:     diag.OrNop(opts.Diagnostics),
		clock:    opts.Clock,
		metrics:  opts.Metrics,
		hostname: host,
	}
}

// SlowSendMessage is the alert text for a send that took elapsed.
func SlowSendMessage(elapsed time.Duration, bufferSize int) string {
	return fmt.Sprintf("took too much time (%dms) to push data to the document store [BufferSize: %d]",
		elapsed.Milliseconds(), bufferSize)
}

// Observe is called after every completed batch send.
func (p *Policy) Observe(ctx context.Context, elapsed time.Duration, payload []model.Record) {
	msg := SlowSendMessage(elapsed, p.settings.BufferSize)

	if p.settings.LocalAlert > 0 && elapsed > p.settings.LocalAlert {
		p.diag.Report(model.LevelWarn, msg, nil)
	}

	if !p.settings.EmailEnabled() || elapsed <= p.settings.EmailAlert || p.notifier == nil {
		return
	}

	allowed, err := p.counter.Acquire(ctx, p.clock.Now(), p.settings.DailyCap)
	if err != nil {
		p.metrics.Alert("failed")
		p.diag.Report(model.LevelError, "Failed to check the daily alert email cap", err)
		return
	}
	if !allowed {
		p.metrics.Alert("suppressed")
		return
	}

	if err := p.notifier.Notify(ctx, p.notification(msg, payload)); err != nil {
		p.metrics.Alert("failed")
		p.diag.Report(model.LevelError, "Failed to send alert email", err)
		return
	}
	p.metrics.Alert("sent")
}

func (p *Policy) notification(msg string, payload []model.Record) Notification {
	env := ""
	if p.hostname != "" {
		env = " (" + p.hostname + ")"
	}

	details, err := json.Marshal(struct {
		Message string         `json:"message"`
		LogInfo []model.Record `json:"logInfo"`
	}{msg, payload})
	if err != nil {
		details = []byte(msg)
	}

	var body strings.Builder
	body.WriteString("Log service warning:<br/>")
	body.WriteString(html.EscapeString(string(details)))
	body.WriteString("<br/><br/>(This is a system generated email, please do not reply.)<br/><br/>")

	return Notification{
		Subject:  "Log service warning" + env,
		HTMLBody: body.String(),
		To:       SplitAddresses(p.settings.To),
	}
}
