package alert

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"

	"logship/pkg/diag"
	"logship/pkg/model"
)

// Notification is one outgoing alert email.
type Notification struct {
	Subject  string
	HTMLBody string
	To       []string
	Cc       []string
	Bcc      []string
}

// Notifier delivers alert notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// SplitAddresses splits a ';' or ',' separated address list.
func SplitAddresses(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == ',' })
	out := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// SMTPNotifier sends notifications through an SMTP relay.
type SMTPNotifier struct {
	addr  string
	from  string
	auth  smtp.Auth
	async bool
	diag  diag.Diagnostics
}

// NewSMTPNotifier builds a notifier for host ("host" or "host:port", port 25
// by default). Credentials are optional; domain is sent as the
// authorization identity. Async sends report failures to d instead of
// returning them.
func NewSMTPNotifier(s Settings, d diag.Diagnostics) (*SMTPNotifier, error) {
	if strings.TrimSpace(s.SMTPHost) == "" {
		return nil, fmt.Errorf("%w: no smtp host", model.ErrConfiguration)
	}
	if strings.TrimSpace(s.From) == "" {
		return nil, fmt.Errorf("%w: no sender email address", model.ErrConfiguration)
	}

	addr := s.SMTPHost
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
		addr = net.JoinHostPort(addr, "25")
	}

	n := &SMTPNotifier{
		addr:  addr,
		from:  s.From,
		async: s.Async,
		diag:  diag.OrNop(d),
	}
	if s.User != "" {
		n.auth = smtp.PlainAuth(s.Domain, s.User, s.Password, host)
	}
	return n, nil
}

func (n *SMTPNotifier) message(notification Notification) *email.Email {
	e := email.NewEmail()
	e.From = n.from
	e.To = notification.To
	e.Cc = notification.Cc
	e.Bcc = notification.Bcc
	e.Subject = notification.Subject
	e.HTML = []byte(notification.HTMLBody)
	return e
}

func (n *SMTPNotifier) Notify(ctx context.Context, notification Notification) error {
	if len(notification.To) == 0 {
		return fmt.Errorf("%w: no receive email address", model.ErrConfiguration)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e := n.message(notification)
	if !n.async {
		return n.send(e)
	}
	go func() {
		if err := n.send(e); err != nil {
			n.diag.Report(model.LevelError, "Failed to send alert email", err)
		}
	}()
	return nil
}

func (n *SMTPNotifier) send(e *email.Email) error {
	if err := e.Send(n.addr, n.auth); err != nil {
		return fmt.Errorf("%w: smtp %s: %v", model.ErrDelivery, n.addr, err)
	}
	return nil
}
