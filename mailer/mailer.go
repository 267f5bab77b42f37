// Package mailer implements the trigger-action collaborator: sending the
// support email that causes the helpdesk to eventually create a conversation
// thread referencing the customer's address.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/intakehq/threadlink/resolver"
)

// Message is one outbound support email. Body composition and template
// rendering happen upstream; the mailer only delivers.
type Message struct {
	To      string
	Subject string
	Body    string
}

// SMTP delivers messages over a plain SMTP relay.
type SMTP struct {
	addr string
	from string
	auth smtp.Auth
	// send is swappable for tests; defaults to smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// Option configures an SMTP mailer.
type Option func(s *SMTP)

// WithAuth sets SMTP authentication.
func WithAuth(auth smtp.Auth) Option {
	return func(s *SMTP) { s.auth = auth }
}

// WithSendFunc overrides the delivery function, used by tests.
func WithSendFunc(send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error) Option {
	return func(s *SMTP) { s.send = send }
}

// NewSMTP creates a mailer delivering through the relay at addr as from.
func NewSMTP(addr, from string, options ...Option) *SMTP {
	ret := &SMTP{addr: addr, from: from, send: smtp.SendMail}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// Send delivers msg. net/smtp offers no context plumbing, so cancellation is
// honored only between dial attempts.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.To == "" {
		return fmt.Errorf("mailer: message has no recipient")
	}
	return s.send(s.addr, s.auth, s.from, []string{msg.To}, encode(s.from, msg))
}

// TriggerFor binds msg into a resolver.TriggerFunc so the correlation engine
// can send it as the external action.
func (s *SMTP) TriggerFor(msg Message) resolver.TriggerFunc {
	return func(ctx context.Context) error {
		return s.Send(ctx, msg)
	}
}

func encode(from string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
