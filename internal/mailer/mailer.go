// Package mailer delivers plain-text notification mail.
package mailer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// ErrNoRecipient is returned for a message without a To address.
var ErrNoRecipient = errors.New("mail: no recipient")

// Message is a single plain-text mail to one recipient.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Validate checks the parts every transport needs.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrNoRecipient
	}
	if strings.ContainsAny(m.To, "\r\n") || strings.ContainsAny(m.Subject, "\r\n") {
		return errors.New("mail: header values must not contain line breaks")
	}
	return nil
}

// Mailer sends one message. Implementations must be safe for sequential use
// by a single batch; concurrent use is not required.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	Logger *slog.Logger
}

func (l LogMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	l.Logger.InfoContext(ctx, "mail (log transport)",
		slog.String("to", msg.To), slog.String("subject", msg.Subject), slog.String("body", msg.Body))
	return nil
}
