// Package queue moves outbound mail through RabbitMQ: the notifier
// publishes MailRequestedEvent messages and a consumer in the API process
// delivers them over SMTP.
package queue

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/work-location-scheduler/internal/mailer"
)

// DefaultMailQueue is the durable queue mail requests are published to.
const DefaultMailQueue = "mail.outbound"

// MailRequestedEvent asks the consumer to deliver one message. ID lets
// consumers recognise redelivered messages in the logs.
type MailRequestedEvent struct {
	ID          string `json:"id"`
	To          string `json:"to"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	RequestedAt string `json:"requested_at"`
}

// NewMailRequestedEvent stamps msg with a fresh id and the request time.
func NewMailRequestedEvent(msg mailer.Message, now time.Time) MailRequestedEvent {
	return MailRequestedEvent{
		ID:          uuid.NewString(),
		To:          msg.To,
		Subject:     msg.Subject,
		Body:        msg.Body,
		RequestedAt: now.UTC().Format(time.RFC3339),
	}
}

// Message converts the event back into a deliverable message.
func (e MailRequestedEvent) Message() mailer.Message {
	return mailer.Message{To: e.To, Subject: e.Subject, Body: e.Body}
}

func (e MailRequestedEvent) validate() error {
	if e.ID == "" {
		return errors.New("event without id")
	}
	return e.Message().Validate()
}
