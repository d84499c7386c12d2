package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/work-location-scheduler/internal/mailer"
)

// sendTimeout bounds delivery of a single queued message.
const sendTimeout = 30 * time.Second

// StartMailConsumer consumes queueName and delivers each message through m.
// It reconnects with exponential backoff (capped at 30s) until ctx is
// cancelled. Undecodable messages are rejected without requeue; a failed
// delivery is requeued once and dropped if it fails again on redelivery.
func StartMailConsumer(ctx context.Context, url, queueName string, m mailer.Mailer, logger *slog.Logger) error {
	if queueName == "" {
		queueName = DefaultMailQueue
	}
	logger = logger.With(slog.String("component", "mail-consumer"), slog.String("queue", queueName))

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			logger.Warn("dial broker failed", slog.Any("error", err), slog.Duration("retry_in", backoff))
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, queueName, m, logger)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("consume loop ended, reconnecting", slog.Any("error", err))
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queueName string, m mailer.Mailer, logger *slog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		logger.Warn("set QoS failed", slog.Any("error", err))
	}
	if err := declareMailQueue(ch, queueName); err != nil {
		return err
	}
	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	logger.Info("consuming")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			settle(d, handleMessage(ctx, d.Body, m), d.Redelivered, logger)
		}
	}
}

// acknowledger is the subset of amqp.Delivery used to settle a message.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func settle(d acknowledger, err error, redelivered bool, logger *slog.Logger) {
	var bad *badMessageError
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.As(err, &bad):
		logger.Error("rejecting malformed message", slog.Any("error", err))
		_ = d.Nack(false, false)
	case redelivered:
		logger.Error("delivery failed again, dropping", slog.Any("error", err))
		_ = d.Nack(false, false)
	default:
		logger.Warn("delivery failed, requeueing", slog.Any("error", err))
		_ = d.Nack(false, true)
	}
}

type badMessageError struct{ err error }

func (e *badMessageError) Error() string { return "bad message: " + e.err.Error() }
func (e *badMessageError) Unwrap() error { return e.err }

func handleMessage(ctx context.Context, body []byte, m mailer.Mailer) error {
	var ev MailRequestedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return &badMessageError{fmt.Errorf("unmarshal: %w", err)}
	}
	if err := ev.validate(); err != nil {
		return &badMessageError{err}
	}
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := m.Send(ctx, ev.Message()); err != nil {
		return fmt.Errorf("send %s to %s: %w", ev.ID, ev.To, err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
