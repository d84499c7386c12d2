package mailer

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/work-location-scheduler/internal/config"
)

func TestMessage_Validate(t *testing.T) {
	assert.NoError(t, Message{To: "a@example.com", Subject: "hi"}.Validate())
	assert.ErrorIs(t, Message{To: "  "}.Validate(), ErrNoRecipient)
	assert.Error(t, Message{To: "a@example.com\r\nBcc: x@example.com"}.Validate())
	assert.Error(t, Message{To: "a@example.com", Subject: "hi\nthere"}.Validate())
}

func TestComposeMessage(t *testing.T) {
	now := time.Date(2025, 5, 6, 9, 0, 0, 0, time.UTC)
	raw, err := composeMessage("no-reply@hr.example.com", Message{
		To:      "sato@example.com",
		Subject: "作業場所スケジュールが未登録です",
		Body:    "5月の作業場所スケジュールが登録されていません。",
	}, now)
	require.NoError(t, err)

	parsed, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)

	subject, err := new(mime.WordDecoder).DecodeHeader(parsed.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "作業場所スケジュールが未登録です", subject)
	assert.Equal(t, "sato@example.com", parsed.Header.Get("To"))
	assert.True(t, strings.HasSuffix(parsed.Header.Get("Message-ID"), "@hr.example.com>"))

	body, err := io.ReadAll(quotedprintable.NewReader(parsed.Body))
	require.NoError(t, err)
	assert.Equal(t, "5月の作業場所スケジュールが登録されていません。", string(body))
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := LogMailer{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	require.NoError(t, m.Send(context.Background(), Message{To: "a@example.com", Subject: "s", Body: "b"}))
	assert.Contains(t, buf.String(), "to=a@example.com")
	assert.ErrorIs(t, m.Send(context.Background(), Message{}), ErrNoRecipient)
}

func TestNewDirect(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, isLog := NewDirect(config.Config{}, logger).(LogMailer)
	assert.True(t, isLog)

	cfg := config.Config{SMTPHost: "smtp.example.com", SMTPPort: 587, SMTPUser: "u", MailFrom: "hr@example.com"}
	m, ok := NewDirect(cfg, logger).(*SMTPMailer)
	require.True(t, ok)
	assert.Equal(t, SMTPConfigFrom(cfg), m.cfg)
}
