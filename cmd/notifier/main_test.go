package main

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/work-location-scheduler/internal/config"
	"github.com/iliyamo/work-location-scheduler/internal/mailer"
	"github.com/iliyamo/work-location-scheduler/internal/queue"
)

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"--date", "2025-05-06", "--dry-run"}, io.Discard)
	require.NoError(t, err)
	assert.True(t, opts.dryRun)
	assert.Equal(t, time.Date(2025, 5, 6, 0, 0, 0, 0, time.UTC), opts.today(time.Now()))

	now := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	opts, err = parseFlags(nil, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, now, opts.today(now))

	_, err = parseFlags([]string{"--date", "06/05/2025"}, io.Discard)
	assert.Error(t, err)
	_, err = parseFlags([]string{"--bogus"}, io.Discard)
	assert.Error(t, err)
}

func TestBuildMailer(t *testing.T) {
	logger := discardLogger()
	for transport, check := range map[string]func(m mailer.Mailer) bool{
		config.MailTransportLog:   func(m mailer.Mailer) bool { _, ok := m.(mailer.LogMailer); return ok },
		config.MailTransportSMTP:  func(m mailer.Mailer) bool { _, ok := m.(*mailer.SMTPMailer); return ok },
		config.MailTransportQueue: func(m mailer.Mailer) bool { _, ok := m.(*queue.Publisher); return ok },
	} {
		m, closeFn := buildMailer(config.Config{MailTransport: transport, SMTPHost: "smtp.example.com"}, logger)
		assert.True(t, check(m), transport)
		closeFn()
	}
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }
