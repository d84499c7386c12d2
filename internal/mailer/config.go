package mailer

import (
	"log/slog"

	"github.com/iliyamo/work-location-scheduler/internal/config"
)

// SMTPConfigFrom extracts the SMTP settings from the application config.
func SMTPConfigFrom(cfg config.Config) SMTPConfig {
	return SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	}
}

// NewDirect returns the mailer that actually delivers: SMTP when a host is
// configured, otherwise the log transport.
func NewDirect(cfg config.Config, logger *slog.Logger) Mailer {
	if cfg.SMTPHost == "" {
		return LogMailer{Logger: logger}
	}
	return NewSMTPMailer(SMTPConfigFrom(cfg))
}
