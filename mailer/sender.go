package mailer

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog"
)

// Sender delivers a fully formatted RFC 5322 message.
type Sender interface {
	Send(ctx context.Context, to []string, subject string, rawMessage []byte) error
}

// SMTPSender delivers through an SMTP relay with PLAIN auth.
type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth
}

func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%d", host, port),
		from: from,
		auth: auth,
	}
}

func (s *SMTPSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := smtp.SendMail(s.addr, s.auth, s.from, to, rawMessage); err != nil {
		return fmt.Errorf("smtp error: %w", err)
	}
	return nil
}

// LogSender only logs the message. Used in development and when no relay is configured.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	s.log.Info().
		Strs("to", to).
		Str("subject", subject).
		Int("bytes", len(rawMessage)).
		Msg("email (log transport)")
	s.log.Debug().Msg(string(rawMessage))
	return nil
}
