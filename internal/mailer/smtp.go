package mailer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"meldish/internal/platform/config"
)

// SMTPSender delivers mail over plain SMTP with optional PLAIN auth.
type SMTPSender struct {
	cfg config.SMTPConfig
}

// NewSMTP constructs an SMTP-backed sender.
func NewSMTP(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return &SendError{Kind: FailureConnection, Err: err}
	}

	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	payload := strings.Join([]string{
		"From: " + s.cfg.From,
		"To: " + msg.To,
		"Subject: " + msg.Subject,
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="UTF-8"`,
		"",
		msg.Body,
	}, "\r\n")

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{msg.To}, []byte(payload)); err != nil {
		return &SendError{Kind: classify(err), Err: err}
	}
	return nil
}

// classify buckets SMTP failures by reply code family or network error.
func classify(err error) FailureKind {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return FailureConnection
	}

	text := err.Error()
	switch {
	case strings.HasPrefix(text, "535") || strings.Contains(text, "authentication"):
		return FailureAuthentication
	case strings.HasPrefix(text, "550") || strings.HasPrefix(text, "553"):
		return FailureInvalidRecipient
	case len(text) >= 3 && (text[0] == '4' || text[0] == '5'):
		return FailureSMTP
	default:
		return FailureUnknown
	}
}
