// Package notify emails the finished mashup to the requester.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	netmail "net/mail"
	"os"
	"path/filepath"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/AnMaster15/mashupp/internal/model"
)

// Message is one outgoing email with a single attachment
type Message struct {
	To             string
	Subject        string
	Body           string
	AttachmentPath string
}

// Sender delivers a message
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// deliverFunc hands a built message to the relay
type deliverFunc func(ctx context.Context, msg *mail.Msg) error

// SMTPSender sends through an authenticated SMTP relay with mandatory
// STARTTLS
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	logger   *slog.Logger
	deliver  deliverFunc
}

// NewSMTPSender creates a sender. username is also the From address.
func NewSMTPSender(host string, port int, username, password string, logger *slog.Logger) *SMTPSender {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		logger:   logger,
	}
	s.deliver = s.dialAndSend
	return s
}

// Send validates msg, builds it and delivers it once. Every failure wraps
// model.ErrNotify.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	to, err := ValidateAddress(msg.To)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrNotify, err)
	}
	if _, err := os.Stat(msg.AttachmentPath); err != nil {
		return fmt.Errorf("%w: attachment: %w", model.ErrNotify, err)
	}

	m, err := s.buildMessage(to, msg)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrNotify, err)
	}

	if err := s.deliver(ctx, m); err != nil {
		s.logger.Warn("email delivery failed",
			slog.String("to", to),
			slog.String("host", s.host),
			slog.Any("error", err),
		)
		return fmt.Errorf("%w: %w", model.ErrNotify, err)
	}

	s.logger.Info("email sent",
		slog.String("to", to),
		slog.String("attachment", filepath.Base(msg.AttachmentPath)),
	)
	return nil
}

// buildMessage assembles the plain text message with its attachment
func (s *SMTPSender) buildMessage(to string, msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.username); err != nil {
		return nil, fmt.Errorf("sender address: %w", err)
	}
	if err := m.To(to); err != nil {
		return nil, fmt.Errorf("recipient address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	m.AttachFile(msg.AttachmentPath)
	return m, nil
}

// dialAndSend opens one connection to the relay, sends and closes it
func (s *SMTPSender) dialAndSend(ctx context.Context, m *mail.Msg) error {
	client, err := mail.NewClient(s.host,
		mail.WithPort(s.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.username),
		mail.WithPassword(s.password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, m)
}

// ValidateAddress checks that raw is a single plain email address and
// returns it without display name
func ValidateAddress(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: email address is empty", model.ErrInvalidInput)
	}
	addr, err := netmail.ParseAddress(raw)
	if err != nil {
		return "", fmt.Errorf("%w: invalid email address %q: %w", model.ErrInvalidInput, raw, err)
	}
	return addr.Address, nil
}
