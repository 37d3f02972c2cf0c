package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/renholm/ticket-triage-backend/internal/core/domain"
	"github.com/renholm/ticket-triage-backend/internal/core/ports"
)

// Config for the SMTP notifier.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPNotifier delivers assignment notifications over SMTP. Delivery
// errors are returned to the caller; the triage orchestrator retries
// and ultimately treats them as fail-open.
type SMTPNotifier struct {
	cfg    Config
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	logger *slog.Logger
}

var _ ports.Notifier = (*SMTPNotifier)(nil)

// NewSMTPNotifier creates a new SMTP notifier.
func NewSMTPNotifier(cfg Config, logger *slog.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		cfg:    cfg,
		send:   smtp.SendMail,
		logger: logger.With("component", "email_notifier"),
	}
}

// NotifyAssignment emails the assignee that a ticket landed on their desk.
func (n *SMTPNotifier) NotifyAssignment(ctx context.Context, assignee *domain.User, ticket *domain.Ticket) error {
	subject := "Ticket Assigned"
	body := fmt.Sprintf("A new ticket has been assigned to you: %q", ticket.Title)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", assignee.Email)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)
	msg.WriteString("\r\n")

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	if err := n.send(addr, auth, n.cfg.From, []string{assignee.Email}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	n.logger.Info("assignment email sent",
		"to_email", assignee.Email,
		"ticket_id", ticket.ID,
	)
	return nil
}
