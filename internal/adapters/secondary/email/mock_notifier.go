package email

import (
	"context"
	"log/slog"

	"github.com/renholm/ticket-triage-backend/internal/core/domain"
	"github.com/renholm/ticket-triage-backend/internal/core/ports"
)

// MockSMTPNotifier is a secondary adapter that mocks sending emails.
// It implements the ports.Notifier interface and is selected when no
// SMTP host is configured.
type MockSMTPNotifier struct {
	logger *slog.Logger
}

var _ ports.Notifier = (*MockSMTPNotifier)(nil)

// NewMockSMTPNotifier creates a new mock notifier.
func NewMockSMTPNotifier(logger *slog.Logger) *MockSMTPNotifier {
	return &MockSMTPNotifier{
		logger: logger.With("component", "email_notifier"),
	}
}

// NotifyAssignment logs the notification to the console instead of
// sending an email.
func (n *MockSMTPNotifier) NotifyAssignment(ctx context.Context, assignee *domain.User, ticket *domain.Ticket) error {
	n.logger.Info("mock email sent",
		"to_name", assignee.FullName,
		"to_email", assignee.Email,
		"subject", "Ticket Assigned",
		"ticket_id", ticket.ID,
	)
	return nil
}
