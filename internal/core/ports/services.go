package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/renholm/ticket-triage-backend/internal/core/domain"
)

// Classifier wraps the external text-classification model.
//
// A transport or protocol failure is returned as an error (the
// orchestrator retries those). Output the model produced but that does
// not parse into a Classification yields (nil, nil): AI unavailability
// degrades triage instead of blocking it.
type Classifier interface {
	Classify(ctx context.Context, ticket *domain.Ticket) (*domain.Classification, error)
}

// ModeratorMatcher selects an assignee for a classification.
// Returns (nil, nil) when nobody is eligible; that is not an error.
type ModeratorMatcher interface {
	FindAssignee(ctx context.Context, classification *domain.Classification) (*domain.User, error)
}

// Notifier delivers an assignment notification. Implementations return
// delivery errors so the orchestrator can retry, but the step is
// fail-open: exhaustion never fails the run.
type Notifier interface {
	NotifyAssignment(ctx context.Context, assignee *domain.User, ticket *domain.Ticket) error
}

// TriageService runs the five-step triage pipeline for one ticket.
// Run never returns an error: every failure mode funnels into the
// TriageResult plus log records.
type TriageService interface {
	Run(ctx context.Context, ticketID int64, attempt int) domain.TriageResult
}

// CreateTicketParams defines the input for creating a new ticket.
type CreateTicketParams struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	RequesterID uuid.UUID
}

// ApplyTriageParams is the ticket updater's input: the assignee (nil
// allowed) and the classification (nil allowed) produced by a run.
type ApplyTriageParams struct {
	TicketID       int64
	AssigneeID     *uuid.UUID
	Classification *domain.Classification
}

// TicketService defines the core business operations for tickets.
type TicketService interface {
	CreateTicket(ctx context.Context, params CreateTicketParams) (*domain.Ticket, error)
	GetTicket(ctx context.Context, ticketID int64, viewerID uuid.UUID) (*domain.Ticket, error)
	ListTickets(ctx context.Context, viewerID uuid.UUID, params ListTicketsParams) ([]*domain.Ticket, error)

	// ApplyTriageResult persists a run's outcome atomically. Storage
	// errors are returned as-is and treated as retriable by the caller.
	ApplyTriageResult(ctx context.Context, params ApplyTriageParams) error
}

// AuthService defines the port for authentication business logic.
type AuthService interface {
	Register(ctx context.Context, params domain.UserRegistrationParams) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, error)
}

// AdminService defines the port for admin-only user management.
type AdminService interface {
	ListUsers(ctx context.Context, actor *domain.User) ([]*domain.User, error)
	UpdateUser(ctx context.Context, actor *domain.User, params UpdateUserParams) (*domain.User, error)
}

// EventHandler consumes a bus event.
type EventHandler func(ctx context.Context, event domain.Event)

// EventBus is the in-process trigger channel: ticket creation publishes
// ticket/created, the triage subscriber consumes it.
type EventBus interface {
	Publish(ctx context.Context, event domain.Event)
	Subscribe(eventType domain.EventType, handler EventHandler)
}

// EventBroadcaster pushes events to the live feed (websocket hub).
type EventBroadcaster interface {
	Broadcast(event domain.Event) error
}
