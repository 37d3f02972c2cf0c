package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/renholm/ticket-triage-backend/internal/core/domain"
	apperrors "github.com/renholm/ticket-triage-backend/internal/core/errors"
	"github.com/renholm/ticket-triage-backend/internal/core/ports"
)

// TicketService implements business logic for ticket management,
// including the triage state update.
type TicketService struct {
	ticketRepo ports.TicketRepository
	userRepo   ports.UserRepository
	bus        ports.EventBus
}

var _ ports.TicketService = (*TicketService)(nil)

// NewTicketService creates a new ticket service.
func NewTicketService(
	ticketRepo ports.TicketRepository,
	userRepo ports.UserRepository,
	bus ports.EventBus,
) *TicketService {
	return &TicketService{
		ticketRepo: ticketRepo,
		userRepo:   userRepo,
		bus:        bus,
	}
}

// CreateTicket persists a new ticket and publishes the ticket/created
// event that triggers the triage pipeline.
func (s *TicketService) CreateTicket(ctx context.Context, params ports.CreateTicketParams) (*domain.Ticket, error) {
	ticket, err := domain.NewTicket(domain.TicketParams{
		Title:       params.Title,
		Description: params.Description,
		Priority:    params.Priority,
		RequesterID: params.RequesterID,
	})
	if err != nil {
		return nil, err
	}

	created, err := s.ticketRepo.Create(ctx, ticket)
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, domain.Event{
		Type:      domain.EventTicketCreated,
		TicketID:  created.ID,
		Timestamp: time.Now().UTC(),
	})

	return created, nil
}

// GetTicket retrieves a ticket, restricted to its requester, its
// assignee, and staff (moderators and admins).
func (s *TicketService) GetTicket(ctx context.Context, ticketID int64, viewerID uuid.UUID) (*domain.Ticket, error) {
	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if ticket.IsOwnedBy(viewerID) || ticket.IsAssignedTo(viewerID) {
		return ticket, nil
	}

	viewer, err := s.userRepo.GetByID(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if viewer.Role == domain.RoleUser {
		return nil, apperrors.ErrForbidden
	}

	return ticket, nil
}

// ListTickets returns tickets visible to the viewer: staff see
// everything, plain users only their own.
func (s *TicketService) ListTickets(ctx context.Context, viewerID uuid.UUID, params ports.ListTicketsParams) ([]*domain.Ticket, error) {
	viewer, err := s.userRepo.GetByID(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	if viewer.Role == domain.RoleUser {
		params.RequesterID = &viewerID
	}

	return s.ticketRepo.List(ctx, params)
}

// ApplyTriageResult persists a triage run's outcome. The assignment is
// always written; when a classification is present the priority
// (normalized to low/medium/high, default medium), helpful notes,
// related skills, and IN_PROGRESS status are written in the same
// statement. Without a classification those fields stay untouched.
// Storage errors propagate unchanged; the orchestrator retries them.
func (s *TicketService) ApplyTriageResult(ctx context.Context, params ports.ApplyTriageParams) error {
	update := ports.TriageUpdate{
		TicketID:   params.TicketID,
		AssigneeID: params.AssigneeID,
	}

	if params.Classification != nil {
		normalized := *params.Classification
		normalized.Priority = string(domain.NormalizePriority(normalized.Priority))
		update.Classification = &normalized
	}

	return s.ticketRepo.ApplyTriage(ctx, update)
}
