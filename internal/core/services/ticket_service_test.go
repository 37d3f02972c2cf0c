package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/renholm/ticket-triage-backend/internal/core/domain"
	apperrors "github.com/renholm/ticket-triage-backend/internal/core/errors"
	"github.com/renholm/ticket-triage-backend/internal/core/mocks"
	"github.com/renholm/ticket-triage-backend/internal/core/ports"
	"github.com/renholm/ticket-triage-backend/internal/core/services"
)

func TestTicketService_CreateTicket(t *testing.T) {
	ctx := context.Background()
	requesterID := uuid.New()

	t.Run("persists ticket and publishes created event", func(t *testing.T) {
		ticketRepo := mocks.NewMockTicketRepository()
		userRepo := mocks.NewMockUserRepository()
		bus := mocks.NewMockEventBus()
		svc := services.NewTicketService(ticketRepo, userRepo, bus)

		created := &domain.Ticket{ID: 101, Title: "Printer on fire", Status: domain.StatusOpen}
		ticketRepo.On("Create", ctx, mock.AnythingOfType("*domain.Ticket")).Return(created, nil)
		bus.On("Publish", ctx, mock.MatchedBy(func(e domain.Event) bool {
			return e.Type == domain.EventTicketCreated && e.TicketID == 101
		})).Return()

		ticket, err := svc.CreateTicket(ctx, ports.CreateTicketParams{
			Title:       "Printer on fire",
			Description: "third floor",
			RequesterID: requesterID,
		})

		require.NoError(t, err)
		assert.Equal(t, int64(101), ticket.ID)
		bus.AssertExpectations(t)
	})

	t.Run("rejects invalid input without publishing", func(t *testing.T) {
		ticketRepo := mocks.NewMockTicketRepository()
		userRepo := mocks.NewMockUserRepository()
		bus := mocks.NewMockEventBus()
		svc := services.NewTicketService(ticketRepo, userRepo, bus)

		_, err := svc.CreateTicket(ctx, ports.CreateTicketParams{
			Title:       "",
			RequesterID: requesterID,
		})

		assert.ErrorIs(t, err, apperrors.ErrTitleRequired)
		ticketRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})
}

func TestTicketService_GetTicket(t *testing.T) {
	ctx := context.Background()

	owner := uuid.New()
	assignee := uuid.New()
	stranger := uuid.New()

	ticket := &domain.Ticket{ID: 5, Title: "Locked out", RequesterID: owner, AssigneeID: &assignee}

	t.Run("requester can view own ticket", func(t *testing.T) {
		ticketRepo := mocks.NewMockTicketRepository()
		userRepo := mocks.NewMockUserRepository()
		svc := services.NewTicketService(ticketRepo, userRepo, mocks.NewMockEventBus())

		ticketRepo.On("GetByID", ctx, int64(5)).Return(ticket, nil)

		got, err := svc.GetTicket(ctx, 5, owner)

		require.NoError(t, err)
		assert.Equal(t, ticket, got)
		userRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("assignee can view assigned ticket", func(t *testing.T) {
		ticketRepo := mocks.NewMockTicketRepository()
		userRepo := mocks.NewMockUserRepository()
		svc := services.NewTicketService(ticketRepo, userRepo, mocks.NewMockEventBus())

		ticketRepo.On("GetByID", ctx, int64(5)).Return(ticket, nil)

		got, err := svc.GetTicket(ctx, 5, assignee)

		require.NoError(t, err)
		assert.Equal(t, ticket, got)
	})

	t.Run("moderator can view any ticket", func(t *testing.T) {
		ticketRepo := mocks.NewMockTicketRepository()
		userRepo := mocks.NewMockUserRepository()
		svc := services.NewTicketService(ticketRepo, userRepo, mocks.NewMockEventBus())

		ticketRepo.On("GetByID", ctx, int64(5)).Return(ticket, nil)
		userRepo.On("GetByID", ctx, stranger).Return(&domain.User{ID: stranger, Role: domain.RoleModerator}, nil)

		got, err := svc.GetTicket(ctx, 5, stranger)

		require.NoError(t, err)
		assert.Equal(t, ticket, got)
	})

	t.Run("unrelated plain user is forbidden", func(t *testing.T) {
		ticketRepo := mocks.NewMockTicketRepository()
		userRepo := mocks.NewMockUserRepository()
		svc := services.NewTicketService(ticketRepo, userRepo, mocks.NewMockEventBus())

		ticketRepo.On("GetByID", ctx, int64(5)).Return(ticket, nil)
		userRepo.On("GetByID", ctx, stranger).Return(&domain.User{ID: stranger, Role: domain.RoleUser}, nil)

		_, err := svc.GetTicket(ctx, 5, stranger)

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})
}

func TestTicketService_ListTickets(t *testing.T) {
	ctx := context.Background()

	t.Run("plain users are scoped to their own tickets", func(t *testing.T) {
		ticketRepo := mocks.NewMockTicketRepository()
		userRepo := mocks.NewMockUserRepository()
		svc := services.NewTicketService(ticketRepo, userRepo, mocks.NewMockEventBus())

		viewerID := uuid.New()
		userRepo.On("GetByID", ctx, viewerID).Return(&domain.User{ID: viewerID, Role: domain.RoleUser}, nil)
		ticketRepo.On("List", ctx, mock.MatchedBy(func(p ports.ListTicketsParams) bool {
			return p.RequesterID != nil && *p.RequesterID == viewerID
		})).Return([]*domain.Ticket{}, nil)

		_, err := svc.ListTickets(ctx, viewerID, ports.ListTicketsParams{})

		require.NoError(t, err)
		ticketRepo.AssertExpectations(t)
	})

	t.Run("staff see everything", func(t *testing.T) {
		ticketRepo := mocks.NewMockTicketRepository()
		userRepo := mocks.NewMockUserRepository()
		svc := services.NewTicketService(ticketRepo, userRepo, mocks.NewMockEventBus())

		viewerID := uuid.New()
		userRepo.On("GetByID", ctx, viewerID).Return(&domain.User{ID: viewerID, Role: domain.RoleAdmin}, nil)
		ticketRepo.On("List", ctx, mock.MatchedBy(func(p ports.ListTicketsParams) bool {
			return p.RequesterID == nil
		})).Return([]*domain.Ticket{}, nil)

		_, err := svc.ListTickets(ctx, viewerID, ports.ListTicketsParams{})

		require.NoError(t, err)
		ticketRepo.AssertExpectations(t)
	})
}

func TestTicketService_ApplyTriageResult(t *testing.T) {
	ctx := context.Background()
	assigneeID := uuid.New()

	newSvc := func() (*services.TicketService, *mocks.MockTicketRepository) {
		ticketRepo := mocks.NewMockTicketRepository()
		svc := services.NewTicketService(ticketRepo, mocks.NewMockUserRepository(), mocks.NewMockEventBus())
		return svc, ticketRepo
	}

	t.Run("valid priority passes through", func(t *testing.T) {
		svc, ticketRepo := newSvc()

		ticketRepo.On("ApplyTriage", ctx, mock.MatchedBy(func(u ports.TriageUpdate) bool {
			return u.Classification != nil && u.Classification.Priority == "high"
		})).Return(nil)

		err := svc.ApplyTriageResult(ctx, ports.ApplyTriageParams{
			TicketID:       1,
			AssigneeID:     &assigneeID,
			Classification: &domain.Classification{Priority: "high"},
		})

		require.NoError(t, err)
		ticketRepo.AssertExpectations(t)
	})

	t.Run("unknown priority normalizes to medium", func(t *testing.T) {
		svc, ticketRepo := newSvc()

		ticketRepo.On("ApplyTriage", ctx, mock.MatchedBy(func(u ports.TriageUpdate) bool {
			return u.Classification != nil && u.Classification.Priority == "medium"
		})).Return(nil)

		err := svc.ApplyTriageResult(ctx, ports.ApplyTriageParams{
			TicketID:       1,
			Classification: &domain.Classification{Priority: "urgent"},
		})

		require.NoError(t, err)
		ticketRepo.AssertExpectations(t)
	})

	t.Run("normalization does not mutate the caller's classification", func(t *testing.T) {
		svc, ticketRepo := newSvc()

		ticketRepo.On("ApplyTriage", ctx, mock.Anything).Return(nil)

		original := &domain.Classification{Priority: "URGENT"}
		err := svc.ApplyTriageResult(ctx, ports.ApplyTriageParams{TicketID: 1, Classification: original})

		require.NoError(t, err)
		assert.Equal(t, "URGENT", original.Priority)
	})

	t.Run("nil classification writes assignment only", func(t *testing.T) {
		svc, ticketRepo := newSvc()

		ticketRepo.On("ApplyTriage", ctx, mock.MatchedBy(func(u ports.TriageUpdate) bool {
			return u.Classification == nil && u.AssigneeID != nil && *u.AssigneeID == assigneeID
		})).Return(nil)

		err := svc.ApplyTriageResult(ctx, ports.ApplyTriageParams{
			TicketID:   1,
			AssigneeID: &assigneeID,
		})

		require.NoError(t, err)
		ticketRepo.AssertExpectations(t)
	})
}
