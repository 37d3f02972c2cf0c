package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renholm/ticket-triage-backend/internal/core/domain"
	apperrors "github.com/renholm/ticket-triage-backend/internal/core/errors"
	"github.com/renholm/ticket-triage-backend/internal/core/ports"
)

// Helper to create a user for ticket tests
func createTestUser(t *testing.T, ctx context.Context, userRepo *UserRepository, role domain.Role, skills ...string) *domain.User {
	t.Helper()
	user := &domain.User{
		ID:           uuid.New(),
		FullName:     "Ticket Requester",
		Email:        uuid.NewString() + "@example.com", // Ensure unique email
		PasswordHash: "testpassword",
		Role:         role,
		Skills:       skills,
		CreatedAt:    time.Now().UTC(),
	}
	createdUser, err := userRepo.Create(ctx, user)
	require.NoError(t, err)
	return createdUser
}

func createTestTicket(t *testing.T, ctx context.Context, ticketRepo *TicketRepository, requesterID uuid.UUID, title string, priority domain.TicketPriority) *domain.Ticket {
	t.Helper()
	ticket, err := domain.NewTicket(domain.TicketParams{
		Title:       title,
		Description: "integration test ticket",
		Priority:    priority,
		RequesterID: requesterID,
	})
	require.NoError(t, err)
	created, err := ticketRepo.Create(ctx, ticket)
	require.NoError(t, err)
	return created
}

func TestTicketRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	ticketRepo, userRepo, _ := newTestRepos(t)

	testUser := createTestUser(t, ctx, userRepo, domain.RoleUser)

	created := createTestTicket(t, ctx, ticketRepo, testUser.ID, "Test Ticket", domain.PriorityMedium)
	assert.NotZero(t, created.ID)

	found, err := ticketRepo.GetByID(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, "Test Ticket", found.Title)
	assert.Equal(t, domain.PriorityMedium, found.Priority)
	assert.Equal(t, testUser.ID, found.RequesterID)
	assert.Equal(t, domain.StatusOpen, found.Status)
	assert.Nil(t, found.AssigneeID)
	assert.Empty(t, found.HelpfulNotes)
}

func TestTicketRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	ticketRepo, _, _ := newTestRepos(t)

	_, err := ticketRepo.GetByID(ctx, 999999999)
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
}

func TestTicketRepository_List(t *testing.T) {
	ctx := context.Background()
	ticketRepo, userRepo, _ := newTestRepos(t)

	user1 := createTestUser(t, ctx, userRepo, domain.RoleUser)
	user2 := createTestUser(t, ctx, userRepo, domain.RoleUser)

	createTestTicket(t, ctx, ticketRepo, user1.ID, "L1", domain.PriorityHigh)
	createTestTicket(t, ctx, ticketRepo, user1.ID, "L2", domain.PriorityLow)
	createTestTicket(t, ctx, ticketRepo, user2.ID, "L3", domain.PriorityHigh)

	// Scoped to user1
	tickets, err := ticketRepo.List(ctx, ports.ListTicketsParams{
		RequesterID: &user1.ID,
		Limit:       10,
	})
	require.NoError(t, err)
	assert.Len(t, tickets, 2)

	// Priority filter
	high := string(domain.PriorityHigh)
	tickets, err = ticketRepo.List(ctx, ports.ListTicketsParams{
		RequesterID: &user1.ID,
		Priority:    &high,
		Limit:       10,
	})
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, "L1", tickets[0].Title)

	// Pagination, newest first
	tickets, err = ticketRepo.List(ctx, ports.ListTicketsParams{
		RequesterID: &user1.ID,
		Limit:       1,
		Offset:      1,
	})
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, "L1", tickets[0].Title)
}

func TestTicketRepository_ApplyTriage(t *testing.T) {
	ctx := context.Background()
	ticketRepo, userRepo, _ := newTestRepos(t)

	requester := createTestUser(t, ctx, userRepo, domain.RoleUser)
	moderator := createTestUser(t, ctx, userRepo, domain.RoleModerator, "billing")

	t.Run("with classification writes all triage fields", func(t *testing.T) {
		ticket := createTestTicket(t, ctx, ticketRepo, requester.ID, "Charge twice", domain.PriorityLow)

		err := ticketRepo.ApplyTriage(ctx, ports.TriageUpdate{
			TicketID:   ticket.ID,
			AssigneeID: &moderator.ID,
			Classification: &domain.Classification{
				Priority:      "high",
				HelpfulNotes:  "check the invoice batch job",
				RelatedSkills: []string{"billing", "payments"},
			},
		})
		require.NoError(t, err)

		updated, err := ticketRepo.GetByID(ctx, ticket.ID)
		require.NoError(t, err)

		require.NotNil(t, updated.AssigneeID)
		assert.Equal(t, moderator.ID, *updated.AssigneeID)
		assert.Equal(t, domain.PriorityHigh, updated.Priority)
		assert.Equal(t, "check the invoice batch job", updated.HelpfulNotes)
		assert.Equal(t, []string{"billing", "payments"}, updated.RelatedSkills)
		assert.Equal(t, domain.StatusInProgress, updated.Status)
		assert.NotNil(t, updated.UpdatedAt)
	})

	t.Run("without classification only the assignment changes", func(t *testing.T) {
		ticket := createTestTicket(t, ctx, ticketRepo, requester.ID, "No analysis", domain.PriorityLow)

		err := ticketRepo.ApplyTriage(ctx, ports.TriageUpdate{
			TicketID:   ticket.ID,
			AssigneeID: &moderator.ID,
		})
		require.NoError(t, err)

		updated, err := ticketRepo.GetByID(ctx, ticket.ID)
		require.NoError(t, err)

		require.NotNil(t, updated.AssigneeID)
		assert.Equal(t, moderator.ID, *updated.AssigneeID)
		assert.Equal(t, domain.PriorityLow, updated.Priority)
		assert.Equal(t, domain.StatusOpen, updated.Status)
		assert.Empty(t, updated.HelpfulNotes)
	})

	t.Run("nil assignee clears the assignment", func(t *testing.T) {
		ticket := createTestTicket(t, ctx, ticketRepo, requester.ID, "Unassignable", domain.PriorityLow)

		err := ticketRepo.ApplyTriage(ctx, ports.TriageUpdate{TicketID: ticket.ID, AssigneeID: &moderator.ID})
		require.NoError(t, err)
		err = ticketRepo.ApplyTriage(ctx, ports.TriageUpdate{TicketID: ticket.ID})
		require.NoError(t, err)

		updated, err := ticketRepo.GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Nil(t, updated.AssigneeID)
	})

	t.Run("unknown ticket reports not found", func(t *testing.T) {
		err := ticketRepo.ApplyTriage(ctx, ports.TriageUpdate{TicketID: 999999999})
		assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
	})
}
