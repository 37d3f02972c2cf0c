package postgres

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renholm/ticket-triage-backend/internal/core/domain"
	apperrors "github.com/renholm/ticket-triage-backend/internal/core/errors"
)

func TestTriageRunRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	ticketRepo, userRepo, runRepo := newTestRepos(t)

	requester := createTestUser(t, ctx, userRepo, domain.RoleUser)
	ticket := createTestTicket(t, ctx, ticketRepo, requester.ID, "Run ledger", domain.PriorityMedium)

	run := domain.NewTriageRun(ticket.ID, 1)
	created, err := runRepo.Create(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, run.ID, created.ID)
	assert.Equal(t, domain.RunRunning, created.Status)

	loaded, err := runRepo.Get(ctx, ticket.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, run.ID, loaded.ID)
	assert.Empty(t, loaded.Steps)

	_, err = runRepo.Get(ctx, ticket.ID, 2)
	assert.ErrorIs(t, err, apperrors.ErrRunNotFound)
}

func TestTriageRunRepository_SaveStep(t *testing.T) {
	ctx := context.Background()
	ticketRepo, userRepo, runRepo := newTestRepos(t)

	requester := createTestUser(t, ctx, userRepo, domain.RoleUser)
	ticket := createTestTicket(t, ctx, ticketRepo, requester.ID, "Step ledger", domain.PriorityMedium)

	run := domain.NewTriageRun(ticket.ID, 1)
	_, err := runRepo.Create(ctx, run)
	require.NoError(t, err)

	payload, err := json.Marshal(map[string]string{"summary": "looks like auth"})
	require.NoError(t, err)

	err = runRepo.SaveStep(ctx, run.ID, domain.StepAnalyzeTicket, domain.StepResult{
		Status:   domain.StepCompleted,
		Payload:  payload,
		Attempts: 2,
	})
	require.NoError(t, err)

	err = runRepo.SaveStep(ctx, run.ID, domain.StepSendEmail, domain.StepResult{
		Status: domain.StepDegraded,
		Error:  "smtp unreachable",
	})
	require.NoError(t, err)

	loaded, err := runRepo.Get(ctx, ticket.ID, 1)
	require.NoError(t, err)
	require.Len(t, loaded.Steps, 2)

	analyze := loaded.Steps[domain.StepAnalyzeTicket]
	assert.Equal(t, domain.StepCompleted, analyze.Status)
	assert.JSONEq(t, string(payload), string(analyze.Payload))
	assert.Equal(t, 2, analyze.Attempts)

	email := loaded.Steps[domain.StepSendEmail]
	assert.Equal(t, domain.StepDegraded, email.Status)
	assert.Equal(t, "smtp unreachable", email.Error)

	// Re-saving a step replaces the previous entry.
	err = runRepo.SaveStep(ctx, run.ID, domain.StepSendEmail, domain.StepResult{Status: domain.StepCompleted})
	require.NoError(t, err)
	loaded, err = runRepo.Get(ctx, ticket.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StepCompleted, loaded.Steps[domain.StepSendEmail].Status)
}

func TestTriageRunRepository_SetStatus(t *testing.T) {
	ctx := context.Background()
	ticketRepo, userRepo, runRepo := newTestRepos(t)

	requester := createTestUser(t, ctx, userRepo, domain.RoleUser)
	ticket := createTestTicket(t, ctx, ticketRepo, requester.ID, "Status ledger", domain.PriorityMedium)

	run := domain.NewTriageRun(ticket.ID, 1)
	_, err := runRepo.Create(ctx, run)
	require.NoError(t, err)

	err = runRepo.SetStatus(ctx, run.ID, domain.RunSucceeded)
	require.NoError(t, err)

	loaded, err := runRepo.Get(ctx, ticket.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.RunSucceeded, loaded.Status)
}

func TestTriageRunRepository_LatestAttempt(t *testing.T) {
	ctx := context.Background()
	ticketRepo, userRepo, runRepo := newTestRepos(t)

	requester := createTestUser(t, ctx, userRepo, domain.RoleUser)
	ticket := createTestTicket(t, ctx, ticketRepo, requester.ID, "Attempt counter", domain.PriorityMedium)

	latest, err := runRepo.LatestAttempt(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, latest)

	_, err = runRepo.Create(ctx, domain.NewTriageRun(ticket.ID, 1))
	require.NoError(t, err)
	_, err = runRepo.Create(ctx, domain.NewTriageRun(ticket.ID, 2))
	require.NoError(t, err)

	latest, err = runRepo.LatestAttempt(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, latest)
}
