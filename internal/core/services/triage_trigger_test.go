package services_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/renholm/ticket-triage-backend/internal/adapters/secondary/eventbus"
	"github.com/renholm/ticket-triage-backend/internal/core/domain"
	"github.com/renholm/ticket-triage-backend/internal/core/mocks"
	"github.com/renholm/ticket-triage-backend/internal/core/services"
)

// recordingTriage captures Run invocations for assertions.
type recordingTriage struct {
	mu    sync.Mutex
	calls []struct {
		ticketID int64
		attempt  int
	}
}

func (r *recordingTriage) Run(ctx context.Context, ticketID int64, attempt int) domain.TriageResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, struct {
		ticketID int64
		attempt  int
	}{ticketID, attempt})
	return domain.TriageResult{Success: true}
}

func (r *recordingTriage) snapshot() []struct {
	ticketID int64
	attempt  int
} {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]struct {
		ticketID int64
		attempt  int
	}, len(r.calls))
	copy(out, r.calls)
	return out
}

func TestTriageTrigger_LaunchesRunWithNextAttempt(t *testing.T) {
	bus := eventbus.NewInMemoryBus()
	runRepo := mocks.NewMockTriageRunRepository()
	triage := &recordingTriage{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	trigger := services.NewTriageTrigger(bus, triage, runRepo, logger)

	// Two prior attempts recorded for this ticket.
	runRepo.On("LatestAttempt", mock.Anything, int64(10)).Return(2, nil)

	bus.Publish(context.Background(), domain.Event{
		Type:      domain.EventTicketCreated,
		TicketID:  10,
		Timestamp: time.Now().UTC(),
	})

	trigger.Wait()

	calls := triage.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, int64(10), calls[0].ticketID)
	assert.Equal(t, 3, calls[0].attempt)
}

func TestTriageTrigger_EachEventGetsOwnRun(t *testing.T) {
	bus := eventbus.NewInMemoryBus()
	runRepo := mocks.NewMockTriageRunRepository()
	triage := &recordingTriage{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	trigger := services.NewTriageTrigger(bus, triage, runRepo, logger)

	runRepo.On("LatestAttempt", mock.Anything, int64(1)).Return(0, nil)
	runRepo.On("LatestAttempt", mock.Anything, int64(2)).Return(0, nil)

	ctx := context.Background()
	bus.Publish(ctx, domain.Event{Type: domain.EventTicketCreated, TicketID: 1})
	bus.Publish(ctx, domain.Event{Type: domain.EventTicketCreated, TicketID: 2})

	trigger.Wait()

	calls := triage.snapshot()
	require.Len(t, calls, 2)
	for _, call := range calls {
		assert.Equal(t, 1, call.attempt)
	}
}

func TestTriageTrigger_LedgerFailureSkipsRun(t *testing.T) {
	bus := eventbus.NewInMemoryBus()
	runRepo := mocks.NewMockTriageRunRepository()
	triage := &recordingTriage{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	trigger := services.NewTriageTrigger(bus, triage, runRepo, logger)

	runRepo.On("LatestAttempt", mock.Anything, int64(5)).Return(0, assert.AnError)

	bus.Publish(context.Background(), domain.Event{Type: domain.EventTicketCreated, TicketID: 5})

	trigger.Wait()

	assert.Empty(t, triage.snapshot())
}
