package services

import (
	"context"
	"log/slog"
	"sync"

	"github.com/renholm/ticket-triage-backend/internal/core/domain"
	"github.com/renholm/ticket-triage-backend/internal/core/ports"
)

// TriageTrigger subscribes to ticket/created events and launches one
// triage run per event, each on its own goroutine with a background
// context so runs outlive the originating HTTP request. Every event
// gets a fresh attempt number, so a manual re-trigger for a previously
// failed ticket starts a new ledger instead of resuming the old one.
type TriageTrigger struct {
	triage  ports.TriageService
	runRepo ports.TriageRunRepository
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewTriageTrigger creates the trigger and subscribes it on the bus.
func NewTriageTrigger(bus ports.EventBus, triage ports.TriageService, runRepo ports.TriageRunRepository, logger *slog.Logger) *TriageTrigger {
	t := &TriageTrigger{
		triage:  triage,
		runRepo: runRepo,
		logger:  logger.With("component", "triage_trigger"),
	}
	bus.Subscribe(domain.EventTicketCreated, t.handle)
	return t
}

func (t *TriageTrigger) handle(_ context.Context, event domain.Event) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		ctx := context.Background()
		latest, err := t.runRepo.LatestAttempt(ctx, event.TicketID)
		if err != nil {
			t.logger.Error("cannot determine triage attempt", "ticket_id", event.TicketID, "error", err)
			return
		}

		result := t.triage.Run(ctx, event.TicketID, latest+1)
		if !result.Success {
			t.logger.Warn("triage run failed", "ticket_id", event.TicketID, "attempt", latest+1)
		}
	}()
}

// Wait blocks until all in-flight runs finish; called during shutdown.
func (t *TriageTrigger) Wait() {
	t.wg.Wait()
}
