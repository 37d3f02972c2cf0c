package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/renholm/ticket-triage-backend/internal/core/domain"
)

func TestInMemoryBus_PublishSubscribe(t *testing.T) {
	bus := NewInMemoryBus()
	ctx := context.Background()

	var got []domain.Event
	bus.Subscribe(domain.EventTicketCreated, func(_ context.Context, e domain.Event) {
		got = append(got, e)
	})

	bus.Publish(ctx, domain.Event{Type: domain.EventTicketCreated, TicketID: 7})
	bus.Publish(ctx, domain.Event{Type: domain.EventTriageRunFinished, TicketID: 7})

	assert.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].TicketID)
}

func TestInMemoryBus_MultipleHandlers(t *testing.T) {
	bus := NewInMemoryBus()
	ctx := context.Background()

	calls := 0
	for i := 0; i < 3; i++ {
		bus.Subscribe(domain.EventTicketCreated, func(_ context.Context, _ domain.Event) {
			calls++
		})
	}

	bus.Publish(ctx, domain.Event{Type: domain.EventTicketCreated, TicketID: 1})

	assert.Equal(t, 3, calls)
}

func TestInMemoryBus_NoSubscribers(t *testing.T) {
	bus := NewInMemoryBus()

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), domain.Event{Type: domain.EventTicketCreated})
	})
}
