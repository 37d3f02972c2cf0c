package websocket

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/renholm/ticket-triage-backend/internal/core/domain"
	"github.com/renholm/ticket-triage-backend/internal/core/ports"
)

// Hub maintains the set of active Clients and routes triage events to
// them. A client receives an event when it is subscribed to the
// event's ticket, or when it watches the global feed (staff only).
type Hub struct {
	// clients maps user IDs to their active connections.
	// A single user can have multiple connections (multiple tabs/devices).
	clients map[uuid.UUID]map[*Client]bool

	// rooms maps ticket IDs to subscribed clients
	rooms map[int64]map[*Client]bool

	// watchers are staff clients following every triage event
	watchers map[*Client]bool

	broadcast chan domain.Event

	Register   chan *Client
	Unregister chan *Client

	// mu protects clients, rooms and watchers
	mu sync.RWMutex

	logger *slog.Logger
}

var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		rooms:      make(map[int64]map[*Client]bool),
		watchers:   make(map[*Client]bool),
		broadcast:  make(chan domain.Event, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		logger:     logger.With("component", "websocket_hub"),
	}
}

// Broadcast queues an event for delivery. Never blocks; when the
// buffer is full the event is dropped and logged.
func (h *Hub) Broadcast(event domain.Event) error {
	select {
	case h.broadcast <- event:
		return nil
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			"event_type", event.Type,
			"ticket_id", event.TicketID,
		)
		return nil
	}
}

// Run starts the hub's event loop. This MUST be run as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.dispatchEvent(event)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]bool)
	}
	h.clients[client.UserID][client] = true

	h.logger.Info("client registered",
		"user_id", client.UserID,
		"total_connections", len(h.clients[client.UserID]),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subscriptions := client.GetSubscriptions()

	if userClients, ok := h.clients[client.UserID]; ok {
		if _, exists := userClients[client]; exists {
			delete(userClients, client)
			if len(userClients) == 0 {
				delete(h.clients, client.UserID)
			}
		}
	}

	for _, ticketID := range subscriptions {
		if room, ok := h.rooms[ticketID]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, ticketID)
			}
		}
	}

	delete(h.watchers, client)

	client.CloseSend()

	h.logger.Info("client unregistered", "user_id", client.UserID)
}

// dispatchEvent delivers an event to the ticket's room and to every
// global watcher, deduplicating clients present in both sets.
func (h *Hub) dispatchEvent(event domain.Event) {
	h.mu.RLock()
	targets := make(map[*Client]bool, len(h.watchers))
	for client := range h.watchers {
		targets[client] = true
	}
	if room, ok := h.rooms[event.TicketID]; ok {
		for client := range room {
			targets[client] = true
		}
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	h.logger.Debug("dispatching event",
		"event_type", event.Type,
		"ticket_id", event.TicketID,
		"client_count", len(targets),
	)

	for client := range targets {
		select {
		case client.Send <- event:
		default:
			// Client's send buffer is full, unregister them
			h.logger.Warn("client send buffer full, unregistering",
				"user_id", client.UserID,
			)
			h.Unregister <- client
		}
	}
}

func (h *Hub) subscribeClientToTicket(client *Client, ticketID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[ticketID] == nil {
		h.rooms[ticketID] = make(map[*Client]bool)
	}
	h.rooms[ticketID][client] = true
	client.AddSubscription(ticketID)

	h.logger.Debug("client subscribed to ticket",
		"user_id", client.UserID,
		"ticket_id", ticketID,
	)
}

func (h *Hub) unsubscribeClientFromTicket(client *Client, ticketID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[ticketID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, ticketID)
		}
	}
	client.RemoveSubscription(ticketID)
}

// watchAll puts a staff client on the global triage feed
func (h *Hub) watchAll(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.watchers[client] = true

	h.logger.Debug("client watching global feed", "user_id", client.UserID)
}

// unwatchAll removes a client from the global triage feed
func (h *Hub) unwatchAll(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.watchers, client)
}

// GetClientCount returns the total number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, userClients := range h.clients {
		count += len(userClients)
	}
	return count
}

// GetClientsInRoom returns the number of clients subscribed to a ticket
func (h *Hub) GetClientsInRoom(ticketID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if room, ok := h.rooms[ticketID]; ok {
		return len(room)
	}
	return 0
}

// IsUserConnected checks if a user has any active connections
func (h *Hub) IsUserConnected(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.clients[userID]
	return ok && len(clients) > 0
}
