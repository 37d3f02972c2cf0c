package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	mw "github.com/renholm/ticket-triage-backend/internal/adapters/primary/http/middleware"
	"github.com/renholm/ticket-triage-backend/internal/adapters/primary/validation"
	"github.com/renholm/ticket-triage-backend/internal/core/domain"
	apperrors "github.com/renholm/ticket-triage-backend/internal/core/errors"
	"github.com/renholm/ticket-triage-backend/internal/core/ports"
)

const maxTicketPageSize = 100

// TicketHandler handles ticket endpoints
type TicketHandler struct {
	ticketService ports.TicketService
	bus           ports.EventBus
	errorHandler  *ErrorHandler
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(ticketService ports.TicketService, bus ports.EventBus, errorHandler *ErrorHandler) *TicketHandler {
	return &TicketHandler{
		ticketService: ticketService,
		bus:           bus,
		errorHandler:  errorHandler,
	}
}

// RegisterRoutes registers ticket routes on the given router.
// All routes require authentication; re-triage additionally requires a
// staff role.
func (h *TicketHandler) RegisterRoutes(r chi.Router, requireStaff func(http.Handler) http.Handler) {
	r.Post("/", h.HandleCreateTicket)
	r.Get("/", h.HandleListTickets)
	r.Get("/{ticketID}", h.HandleGetTicket)
	r.With(requireStaff).Post("/{ticketID}/triage", h.HandleRetriage)
}

// CreateTicketRequest is the request body for ticket creation
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority,omitempty"`
}

// Validate validates the create ticket request
func (req *CreateTicketRequest) Validate() error {
	v := validation.NewValidator()
	v.Required("title", req.Title).
		MaxLength("title", req.Title, domain.MaxTitleLength).
		MaxLength("description", req.Description, domain.MaxDescriptionLength).
		OneOf("priority", req.Priority, []string{"low", "medium", "high"})

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// TicketDTO is the public representation of a ticket
type TicketDTO struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Status        string   `json:"status"`
	Priority      string   `json:"priority"`
	RequesterID   string   `json:"requesterId"`
	AssigneeID    *string  `json:"assigneeId,omitempty"`
	HelpfulNotes  string   `json:"helpfulNotes,omitempty"`
	RelatedSkills []string `json:"relatedSkills,omitempty"`
	CreatedAt     string   `json:"createdAt"`
	UpdatedAt     *string  `json:"updatedAt,omitempty"`
}

func toTicketDTO(t *domain.Ticket) TicketDTO {
	dto := TicketDTO{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		Status:        string(t.Status),
		Priority:      string(t.Priority),
		RequesterID:   t.RequesterID.String(),
		HelpfulNotes:  t.HelpfulNotes,
		RelatedSkills: t.RelatedSkills,
		CreatedAt:     t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if t.AssigneeID != nil {
		id := t.AssigneeID.String()
		dto.AssigneeID = &id
	}
	if t.UpdatedAt != nil {
		updated := t.UpdatedAt.UTC().Format(time.RFC3339)
		dto.UpdatedAt = &updated
	}
	return dto
}

// HandleCreateTicket creates a ticket for the authenticated user and
// kicks off a triage run via the event bus
func (h *TicketHandler) HandleCreateTicket(w http.ResponseWriter, r *http.Request) {
	claims, ok := mw.ClaimsFromContext(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrUnauthorized)
		return
	}

	req, err := validation.DecodeAndValidate[CreateTicketRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.ticketService.CreateTicket(r.Context(), ports.CreateTicketParams{
		Title:       req.Title,
		Description: req.Description,
		Priority:    domain.TicketPriority(req.Priority),
		RequesterID: claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteCreated(w, toTicketDTO(ticket))
}

// HandleGetTicket returns a single ticket if the viewer may see it
func (h *TicketHandler) HandleGetTicket(w http.ResponseWriter, r *http.Request) {
	claims, ok := mw.ClaimsFromContext(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrUnauthorized)
		return
	}

	ticketID, err := parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.ticketService.GetTicket(r.Context(), ticketID, claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, toTicketDTO(ticket))
}

// HandleListTickets lists tickets visible to the authenticated user
func (h *TicketHandler) HandleListTickets(w http.ResponseWriter, r *http.Request) {
	claims, ok := mw.ClaimsFromContext(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrUnauthorized)
		return
	}

	pagination := validation.ParsePagination(r, maxTicketPageSize)

	params := ports.ListTicketsParams{
		// One extra row decides hasMore without a count query.
		Limit:    pagination.Limit + 1,
		Offset:   pagination.Offset,
		Status:   validation.ParseStringQueryParam(r, "status"),
		Priority: validation.ParseStringQueryParam(r, "priority"),
	}

	tickets, err := h.ticketService.ListTickets(r.Context(), claims.UserID, params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	dtos := make([]TicketDTO, 0, len(tickets))
	for _, t := range tickets {
		dtos = append(dtos, toTicketDTO(t))
	}

	WritePaginatedSimple(w, dtos, pagination.Limit, pagination.Offset)
}

// RetriageResponse acknowledges an accepted re-triage request
type RetriageResponse struct {
	TicketID int64  `json:"ticketId"`
	Message  string `json:"message"`
}

// HandleRetriage queues a fresh triage run for an existing ticket. The
// run itself happens asynchronously; the response only acknowledges the
// request.
func (h *TicketHandler) HandleRetriage(w http.ResponseWriter, r *http.Request) {
	claims, ok := mw.ClaimsFromContext(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrUnauthorized)
		return
	}

	ticketID, err := parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	// Confirms the ticket exists and the caller may see it before
	// queueing work.
	if _, err := h.ticketService.GetTicket(r.Context(), ticketID, claims.UserID); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.bus.Publish(r.Context(), domain.Event{
		Type:      domain.EventTicketCreated,
		TicketID:  ticketID,
		Timestamp: time.Now().UTC(),
	})

	WriteAccepted(w, RetriageResponse{
		TicketID: ticketID,
		Message:  "Triage run queued",
	})
}

func parseTicketID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "ticketID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewBadRequestError(err, "Invalid ticket ID")
	}
	return id, nil
}
