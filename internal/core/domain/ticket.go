package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/renholm/ticket-triage-backend/internal/core/errors"
)

// Field length limits enforced at the domain boundary.
const (
	MaxTitleLength       = 255
	MaxDescriptionLength = 10000
)

// TicketStatus represents the possible states of a ticket.
type TicketStatus string

const (
	StatusOpen       TicketStatus = "OPEN"
	StatusInProgress TicketStatus = "IN_PROGRESS"
	StatusClosed     TicketStatus = "CLOSED"
)

// TicketPriority represents the urgency of a ticket.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
)

// ValidPriority reports whether p is one of the three known priorities.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// NormalizePriority maps an arbitrary priority string onto the known set.
// Anything unrecognized (including the empty string) becomes medium.
func NormalizePriority(raw string) TicketPriority {
	p := TicketPriority(raw)
	if ValidPriority(p) {
		return p
	}
	return PriorityMedium
}

// Ticket is the core domain entity tracked through triage and assignment.
type Ticket struct {
	ID            int64          `json:"id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Status        TicketStatus   `json:"status"`
	Priority      TicketPriority `json:"priority"`
	RequesterID   uuid.UUID      `json:"requesterId"`
	AssigneeID    *uuid.UUID     `json:"assigneeId,omitempty"`
	HelpfulNotes  string         `json:"helpfulNotes,omitempty"`
	RelatedSkills []string       `json:"relatedSkills,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     *time.Time     `json:"updatedAt,omitempty"`
}

// TicketParams holds the input for creating a ticket.
type TicketParams struct {
	Title       string
	Description string
	Priority    TicketPriority
	RequesterID uuid.UUID
}

// NewTicket is a factory function to create a valid new ticket.
func NewTicket(params TicketParams) (*Ticket, error) {
	if params.Title == "" {
		return nil, apperrors.ErrTitleRequired
	}
	if len(params.Title) > MaxTitleLength {
		return nil, apperrors.ErrTitleTooLong
	}
	if len(params.Description) > MaxDescriptionLength {
		return nil, apperrors.ErrDescriptionTooLong
	}
	if params.RequesterID == uuid.Nil {
		return nil, apperrors.ErrRequesterRequired
	}

	priority := params.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !ValidPriority(priority) {
		return nil, apperrors.ErrInvalidPriority
	}

	return &Ticket{
		Title:       params.Title,
		Description: params.Description,
		Status:      StatusOpen,
		Priority:    priority,
		RequesterID: params.RequesterID,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// IsOwnedBy reports whether the given user created the ticket.
func (t *Ticket) IsOwnedBy(userID uuid.UUID) bool {
	return t.RequesterID == userID
}

// IsAssignedTo reports whether the ticket is assigned to the given user.
func (t *Ticket) IsAssignedTo(userID uuid.UUID) bool {
	return t.AssigneeID != nil && *t.AssigneeID == userID
}
