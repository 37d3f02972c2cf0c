package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/renholm/ticket-triage-backend/internal/core/domain"
)

// ListTicketsParams defines the filters for ticket listing queries.
type ListTicketsParams struct {
	Limit       int
	Offset      int
	Status      *string
	Priority    *string
	RequesterID *uuid.UUID
}

// TriageUpdate carries the outcome of a triage run into a single atomic
// ticket mutation. AssigneeID nil clears the assignment. When
// Classification is nil only the assignment changes; otherwise priority
// (normalized), helpful notes, related skills, and status IN_PROGRESS
// are written together with it.
type TriageUpdate struct {
	TicketID       int64
	AssigneeID     *uuid.UUID
	Classification *domain.Classification
}

// TicketRepository is the port for ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	List(ctx context.Context, params ListTicketsParams) ([]*domain.Ticket, error)

	// ApplyTriage performs the triage mutation as one statement so a
	// partially applied result is never observable.
	ApplyTriage(ctx context.Context, update TriageUpdate) error
}

// UpdateUserParams carries an admin's changes to a user account.
type UpdateUserParams struct {
	UserID uuid.UUID
	Role   domain.Role
	Skills []string
}

// UserRepository is the port for user persistence. The triage workflow
// only reads from it.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	UpdateRoleAndSkills(ctx context.Context, params UpdateUserParams) (*domain.User, error)

	// FirstAdmin returns the oldest admin account, the triage fallback
	// assignee. ErrUserNotFound when no admin exists.
	FirstAdmin(ctx context.Context) (*domain.User, error)

	// ModeratorsMatchingSkills returns moderators whose skill set
	// matches any of the given terms, case-insensitive substring
	// semantics, ordered by id for determinism.
	ModeratorsMatchingSkills(ctx context.Context, terms []string) ([]*domain.User, error)
}

// TriageRunRepository is the port for the per-run step ledger.
type TriageRunRepository interface {
	Create(ctx context.Context, run *domain.TriageRun) (*domain.TriageRun, error)
	Get(ctx context.Context, ticketID int64, attempt int) (*domain.TriageRun, error)
	SaveStep(ctx context.Context, runID uuid.UUID, name domain.StepName, result domain.StepResult) error
	SetStatus(ctx context.Context, runID uuid.UUID, status domain.RunStatus) error

	// LatestAttempt returns the highest attempt recorded for a ticket,
	// zero when the ticket has never been triaged.
	LatestAttempt(ctx context.Context, ticketID int64) (int, error)
}

// TransactionManager defines the port for running atomic operations.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
