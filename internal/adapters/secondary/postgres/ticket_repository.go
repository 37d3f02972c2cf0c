package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/renholm/ticket-triage-backend/internal/core/domain"
	apperrors "github.com/renholm/ticket-triage-backend/internal/core/errors"
	"github.com/renholm/ticket-triage-backend/internal/core/ports"
)

const ticketColumns = `id, title, description, status, priority, requester_id, assignee_id, helpful_notes, related_skills, created_at, updated_at`

// TicketRepository is the secondary adapter for ticket persistence.
type TicketRepository struct {
	pool *pgxpool.Pool
}

// Ensure TicketRepository implements the ports.TicketRepository interface.
var _ ports.TicketRepository = (*TicketRepository)(nil)

// NewTicketRepository creates a new ticket repository.
func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

func (r *TicketRepository) db(ctx context.Context) DBTX {
	return GetDBTX(ctx, r.pool)
}

// scanTicket converts one database row into a core domain model.
func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket      domain.Ticket
		requesterID pgtype.UUID
		assigneeID  pgtype.UUID
		updatedAt   pgtype.Timestamptz
	)

	err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&requesterID,
		&assigneeID,
		&ticket.HelpfulNotes,
		&ticket.RelatedSkills,
		&ticket.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if requesterID.Valid {
		ticket.RequesterID = requesterID.Bytes
	}
	if assigneeID.Valid {
		id := uuid.UUID(assigneeID.Bytes)
		ticket.AssigneeID = &id
	}
	if updatedAt.Valid {
		ticket.UpdatedAt = &updatedAt.Time
	}

	return &ticket, nil
}

// Create persists a new ticket entity.
func (r *TicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	row := r.db(ctx).QueryRow(ctx, `
		INSERT INTO tickets (title, description, status, priority, requester_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+ticketColumns,
		ticket.Title,
		ticket.Description,
		string(ticket.Status),
		string(ticket.Priority),
		pgtype.UUID{Bytes: ticket.RequesterID, Valid: true},
		ticket.CreatedAt,
	)
	return scanTicket(row)
}

// GetByID retrieves a single ticket by its ID.
func (r *TicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	row := r.db(ctx).QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id)

	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}
	return ticket, nil
}

// List retrieves tickets with pagination and optional filters, newest first.
func (r *TicketRepository) List(ctx context.Context, params ports.ListTicketsParams) ([]*domain.Ticket, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + ticketColumns + ` FROM tickets`)

	var (
		conds []string
		args  []any
	)
	if params.Status != nil {
		args = append(args, *params.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if params.Priority != nil {
		args = append(args, *params.Priority)
		conds = append(conds, fmt.Sprintf("priority = $%d", len(args)))
	}
	if params.RequesterID != nil {
		args = append(args, pgtype.UUID{Bytes: *params.RequesterID, Valid: true})
		conds = append(conds, fmt.Sprintf("requester_id = $%d", len(args)))
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}

	sb.WriteString(" ORDER BY created_at DESC, id DESC")

	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	args = append(args, params.Offset)
	sb.WriteString(fmt.Sprintf(" OFFSET $%d", len(args)))

	rows, err := r.db(ctx).Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []*domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

// ApplyTriage writes a triage run's outcome in one statement. The
// assignment always lands; classification fields and the IN_PROGRESS
// status ride along only when a classification is present, so a reader
// never observes a half-applied result.
func (r *TicketRepository) ApplyTriage(ctx context.Context, update ports.TriageUpdate) error {
	assignee := pgtype.UUID{}
	if update.AssigneeID != nil {
		assignee = pgtype.UUID{Bytes: *update.AssigneeID, Valid: true}
	}

	var (
		tag pgconn.CommandTag
		err error
	)
	if update.Classification != nil {
		c := update.Classification
		tag, err = r.db(ctx).Exec(ctx, `
			UPDATE tickets
			SET assignee_id = $2,
			    priority = $3,
			    helpful_notes = $4,
			    related_skills = $5,
			    status = $6,
			    updated_at = now()
			WHERE id = $1`,
			update.TicketID,
			assignee,
			c.Priority,
			c.HelpfulNotes,
			c.RelatedSkills,
			string(domain.StatusInProgress),
		)
	} else {
		tag, err = r.db(ctx).Exec(ctx, `
			UPDATE tickets
			SET assignee_id = $2,
			    updated_at = now()
			WHERE id = $1`,
			update.TicketID,
			assignee,
		)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTicketNotFound
	}
	return nil
}
