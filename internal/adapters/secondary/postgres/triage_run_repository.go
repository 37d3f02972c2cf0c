package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/renholm/ticket-triage-backend/internal/core/domain"
	apperrors "github.com/renholm/ticket-triage-backend/internal/core/errors"
	"github.com/renholm/ticket-triage-backend/internal/core/ports"
)

// TriageRunRepository persists the per-run step ledger. The step map is
// stored as one jsonb column; individual steps are written with
// jsonb_set so concurrent ledger writes never clobber each other.
type TriageRunRepository struct {
	pool *pgxpool.Pool
}

var _ ports.TriageRunRepository = (*TriageRunRepository)(nil)

// NewTriageRunRepository creates a new triage run repository.
func NewTriageRunRepository(pool *pgxpool.Pool) *TriageRunRepository {
	return &TriageRunRepository{pool: pool}
}

func (r *TriageRunRepository) db(ctx context.Context) DBTX {
	return GetDBTX(ctx, r.pool)
}

func scanRun(row pgx.Row) (*domain.TriageRun, error) {
	var (
		run       domain.TriageRun
		id        pgtype.UUID
		steps     []byte
		updatedAt pgtype.Timestamptz
	)

	err := row.Scan(&id, &run.TicketID, &run.Attempt, &run.Status, &steps, &run.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	run.ID = id.Bytes
	if updatedAt.Valid {
		run.UpdatedAt = &updatedAt.Time
	}
	if len(steps) > 0 {
		if err := json.Unmarshal(steps, &run.Steps); err != nil {
			return nil, err
		}
	}
	if run.Steps == nil {
		run.Steps = make(map[domain.StepName]domain.StepResult)
	}

	return &run, nil
}

// Create starts a new ledger row for a (ticket, attempt) pair.
func (r *TriageRunRepository) Create(ctx context.Context, run *domain.TriageRun) (*domain.TriageRun, error) {
	steps, err := json.Marshal(run.Steps)
	if err != nil {
		return nil, err
	}

	row := r.db(ctx).QueryRow(ctx, `
		INSERT INTO triage_runs (id, ticket_id, attempt, status, steps, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, ticket_id, attempt, status, steps, created_at, updated_at`,
		pgtype.UUID{Bytes: run.ID, Valid: true},
		run.TicketID,
		run.Attempt,
		string(run.Status),
		steps,
		run.CreatedAt,
	)
	return scanRun(row)
}

// Get loads the ledger for a (ticket, attempt) pair.
func (r *TriageRunRepository) Get(ctx context.Context, ticketID int64, attempt int) (*domain.TriageRun, error) {
	row := r.db(ctx).QueryRow(ctx, `
		SELECT id, ticket_id, attempt, status, steps, created_at, updated_at
		FROM triage_runs
		WHERE ticket_id = $1 AND attempt = $2`,
		ticketID, attempt)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrRunNotFound
		}
		return nil, err
	}
	return run, nil
}

// SaveStep upserts one step entry into the run's ledger.
func (r *TriageRunRepository) SaveStep(ctx context.Context, runID uuid.UUID, name domain.StepName, result domain.StepResult) error {
	entry, err := json.Marshal(result)
	if err != nil {
		return err
	}

	tag, err := r.db(ctx).Exec(ctx, `
		UPDATE triage_runs
		SET steps = jsonb_set(steps, ARRAY[$2::text], $3::jsonb),
		    updated_at = now()
		WHERE id = $1`,
		pgtype.UUID{Bytes: runID, Valid: true},
		string(name),
		entry,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrRunNotFound
	}
	return nil
}

// SetStatus moves a run through its lifecycle.
func (r *TriageRunRepository) SetStatus(ctx context.Context, runID uuid.UUID, status domain.RunStatus) error {
	tag, err := r.db(ctx).Exec(ctx, `
		UPDATE triage_runs
		SET status = $2, updated_at = now()
		WHERE id = $1`,
		pgtype.UUID{Bytes: runID, Valid: true},
		string(status),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrRunNotFound
	}
	return nil
}

// LatestAttempt returns the highest attempt recorded for a ticket, zero
// when the ticket has never been triaged.
func (r *TriageRunRepository) LatestAttempt(ctx context.Context, ticketID int64) (int, error) {
	var latest int
	err := r.db(ctx).QueryRow(ctx,
		`SELECT COALESCE(MAX(attempt), 0) FROM triage_runs WHERE ticket_id = $1`,
		ticketID).Scan(&latest)
	if err != nil {
		return 0, err
	}
	return latest, nil
}
