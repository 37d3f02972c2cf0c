package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/renholm/ticket-triage-backend/internal/core/domain"
	apperrors "github.com/renholm/ticket-triage-backend/internal/core/errors"
	"github.com/renholm/ticket-triage-backend/internal/core/ports"
)

const userColumns = `id, full_name, email, password_hash, role, skills, created_at`

// uniqueViolation is the postgres error code for duplicate keys.
const uniqueViolation = "23505"

// UserRepository is the secondary adapter for user persistence.
type UserRepository struct {
	pool *pgxpool.Pool
}

var _ ports.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new user repository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) db(ctx context.Context) DBTX {
	return GetDBTX(ctx, r.pool)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user domain.User
		id   pgtype.UUID
	)

	err := row.Scan(
		&id,
		&user.FullName,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Skills,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.ID = id.Bytes
	return &user, nil
}

// Create persists a new user account.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	row := r.db(ctx).QueryRow(ctx, `
		INSERT INTO users (id, full_name, email, password_hash, role, skills, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+userColumns,
		pgtype.UUID{Bytes: user.ID, Valid: true},
		user.FullName,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		user.Skills,
		user.CreatedAt,
	)

	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, apperrors.ErrUserExists
		}
		return nil, err
	}
	return created, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := r.db(ctx).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		pgtype.UUID{Bytes: id, Valid: true})

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db(ctx).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// List returns all user accounts, oldest first.
func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdateRoleAndSkills applies an admin's changes to a user account.
func (r *UserRepository) UpdateRoleAndSkills(ctx context.Context, params ports.UpdateUserParams) (*domain.User, error) {
	row := r.db(ctx).QueryRow(ctx, `
		UPDATE users
		SET role = $2, skills = $3
		WHERE id = $1
		RETURNING `+userColumns,
		pgtype.UUID{Bytes: params.UserID, Valid: true},
		string(params.Role),
		params.Skills,
	)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// FirstAdmin returns the oldest admin account.
func (r *UserRepository) FirstAdmin(ctx context.Context) (*domain.User, error) {
	row := r.db(ctx).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY created_at ASC, id ASC LIMIT 1`,
		string(domain.RoleAdmin))

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// ModeratorsMatchingSkills returns moderators with at least one skill
// matching any of the given terms. A skill matches a term when either
// contains the other, case-insensitive. Ordered by id so callers see a
// stable candidate list.
func (r *UserRepository) ModeratorsMatchingSkills(ctx context.Context, terms []string) ([]*domain.User, error) {
	rows, err := r.db(ctx).Query(ctx, `
		SELECT `+userColumns+`
		FROM users u
		WHERE u.role = $1
		  AND EXISTS (
			SELECT 1
			FROM unnest(u.skills) AS skill,
			     unnest($2::text[]) AS term
			WHERE skill ILIKE '%' || term || '%'
			   OR term ILIKE '%' || skill || '%'
		  )
		ORDER BY u.id ASC`,
		string(domain.RoleModerator),
		terms,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var moderators []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		moderators = append(moderators, user)
	}
	return moderators, rows.Err()
}
