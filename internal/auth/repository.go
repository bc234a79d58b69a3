package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventide/backend/internal/models"
)

const pgUniqueViolation = "23505"

// UserStore is the persistence the auth handler and identity provider need.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, name, email, passwordHash string, isOrganizer bool) (*models.User, error)
}

// Repository handles user persistence in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, name, email, password_hash, is_organizer, created_at, updated_at`

// GetByID returns a user by ID, or models.ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail returns a user by email, or models.ErrNotFound.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// Create inserts a new user. A duplicate email returns models.ErrConflict.
func (r *Repository) Create(ctx context.Context, name, email, passwordHash string, isOrganizer bool) (*models.User, error) {
	const q = `INSERT INTO users (name, email, password_hash, is_organizer)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns
	u, err := r.getOne(ctx, q, name, email, passwordHash, isOrganizer)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, fmt.Errorf("%w: email already registered", models.ErrConflict)
		}
		return nil, err
	}
	return u, nil
}

func (r *Repository) getOne(ctx context.Context, q string, args ...interface{}) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, q, args...).
		Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.IsOrganizer, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
