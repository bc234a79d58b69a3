package events

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

const pgForeignKeyViolation = "23503"

const eventColumns = `id::text, title, description, location, event_date, event_time, registration_deadline,
	organizer_id, ticket_price::float8, COALESCE(poster_path, ''), created_at`

// Repository is the PostgreSQL event store. Participants live in event_participants
// keyed by (event_id, user_id), so registration is an idempotent insert.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL event store.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ValidID reports whether id is a UUID.
func (r *Repository) ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Create inserts a new event and fills ID and CreatedAt.
func (r *Repository) Create(ctx context.Context, ev *models.Event) error {
	const q = `INSERT INTO events (id, title, description, location, event_date, event_time, registration_deadline,
		organizer_id, ticket_price, poster_path)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''))
		RETURNING id::text, created_at`
	err := r.pool.QueryRow(ctx, q, ev.Title, ev.Description, ev.Location, ev.Date, ev.Time, ev.RegistrationDeadline,
		ev.OrganizerID, ev.TicketPrice, ev.PosterPath).Scan(&ev.ID, &ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	ev.Participants = []string{}
	return nil
}

// GetByID returns an event with its participants.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	if !r.ValidID(id) {
		return nil, models.ErrInvalidInput
	}
	ev, err := scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select event: %w", err)
	}
	byEvent, err := r.participants(ctx, []string{ev.ID})
	if err != nil {
		return nil, err
	}
	ev.Participants = byEvent[ev.ID]
	if ev.Participants == nil {
		ev.Participants = []string{}
	}
	return ev, nil
}

// List returns all events ordered by date ascending (upcoming first).
func (r *Repository) List(ctx context.Context) ([]models.Event, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY event_date ASC, created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	list := []models.Event{}
	var ids []string
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		list = append(list, *ev)
		ids = append(ids, ev.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return list, nil
	}
	byEvent, err := r.participants(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Participants = byEvent[list[i].ID]
		if list[i].Participants == nil {
			list[i].Participants = []string{}
		}
	}
	return list, nil
}

// Delete removes an event; participants and check-ins cascade.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if !r.ValidID(id) {
		return models.ErrInvalidInput
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// AddParticipant adds userID to the event's participant set. Adding an existing
// participant is a no-op; concurrent adds for different users are all kept.
func (r *Repository) AddParticipant(ctx context.Context, eventID, userID string) (*models.Event, error) {
	if !r.ValidID(eventID) {
		return nil, models.ErrInvalidInput
	}
	const q = `INSERT INTO event_participants (event_id, user_id) VALUES ($1, $2)
		ON CONFLICT (event_id, user_id) DO NOTHING`
	if _, err := r.pool.Exec(ctx, q, eventID, userID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("add participant: %w", err)
	}
	return r.GetByID(ctx, eventID)
}

// RemoveParticipant removes userID from the participant set; absent users are a no-op.
func (r *Repository) RemoveParticipant(ctx context.Context, eventID, userID string) (*models.Event, error) {
	if !r.ValidID(eventID) {
		return nil, models.ErrInvalidInput
	}
	if _, err := r.pool.Exec(ctx, `DELETE FROM event_participants WHERE event_id = $1 AND user_id = $2`, eventID, userID); err != nil {
		return nil, fmt.Errorf("remove participant: %w", err)
	}
	return r.GetByID(ctx, eventID)
}

func (r *Repository) participants(ctx context.Context, eventIDs []string) (map[string][]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT event_id::text, user_id FROM event_participants
		WHERE event_id = ANY($1::text[]::uuid[]) ORDER BY registered_at ASC`, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()
	out := make(map[string][]string, len(eventIDs))
	for rows.Next() {
		var eventID, userID string
		if err := rows.Scan(&eventID, &userID); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out[eventID] = append(out[eventID], userID)
	}
	return out, rows.Err()
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var ev models.Event
	err := row.Scan(&ev.ID, &ev.Title, &ev.Description, &ev.Location, &ev.Date, &ev.Time, &ev.RegistrationDeadline,
		&ev.OrganizerID, &ev.TicketPrice, &ev.PosterPath, &ev.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}
