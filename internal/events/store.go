package events

import (
	"context"

	"github.com/eventide/backend/internal/models"
)

// Store persists events and their participant sets. Implementations return
// models.ErrNotFound for unknown ids and must apply participant changes atomically
// (add-to-set / remove) without read-modify-write in the caller.
type Store interface {
	ValidID(id string) bool
	Create(ctx context.Context, ev *models.Event) error
	GetByID(ctx context.Context, id string) (*models.Event, error)
	// List returns events ordered by date ascending.
	List(ctx context.Context) ([]models.Event, error)
	Delete(ctx context.Context, id string) error
	AddParticipant(ctx context.Context, eventID, userID string) (*models.Event, error)
	RemoveParticipant(ctx context.Context, eventID, userID string) (*models.Event, error)
}
