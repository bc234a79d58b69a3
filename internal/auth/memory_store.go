package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eventide/backend/internal/models"
)

// MemoryStore is an in-process UserStore for STORE_DRIVER=memory and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]models.User
	byEmail map[string]uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[uuid.UUID]models.User), byEmail: make(map[string]uuid.UUID)}
}

func (m *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	id, ok := m.byEmail[email]
	m.mu.RUnlock()
	if !ok {
		return nil, models.ErrNotFound
	}
	return m.GetByID(ctx, id)
}

func (m *MemoryStore) Create(_ context.Context, name, email, passwordHash string, isOrganizer bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.byEmail[email]; dup {
		return nil, fmt.Errorf("%w: email already registered", models.ErrConflict)
	}
	now := time.Now().UTC()
	u := models.User{
		ID:          uuid.New(),
		Name:        name,
		Email:       email,
		Password:    passwordHash,
		IsOrganizer: isOrganizer,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.byID[u.ID] = u
	m.byEmail[email] = u.ID
	return &u, nil
}
