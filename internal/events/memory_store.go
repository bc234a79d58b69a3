package events

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/eventide/backend/internal/models"
)

// MemoryStore is an in-process Store for local development and tests.
// Ids are decimal sequence numbers.
type MemoryStore struct {
	mu     sync.Mutex
	seq    int
	events map[string]*models.Event
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[string]*models.Event)}
}

// Put stores ev as-is (tests use it to seed fixed ids such as "E1").
func (m *MemoryStore) Put(ev models.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.Participants == nil {
		ev.Participants = []string{}
	}
	m.events[ev.ID] = cloneEvent(&ev)
}

func (m *MemoryStore) ValidID(id string) bool { return id != "" }

func (m *MemoryStore) Create(_ context.Context, ev *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	ev.ID = strconv.Itoa(m.seq)
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	ev.Participants = []string{}
	m.events[ev.ID] = cloneEvent(ev)
	return nil
}

func (m *MemoryStore) GetByID(_ context.Context, id string) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneEvent(ev), nil
}

func (m *MemoryStore) List(_ context.Context) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]models.Event, 0, len(m.events))
	for _, ev := range m.events {
		list = append(list, *cloneEvent(ev))
	}
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].Date.Equal(list[j].Date) {
			return list[i].Date.Before(list[j].Date)
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.events, id)
	return nil
}

func (m *MemoryStore) AddParticipant(_ context.Context, eventID, userID string) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[eventID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if !ev.HasParticipant(userID) {
		ev.Participants = append(ev.Participants, userID)
	}
	return cloneEvent(ev), nil
}

func (m *MemoryStore) RemoveParticipant(_ context.Context, eventID, userID string) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[eventID]
	if !ok {
		return nil, models.ErrNotFound
	}
	kept := ev.Participants[:0]
	for _, p := range ev.Participants {
		if p != userID {
			kept = append(kept, p)
		}
	}
	ev.Participants = kept
	return cloneEvent(ev), nil
}

func cloneEvent(ev *models.Event) *models.Event {
	out := *ev
	out.Participants = append([]string{}, ev.Participants...)
	return &out
}
