package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eventide/backend/internal/clock"
	"github.com/eventide/backend/internal/models"
)

// PosterStore stores poster images outside the event store.
type PosterStore interface {
	UploadPoster(ctx context.Context, filename, contentType string, body io.Reader, size int64) (string, error)
	DeletePoster(ctx context.Context, key string) error
	PosterURL(ctx context.Context, key string) (string, error)
}

// PosterUpload is an optional poster attached to CreateInput.
type PosterUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// CreateInput is the validated shape of a create-event request.
type CreateInput struct {
	Title                string
	Description          string
	Location             string
	Date                 string // YYYY-MM-DD or RFC 3339
	Time                 string
	RegistrationDeadline string // YYYY-MM-DD or RFC 3339
	OrganizerID          string
	TicketPrice          float64
	Poster               *PosterUpload
}

// Service implements event CRUD on top of a Store.
type Service struct {
	store   Store
	posters PosterStore
	clock   clock.Clock
	logger  *zap.Logger
}

// NewService creates an event service. posters may be nil (poster uploads rejected).
func NewService(store Store, posters PosterStore, clk clock.Clock, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Service{store: store, posters: posters, clock: clk, logger: logger}
}

// Store exposes the underlying event store to sibling services.
func (s *Service) Store() Store { return s.store }

// Create validates the input, uploads the poster if any, and persists the event.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Event, error) {
	ev, err := s.validate(in)
	if err != nil {
		return nil, err
	}
	if in.Poster != nil {
		if s.posters == nil {
			return nil, fmt.Errorf("%w: poster uploads are not enabled", models.ErrInvalidInput)
		}
		key, err := s.posters.UploadPoster(ctx, in.Poster.Filename, in.Poster.ContentType, in.Poster.Body, in.Poster.Size)
		if err != nil {
			return nil, fmt.Errorf("%w: poster: %v", models.ErrInvalidInput, err)
		}
		ev.PosterPath = key
	}
	ev.CreatedAt = s.clock.Now()
	if err := s.store.Create(ctx, ev); err != nil {
		s.cleanupPoster(ev.PosterPath)
		return nil, err
	}
	s.logger.Info("event created", zap.String("event_id", ev.ID), zap.String("organizer_id", ev.OrganizerID))
	return ev, nil
}

// List returns all events, upcoming first.
func (s *Service) List(ctx context.Context) ([]models.Event, error) {
	return s.store.List(ctx)
}

// Get returns one event. Malformed ids are InvalidInput, unknown ids NotFound.
func (s *Service) Get(ctx context.Context, id string) (*models.Event, error) {
	if !s.store.ValidID(id) {
		return nil, fmt.Errorf("%w: invalid event id", models.ErrInvalidInput)
	}
	return s.store.GetByID(ctx, id)
}

// Delete removes an event. When callerID is set it must be the organizer.
func (s *Service) Delete(ctx context.Context, id, callerID string) error {
	ev, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if callerID != "" && ev.OrganizerID != callerID {
		return fmt.Errorf("%w: only the organizer can delete this event", models.ErrForbidden)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.cleanupPoster(ev.PosterPath)
	s.logger.Info("event deleted", zap.String("event_id", id))
	return nil
}

// PosterURL returns a download URL for the event's poster.
func (s *Service) PosterURL(ctx context.Context, id string) (string, error) {
	ev, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if ev.PosterPath == "" || s.posters == nil {
		return "", fmt.Errorf("%w: event has no poster", models.ErrNotFound)
	}
	return s.posters.PosterURL(ctx, ev.PosterPath)
}

func (s *Service) cleanupPoster(key string) {
	if key == "" || s.posters == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.posters.DeletePoster(ctx, key); err != nil {
		s.logger.Warn("delete poster failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) validate(in CreateInput) (*models.Event, error) {
	required := []struct{ name, value string }{
		{"title", in.Title},
		{"description", in.Description},
		{"location", in.Location},
		{"date", in.Date},
		{"time", in.Time},
		{"registrationDeadline", in.RegistrationDeadline},
		{"organizerId", in.OrganizerID},
	}
	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s required", models.ErrInvalidInput, strings.Join(missing, ", "))
	}
	date, err := ParseDate(in.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date", models.ErrInvalidInput)
	}
	deadline, err := ParseDate(in.RegistrationDeadline)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid registrationDeadline", models.ErrInvalidInput)
	}
	if deadline.After(date) {
		return nil, fmt.Errorf("%w: registrationDeadline must not be after date", models.ErrInvalidInput)
	}
	if in.TicketPrice < 0 {
		return nil, fmt.Errorf("%w: ticketPrice must be non-negative", models.ErrInvalidInput)
	}
	return &models.Event{
		Title:                strings.TrimSpace(in.Title),
		Description:          strings.TrimSpace(in.Description),
		Location:             strings.TrimSpace(in.Location),
		Date:                 date,
		Time:                 strings.TrimSpace(in.Time),
		RegistrationDeadline: deadline,
		OrganizerID:          strings.TrimSpace(in.OrganizerID),
		Participants:         []string{},
		TicketPrice:          in.TicketPrice,
	}, nil
}

// ParseDate accepts a calendar date (YYYY-MM-DD) or an RFC 3339 timestamp and
// returns the calendar day at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.New("expected YYYY-MM-DD or RFC 3339")
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
