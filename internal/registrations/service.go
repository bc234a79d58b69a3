package registrations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eventide/backend/internal/clock"
	"github.com/eventide/backend/internal/events"
	"github.com/eventide/backend/internal/models"
	"github.com/eventide/backend/internal/tickets"
)

// TicketIssuer renders a ticket for a registration.
type TicketIssuer interface {
	Issue(p models.TicketPayload) (*tickets.Ticket, error)
}

// Notifier enqueues registration e-mails.
type Notifier interface {
	EnqueueConfirmed(ctx context.Context, n models.Notification) error
	EnqueueCancelled(ctx context.Context, n models.Notification) error
}

// FeedPublisher broadcasts roster changes to organizer dashboards.
type FeedPublisher interface {
	Publish(ctx context.Context, event string, entry models.FeedEntry) error
}

// RegisterInput is one registration request after boundary validation.
type RegisterInput struct {
	EventID    string
	UserID     string
	UserName   string
	EventTitle string
}

// RegisterResult carries the updated event and, separately, the ticket outcome.
// A non-nil TicketErr means the participant was added but no ticket was produced;
// the caller can retry through ReissueTicket.
type RegisterResult struct {
	Event     *models.Event
	Ticket    *tickets.Ticket
	TicketErr error
}

// Service implements register / cancel on the event roster.
type Service struct {
	store    events.Store
	issuer   TicketIssuer
	notifier Notifier
	feed     FeedPublisher
	clock    clock.Clock
	logger   *zap.Logger
}

// NewService creates a registration service.
func NewService(store events.Store, issuer TicketIssuer, clk clock.Clock, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Service{store: store, issuer: issuer, clock: clk, logger: logger}
}

// SetNotifier enables registration e-mails.
func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

// SetFeed enables live roster updates.
func (s *Service) SetFeed(f FeedPublisher) { s.feed = f }

// Event loads an event, mapping malformed ids to ErrInvalidInput.
func (s *Service) Event(ctx context.Context, eventID string) (*models.Event, error) {
	if !s.store.ValidID(eventID) {
		return nil, fmt.Errorf("%w: invalid event id", models.ErrInvalidInput)
	}
	return s.store.GetByID(ctx, eventID)
}

// Register adds the user to the event's participants (idempotently) and issues a ticket.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	if in.UserID == "" {
		return nil, fmt.Errorf("%w: userId required", models.ErrInvalidInput)
	}
	ev, err := s.Event(ctx, in.EventID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	already := ev.HasParticipant(in.UserID)
	if !already && !ev.RegistrationOpen(now) {
		return nil, fmt.Errorf("%w: registration closed", models.ErrConflict)
	}

	ev, err = s.store.AddParticipant(ctx, in.EventID, in.UserID)
	if err != nil {
		return nil, err
	}

	payload := models.TicketPayload{
		UserID:           in.UserID,
		UserName:         strings.TrimSpace(in.UserName),
		EventID:          ev.ID,
		EventTitle:       strings.TrimSpace(in.EventTitle),
		RegistrationDate: now,
	}
	if payload.UserName == "" {
		payload.UserName = in.UserID
	}
	if payload.EventTitle == "" {
		payload.EventTitle = ev.Title
	}
	res := &RegisterResult{Event: ev}
	res.Ticket, res.TicketErr = s.issuer.Issue(payload)
	if res.TicketErr != nil {
		s.logger.Warn("ticket issuance failed after registration",
			zap.String("event_id", ev.ID), zap.String("user_id", in.UserID), zap.Error(res.TicketErr))
	}

	if !already {
		s.logger.Info("participant registered", zap.String("event_id", ev.ID), zap.String("user_id", in.UserID))
		n := models.Notification{EventID: ev.ID, UserID: in.UserID, UserName: payload.UserName, EventTitle: ev.Title}
		s.notify(ctx, n, true)
		s.publish(ctx, models.FeedParticipantRegistered, models.FeedEntry{
			EventID: ev.ID, UserID: in.UserID, UserName: payload.UserName, Success: true, At: now.Unix(),
		})
	}
	return res, nil
}

// Cancel removes the user from the event's participants. Absent users are a no-op.
func (s *Service) Cancel(ctx context.Context, eventID, userID string) (*models.Event, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: userId required", models.ErrInvalidInput)
	}
	ev, err := s.Event(ctx, eventID)
	if err != nil {
		return nil, err
	}
	wasMember := ev.HasParticipant(userID)
	ev, err = s.store.RemoveParticipant(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if wasMember {
		s.logger.Info("participant cancelled", zap.String("event_id", ev.ID), zap.String("user_id", userID))
		s.notify(ctx, models.Notification{EventID: ev.ID, UserID: userID, EventTitle: ev.Title}, false)
		s.publish(ctx, models.FeedParticipantCancelled, models.FeedEntry{
			EventID: ev.ID, UserID: userID, Success: true, At: s.clock.Now().Unix(),
		})
	}
	return ev, nil
}

// ReissueTicket renders a fresh ticket for an existing participant.
func (s *Service) ReissueTicket(ctx context.Context, eventID, userID, userName string) (*models.Event, *tickets.Ticket, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil, fmt.Errorf("%w: userId required", models.ErrInvalidInput)
	}
	ev, err := s.Event(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	if !ev.HasParticipant(userID) {
		return nil, nil, fmt.Errorf("%w: not registered", models.ErrNotFound)
	}
	name := strings.TrimSpace(userName)
	if name == "" {
		name = userID
	}
	t, err := s.issuer.Issue(models.TicketPayload{
		UserID:           userID,
		UserName:         name,
		EventID:          ev.ID,
		EventTitle:       ev.Title,
		RegistrationDate: s.clock.Now(),
	})
	if err != nil {
		return ev, nil, err
	}
	return ev, t, nil
}

func (s *Service) notify(ctx context.Context, n models.Notification, confirmed bool) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var err error
	if confirmed {
		err = s.notifier.EnqueueConfirmed(ctx, n)
	} else {
		err = s.notifier.EnqueueCancelled(ctx, n)
	}
	if err != nil {
		s.logger.Warn("enqueue notification failed", zap.String("event_id", n.EventID), zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, event string, entry models.FeedEntry) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(ctx, event, entry); err != nil {
		s.logger.Warn("feed publish failed", zap.String("event", event), zap.Error(err))
	}
}
