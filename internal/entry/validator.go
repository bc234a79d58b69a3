package entry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/eventide/backend/internal/clock"
	"github.com/eventide/backend/internal/events"
	"github.com/eventide/backend/internal/models"
)

// Outcome messages shown at the door.
const (
	MsgWelcome        = "Welcome!"
	MsgNotRegistered  = "Not Registered"
	MsgEventNotFound  = "Event not found"
	MsgInvalidData    = "Invalid data"
	MsgAlreadyChecked = "Already checked in"
)

// Result is the answer to one entry check.
type Result struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	EventID    string `json:"eventId,omitempty"`
	UserID     string `json:"userId,omitempty"`
	EventTitle string `json:"eventTitle,omitempty"`
}

// FeedPublisher broadcasts entry outcomes to organizer dashboards.
type FeedPublisher interface {
	Publish(ctx context.Context, event string, entry models.FeedEntry) error
}

// Validator checks scanned tickets against the event roster.
type Validator struct {
	events    events.Store
	checkins  CheckInStore
	singleUse bool
	feed      FeedPublisher
	clock     clock.Clock
	logger    *zap.Logger
}

// NewValidator creates an entry validator. checkins may be nil when single-use entry is off.
func NewValidator(store events.Store, checkins CheckInStore, singleUse bool, clk clock.Clock, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	if checkins == nil {
		checkins = NewMemoryStore()
	}
	return &Validator{events: store, checkins: checkins, singleUse: singleUse, clock: clk, logger: logger}
}

// SetFeed enables the live entry feed.
func (v *Validator) SetFeed(f FeedPublisher) { v.feed = f }

// SingleUse reports whether Entry consumes tickets.
func (v *Validator) SingleUse() bool { return v.singleUse }

// Validate reports whether userID is a participant of eventID. It never mutates state,
// so the same ticket passes repeatedly. A missing event yields a failed Result and
// an error wrapping models.ErrNotFound.
func (v *Validator) Validate(ctx context.Context, eventID, userID string) (Result, error) {
	ev, res, err := v.lookup(ctx, eventID, userID)
	if err != nil {
		return res, err
	}
	if ev.HasParticipant(res.UserID) {
		res.Success, res.Message = true, MsgWelcome
	} else {
		res.Message = MsgNotRegistered
	}
	v.publish(ctx, ev.ID, res)
	return res, nil
}

// CheckIn validates membership and records the first scan. Later scans of the same
// ticket fail with "Already checked in".
func (v *Validator) CheckIn(ctx context.Context, eventID, userID string) (Result, error) {
	ev, res, err := v.lookup(ctx, eventID, userID)
	if err != nil {
		return res, err
	}
	if !ev.HasParticipant(res.UserID) {
		res.Message = MsgNotRegistered
		v.publish(ctx, ev.ID, res)
		return res, nil
	}
	first, err := v.checkins.Record(ctx, ev.ID, res.UserID, v.clock.Now())
	if err != nil {
		return Result{Success: false, Message: "check-in failed"}, err
	}
	if first {
		res.Success, res.Message = true, MsgWelcome
	} else {
		res.Message = MsgAlreadyChecked
	}
	v.publish(ctx, ev.ID, res)
	return res, nil
}

// Entry is the door check used by POST /validate-entry: CheckIn when single-use
// entry is enabled, Validate otherwise.
func (v *Validator) Entry(ctx context.Context, eventID, userID string) (Result, error) {
	if v.singleUse {
		return v.CheckIn(ctx, eventID, userID)
	}
	return v.Validate(ctx, eventID, userID)
}

// CheckIns lists recorded check-ins for an event.
func (v *Validator) CheckIns(ctx context.Context, eventID string) ([]models.CheckIn, error) {
	if !v.events.ValidID(eventID) {
		return nil, fmt.Errorf("%w: invalid event id", models.ErrInvalidInput)
	}
	if _, err := v.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	return v.checkins.List(ctx, eventID)
}

func (v *Validator) lookup(ctx context.Context, eventID, userID string) (*models.Event, Result, error) {
	eventID, userID = strings.TrimSpace(eventID), strings.TrimSpace(userID)
	if eventID == "" || userID == "" || !v.events.ValidID(eventID) {
		return nil, Result{Message: MsgInvalidData}, fmt.Errorf("%w: eventID and userID required", models.ErrInvalidInput)
	}
	res := Result{EventID: eventID, UserID: userID}
	ev, err := v.events.GetByID(ctx, eventID)
	if errors.Is(err, models.ErrNotFound) {
		res.Message = MsgEventNotFound
		return nil, res, fmt.Errorf("%w: event %s", models.ErrNotFound, eventID)
	}
	if err != nil {
		res.Message = "validation failed"
		return nil, res, err
	}
	res.EventTitle = ev.Title
	return ev, res, nil
}

func (v *Validator) publish(ctx context.Context, eventID string, res Result) {
	if v.feed == nil {
		return
	}
	err := v.feed.Publish(ctx, models.FeedEntryValidated, models.FeedEntry{
		EventID: eventID,
		UserID:  res.UserID,
		Success: res.Success,
		Message: res.Message,
		At:      v.clock.Now().Unix(),
	})
	if err != nil {
		v.logger.Warn("feed publish failed", zap.String("event_id", eventID), zap.Error(err))
	}
}
