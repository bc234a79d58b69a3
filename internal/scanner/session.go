package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eventide/backend/internal/models"
	"github.com/eventide/backend/internal/tickets"
)

// DefaultResultDisplay is how long a result stays on screen before returning to Idle.
const DefaultResultDisplay = 3 * time.Second

// Status strings shown to the operator.
const (
	StatusAcquiring        = "Accessing camera..."
	StatusScanning         = "Scanning for QR code..."
	StatusDecoded          = "QR code detected"
	StatusValidating       = "Validating ticket..."
	StatusMalformed        = "malformed code"
	StatusValidationFailed = "validation failed"
	StatusAborted          = "aborted"
)

// ErrSessionActive is returned when Run is called while a session is in progress.
var ErrSessionActive = errors.New("scanner session already active")

// Outcome is what the operator sees in the Result state.
type Outcome struct {
	Success bool
	Message string
	EventID string
	Payload *models.TicketPayload
}

// Transition is reported to OnTransition hooks.
type Transition struct {
	From   State
	To     State
	Event  Event
	Status string
}

// Session runs one camera session at a time: acquire, scan until the first code,
// validate, show the result, release.
type Session struct {
	camera    Camera
	decoder   Decoder
	validator EntryValidator
	machine   *Machine
	logger    *zap.Logger

	// ResultDisplay bounds the Result state; Dismiss ends it early.
	ResultDisplay time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	hooks   []func(Transition)
	dismiss chan struct{}
}

// NewSession wires a camera, decoder and validator.
func NewSession(camera Camera, decoder Decoder, validator EntryValidator, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		camera:        camera,
		decoder:       decoder,
		validator:     validator,
		machine:       NewMachine(),
		logger:        logger,
		ResultDisplay: DefaultResultDisplay,
		dismiss:       make(chan struct{}, 1),
	}
}

// OnTransition registers a hook called after every state change.
func (s *Session) OnTransition(fn func(Transition)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// State returns the current state.
func (s *Session) State() State { return s.machine.State() }

// Dismiss ends the Result display immediately. It is a no-op in other states.
func (s *Session) Dismiss() {
	if s.machine.State() != Result {
		return
	}
	select {
	case s.dismiss <- struct{}{}:
	default:
	}
}

// Abort cancels a running session from any non-terminal state.
func (s *Session) Abort() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil && !Terminal(s.machine.State()) {
		cancel()
	}
}

// Run drives one session against eventID and returns to Idle before returning.
// The camera is released before the session reports Idle, on every path.
// An aborted session returns ctx's error.
func (s *Session) Run(ctx context.Context, eventID string) (Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := s.fire(EvStart, StatusAcquiring); err != nil {
		return Outcome{}, ErrSessionActive
	}
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	select {
	case <-s.dismiss:
	default:
	}

	var (
		stream Stream
		once   sync.Once
	)
	release := func() {
		once.Do(func() {
			s.mu.Lock()
			s.cancel = nil
			s.mu.Unlock()
			if stream == nil {
				return
			}
			if cerr := stream.Close(); cerr != nil {
				s.logger.Warn("camera close failed", zap.Error(cerr))
			}
		})
	}
	defer release()

	stream, err := s.camera.Open(ctx)
	if err != nil {
		release()
		_ = s.fire(EvFailed, "")
		return Outcome{EventID: eventID, Message: "camera unavailable"}, fmt.Errorf("acquire camera: %w", err)
	}
	if err := s.fire(EvStreamLive, StatusScanning); err != nil {
		return s.aborted(ctx, eventID, release)
	}

	text, err := s.scan(ctx, stream)
	if err != nil {
		if ctx.Err() != nil {
			return s.aborted(ctx, eventID, release)
		}
		out := Outcome{EventID: eventID, Message: "scan failed"}
		_ = s.fire(EvFailed, out.Message)
		s.logger.Warn("camera stream failed", zap.Error(err))
		return s.show(ctx, out, release), nil
	}
	if err := s.fire(EvCodeFound, StatusDecoded); err != nil {
		return s.aborted(ctx, eventID, release)
	}

	payload, err := tickets.Decode(text)
	if err != nil {
		out := Outcome{EventID: eventID, Message: StatusMalformed}
		_ = s.fire(EvMalformed, out.Message)
		s.logger.Info("malformed code scanned", zap.Error(err))
		return s.show(ctx, out, release), nil
	}
	if err := s.fire(EvParsed, StatusValidating); err != nil {
		return s.aborted(ctx, eventID, release)
	}

	res, err := s.validator.Validate(ctx, eventID, payload.UserID)
	if ctx.Err() != nil {
		return s.aborted(ctx, eventID, release)
	}
	out := Outcome{EventID: eventID, Payload: &payload}
	if err != nil {
		out.Message = StatusValidationFailed
		_ = s.fire(EvFailed, out.Message)
		s.logger.Warn("entry validation failed", zap.String("event_id", eventID), zap.Error(err))
		return s.show(ctx, out, release), nil
	}
	out.Success, out.Message = res.Success, res.Message
	_ = s.fire(EvValidated, out.Message)
	return s.show(ctx, out, release), nil
}

// scan polls frames until the decoder finds a code. At most one code is returned per session.
func (s *Session) scan(ctx context.Context, stream Stream) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		frame, err := stream.NextFrame(ctx)
		if err != nil {
			return "", err
		}
		if text, ok := s.decoder.Decode(frame); ok {
			return text, nil
		}
	}
}

// show holds the Result state until the display interval elapses, the operator
// dismisses, or ctx ends, then releases the camera and returns to Idle.
func (s *Session) show(ctx context.Context, out Outcome, release func()) Outcome {
	timer := time.NewTimer(s.ResultDisplay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-s.dismiss:
	case <-ctx.Done():
	}
	release()
	_ = s.fire(EvDismiss, "")
	return out
}

func (s *Session) aborted(ctx context.Context, eventID string, release func()) (Outcome, error) {
	release()
	_ = s.fire(EvAbort, StatusAborted)
	err := ctx.Err()
	if err == nil {
		err = context.Canceled
	}
	return Outcome{EventID: eventID, Message: StatusAborted}, err
}

func (s *Session) fire(ev Event, status string) error {
	from, to, err := s.machine.Fire(ev)
	if err != nil {
		return err
	}
	s.logger.Debug("scanner transition", zap.Stringer("from", from), zap.Stringer("to", to), zap.Stringer("event", ev))
	s.mu.Lock()
	hooks := append([]func(Transition){}, s.hooks...)
	s.mu.Unlock()
	for _, h := range hooks {
		h(Transition{From: from, To: to, Event: ev, Status: status})
	}
	return nil
}
