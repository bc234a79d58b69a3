package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventide/backend/internal/events"
	"github.com/eventide/backend/internal/models"
	"github.com/eventide/backend/internal/notify"
	"github.com/eventide/backend/internal/tickets"
	"github.com/eventide/backend/pkg/queue"
)

// errSkip marks a job that can never succeed; it is dropped, not retried.
var errSkip = errors.New("skip job")

// Users resolves recipient addresses.
type Users interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// JobQueue is the slice of the Redis queue the processor consumes.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// NotificationProcessor sends registration e-mails: resolve the recipient,
// render the eTicket for confirmations, hand the message to the mailer.
type NotificationProcessor struct {
	queue   JobQueue
	users   Users
	events  events.Store
	issuer  *tickets.Issuer
	mailer  notify.Mailer
	backoff time.Duration
	logger  *zap.Logger
}

// NewNotificationProcessor creates a notification processor.
func NewNotificationProcessor(q JobQueue, users Users, store events.Store, issuer *tickets.Issuer, mailer notify.Mailer, logger *zap.Logger) *NotificationProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationProcessor{
		queue:   q,
		users:   users,
		events:  store,
		issuer:  issuer,
		mailer:  mailer,
		backoff: queue.RetryBackoff,
		logger:  logger,
	}
}

// Process executes one notification job.
func (p *NotificationProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobRegistrationConfirmed && job.Type != queue.JobRegistrationCancelled {
		return fmt.Errorf("%w: unknown job type %q", errSkip, job.Type)
	}
	n, err := job.Notification()
	if err != nil {
		return fmt.Errorf("%w: %v", errSkip, err)
	}
	to, err := p.recipient(ctx, n)
	if err != nil {
		return err
	}

	if job.Type == queue.JobRegistrationCancelled {
		return p.mailer.Send(ctx, notify.Cancelled(to, n))
	}

	ev, err := p.events.GetByID(ctx, n.EventID)
	if errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("%w: event %s no longer exists", errSkip, n.EventID)
	}
	if err != nil {
		return fmt.Errorf("load event: %w", err)
	}
	if !ev.HasParticipant(n.UserID) {
		p.logger.Info("registration withdrawn before confirmation was sent",
			zap.String("event_id", n.EventID), zap.String("user_id", n.UserID))
		return nil
	}
	return p.mailer.Send(ctx, notify.Confirmed(to, n, p.ticketPDF(n, ev, job.CreatedAt)))
}

// recipient prefers the address on the job and falls back to the users table.
func (p *NotificationProcessor) recipient(ctx context.Context, n models.Notification) (string, error) {
	if n.Email != "" {
		return n.Email, nil
	}
	uid, err := uuid.Parse(n.UserID)
	if err != nil || p.users == nil {
		return "", fmt.Errorf("%w: no address for user %s", errSkip, n.UserID)
	}
	u, err := p.users.GetByID(ctx, uid)
	if errors.Is(err, models.ErrNotFound) {
		return "", fmt.Errorf("%w: user %s not found", errSkip, n.UserID)
	}
	if err != nil {
		return "", fmt.Errorf("load user: %w", err)
	}
	return u.Email, nil
}

// ticketPDF renders the attachment. A rendering failure sends the mail without it.
func (p *NotificationProcessor) ticketPDF(n models.Notification, ev *models.Event, registered time.Time) []byte {
	if p.issuer == nil {
		return nil
	}
	name := n.UserName
	if name == "" {
		name = n.UserID
	}
	t, err := p.issuer.Issue(models.TicketPayload{
		UserID:           n.UserID,
		UserName:         name,
		EventID:          ev.ID,
		EventTitle:       ev.Title,
		RegistrationDate: registered,
	})
	if err != nil {
		p.logger.Warn("ticket render failed", zap.String("event_id", ev.ID), zap.Error(err))
		return nil
	}
	pdf, err := tickets.RenderPDF(t, ev)
	if err != nil {
		p.logger.Warn("ticket pdf failed", zap.String("event_id", ev.ID), zap.Error(err))
		return nil
	}
	return pdf
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *NotificationProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("notification worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		err = p.Process(ctx, job)
		switch {
		case err == nil:
			p.logger.Info("notification sent", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		case errors.Is(err, errSkip):
			p.logger.Warn("job dropped", zap.String("job_id", job.ID), zap.Error(err))
		default:
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *NotificationProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
