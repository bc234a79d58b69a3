package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eventide/backend/internal/events"
	"github.com/eventide/backend/internal/models"
	"github.com/eventide/backend/internal/notify"
	"github.com/eventide/backend/internal/tickets"
	"github.com/eventide/backend/pkg/queue"
)

var aliceID = uuid.MustParse("6f1c1b3e-4a43-4c64-9a53-0d9f4f3b2a11")

type fakeUsers map[uuid.UUID]*models.User

func (f fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, models.ErrNotFound
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func fixture(t *testing.T) (*queue.Queue, *events.MemoryStore, *recordingMailer, *NotificationProcessor) {
	t.Helper()
	mr := miniredis.RunT(t)
	q := queue.NewQueue(redis.NewClient(&redis.Options{Addr: mr.Addr()}), zap.NewNop())
	store := events.NewMemoryStore()
	store.Put(models.Event{
		ID: "E1", Title: "Demo Talk", Location: "Hall A",
		Date: time.Date(2025, 3, 20, 18, 0, 0, 0, time.UTC), Participants: []string{aliceID.String()},
	})
	users := fakeUsers{aliceID: {ID: aliceID, Name: "Alice", Email: "alice@example.com"}}
	mailer := &recordingMailer{}
	p := NewNotificationProcessor(q, users, store, tickets.NewIssuer(128), mailer, zap.NewNop())
	p.backoff = time.Millisecond
	return q, store, mailer, p
}

func job(typ queue.JobType, n models.Notification) *queue.Job {
	raw := `{"eventId":"` + n.EventID + `","userId":"` + n.UserID + `","userName":"` + n.UserName + `","eventTitle":"` + n.EventTitle + `"}`
	return &queue.Job{ID: "j1", Type: typ, Payload: []byte(raw), CreatedAt: time.Now()}
}

func TestProcessConfirmedAttachesTicket(t *testing.T) {
	_, _, mailer, p := fixture(t)
	n := models.Notification{EventID: "E1", UserID: aliceID.String(), UserName: "Alice", EventTitle: "Demo Talk"}

	require.NoError(t, p.Process(context.Background(), job(queue.JobRegistrationConfirmed, n)))
	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "alice@example.com", msg.To)
	assert.Equal(t, "You're registered: Demo Talk", msg.Subject)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "application/pdf", msg.Attachments[0].ContentType)
	assert.Equal(t, "%PDF", string(msg.Attachments[0].Data[:4]))
}

func TestProcessCancelled(t *testing.T) {
	_, _, mailer, p := fixture(t)
	n := models.Notification{EventID: "E1", UserID: aliceID.String(), EventTitle: "Demo Talk"}

	require.NoError(t, p.Process(context.Background(), job(queue.JobRegistrationCancelled, n)))
	require.Len(t, mailer.sent, 1)
	assert.Empty(t, mailer.sent[0].Attachments)
	assert.Equal(t, "Registration cancelled: Demo Talk", mailer.sent[0].Subject)
}

func TestProcessSkipsWithdrawnRegistration(t *testing.T) {
	_, store, mailer, p := fixture(t)
	_, err := store.RemoveParticipant(context.Background(), "E1", aliceID.String())
	require.NoError(t, err)

	n := models.Notification{EventID: "E1", UserID: aliceID.String(), EventTitle: "Demo Talk"}
	require.NoError(t, p.Process(context.Background(), job(queue.JobRegistrationConfirmed, n)))
	assert.Empty(t, mailer.sent)
}

func TestProcessUnresolvableJobsAreSkipped(t *testing.T) {
	_, _, _, p := fixture(t)
	ctx := context.Background()

	err := p.Process(ctx, job(queue.JobRegistrationConfirmed, models.Notification{EventID: "E1", UserID: "U1"}))
	assert.ErrorIs(t, err, errSkip)

	err = p.Process(ctx, job(queue.JobRegistrationConfirmed, models.Notification{EventID: "E1", UserID: uuid.NewString()}))
	assert.ErrorIs(t, err, errSkip)

	err = p.Process(ctx, job(queue.JobRegistrationConfirmed, models.Notification{EventID: "gone", UserID: aliceID.String()}))
	assert.ErrorIs(t, err, errSkip)

	err = p.Process(ctx, &queue.Job{ID: "j", Type: "recording_upload", Payload: []byte(`{}`)})
	assert.ErrorIs(t, err, errSkip)
}

func TestProcessMailerFailureIsRetryable(t *testing.T) {
	_, _, mailer, p := fixture(t)
	mailer.err = errors.New("421 try again later")
	n := models.Notification{EventID: "E1", UserID: aliceID.String(), EventTitle: "Demo Talk"}

	err := p.Process(context.Background(), job(queue.JobRegistrationCancelled, n))
	require.Error(t, err)
	assert.NotErrorIs(t, err, errSkip)
}

func TestRunDeliversQueuedJobs(t *testing.T) {
	q, _, mailer, p := fixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := models.Notification{EventID: "E1", UserID: aliceID.String(), UserName: "Alice", EventTitle: "Demo Talk"}
	require.NoError(t, q.EnqueueConfirmed(ctx, n))
	require.NoError(t, q.EnqueueCancelled(ctx, n))

	go p.Run(ctx)
	assert.Eventually(t, func() bool { return mailer.count() == 2 }, 3*time.Second, 10*time.Millisecond)
}
