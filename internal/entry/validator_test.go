package entry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eventide/backend/internal/clock"
	"github.com/eventide/backend/internal/events"
	"github.com/eventide/backend/internal/models"
)

type feedRecorder struct {
	mu      sync.Mutex
	entries []models.FeedEntry
}

func (f *feedRecorder) Publish(_ context.Context, event string, e models.FeedEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if event == models.FeedEntryValidated {
		f.entries = append(f.entries, e)
	}
	return nil
}

var testNow = time.Date(2025, 4, 1, 18, 0, 0, 0, time.UTC)

func newFixture(singleUse bool) (*Validator, *events.MemoryStore, *feedRecorder) {
	store := events.NewMemoryStore()
	store.Put(models.Event{ID: "E1", Title: "Demo Talk", Participants: []string{"U1"}})
	v := NewValidator(store, NewMemoryStore(), singleUse, clock.NewFixed(testNow), zap.NewNop())
	feed := &feedRecorder{}
	v.SetFeed(feed)
	return v, store, feed
}

func TestValidate(t *testing.T) {
	v, _, feed := newFixture(false)
	ctx := context.Background()

	res, err := v.Validate(ctx, "E1", "U1")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, MsgWelcome, res.Message)
	assert.Equal(t, "Demo Talk", res.EventTitle)

	res, err = v.Validate(ctx, "E1", "U2")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, MsgNotRegistered, res.Message)

	require.Len(t, feed.entries, 2)
	assert.True(t, feed.entries[0].Success)
	assert.Equal(t, "U2", feed.entries[1].UserID)
}

func TestValidateIsRepeatable(t *testing.T) {
	v, _, _ := newFixture(false)
	for i := 0; i < 3; i++ {
		res, err := v.Validate(context.Background(), "E1", "U1")
		require.NoError(t, err)
		assert.True(t, res.Success)
	}
}

func TestValidateErrors(t *testing.T) {
	v, _, feed := newFixture(false)
	ctx := context.Background()

	res, err := v.Validate(ctx, "", "U1")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Equal(t, MsgInvalidData, res.Message)
	_, err = v.Validate(ctx, "E1", " ")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	res, err = v.Validate(ctx, "E404", "U1")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.False(t, res.Success)
	assert.Equal(t, MsgEventNotFound, res.Message)
	assert.Empty(t, feed.entries)
}

func TestRegisterValidateCancelFlow(t *testing.T) {
	v, store, _ := newFixture(false)
	ctx := context.Background()

	res, _ := v.Validate(ctx, "E1", "U5")
	assert.False(t, res.Success)
	_, err := store.AddParticipant(ctx, "E1", "U5")
	require.NoError(t, err)
	res, _ = v.Validate(ctx, "E1", "U5")
	assert.True(t, res.Success)
	_, err = store.RemoveParticipant(ctx, "E1", "U5")
	require.NoError(t, err)
	res, _ = v.Validate(ctx, "E1", "U5")
	assert.False(t, res.Success)
}

func TestCheckInFirstScanWins(t *testing.T) {
	v, _, _ := newFixture(true)
	ctx := context.Background()

	res, err := v.Entry(ctx, "E1", "U1")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, MsgWelcome, res.Message)

	res, err = v.Entry(ctx, "E1", "U1")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, MsgAlreadyChecked, res.Message)

	res, err = v.CheckIn(ctx, "E1", "U2")
	require.NoError(t, err)
	assert.Equal(t, MsgNotRegistered, res.Message)

	list, err := v.CheckIns(ctx, "E1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.CheckIn{EventID: "E1", UserID: "U1", CheckedInAt: testNow}, list[0])

	_, err = v.CheckIns(ctx, "E404")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCheckInConcurrentScans(t *testing.T) {
	v, _, _ := newFixture(true)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		welcome int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := v.CheckIn(context.Background(), "E1", "U1")
			if assert.NoError(t, err) && res.Success {
				mu.Lock()
				welcome++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, welcome)
}
