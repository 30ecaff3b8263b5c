package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/julianstephens/streakd/internal/errors"
	"github.com/julianstephens/streakd/internal/metrics"
	"github.com/julianstephens/streakd/internal/models"
	"github.com/julianstephens/streakd/internal/storage/memory"
)

func candidate() models.Candidate {
	return models.Candidate{
		User:    models.User{ID: "u1", Timezone: "UTC"},
		Key:     models.ClaimKey{UserID: "u1", Kind: models.ReminderEvening, Day: "2026-10-16"},
		Payload: models.Payload{Day: "2026-10-16", Escalation: models.EscalationNudge},
	}
}

func TestTryDispatchDeliversOnce(t *testing.T) {
	ctx := context.Background()
	c := New(memory.New(), Config{}, metrics.New())

	var calls atomic.Int32
	d := DelivererFunc(func(context.Context, models.User, models.ReminderKind, models.Payload) error {
		calls.Add(1)
		return nil
	})

	res, err := c.TryDispatch(ctx, candidate(), d)
	require.NoError(t, err)
	assert.Equal(t, Result{Outcome: Delivered, Attempts: 1, Terminal: true}, res)

	res, err = c.TryDispatch(ctx, candidate(), d)
	require.NoError(t, err)
	assert.Equal(t, AlreadyClaimed, res.Outcome)
	assert.True(t, res.Terminal)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTryDispatchConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	c := New(memory.New(), Config{}, nil)

	var calls atomic.Int32
	d := DelivererFunc(func(context.Context, models.User, models.ReminderKind, models.Payload) error {
		calls.Add(1)
		time.Sleep(5 * time.Millisecond)
		return nil
	})

	const workers = 16
	results := make([]Result, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.TryDispatch(ctx, candidate(), d)
			assert.NoError(t, err)
			results[i] = res
		}()
	}
	wg.Wait()

	delivered := 0
	for _, r := range results {
		if r.Outcome == Delivered {
			delivered++
		} else {
			assert.Equal(t, AlreadyClaimed, r.Outcome)
		}
	}
	assert.Equal(t, 1, delivered)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTryDispatchInFlightClaimBlocksOthers(t *testing.T) {
	ctx := context.Background()
	c := New(memory.New(), Config{}, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	slow := DelivererFunc(func(context.Context, models.User, models.ReminderKind, models.Payload) error {
		close(started)
		<-release
		return nil
	})

	done := make(chan Result)
	go func() {
		res, err := c.TryDispatch(ctx, candidate(), slow)
		assert.NoError(t, err)
		done <- res
	}()
	<-started

	res, err := c.TryDispatch(ctx, candidate(), DelivererFunc(func(context.Context, models.User, models.ReminderKind, models.Payload) error {
		t.Error("second dispatcher must not deliver")
		return nil
	}))
	require.NoError(t, err)
	assert.Equal(t, AlreadyClaimed, res.Outcome)
	assert.False(t, res.Terminal)

	close(release)
	assert.Equal(t, Delivered, (<-done).Outcome)
}

func TestTryDispatchRetriesThenSucceeds(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	c := New(store, Config{MaxAttempts: 3}, nil)

	fail := true
	d := DelivererFunc(func(context.Context, models.User, models.ReminderKind, models.Payload) error {
		if fail {
			return errors.New("channel down")
		}
		return nil
	})

	res, err := c.TryDispatch(ctx, candidate(), d)
	require.NoError(t, err)
	assert.Equal(t, Result{Outcome: Failed, Attempts: 1, Terminal: false}, res)

	claim, err := store.GetClaim(ctx, candidate().Key)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimRetryable, claim.State)
	assert.Equal(t, "channel down", claim.LastError)

	fail = false
	res, err = c.TryDispatch(ctx, candidate(), d)
	require.NoError(t, err)
	assert.Equal(t, Result{Outcome: Delivered, Attempts: 2, Terminal: true}, res)
}

func TestTryDispatchExhaustsAttempts(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	c := New(store, Config{MaxAttempts: 2}, nil)

	var calls atomic.Int32
	d := DelivererFunc(func(context.Context, models.User, models.ReminderKind, models.Payload) error {
		calls.Add(1)
		return errors.New("boom")
	})

	res, err := c.TryDispatch(ctx, candidate(), d)
	require.NoError(t, err)
	assert.False(t, res.Terminal)

	res, err = c.TryDispatch(ctx, candidate(), d)
	require.NoError(t, err)
	assert.Equal(t, Result{Outcome: Failed, Attempts: 2, Terminal: true}, res)

	res, err = c.TryDispatch(ctx, candidate(), d)
	require.NoError(t, err)
	assert.Equal(t, AlreadyClaimed, res.Outcome)
	assert.True(t, res.Terminal)
	assert.Equal(t, int32(2), calls.Load())

	claim, err := store.GetClaim(ctx, candidate().Key)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimFailed, claim.State)
}

func TestTryDispatchTimeoutCountsAsFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	c := New(store, Config{MaxAttempts: 1, DeliveryTimeout: 10 * time.Millisecond}, nil)

	d := DelivererFunc(func(ctx context.Context, _ models.User, _ models.ReminderKind, _ models.Payload) error {
		<-ctx.Done()
		return ctx.Err()
	})

	res, err := c.TryDispatch(ctx, candidate(), d)
	require.NoError(t, err)
	assert.Equal(t, Failed, res.Outcome)
	assert.True(t, res.Terminal)

	claim, err := store.GetClaim(ctx, candidate().Key)
	require.NoError(t, err)
	assert.Contains(t, claim.LastError, "deadline exceeded")
}

func TestTryDispatchTakesOverExpiredLease(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	start := time.Date(2026, 10, 16, 20, 0, 0, 0, time.UTC)

	_, won, err := store.AcquireClaim(ctx, candidate().Key, start, time.Minute)
	require.NoError(t, err)
	require.True(t, won)

	c := New(store, Config{Lease: time.Minute}, nil)
	c.now = func() time.Time { return start.Add(30 * time.Second) }
	ok := DelivererFunc(func(context.Context, models.User, models.ReminderKind, models.Payload) error { return nil })

	res, err := c.TryDispatch(ctx, candidate(), ok)
	require.NoError(t, err)
	assert.Equal(t, AlreadyClaimed, res.Outcome)

	c.now = func() time.Time { return start.Add(2 * time.Minute) }
	res, err = c.TryDispatch(ctx, candidate(), ok)
	require.NoError(t, err)
	assert.Equal(t, Delivered, res.Outcome)
}

func TestTryDispatchStalledHolderCannotOverwriteNewOwner(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 10, 16, 20, 0, 0, 0, time.UTC)
	key := candidate().Key

	for _, deliverErr := range []error{nil, errors.New("channel down")} {
		store := memory.New()
		c := New(store, Config{DeliveryTimeout: time.Minute, Lease: 5 * time.Minute}, nil)
		c.now = func() time.Time { return start }

		var taken models.DispatchClaim
		stall := DelivererFunc(func(context.Context, models.User, models.ReminderKind, models.Payload) error {
			// Another worker takes over once the lease has run out.
			var won bool
			var err error
			taken, won, err = store.AcquireClaim(ctx, key, start.Add(6*time.Minute), 5*time.Minute)
			require.NoError(t, err)
			require.True(t, won)
			c.now = func() time.Time { return start.Add(7 * time.Minute) }
			return deliverErr
		})

		_, err := c.TryDispatch(ctx, candidate(), stall)
		require.ErrorIs(t, err, apperrors.ErrNotFound, "deliverErr=%v", deliverErr)

		claim, err := store.GetClaim(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, models.ClaimClaimed, claim.State)
		assert.Zero(t, claim.Attempts)
		assert.Empty(t, claim.LastError)

		require.NoError(t, store.CompleteClaim(ctx, taken, start.Add(8*time.Minute)))
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.DeliveryTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Lease)

	cfg = Config{DeliveryTimeout: 10 * time.Minute}.withDefaults()
	assert.Equal(t, 20*time.Minute, cfg.Lease)
}
