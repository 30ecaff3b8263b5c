// Package dispatch delivers reminder candidates at most once per claim key.
// The claim transition in storage is the only synchronisation point, so any
// number of dispatchers may race on the same candidate.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/streakd/internal/constants"
	"github.com/julianstephens/streakd/internal/logger"
	"github.com/julianstephens/streakd/internal/metrics"
	"github.com/julianstephens/streakd/internal/models"
	"github.com/julianstephens/streakd/internal/storage"
)

// Deliverer is the outbound channel. Implementations must honour ctx.
type Deliverer interface {
	Deliver(ctx context.Context, user models.User, kind models.ReminderKind, payload models.Payload) error
}

// DelivererFunc adapts a function to Deliverer.
type DelivererFunc func(ctx context.Context, user models.User, kind models.ReminderKind, payload models.Payload) error

func (f DelivererFunc) Deliver(ctx context.Context, user models.User, kind models.ReminderKind, payload models.Payload) error {
	return f(ctx, user, kind, payload)
}

type Outcome string

const (
	Delivered      Outcome = "delivered"
	AlreadyClaimed Outcome = "already_claimed"
	Failed         Outcome = "failed"
)

type Result struct {
	Outcome  Outcome `json:"outcome"`
	Attempts int     `json:"attempts"`
	// Terminal is true once no further attempt will be made for the key.
	Terminal bool `json:"terminal"`
}

type Config struct {
	MaxAttempts     int
	DeliveryTimeout time.Duration
	Lease           time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = constants.DefaultMaxAttempts
	}
	if c.DeliveryTimeout <= 0 {
		c.DeliveryTimeout = constants.DefaultDeliveryTimeout
	}
	if c.Lease <= c.DeliveryTimeout {
		c.Lease = max(constants.DefaultClaimLease, 2*c.DeliveryTimeout)
	}
	return c
}

type Coordinator struct {
	claims  storage.ClaimStore
	cfg     Config
	metrics *metrics.Metrics
	now     func() time.Time
}

func New(claims storage.ClaimStore, cfg Config, m *metrics.Metrics) *Coordinator {
	return &Coordinator{
		claims:  claims,
		cfg:     cfg.withDefaults(),
		metrics: m,
		now:     time.Now,
	}
}

// TryDispatch claims the candidate's key and, if it wins, delivers once.
// Storage errors are returned; delivery errors are recorded on the claim
// and reported through the Result.
func (c *Coordinator) TryDispatch(ctx context.Context, cand models.Candidate, d Deliverer) (Result, error) {
	key := cand.Key
	claim, won, err := c.claims.AcquireClaim(ctx, key, c.now(), c.cfg.Lease)
	if err != nil {
		return Result{}, err
	}
	if !won {
		logger.Debug("Reminder already claimed", "key", key.String(), "state", claim.State)
		c.metrics.ObserveDispatch(string(key.Kind), string(AlreadyClaimed))
		return Result{Outcome: AlreadyClaimed, Attempts: claim.Attempts, Terminal: claim.Terminal()}, nil
	}

	deliverCtx, cancel := context.WithTimeout(ctx, c.cfg.DeliveryTimeout)
	deliverErr := d.Deliver(deliverCtx, cand.User, key.Kind, cand.Payload)
	cancel()

	// Bookkeeping must land even if the tick is being cancelled, otherwise
	// the key stays claimed until its lease runs out.
	bookCtx, cancelBook := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancelBook()

	if deliverErr == nil {
		if err := c.claims.CompleteClaim(bookCtx, claim, c.now()); err != nil {
			return Result{}, fmt.Errorf("delivered %s but failed to record it: %w", key, err)
		}
		logger.Info("Reminder delivered", "user", key.UserID, "kind", key.Kind, "day", key.Day, "ref", key.Ref)
		c.metrics.ObserveDispatch(string(key.Kind), string(Delivered))
		return Result{Outcome: Delivered, Attempts: claim.Attempts + 1, Terminal: true}, nil
	}

	released, err := c.claims.ReleaseClaim(bookCtx, claim, c.now(), deliverErr.Error(), c.cfg.MaxAttempts)
	if err != nil {
		return Result{}, fmt.Errorf("failed to record delivery failure for %s: %w", key, err)
	}
	c.metrics.ObserveDispatch(string(key.Kind), string(Failed))
	if released.State == models.ClaimFailed {
		logger.Error("Reminder delivery exhausted", "user", key.UserID, "kind", key.Kind, "day", key.Day,
			"attempts", released.Attempts, "error", deliverErr)
		c.metrics.ObserveExhausted(string(key.Kind))
	} else {
		logger.Warn("Reminder delivery failed, will retry", "user", key.UserID, "kind", key.Kind, "day", key.Day,
			"attempts", released.Attempts, "error", deliverErr)
	}
	return Result{Outcome: Failed, Attempts: released.Attempts, Terminal: released.Terminal()}, nil
}
