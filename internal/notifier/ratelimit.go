package notifier

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/julianstephens/streakd/internal/models"
)

// RateLimited throttles a channel to perSecond deliveries with the given
// burst. Waiting counts against the delivery timeout.
type RateLimited struct {
	next    Deliverer
	limiter *rate.Limiter
}

func NewRateLimited(next Deliverer, perSecond float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (r *RateLimited) Deliver(ctx context.Context, user models.User, kind models.ReminderKind, payload models.Payload) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("delivery throttled: %w", err)
	}
	return r.next.Deliver(ctx, user, kind, payload)
}
