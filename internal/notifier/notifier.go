// Package notifier holds the delivery channels reminders are sent through.
package notifier

import (
	"context"
	"errors"

	"github.com/julianstephens/streakd/internal/logger"
	"github.com/julianstephens/streakd/internal/models"
)

// Deliverer sends one reminder. Implementations must return once ctx is
// done.
type Deliverer interface {
	Deliver(ctx context.Context, user models.User, kind models.ReminderKind, payload models.Payload) error
}

// Multi fans a reminder out to every channel. It fails only when all
// channels fail, so one broken channel does not cause redelivery on the
// others.
type Multi []Deliverer

func (m Multi) Deliver(ctx context.Context, user models.User, kind models.ReminderKind, payload models.Payload) error {
	if len(m) == 0 {
		return errors.New("no delivery channels configured")
	}
	var errs []error
	for _, d := range m {
		if err := d.Deliver(ctx, user, kind, payload); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == len(m) {
		return errors.Join(errs...)
	}
	for _, err := range errs {
		logger.Warn("Delivery channel failed", "user", user.ID, "kind", kind, "error", err)
	}
	return nil
}

// Log writes reminders to the application log. It backs dry runs and
// setups with no other channel.
type Log struct{}

func (Log) Deliver(ctx context.Context, user models.User, kind models.ReminderKind, payload models.Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger.Info("Reminder",
		"user", user.ID,
		"kind", kind,
		"day", payload.Day,
		"pending", len(payload.PendingHabits),
		"escalation", payload.Escalation,
		"text", Render(kind, payload),
	)
	return nil
}
