package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/julianstephens/streakd/internal/constants"
	"github.com/julianstephens/streakd/internal/models"
)

// Message is the JSON body published for each reminder.
type Message struct {
	UserID   string              `json:"user_id"`
	UserName string              `json:"user_name"`
	Kind     models.ReminderKind `json:"kind"`
	Payload  models.Payload      `json:"payload"`
	SentAt   time.Time           `json:"sent_at"`
}

// NATS publishes reminders on <prefix>.<kind> for downstream bots or
// push gateways to render.
type NATS struct {
	nc     *nats.Conn
	prefix string
}

// DialNATS connects to url with reconnects enabled.
func DialNATS(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(constants.AppName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// NewNATS wraps an open connection. An empty prefix selects
// constants.DefaultNATSSubject.
func NewNATS(nc *nats.Conn, prefix string) *NATS {
	if prefix == "" {
		prefix = constants.DefaultNATSSubject
	}
	return &NATS{nc: nc, prefix: prefix}
}

func (n *NATS) Subject(kind models.ReminderKind) string {
	return n.prefix + "." + string(kind)
}

// Deliver publishes and waits for the server to acknowledge the flush, so
// a nil error means the message left this process.
func (n *NATS) Deliver(ctx context.Context, user models.User, kind models.ReminderKind, payload models.Payload) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}
	data, err := json.Marshal(Message{
		UserID:   user.ID,
		UserName: user.Name,
		Kind:     kind,
		Payload:  payload,
		SentAt:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := n.nc.Publish(n.Subject(kind), data); err != nil {
		return fmt.Errorf("publish %s: %w", n.Subject(kind), err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, constants.DefaultDeliveryTimeout)
		defer cancel()
	}
	if err := n.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", n.Subject(kind), err)
	}
	return nil
}
