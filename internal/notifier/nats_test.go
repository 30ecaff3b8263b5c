package notifier

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/julianstephens/streakd/internal/models"
)

func TestNATSSubject(t *testing.T) {
	n := NewNATS(nil, "")
	if got := n.Subject(models.ReminderEvening); got != "streakd.reminders.evening" {
		t.Errorf("unexpected subject %q", got)
	}
	if got := NewNATS(nil, "coach").Subject(models.ReminderCustom); got != "coach.custom" {
		t.Errorf("unexpected subject %q", got)
	}
}

func TestNATSDeliverIntegration(t *testing.T) {
	url := os.Getenv("NATS_TEST_URL")
	if url == "" {
		t.Skip("NATS_TEST_URL not set, skipping NATS integration test")
	}

	nc, err := DialNATS(url)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer nc.Close()

	n := NewNATS(nc, "streakd-test")
	sub, err := nc.SubscribeSync(n.Subject(models.ReminderNight))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	payload := models.Payload{Day: "2026-10-16", Escalation: models.EscalationLastCall}
	if err := n.Deliver(ctx, models.User{ID: "u1", Name: "Ada"}, models.ReminderNight, payload); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	msg, err := sub.NextMsg(5 * time.Second)
	if err != nil {
		t.Fatalf("next msg: %v", err)
	}
	var got Message
	if err := json.Unmarshal(msg.Data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.UserID != "u1" || got.Kind != models.ReminderNight || got.Payload.Escalation != models.EscalationLastCall {
		t.Errorf("unexpected message %+v", got)
	}
}
