package notifier

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/julianstephens/streakd/internal/models"
)

type countingDeliverer struct {
	calls atomic.Int32
	err   error
}

func (c *countingDeliverer) Deliver(context.Context, models.User, models.ReminderKind, models.Payload) error {
	c.calls.Add(1)
	return c.err
}

var user = models.User{ID: "u1", Name: "Ada"}

func TestMulti(t *testing.T) {
	ctx := context.Background()
	ok := &countingDeliverer{}
	broken := &countingDeliverer{err: errors.New("down")}

	if err := (Multi{ok, broken}).Deliver(ctx, user, models.ReminderMorning, models.Payload{}); err != nil {
		t.Errorf("one working channel should be enough, got %v", err)
	}
	if ok.calls.Load() != 1 || broken.calls.Load() != 1 {
		t.Errorf("every channel should be tried once, got %d and %d", ok.calls.Load(), broken.calls.Load())
	}

	err := (Multi{broken, broken}).Deliver(ctx, user, models.ReminderMorning, models.Payload{})
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Errorf("expected joined error, got %v", err)
	}

	if err := (Multi{}).Deliver(ctx, user, models.ReminderMorning, models.Payload{}); err == nil {
		t.Error("expected error with no channels")
	}
}

func TestLogDeliverer(t *testing.T) {
	if err := (Log{}).Deliver(context.Background(), user, models.ReminderSummary, models.Payload{Day: "2026-10-16"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (Log{}).Deliver(ctx, user, models.ReminderSummary, models.Payload{}); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestRateLimited(t *testing.T) {
	next := &countingDeliverer{}
	limited := NewRateLimited(next, 0.001, 1)

	if err := limited.Deliver(context.Background(), user, models.ReminderMorning, models.Payload{}); err != nil {
		t.Fatalf("first delivery uses the burst: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := limited.Deliver(ctx, user, models.ReminderMorning, models.Payload{}); err == nil {
		t.Error("expected throttled delivery to fail within the deadline")
	}
	if next.calls.Load() != 1 {
		t.Errorf("expected 1 delivery, got %d", next.calls.Load())
	}
}

func TestRender(t *testing.T) {
	pending := []models.HabitSnapshot{{ID: "h1", Name: "Read"}}
	tests := []struct {
		kind    models.ReminderKind
		payload models.Payload
		want    string
	}{
		{models.ReminderMorning, models.Payload{DueCount: 1, GlobalStreak: 4, PendingHabits: pending}, "4 days"},
		{models.ReminderMidday, models.Payload{DueCount: 2, DoneCount: 2}, "Everything is done"},
		{models.ReminderEvening, models.Payload{PendingHabits: pending, StreakAtRisk: true, GlobalStreak: 5}, "5 day streak"},
		{models.ReminderNight, models.Payload{PendingHabits: pending}, "Last call"},
		{models.ReminderSummary, models.Payload{DueCount: 1, Habits: []models.HabitSnapshot{{Name: "Read", Completed: true}}}, "[x] Read"},
		{models.ReminderWeeklySummary, models.Payload{Week: []models.DayTally{{Due: 2, Done: 1}, {Due: 2, Done: 2}}}, "3/4"},
		{models.ReminderCustom, models.Payload{Message: "stretch"}, "stretch"},
	}
	for _, tt := range tests {
		if got := Render(tt.kind, tt.payload); !strings.Contains(got, tt.want) {
			t.Errorf("Render(%s) = %q, want it to contain %q", tt.kind, got, tt.want)
		}
	}

	many := make([]models.HabitSnapshot, 7)
	for i := range many {
		many[i] = models.HabitSnapshot{Name: "h"}
	}
	if got := Render(models.ReminderEvening, models.Payload{PendingHabits: many}); !strings.Contains(got, "and 2 more") {
		t.Errorf("expected truncated list, got %q", got)
	}
}
