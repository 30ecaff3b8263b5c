// Package storagetest holds the behavioural checks every storage.Provider
// must pass. Backend packages call Run from their own tests.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	apperrors "github.com/julianstephens/streakd/internal/errors"
	"github.com/julianstephens/streakd/internal/models"
	"github.com/julianstephens/streakd/internal/storage"
)

var base = time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)

// Run executes the contract against stores produced by newStore. Each
// subtest receives a fresh, initialised store.
func Run(t *testing.T, newStore func(t *testing.T) storage.Provider) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("Habits", func(t *testing.T) { testHabits(t, newStore(t)) })
	t.Run("HabitLogUpsert", func(t *testing.T) { testHabitLogUpsert(t, newStore(t)) })
	t.Run("Reminders", func(t *testing.T) { testReminders(t, newStore(t)) })
	t.Run("Ledger", func(t *testing.T) { testLedger(t, newStore(t)) })
	RunClaims(t, func(t *testing.T) storage.ClaimStore { return newStore(t) })
}

// RunClaims executes only the claim-table checks, for standalone claim
// stores.
func RunClaims(t *testing.T, newStore func(t *testing.T) storage.ClaimStore) {
	t.Run("ClaimLifecycle", func(t *testing.T) { testClaimLifecycle(t, newStore(t)) })
	t.Run("ClaimLeaseExpiry", func(t *testing.T) { testClaimLeaseExpiry(t, newStore(t)) })
	t.Run("ClaimConcurrentAcquire", func(t *testing.T) { testClaimConcurrentAcquire(t, newStore(t)) })
}

// Seed adds a user and a daily boolean habit, returning both.
func Seed(t *testing.T, s storage.Provider, userID string) (models.User, models.Habit) {
	t.Helper()
	ctx := context.Background()
	user := models.User{
		ID:        userID,
		Name:      "User " + userID,
		Timezone:  "Europe/Madrid",
		Mode:      models.ModeNormal,
		Active:    true,
		CreatedAt: base.AddDate(0, 0, -30),
	}
	if err := s.AddUser(ctx, user); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	habit := models.Habit{
		ID:        userID + "-read",
		UserID:    userID,
		Name:      "Read",
		Frequency: models.Daily(),
		Kind:      models.HabitBoolean,
		Active:    true,
		CreatedAt: base.AddDate(0, 0, -30),
	}
	if err := s.AddHabit(ctx, habit); err != nil {
		t.Fatalf("AddHabit: %v", err)
	}
	return user, habit
}

func testUsers(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	user, _ := Seed(t, s, "u1")

	if err := s.AddUser(ctx, user); !errors.Is(err, apperrors.ErrDuplicate) {
		t.Errorf("duplicate AddUser error = %v, want ErrDuplicate", err)
	}

	got, err := s.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Timezone != "Europe/Madrid" || got.Mode != models.ModeNormal || !got.Active {
		t.Errorf("unexpected user: %+v", got)
	}
	if !got.CreatedAt.Equal(user.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, user.CreatedAt)
	}

	got.Mode = models.ModeVacation
	got.DoNotDisturb = true
	if err := s.UpdateUser(ctx, got); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	got, _ = s.GetUser(ctx, "u1")
	if got.Mode != models.ModeVacation || !got.DoNotDisturb {
		t.Errorf("update not persisted: %+v", got)
	}

	Seed(t, s, "u2")
	inactive, _ := s.GetUser(ctx, "u2")
	inactive.Active = false
	if err := s.UpdateUser(ctx, inactive); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	active, err := s.ListActiveUsers(ctx)
	if err != nil {
		t.Fatalf("ListActiveUsers: %v", err)
	}
	if len(active) != 1 || active[0].ID != "u1" {
		t.Errorf("ListActiveUsers() = %+v", active)
	}

	if _, err := s.GetUser(ctx, "missing"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("GetUser(missing) error = %v, want ErrNotFound", err)
	}
}

func testHabits(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	_, habit := Seed(t, s, "u1")

	gym := models.Habit{
		ID:        "u1-gym",
		UserID:    "u1",
		Name:      "Gym",
		Frequency: models.OnWeekdays(time.Monday, time.Thursday),
		Kind:      models.HabitBoolean,
		Active:    true,
		CreatedAt: base,
	}
	if err := s.AddHabit(ctx, gym); err != nil {
		t.Fatalf("AddHabit: %v", err)
	}

	habits, err := s.GetHabitsForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetHabitsForUser: %v", err)
	}
	if len(habits) != 2 || habits[0].ID != habit.ID {
		t.Fatalf("GetHabitsForUser() = %+v", habits)
	}
	if got := habits[1].Frequency; got.Type != models.FrequencyWeekdays || len(got.Weekdays) != 2 || got.Weekdays[1] != time.Thursday {
		t.Errorf("weekday frequency not preserved: %+v", got)
	}

	if err := s.UpdateHabitStreaks(ctx, habit.ID, 5, 5); err != nil {
		t.Fatalf("UpdateHabitStreaks: %v", err)
	}
	if err := s.UpdateHabitStreaks(ctx, habit.ID, 1, 3); err != nil {
		t.Fatalf("UpdateHabitStreaks: %v", err)
	}
	got, err := s.GetHabit(ctx, habit.ID)
	if err != nil {
		t.Fatalf("GetHabit: %v", err)
	}
	if got.CurrentStreak != 1 || got.BestStreak != 5 {
		t.Errorf("streaks = %d/%d, want 1/5", got.CurrentStreak, got.BestStreak)
	}

	archived := base.Add(time.Hour)
	got.ArchivedAt = &archived
	got.Name = "Read more"
	if err := s.UpdateHabit(ctx, got); err != nil {
		t.Fatalf("UpdateHabit: %v", err)
	}
	got, _ = s.GetHabit(ctx, habit.ID)
	if got.Name != "Read more" || got.ArchivedAt == nil || got.BestStreak != 5 {
		t.Errorf("UpdateHabit result: %+v", got)
	}
}

func testHabitLogUpsert(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	_, habit := Seed(t, s, "u1")
	water := models.Habit{
		ID: "u1-water", UserID: "u1", Name: "Water", Frequency: models.Daily(),
		Kind: models.HabitQuantity, TargetQuantity: 8, Active: true, CreatedAt: base,
	}
	if err := s.AddHabit(ctx, water); err != nil {
		t.Fatalf("AddHabit: %v", err)
	}

	log := models.HabitLog{HabitID: water.ID, UserID: "u1", Day: "2026-10-16", QuantityLogged: 6, UpdatedAt: base}
	if _, err := s.UpsertHabitLog(ctx, log); err != nil {
		t.Fatalf("UpsertHabitLog: %v", err)
	}
	log.QuantityLogged = 4
	stored, err := s.UpsertHabitLog(ctx, log)
	if err != nil {
		t.Fatalf("UpsertHabitLog: %v", err)
	}
	if stored.QuantityLogged != 6 {
		t.Errorf("quantity = %v, want max 6", stored.QuantityLogged)
	}
	log.QuantityLogged = 9
	if stored, _ = s.UpsertHabitLog(ctx, log); stored.QuantityLogged != 9 {
		t.Errorf("quantity = %v, want 9", stored.QuantityLogged)
	}

	for _, day := range []string{"2026-10-14", "2026-10-15", "2026-10-16"} {
		if _, err := s.UpsertHabitLog(ctx, models.HabitLog{HabitID: habit.ID, UserID: "u1", Day: day, Completed: true, UpdatedAt: base}); err != nil {
			t.Fatalf("UpsertHabitLog: %v", err)
		}
	}
	// Re-logging the same day must not add a row.
	if _, err := s.UpsertHabitLog(ctx, models.HabitLog{HabitID: habit.ID, UserID: "u1", Day: "2026-10-16", Completed: true, UpdatedAt: base}); err != nil {
		t.Fatalf("UpsertHabitLog: %v", err)
	}

	logs, err := s.GetHabitLogs(ctx, habit.ID, "2026-10-15", "")
	if err != nil {
		t.Fatalf("GetHabitLogs: %v", err)
	}
	if len(logs) != 2 || logs[0].Day != "2026-10-15" {
		t.Errorf("GetHabitLogs() = %+v", logs)
	}

	n, err := s.CountCompletedLogs(ctx, "u1")
	if err != nil {
		t.Fatalf("CountCompletedLogs: %v", err)
	}
	if n != 4 {
		t.Errorf("CountCompletedLogs() = %d, want 4", n)
	}
}

func testReminders(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	Seed(t, s, "u1")

	routine := models.Routine{ID: "r1", UserID: "u1", Name: "Morning routine", CreatedAt: base}
	if err := s.AddRoutine(ctx, routine); err != nil {
		t.Fatalf("AddRoutine: %v", err)
	}
	if got, err := s.GetRoutine(ctx, "r1"); err != nil || got.Name != routine.Name {
		t.Errorf("GetRoutine() = %+v, %v", got, err)
	}

	reminders := []models.Reminder{
		{ID: "rem-evening", UserID: "u1", Kind: models.ReminderEvening, Enabled: true, CreatedAt: base},
		{ID: "rem-routine", UserID: "u1", Kind: models.ReminderRoutine, Time: "06:30", LinkedRoutineID: "r1",
			Weekdays: []time.Weekday{time.Monday, time.Friday}, Enabled: true, CreatedAt: base},
	}
	for _, r := range reminders {
		if err := s.AddReminder(ctx, r); err != nil {
			t.Fatalf("AddReminder: %v", err)
		}
	}

	got, err := s.GetRemindersForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetRemindersForUser: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 reminders, got %d", len(got))
	}
	var routineReminder models.Reminder
	for _, r := range got {
		if r.ID == "rem-routine" {
			routineReminder = r
		}
	}
	if routineReminder.LinkedRoutineID != "r1" || len(routineReminder.Weekdays) != 2 {
		t.Errorf("routine reminder not preserved: %+v", routineReminder)
	}

	routineReminder.Enabled = false
	if err := s.UpdateReminder(ctx, routineReminder); err != nil {
		t.Fatalf("UpdateReminder: %v", err)
	}
	got, _ = s.GetRemindersForUser(ctx, "u1")
	for _, r := range got {
		if r.ID == "rem-routine" && r.Enabled {
			t.Error("reminder should be disabled")
		}
	}
}

func testLedger(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	Seed(t, s, "u1")

	ev := models.XPEvent{UserID: "u1", SourceID: "habit:u1-read:2026-10-16", Kind: models.EventHabitCompleted, Amount: 10, CreatedAt: base}
	for i := 0; i < 3; i++ {
		ok, err := s.AppendXPEvent(ctx, ev)
		if err != nil {
			t.Fatalf("AppendXPEvent: %v", err)
		}
		if ok != (i == 0) {
			t.Errorf("attempt %d inserted = %v", i, ok)
		}
	}
	if xp, err := s.GetUserXP(ctx, "u1"); err != nil || xp != 10 {
		t.Errorf("GetUserXP() = %d, %v; want 10", xp, err)
	}
	if xp, _ := s.GetUserXP(ctx, "nobody"); xp != 0 {
		t.Errorf("GetUserXP(nobody) = %d", xp)
	}

	unlock := models.AchievementUnlock{UserID: "u1", AchievementID: "first_habit", UnlockedAt: base}
	if ok, err := s.UnlockAchievement(ctx, unlock); err != nil || !ok {
		t.Fatalf("first unlock = %v, %v", ok, err)
	}
	if ok, _ := s.UnlockAchievement(ctx, unlock); ok {
		t.Error("second unlock should be a no-op")
	}
	unlocks, err := s.GetUnlocks(ctx, "u1")
	if err != nil || len(unlocks) != 1 {
		t.Errorf("GetUnlocks() = %+v, %v", unlocks, err)
	}

	entry := models.TrackingEntry{ID: "t1", UserID: "u1", Kind: models.EventPomodoroCompleted, Day: "2026-10-16", Quantity: 1, SourceID: "pomo-1", CreatedAt: base}
	if ok, err := s.AddTrackingEntry(ctx, entry); err != nil || !ok {
		t.Fatalf("AddTrackingEntry = %v, %v", ok, err)
	}
	entry.ID = "t2"
	if ok, _ := s.AddTrackingEntry(ctx, entry); ok {
		t.Error("duplicate source id should not insert")
	}
	if n, _ := s.CountTrackingEntries(ctx, "u1", models.EventPomodoroCompleted); n != 1 {
		t.Errorf("CountTrackingEntries() = %d, want 1", n)
	}
}

func testClaimLifecycle(t *testing.T, s storage.ClaimStore) {
	ctx := context.Background()
	key := models.ClaimKey{UserID: "u1", Kind: models.ReminderEvening, Day: "2026-10-16"}
	lease := 5 * time.Minute

	if _, err := s.GetClaim(ctx, key); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("GetClaim on unclaimed key error = %v", err)
	}

	claim, ok, err := s.AcquireClaim(ctx, key, base, lease)
	if err != nil || !ok {
		t.Fatalf("first acquire = %v, %v", ok, err)
	}
	if claim.State != models.ClaimClaimed {
		t.Errorf("state = %s, want claimed", claim.State)
	}
	if _, ok, _ := s.AcquireClaim(ctx, key, base.Add(time.Second), lease); ok {
		t.Error("second acquire inside the lease should lose")
	}

	claim, err = s.ReleaseClaim(ctx, claim, base.Add(2*time.Second), "timeout", 2)
	if err != nil {
		t.Fatalf("ReleaseClaim: %v", err)
	}
	if claim.State != models.ClaimRetryable || claim.Attempts != 1 || claim.LastError != "timeout" {
		t.Errorf("after first failure: %+v", claim)
	}

	claim, ok, err = s.AcquireClaim(ctx, key, base.Add(time.Minute), lease)
	if err != nil || !ok {
		t.Fatal("retryable claim should be acquirable")
	}
	claim, err = s.ReleaseClaim(ctx, claim, base.Add(time.Minute), "timeout", 2)
	if err != nil {
		t.Fatalf("ReleaseClaim: %v", err)
	}
	if claim.State != models.ClaimFailed || !claim.Terminal() {
		t.Errorf("after exhausting attempts: %+v", claim)
	}
	if _, ok, _ := s.AcquireClaim(ctx, key, base.Add(time.Hour), lease); ok {
		t.Error("failed claim must never be reacquired")
	}

	other := models.ClaimKey{UserID: "u1", Kind: models.ReminderCustom, Day: "2026-10-16", Ref: "rem-1"}
	held, ok, err := s.AcquireClaim(ctx, other, base, lease)
	if err != nil || !ok {
		t.Fatal("distinct ref should be its own claim")
	}
	if err := s.CompleteClaim(ctx, held, base.Add(time.Second)); err != nil {
		t.Fatalf("CompleteClaim: %v", err)
	}
	got, err := s.GetClaim(ctx, other)
	if err != nil || got.State != models.ClaimDelivered || got.Attempts != 1 {
		t.Errorf("delivered claim = %+v, %v", got, err)
	}
	if _, ok, _ := s.AcquireClaim(ctx, other, base.Add(time.Hour), lease); ok {
		t.Error("delivered claim must never be reacquired")
	}
}

func testClaimLeaseExpiry(t *testing.T, s storage.ClaimStore) {
	ctx := context.Background()
	key := models.ClaimKey{UserID: "u1", Kind: models.ReminderNight, Day: "2026-10-16"}

	stale, ok, err := s.AcquireClaim(ctx, key, base, time.Minute)
	if err != nil || !ok {
		t.Fatal("first acquire should win")
	}
	// The holder stalled; once its lease passes another worker takes over.
	if _, ok, _ := s.AcquireClaim(ctx, key, base.Add(30*time.Second), time.Minute); ok {
		t.Error("lease still valid")
	}
	current, ok, err := s.AcquireClaim(ctx, key, base.Add(2*time.Minute), time.Minute)
	if err != nil || !ok {
		t.Fatal("expired lease should be stealable")
	}

	// The stalled holder wakes up and must not touch the new owner's claim.
	if err := s.CompleteClaim(ctx, stale, base.Add(150*time.Second)); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("stale CompleteClaim error = %v, want ErrNotFound", err)
	}
	if _, err := s.ReleaseClaim(ctx, stale, base.Add(150*time.Second), "late", 1); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("stale ReleaseClaim error = %v, want ErrNotFound", err)
	}
	got, err := s.GetClaim(ctx, key)
	if err != nil || got.State != models.ClaimClaimed || got.Attempts != 0 {
		t.Errorf("claim after stale writes = %+v, %v", got, err)
	}

	if err := s.CompleteClaim(ctx, current, base.Add(170*time.Second)); err != nil {
		t.Fatalf("current holder CompleteClaim: %v", err)
	}
	if got, _ := s.GetClaim(ctx, key); got.State != models.ClaimDelivered || got.Attempts != 1 {
		t.Errorf("delivered claim = %+v", got)
	}
}

func testClaimConcurrentAcquire(t *testing.T, s storage.ClaimStore) {
	ctx := context.Background()
	key := models.ClaimKey{UserID: "u1", Kind: models.ReminderSummary, Day: "2026-10-16"}

	const workers = 8
	var wg sync.WaitGroup
	wins := make(chan int, workers)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, ok, err := s.AcquireClaim(ctx, key, base, 5*time.Minute)
			if err != nil {
				errs <- fmt.Errorf("worker %d: %w", i, err)
				return
			}
			if ok {
				wins <- i
			}
		}(i)
	}
	wg.Wait()
	close(wins)
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	if n := len(wins); n != 1 {
		t.Errorf("%d workers acquired the claim, want exactly 1", n)
	}
}
