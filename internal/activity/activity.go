// Package activity is the interactive write path: it records habit logs,
// tracking entries and routine completions, refreshes the streak caches and
// feeds the resulting events to the gamification engine.
package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/streakd/internal/gamification"
	"github.com/julianstephens/streakd/internal/logger"
	"github.com/julianstephens/streakd/internal/models"
	"github.com/julianstephens/streakd/internal/streak"
	"github.com/julianstephens/streakd/internal/utils"
)

type Store interface {
	gamification.Store
	UpsertHabitLog(ctx context.Context, log models.HabitLog) (models.HabitLog, error)
	UpdateHabitStreaks(ctx context.Context, id string, current, best int) error
	AddTrackingEntry(ctx context.Context, entry models.TrackingEntry) (bool, error)
	GetRoutine(ctx context.Context, id string) (models.Routine, error)
}

type Service struct {
	store      Store
	engine     *gamification.Engine
	defaultLoc *time.Location
	now        func() time.Time
}

func New(store Store, engine *gamification.Engine, defaultLoc *time.Location) *Service {
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &Service{store: store, engine: engine, defaultLoc: defaultLoc, now: time.Now}
}

// HabitEntry is one "log for a day" action. An empty Day means today in the
// user's zone.
type HabitEntry struct {
	HabitID   string
	Day       string
	Completed bool
	Quantity  float64
	Note      string
}

// HabitResult is the outcome of LogHabit. Rewards holds one result per
// event the log produced.
type HabitResult struct {
	Log     models.HabitLog       `json:"log"`
	Status  streak.Status         `json:"status"`
	Rewards []gamification.Result `json:"rewards,omitempty"`
}

// XPDelta sums the XP granted by every reward.
func (r HabitResult) XPDelta() int {
	total := 0
	for _, res := range r.Rewards {
		total += res.XPDelta
	}
	return total
}

func (s *Service) localNow(user models.User) time.Time {
	loc, fellBack := utils.ResolveLocation(user.Timezone, s.defaultLoc)
	if fellBack {
		logger.Warn("Falling back to default timezone", "user", user.ID, "timezone", user.Timezone)
	}
	return s.now().In(loc)
}

func resolveDay(day string, local time.Time) (string, error) {
	if day == "" {
		return utils.FormatDay(local), nil
	}
	if _, err := utils.ParseDay(day); err != nil {
		return "", fmt.Errorf("invalid day %q (expected YYYY-MM-DD): %w", day, err)
	}
	return day, nil
}

// LogHabit upserts the habit's log for the day, recomputes the streak
// caches and grants habit_completed once the day is satisfied. When every
// habit due that day is satisfied an all_habits_completed event follows.
// Repeating the call is safe: XP is keyed by habit and day.
func (s *Service) LogHabit(ctx context.Context, entry HabitEntry) (HabitResult, error) {
	habit, err := s.store.GetHabit(ctx, entry.HabitID)
	if err != nil {
		return HabitResult{}, err
	}
	user, err := s.store.GetUser(ctx, habit.UserID)
	if err != nil {
		return HabitResult{}, err
	}
	local := s.localNow(user)
	day, err := resolveDay(entry.Day, local)
	if err != nil {
		return HabitResult{}, err
	}
	if err := models.ValidQuantity(entry.Quantity); err != nil {
		return HabitResult{}, err
	}

	stored, err := s.store.UpsertHabitLog(ctx, models.HabitLog{
		HabitID:        habit.ID,
		UserID:         habit.UserID,
		Day:            day,
		Completed:      entry.Completed,
		QuantityLogged: entry.Quantity,
		Note:           entry.Note,
		UpdatedAt:      s.now().UTC(),
	})
	if err != nil {
		return HabitResult{}, fmt.Errorf("failed to store log: %w", err)
	}
	res := HabitResult{Log: stored}

	logs, err := s.store.GetHabitLogs(ctx, habit.ID, "", "")
	if err != nil {
		return HabitResult{}, fmt.Errorf("failed to load logs for habit %s: %w", habit.ID, err)
	}
	res.Status, err = streak.Evaluate(&habit, logs, local)
	if err != nil {
		logger.Warn("Skipping streak update", "habit", habit.ID, "error", err)
	} else if err := s.store.UpdateHabitStreaks(ctx, habit.ID, res.Status.CurrentStreak, res.Status.BestStreak); err != nil {
		return HabitResult{}, fmt.Errorf("failed to update streaks: %w", err)
	}

	if !streak.Satisfied(&habit, stored) {
		return res, nil
	}

	reward, err := s.engine.ApplyEvent(ctx, models.Event{
		UserID:   habit.UserID,
		Kind:     models.EventHabitCompleted,
		SourceID: fmt.Sprintf("habit:%s:%s", habit.ID, day),
		HabitID:  habit.ID,
		Day:      day,
		Quantity: stored.QuantityLogged,
		At:       s.now(),
	})
	if err != nil {
		return HabitResult{}, err
	}
	res.Rewards = append(res.Rewards, reward)

	habits, all, err := streak.Load(ctx, s.store, habit.UserID, "")
	if err != nil {
		return HabitResult{}, err
	}
	d, _ := utils.ParseDay(day)
	due, done := streak.Tally(habits, all, time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, local.Location()))
	if due > 0 && due == done {
		bonus, err := s.engine.ApplyEvent(ctx, models.Event{
			UserID:   habit.UserID,
			Kind:     models.EventAllHabitsCompleted,
			SourceID: fmt.Sprintf("all:%s:%s", habit.UserID, day),
			Day:      day,
			At:       s.now(),
		})
		if err != nil {
			return HabitResult{}, err
		}
		res.Rewards = append(res.Rewards, bonus)
	}
	return res, nil
}

// TrackingEntry is one mood, water, sleep or similar entry. An empty
// SourceID gets a fresh id, so only callers that supply one are idempotent.
type TrackingEntry struct {
	UserID   string
	Kind     models.TrackingKind
	Day      string
	Quantity float64
	SourceID string
}

// RecordTracking stores the entry and grants its XP.
func (s *Service) RecordTracking(ctx context.Context, entry TrackingEntry) (gamification.Result, error) {
	if !entry.Kind.IsTracking() {
		return gamification.Result{}, fmt.Errorf("unknown tracking kind %q", entry.Kind)
	}
	if err := models.ValidQuantity(entry.Quantity); err != nil {
		return gamification.Result{}, err
	}
	user, err := s.store.GetUser(ctx, entry.UserID)
	if err != nil {
		return gamification.Result{}, err
	}
	day, err := resolveDay(entry.Day, s.localNow(user))
	if err != nil {
		return gamification.Result{}, err
	}
	if entry.SourceID == "" {
		entry.SourceID = uuid.NewString()
	}

	inserted, err := s.store.AddTrackingEntry(ctx, models.TrackingEntry{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Kind:      entry.Kind,
		Day:       day,
		Quantity:  entry.Quantity,
		SourceID:  entry.SourceID,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return gamification.Result{}, fmt.Errorf("failed to store tracking entry: %w", err)
	}
	if !inserted {
		logger.Debug("Duplicate tracking entry", "user", user.ID, "source", entry.SourceID)
	}

	// The ledger is idempotent, so a retry after a crash still grants once.
	return s.engine.ApplyEvent(ctx, models.Event{
		UserID:   user.ID,
		Kind:     entry.Kind,
		SourceID: "track:" + entry.SourceID,
		Day:      day,
		Quantity: entry.Quantity,
		At:       s.now(),
	})
}

// CompleteRoutine grants routine XP at most once per routine and day.
func (s *Service) CompleteRoutine(ctx context.Context, routineID, day string) (gamification.Result, error) {
	routine, err := s.store.GetRoutine(ctx, routineID)
	if err != nil {
		return gamification.Result{}, err
	}
	user, err := s.store.GetUser(ctx, routine.UserID)
	if err != nil {
		return gamification.Result{}, err
	}
	day, err = resolveDay(day, s.localNow(user))
	if err != nil {
		return gamification.Result{}, err
	}
	return s.engine.ApplyEvent(ctx, models.Event{
		UserID:   user.ID,
		Kind:     models.EventRoutineCompleted,
		SourceID: fmt.Sprintf("routine:%s:%s", routine.ID, day),
		Day:      day,
		At:       s.now(),
	})
}
