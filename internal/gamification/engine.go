// Package gamification turns qualifying events into XP, levels and
// achievement unlocks on top of an append-only ledger.
package gamification

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/julianstephens/streakd/internal/logger"
	"github.com/julianstephens/streakd/internal/metrics"
	"github.com/julianstephens/streakd/internal/models"
	"github.com/julianstephens/streakd/internal/streak"
	"github.com/julianstephens/streakd/internal/utils"
)

// Store is the persistence the engine depends on. AppendXPEvent and
// UnlockAchievement are insert-if-absent and report whether a row was added.
type Store interface {
	streak.LogReader
	GetUser(ctx context.Context, id string) (models.User, error)
	GetHabit(ctx context.Context, id string) (models.Habit, error)
	AppendXPEvent(ctx context.Context, ev models.XPEvent) (bool, error)
	GetUserXP(ctx context.Context, userID string) (int, error)
	UnlockAchievement(ctx context.Context, u models.AchievementUnlock) (bool, error)
	GetUnlocks(ctx context.Context, userID string) ([]models.AchievementUnlock, error)
	CountCompletedLogs(ctx context.Context, userID string) (int, error)
	CountTrackingEntries(ctx context.Context, userID string, kind models.TrackingKind) (int, error)
}

// Result describes the effect of one event.
type Result struct {
	XPDelta    int                  `json:"xp_delta"`
	XP         int                  `json:"xp"`
	Level      int                  `json:"level"`
	LevelTitle string               `json:"level_title"`
	LeveledUp  bool                 `json:"leveled_up"`
	Unlocked   []models.Achievement `json:"unlocked,omitempty"`
}

type Engine struct {
	store      Store
	catalogue  []models.Achievement
	defaultLoc *time.Location
	metrics    *metrics.Metrics
	now        func() time.Time
}

// New builds an engine over store. A nil catalogue selects Catalogue().
// Invalid achievements are dropped with a warning.
func New(store Store, catalogue []models.Achievement, defaultLoc *time.Location, m *metrics.Metrics) *Engine {
	if catalogue == nil {
		catalogue = Catalogue()
	}
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	valid := make([]models.Achievement, 0, len(catalogue))
	seen := make(map[string]bool, len(catalogue))
	for _, a := range catalogue {
		if err := a.Validate(); err != nil {
			logger.Warn("Skipping achievement", "id", a.ID, "error", err)
			m.ObserveSkipped("achievement")
			continue
		}
		if seen[a.ID] {
			logger.Warn("Skipping duplicate achievement", "id", a.ID)
			m.ObserveSkipped("achievement")
			continue
		}
		seen[a.ID] = true
		valid = append(valid, a)
	}
	return &Engine{
		store:      store,
		catalogue:  valid,
		defaultLoc: defaultLoc,
		metrics:    m,
		now:        time.Now,
	}
}

// Achievements returns the validated catalogue.
func (e *Engine) Achievements() []models.Achievement {
	return e.catalogue
}

// ApplyEvent grants the event's XP at most once per source id, then
// evaluates achievements until no new unlock occurs.
func (e *Engine) ApplyEvent(ctx context.Context, ev models.Event) (Result, error) {
	if err := ev.Validate(); err != nil {
		return Result{}, err
	}
	reward, ok := Rewards[ev.Kind]
	if !ok {
		return Result{}, fmt.Errorf("no reward defined for event kind %q", ev.Kind)
	}
	at := ev.At
	if at.IsZero() {
		at = e.now()
	}

	amount := reward.XP(ev.Quantity)
	if ev.Kind == models.EventHabitCompleted {
		habit, err := e.store.GetHabit(ctx, ev.HabitID)
		if err != nil {
			return Result{}, fmt.Errorf("failed to load habit %s: %w", ev.HabitID, err)
		}
		amount = int(math.Floor(float64(amount) * StreakMultiplier(habit.CurrentStreak)))
	}

	before, err := e.store.GetUserXP(ctx, ev.UserID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read xp: %w", err)
	}

	var res Result
	inserted, err := e.store.AppendXPEvent(ctx, models.XPEvent{
		UserID:    ev.UserID,
		SourceID:  ev.SourceID,
		Kind:      ev.Kind,
		Amount:    amount,
		CreatedAt: at,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to append xp event: %w", err)
	}
	if inserted {
		res.XPDelta = amount
		e.metrics.ObserveXP(string(ev.Kind), amount)
	} else {
		logger.Debug("Duplicate event ignored", "user", ev.UserID, "source", ev.SourceID)
	}

	unlocked, bonus, err := e.evaluate(ctx, ev.UserID, at)
	if err != nil {
		return Result{}, err
	}
	res.Unlocked = unlocked
	res.XPDelta += bonus

	res.XP, err = e.store.GetUserXP(ctx, ev.UserID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read xp: %w", err)
	}
	res.Level = LevelFor(res.XP)
	res.LevelTitle = Title(res.Level)
	res.LeveledUp = res.Level > LevelFor(before)
	return res, nil
}

// stats is one consistent read of the values achievement conditions test.
type stats struct {
	globalStreak int
	completions  int
	level        int
	signupDays   int
	tracking     map[models.TrackingKind]int
}

func (e *Engine) loadStats(ctx context.Context, user models.User, at time.Time) (*stats, error) {
	loc, fellBack := utils.ResolveLocation(user.Timezone, e.defaultLoc)
	if fellBack {
		logger.Warn("Falling back to default timezone", "user", user.ID, "timezone", user.Timezone)
		e.metrics.ObserveTimezoneFallback()
	}
	local := at.In(loc)
	day := utils.FormatDay(local)

	habits, logs, err := streak.Load(ctx, e.store, user.ID, day)
	if err != nil {
		return nil, err
	}
	xp, err := e.store.GetUserXP(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read xp: %w", err)
	}
	completions, err := e.store.CountCompletedLogs(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count completions: %w", err)
	}

	s := &stats{
		globalStreak: streak.GlobalStreak(habits, logs, local),
		completions:  completions,
		level:        LevelFor(xp),
		tracking:     make(map[models.TrackingKind]int),
	}
	if !user.CreatedAt.IsZero() {
		s.signupDays = utils.DaysBetween(utils.Day(user.CreatedAt.In(loc)), utils.Day(local))
	}
	return s, nil
}

func (e *Engine) met(ctx context.Context, userID string, a models.Achievement, s *stats) (bool, error) {
	switch a.ConditionType {
	case models.ConditionStreakReached:
		return s.globalStreak >= a.ConditionValue, nil
	case models.ConditionTotalCompletions:
		return s.completions >= a.ConditionValue, nil
	case models.ConditionLevelReached:
		return s.level >= a.ConditionValue, nil
	case models.ConditionDaysSinceSignup:
		return s.signupDays >= a.ConditionValue, nil
	case models.ConditionTrackingCount:
		n, ok := s.tracking[a.TrackingKind]
		if !ok {
			var err error
			n, err = e.store.CountTrackingEntries(ctx, userID, a.TrackingKind)
			if err != nil {
				return false, fmt.Errorf("failed to count %s entries: %w", a.TrackingKind, err)
			}
			s.tracking[a.TrackingKind] = n
		}
		return n >= a.ConditionValue, nil
	}
	return false, fmt.Errorf("%w: %s", models.ErrInvalidCondition, a.ConditionType)
}

// evaluate unlocks every satisfied achievement. Reward XP can raise the
// level, so rounds repeat until one adds nothing; the catalogue size
// bounds the number of rounds.
func (e *Engine) evaluate(ctx context.Context, userID string, at time.Time) ([]models.Achievement, int, error) {
	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	existing, err := e.store.GetUnlocks(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load unlocks: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, u := range existing {
		have[u.AchievementID] = true
	}

	var unlocked []models.Achievement
	bonus := 0
	for round := 0; round <= len(e.catalogue); round++ {
		s, err := e.loadStats(ctx, user, at)
		if err != nil {
			return nil, 0, err
		}

		added := false
		for _, a := range e.catalogue {
			if have[a.ID] {
				continue
			}
			ok, err := e.met(ctx, userID, a, s)
			if err != nil {
				return nil, 0, err
			}
			if !ok {
				continue
			}

			inserted, err := e.store.UnlockAchievement(ctx, models.AchievementUnlock{
				UserID:        userID,
				AchievementID: a.ID,
				UnlockedAt:    at,
			})
			if err != nil {
				return nil, 0, fmt.Errorf("failed to unlock %s: %w", a.ID, err)
			}
			have[a.ID] = true
			if !inserted {
				continue
			}
			added = true
			unlocked = append(unlocked, a)
			e.metrics.ObserveUnlock()
			logger.Info("Achievement unlocked", "user", userID, "achievement", a.ID)

			if a.XPReward == 0 {
				continue
			}
			granted, err := e.store.AppendXPEvent(ctx, models.XPEvent{
				UserID:    userID,
				SourceID:  "achievement:" + a.ID,
				Kind:      models.EventAchievementReward,
				Amount:    a.XPReward,
				CreatedAt: at,
			})
			if err != nil {
				return nil, 0, fmt.Errorf("failed to grant reward for %s: %w", a.ID, err)
			}
			if granted {
				bonus += a.XPReward
				e.metrics.ObserveXP(string(models.EventAchievementReward), a.XPReward)
			}
		}
		if !added {
			break
		}
	}
	return unlocked, bonus, nil
}

// Snapshot returns the user's current XP, level and title without applying
// an event.
func (e *Engine) Snapshot(ctx context.Context, userID string) (xp, level int, title string, err error) {
	xp, err = e.store.GetUserXP(ctx, userID)
	if err != nil {
		return 0, 0, "", fmt.Errorf("failed to read xp: %w", err)
	}
	level = LevelFor(xp)
	return xp, level, Title(level), nil
}
