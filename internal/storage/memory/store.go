// Package memory is an in-process Provider used by tests and dry runs.
// It mirrors the SQL backends' semantics under a single mutex.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	apperrors "github.com/julianstephens/streakd/internal/errors"
	"github.com/julianstephens/streakd/internal/models"
	"github.com/julianstephens/streakd/internal/storage"
	"github.com/julianstephens/streakd/internal/streak"
)

var _ storage.Provider = (*Store)(nil)

type logKey struct {
	habitID string
	day     string
}

type Store struct {
	mu sync.Mutex

	users     map[string]models.User
	habits    map[string]models.Habit
	logs      map[logKey]models.HabitLog
	reminders map[string]models.Reminder
	routines  map[string]models.Routine
	tracking  map[string]models.TrackingEntry // by source id
	xp        map[string]map[string]models.XPEvent
	unlocks   map[string]map[string]models.AchievementUnlock
	claims    map[models.ClaimKey]models.DispatchClaim
}

func New() *Store {
	return &Store{
		users:     make(map[string]models.User),
		habits:    make(map[string]models.Habit),
		logs:      make(map[logKey]models.HabitLog),
		reminders: make(map[string]models.Reminder),
		routines:  make(map[string]models.Routine),
		tracking:  make(map[string]models.TrackingEntry),
		xp:        make(map[string]map[string]models.XPEvent),
		unlocks:   make(map[string]map[string]models.AchievementUnlock),
		claims:    make(map[models.ClaimKey]models.DispatchClaim),
	}
}

func (s *Store) Init() error           { return nil }
func (s *Store) Load() error           { return nil }
func (s *Store) Close() error          { return nil }
func (s *Store) GetConfigPath() string { return "memory" }

func (s *Store) AddUser(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("user %s: %w", user.ID, apperrors.ErrDuplicate)
	}
	s.users[user.ID] = user
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", id, apperrors.ErrNotFound)
	}
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[user.ID]
	if !ok {
		return fmt.Errorf("user %s: %w", user.ID, apperrors.ErrNotFound)
	}
	user.CreatedAt = existing.CreatedAt
	s.users[user.ID] = user
	return nil
}

func (s *Store) ListActiveUsers(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var users []models.User
	for _, u := range s.users {
		if u.Active {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *Store) AddHabit(_ context.Context, habit models.Habit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.habits[habit.ID]; ok {
		return fmt.Errorf("habit %s: %w", habit.ID, apperrors.ErrDuplicate)
	}
	s.habits[habit.ID] = habit
	return nil
}

func (s *Store) GetHabit(_ context.Context, id string) (models.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.habits[id]
	if !ok {
		return models.Habit{}, fmt.Errorf("habit %s: %w", id, apperrors.ErrNotFound)
	}
	return h, nil
}

func (s *Store) GetHabitsForUser(_ context.Context, userID string) ([]models.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var habits []models.Habit
	for _, h := range s.habits {
		if h.UserID == userID {
			habits = append(habits, h)
		}
	}
	sort.Slice(habits, func(i, j int) bool {
		if !habits[i].CreatedAt.Equal(habits[j].CreatedAt) {
			return habits[i].CreatedAt.Before(habits[j].CreatedAt)
		}
		return habits[i].ID < habits[j].ID
	})
	return habits, nil
}

func (s *Store) UpdateHabit(_ context.Context, habit models.Habit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.habits[habit.ID]
	if !ok {
		return fmt.Errorf("habit %s: %w", habit.ID, apperrors.ErrNotFound)
	}
	habit.CurrentStreak = existing.CurrentStreak
	habit.BestStreak = existing.BestStreak
	habit.CreatedAt = existing.CreatedAt
	s.habits[habit.ID] = habit
	return nil
}

func (s *Store) UpdateHabitStreaks(_ context.Context, id string, current, best int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.habits[id]
	if !ok {
		return fmt.Errorf("habit %s: %w", id, apperrors.ErrNotFound)
	}
	h.CurrentStreak = current
	h.BestStreak = max(h.BestStreak, best, current)
	s.habits[id] = h
	return nil
}

func (s *Store) UpsertHabitLog(_ context.Context, log models.HabitLog) (models.HabitLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := logKey{log.HabitID, log.Day}
	if old, ok := s.logs[key]; ok {
		log.QuantityLogged = max(old.QuantityLogged, log.QuantityLogged)
		if log.Note == "" {
			log.Note = old.Note
		}
		log.UserID = old.UserID
	}
	s.logs[key] = log
	return log, nil
}

func (s *Store) GetHabitLogs(_ context.Context, habitID, from, to string) ([]models.HabitLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var logs []models.HabitLog
	for k, l := range s.logs {
		if k.habitID != habitID {
			continue
		}
		if (from != "" && l.Day < from) || (to != "" && l.Day > to) {
			continue
		}
		logs = append(logs, l)
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].Day < logs[j].Day })
	return logs, nil
}

func (s *Store) CountCompletedLogs(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, l := range s.logs {
		h, ok := s.habits[k.habitID]
		if !ok || l.UserID != userID {
			continue
		}
		if streak.Satisfied(&h, l) {
			n++
		}
	}
	return n, nil
}

func (s *Store) AddReminder(_ context.Context, r models.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reminders[r.ID]; ok {
		return fmt.Errorf("reminder %s: %w", r.ID, apperrors.ErrDuplicate)
	}
	s.reminders[r.ID] = r
	return nil
}

func (s *Store) UpdateReminder(_ context.Context, r models.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.reminders[r.ID]
	if !ok {
		return fmt.Errorf("reminder %s: %w", r.ID, apperrors.ErrNotFound)
	}
	r.UserID = existing.UserID
	r.CreatedAt = existing.CreatedAt
	s.reminders[r.ID] = r
	return nil
}

func (s *Store) GetRemindersForUser(_ context.Context, userID string) ([]models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Reminder
	for _, r := range s.reminders {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) AddRoutine(_ context.Context, r models.Routine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.routines[r.ID]; ok {
		return fmt.Errorf("routine %s: %w", r.ID, apperrors.ErrDuplicate)
	}
	s.routines[r.ID] = r
	return nil
}

func (s *Store) GetRoutine(_ context.Context, id string) (models.Routine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.routines[id]
	if !ok {
		return models.Routine{}, fmt.Errorf("routine %s: %w", id, apperrors.ErrNotFound)
	}
	return r, nil
}

func (s *Store) GetRoutinesForUser(_ context.Context, userID string) ([]models.Routine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Routine
	for _, r := range s.routines {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) AddTrackingEntry(_ context.Context, e models.TrackingEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tracking[e.SourceID]; ok {
		return false, nil
	}
	s.tracking[e.SourceID] = e
	return true, nil
}

func (s *Store) CountTrackingEntries(_ context.Context, userID string, kind models.TrackingKind) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.tracking {
		if e.UserID == userID && e.Kind == kind {
			n++
		}
	}
	return n, nil
}

func (s *Store) AppendXPEvent(_ context.Context, ev models.XPEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger := s.xp[ev.UserID]
	if ledger == nil {
		ledger = make(map[string]models.XPEvent)
		s.xp[ev.UserID] = ledger
	}
	if _, ok := ledger[ev.SourceID]; ok {
		return false, nil
	}
	ledger[ev.SourceID] = ev
	return true, nil
}

func (s *Store) GetUserXP(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, ev := range s.xp[userID] {
		total += ev.Amount
	}
	return total, nil
}

func (s *Store) UnlockAchievement(_ context.Context, u models.AchievementUnlock) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.unlocks[u.UserID]
	if set == nil {
		set = make(map[string]models.AchievementUnlock)
		s.unlocks[u.UserID] = set
	}
	if _, ok := set[u.AchievementID]; ok {
		return false, nil
	}
	set[u.AchievementID] = u
	return true, nil
}

func (s *Store) GetUnlocks(_ context.Context, userID string) ([]models.AchievementUnlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AchievementUnlock
	for _, u := range s.unlocks[userID] {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UnlockedAt.Equal(out[j].UnlockedAt) {
			return out[i].UnlockedAt.Before(out[j].UnlockedAt)
		}
		return out[i].AchievementID < out[j].AchievementID
	})
	return out, nil
}

func (s *Store) AcquireClaim(_ context.Context, key models.ClaimKey, now time.Time, lease time.Duration) (models.DispatchClaim, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[key]
	switch {
	case !ok:
		c = models.DispatchClaim{Key: key}
	case c.State == models.ClaimRetryable:
	case c.State == models.ClaimClaimed && c.LeaseUntil.Before(now):
	default:
		return c, false, nil
	}
	c.State = models.ClaimClaimed
	c.LeaseUntil = now.Add(lease)
	c.UpdatedAt = now
	s.claims[key] = c
	return c, true, nil
}

func (s *Store) CompleteClaim(_ context.Context, held models.DispatchClaim, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := held.Key
	c, ok := s.claims[key]
	if !ok || !holds(c, held) {
		return fmt.Errorf("claimed row %s: %w", key, apperrors.ErrNotFound)
	}
	c.State = models.ClaimDelivered
	c.Attempts++
	c.LastError = ""
	c.UpdatedAt = now
	s.claims[key] = c
	return nil
}

func (s *Store) ReleaseClaim(_ context.Context, held models.DispatchClaim, now time.Time, lastErr string, maxAttempts int) (models.DispatchClaim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := held.Key
	c, ok := s.claims[key]
	if !ok || !holds(c, held) {
		return models.DispatchClaim{}, fmt.Errorf("claimed row %s: %w", key, apperrors.ErrNotFound)
	}
	c.Attempts++
	c.State = models.ClaimRetryable
	if c.Attempts >= maxAttempts {
		c.State = models.ClaimFailed
	}
	c.LastError = lastErr
	c.UpdatedAt = now
	s.claims[key] = c
	return c, nil
}

// holds reports whether held is still the current lease on c.
func holds(c, held models.DispatchClaim) bool {
	return c.State == models.ClaimClaimed && c.LeaseUntil.UnixMilli() == held.LeaseUntil.UnixMilli()
}

func (s *Store) GetClaim(_ context.Context, key models.ClaimKey) (models.DispatchClaim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[key]
	if !ok {
		return models.DispatchClaim{}, fmt.Errorf("claim %s: %w", key, apperrors.ErrNotFound)
	}
	return c, nil
}
