package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

type EventKind string

const (
	EventHabitCompleted     EventKind = "habit_completed"
	EventAllHabitsCompleted EventKind = "all_habits_completed"
	EventRoutineCompleted   EventKind = "routine_completed"
	EventMoodLogged         EventKind = "mood_logged"
	EventWaterLogged        EventKind = "water_logged"
	EventSleepLogged        EventKind = "sleep_logged"
	EventJournalEntry       EventKind = "journal_entry"
	EventPomodoroCompleted  EventKind = "pomodoro_completed"
	EventExerciseLogged     EventKind = "exercise_logged"
	EventGratitudeEntry     EventKind = "gratitude_entry"
	EventAchievementReward  EventKind = "achievement_reward"
)

// TrackingKind is the subset of event kinds backed by a tracking entry.
type TrackingKind = EventKind

var trackingKinds = map[EventKind]bool{
	EventMoodLogged:        true,
	EventWaterLogged:       true,
	EventSleepLogged:       true,
	EventJournalEntry:      true,
	EventPomodoroCompleted: true,
	EventExerciseLogged:    true,
	EventGratitudeEntry:    true,
}

// IsTracking reports whether k is recorded through a tracking entry.
func (k EventKind) IsTracking() bool {
	return trackingKinds[k]
}

// Event is a qualifying action. SourceID is the idempotency key of the
// logical action: re-delivering the same SourceID never grants XP twice.
type Event struct {
	UserID   string    `json:"user_id"`
	Kind     EventKind `json:"kind"`
	SourceID string    `json:"source_id"`
	HabitID  string    `json:"habit_id,omitempty"`
	Day      string    `json:"day,omitempty"`
	Quantity float64   `json:"quantity,omitempty"`
	At       time.Time `json:"at"`
}

func (e *Event) Validate() error {
	if e.UserID == "" {
		return fmt.Errorf("event user id cannot be empty")
	}
	if e.SourceID == "" {
		return fmt.Errorf("event source id cannot be empty")
	}
	if e.Kind == EventHabitCompleted && e.HabitID == "" {
		return fmt.Errorf("habit completion needs a habit id")
	}
	return ValidQuantity(e.Quantity)
}

// ValidQuantity rejects negative and non-finite quantities.
func ValidQuantity(q float64) error {
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return fmt.Errorf("quantity must be a finite number, got %v", q)
	}
	if q < 0 {
		return fmt.Errorf("quantity cannot be negative")
	}
	return nil
}

// XPEvent is one row of the append-only XP ledger, unique per
// (UserID, SourceID).
type XPEvent struct {
	UserID    string    `json:"user_id"`
	SourceID  string    `json:"source_id"`
	Kind      EventKind `json:"kind"`
	Amount    int       `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// TrackingEntry records a mood/water/sleep/journal/pomodoro style entry.
type TrackingEntry struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Kind      TrackingKind `json:"kind"`
	Day       string       `json:"day"`
	Quantity  float64      `json:"quantity"`
	SourceID  string       `json:"source_id"`
	CreatedAt time.Time    `json:"created_at"`
}

type ConditionType string

const (
	ConditionStreakReached    ConditionType = "streak_reached"
	ConditionTotalCompletions ConditionType = "total_completions"
	ConditionLevelReached     ConditionType = "level_reached"
	ConditionTrackingCount    ConditionType = "tracking_count"
	ConditionDaysSinceSignup  ConditionType = "days_since_signup"
)

var ErrInvalidCondition = errors.New("invalid achievement condition")

// Achievement is static catalogue configuration.
type Achievement struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	ConditionType  ConditionType `json:"condition_type"`
	ConditionValue int           `json:"condition_value"`
	// TrackingKind selects the counted entries for tracking_count conditions.
	TrackingKind TrackingKind `json:"tracking_kind,omitempty"`
	XPReward     int          `json:"xp_reward"`
}

func (a *Achievement) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidCondition)
	}
	if a.ConditionValue < 1 {
		return fmt.Errorf("%w: %s threshold must be positive", ErrInvalidCondition, a.ID)
	}
	if a.XPReward < 0 {
		return fmt.Errorf("%w: %s reward cannot be negative", ErrInvalidCondition, a.ID)
	}
	switch a.ConditionType {
	case ConditionStreakReached, ConditionTotalCompletions, ConditionLevelReached, ConditionDaysSinceSignup:
		return nil
	case ConditionTrackingCount:
		if !a.TrackingKind.IsTracking() {
			return fmt.Errorf("%w: %s counts unknown tracking kind %q", ErrInvalidCondition, a.ID, a.TrackingKind)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s has unknown condition %q", ErrInvalidCondition, a.ID, a.ConditionType)
	}
}

// AchievementUnlock is append-only and unique per (UserID, AchievementID).
type AchievementUnlock struct {
	UserID        string    `json:"user_id"`
	AchievementID string    `json:"achievement_id"`
	UnlockedAt    time.Time `json:"unlocked_at"`
}
