package models

import (
	"fmt"
	"time"
)

type ReminderKind string

const (
	ReminderMorning       ReminderKind = "morning"
	ReminderMidday        ReminderKind = "midday"
	ReminderEvening       ReminderKind = "evening"
	ReminderNight         ReminderKind = "night"
	ReminderSummary       ReminderKind = "summary"
	ReminderWeeklySummary ReminderKind = "weekly_summary"
	ReminderRoutine       ReminderKind = "routine"
	ReminderCustom        ReminderKind = "custom"
)

// ReminderKinds lists the closed set in firing order within a day.
var ReminderKinds = []ReminderKind{
	ReminderMorning,
	ReminderMidday,
	ReminderEvening,
	ReminderNight,
	ReminderSummary,
	ReminderWeeklySummary,
	ReminderRoutine,
	ReminderCustom,
}

func (k ReminderKind) Valid() bool {
	for _, kind := range ReminderKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// PerReminder reports whether instances of the kind are told apart by
// reminder id rather than collapsing to one per user and day.
func (k ReminderKind) PerReminder() bool {
	return k == ReminderRoutine || k == ReminderCustom
}

// Reminder is user configuration, read-only to the engine.
type Reminder struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	Kind            ReminderKind   `json:"kind"`
	Time            string         `json:"time,omitempty"`     // HH:MM, empty means the kind's nominal time
	Weekdays        []time.Weekday `json:"weekdays,omitempty"` // empty means every day
	Enabled         bool           `json:"enabled"`
	LinkedRoutineID string         `json:"linked_routine_id,omitempty"`
	Message         string         `json:"message,omitempty"`
	IgnoreMode      bool           `json:"ignore_mode,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

func (r *Reminder) Validate() error {
	if !r.Kind.Valid() {
		return fmt.Errorf("invalid reminder kind %q", r.Kind)
	}
	if r.Time != "" {
		if _, err := time.Parse("15:04", r.Time); err != nil {
			return fmt.Errorf("invalid time format (expected HH:MM): %w", err)
		}
	}
	if (r.Kind == ReminderRoutine || r.Kind == ReminderCustom) && r.Time == "" {
		return fmt.Errorf("%s reminders need an explicit time", r.Kind)
	}
	if r.Kind == ReminderRoutine && r.LinkedRoutineID == "" {
		return fmt.Errorf("routine reminders need a linked routine")
	}
	if r.Kind == ReminderCustom && r.Message == "" {
		return fmt.Errorf("custom reminders need a message")
	}
	return nil
}

// ActiveOn reports whether the reminder's weekday set contains wd.
func (r *Reminder) ActiveOn(wd time.Weekday) bool {
	if len(r.Weekdays) == 0 {
		return true
	}
	for _, d := range r.Weekdays {
		if d == wd {
			return true
		}
	}
	return false
}

// Routine is a named sequence of steps; only its identity matters here.
type Routine struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
