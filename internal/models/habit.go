package models

import (
	"errors"
	"fmt"
	"time"
)

type FrequencyType string

const (
	FrequencyDaily    FrequencyType = "daily"
	FrequencyWeekdays FrequencyType = "weekdays"
	FrequencyNPerWeek FrequencyType = "n_per_week"
)

type HabitKind string

const (
	HabitBoolean  HabitKind = "boolean"
	HabitQuantity HabitKind = "quantity"
)

var ErrInvalidFrequency = errors.New("invalid frequency")

// Frequency is a closed variant: exactly one of the fields beyond Type is
// meaningful, selected by Type.
type Frequency struct {
	Type         FrequencyType  `json:"type"`
	Weekdays     []time.Weekday `json:"weekdays,omitempty"`
	TimesPerWeek int            `json:"times_per_week,omitempty"`
}

func Daily() Frequency { return Frequency{Type: FrequencyDaily} }

func OnWeekdays(days ...time.Weekday) Frequency {
	return Frequency{Type: FrequencyWeekdays, Weekdays: days}
}

func NPerWeek(n int) Frequency {
	return Frequency{Type: FrequencyNPerWeek, TimesPerWeek: n}
}

func (f Frequency) Validate() error {
	switch f.Type {
	case FrequencyDaily:
		return nil
	case FrequencyWeekdays:
		if len(f.Weekdays) == 0 {
			return fmt.Errorf("%w: weekdays must be specified", ErrInvalidFrequency)
		}
		for _, wd := range f.Weekdays {
			if wd < time.Sunday || wd > time.Saturday {
				return fmt.Errorf("%w: weekday %d out of range", ErrInvalidFrequency, wd)
			}
		}
		return nil
	case FrequencyNPerWeek:
		if f.TimesPerWeek < 1 || f.TimesPerWeek > 7 {
			return fmt.Errorf("%w: times per week must be between 1 and 7", ErrInvalidFrequency)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidFrequency, f.Type)
	}
}

// Includes reports whether wd is selected by a weekday-set frequency.
func (f Frequency) Includes(wd time.Weekday) bool {
	for _, d := range f.Weekdays {
		if d == wd {
			return true
		}
	}
	return false
}

// Habit represents a recurring practice to track.
// CurrentStreak and BestStreak are caches owned by the streak recompute path.
type Habit struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Name           string     `json:"name"`
	Frequency      Frequency  `json:"frequency"`
	Kind           HabitKind  `json:"kind"`
	TargetQuantity float64    `json:"target_quantity,omitempty"`
	CurrentStreak  int        `json:"current_streak"`
	BestStreak     int        `json:"best_streak"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
	ArchivedAt     *time.Time `json:"archived_at,omitempty"`
}

func (h *Habit) Validate() error {
	if h.Name == "" {
		return fmt.Errorf("habit name cannot be empty")
	}
	if err := h.Frequency.Validate(); err != nil {
		return err
	}
	switch h.Kind {
	case HabitBoolean:
	case HabitQuantity:
		if h.TargetQuantity <= 0 {
			return fmt.Errorf("quantity habit needs a positive target")
		}
	default:
		return fmt.Errorf("invalid habit kind %q", h.Kind)
	}
	return nil
}

// Tracked reports whether the habit takes part in scheduling and streaks.
func (h *Habit) Tracked() bool {
	return h.Active && h.ArchivedAt == nil
}

// HabitLog is the single logical record of a habit for one day.
// Writes for an existing (habit, day) amend the row instead of adding one.
type HabitLog struct {
	HabitID        string    `json:"habit_id"`
	UserID         string    `json:"user_id"`
	Day            string    `json:"day"` // YYYY-MM-DD format
	Completed      bool      `json:"completed"`
	QuantityLogged float64   `json:"quantity_logged"`
	Note           string    `json:"note,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}
