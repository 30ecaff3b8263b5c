// Package streak derives completion status and streak counters for habits
// from their day logs. Every function is pure over the logs it is given.
package streak

import (
	"fmt"
	"time"

	"github.com/julianstephens/streakd/internal/models"
	"github.com/julianstephens/streakd/internal/utils"
)

// Status is the derived state of one habit as of a local day.
type Status struct {
	IsDueToday     bool `json:"is_due_today"`
	CompletedToday bool `json:"completed_today"`
	CurrentStreak  int  `json:"current_streak"`
	BestStreak     int  `json:"best_streak"`
}

// Satisfied reports whether a log fulfils the habit for its day.
func Satisfied(habit *models.Habit, log models.HabitLog) bool {
	if habit.Kind == models.HabitQuantity {
		return log.QuantityLogged >= habit.TargetQuantity
	}
	return log.Completed
}

// history is the set of satisfied days of one habit, keyed by UTC midnight.
type history struct {
	habit   *models.Habit
	created time.Time
	today   time.Time
	done    map[time.Time]bool
}

func newHistory(habit *models.Habit, logs []models.HabitLog, asOf time.Time) *history {
	h := &history{
		habit: habit,
		today: utils.Day(asOf),
		done:  make(map[time.Time]bool, len(logs)),
	}
	for _, l := range logs {
		if l.HabitID != "" && l.HabitID != habit.ID {
			continue
		}
		day, err := utils.ParseDay(l.Day)
		if err != nil {
			// An unparsable day can never be satisfied.
			continue
		}
		if Satisfied(habit, l) {
			h.done[day] = true
		}
	}

	if !habit.CreatedAt.IsZero() {
		h.created = utils.Day(habit.CreatedAt.In(asOf.Location()))
	} else {
		h.created = h.today
		for day := range h.done {
			if day.Before(h.created) {
				h.created = day
			}
		}
	}
	return h
}

func (h *history) dueOn(day time.Time) bool {
	if day.Before(h.created) {
		return false
	}
	switch h.habit.Frequency.Type {
	case models.FrequencyDaily:
		return true
	case models.FrequencyWeekdays:
		return h.habit.Frequency.Includes(day.Weekday())
	}
	return false
}

// Evaluate computes the status of habit as of the local day of asOf.
// The cached BestStreak on habit is a floor for the returned best.
func Evaluate(habit *models.Habit, logs []models.HabitLog, asOf time.Time) (Status, error) {
	if err := habit.Frequency.Validate(); err != nil {
		return Status{BestStreak: habit.BestStreak}, fmt.Errorf("habit %s: %w", habit.ID, err)
	}

	h := newHistory(habit, logs, asOf)
	var status Status
	var best int
	if habit.Frequency.Type == models.FrequencyNPerWeek {
		status, best = h.evaluateWeekly()
	} else {
		status, best = h.evaluateDaily()
	}
	status.BestStreak = max(habit.BestStreak, best, status.CurrentStreak)
	return status, nil
}

func (h *history) evaluateDaily() (Status, int) {
	status := Status{
		IsDueToday:     h.dueOn(h.today),
		CompletedToday: h.done[h.today],
	}
	if h.today.Before(h.created) {
		return status, 0
	}

	if status.IsDueToday && status.CompletedToday {
		status.CurrentStreak++
	}
	for day := h.today.AddDate(0, 0, -1); !day.Before(h.created); day = day.AddDate(0, 0, -1) {
		if !h.dueOn(day) {
			continue
		}
		if !h.done[day] {
			break
		}
		status.CurrentStreak++
	}

	best, run := 0, 0
	for day := h.created; !day.After(h.today); day = day.AddDate(0, 0, 1) {
		if !h.dueOn(day) {
			continue
		}
		if h.done[day] {
			run++
			best = max(best, run)
		} else if !day.Equal(h.today) {
			run = 0
		}
	}
	return status, best
}

type weekState int

const (
	weekMissed weekState = iota
	weekOpen
	weekMet
)

// week classifies the ISO week starting at start. A week is met once the
// satisfied days reach min(n, days available since creation).
func (h *history) week(start time.Time) (weekState, int, int) {
	end := start.AddDate(0, 0, 6)
	first := start
	if first.Before(h.created) {
		first = h.created
	}
	available := utils.DaysBetween(first, end) + 1
	quota := min(h.habit.Frequency.TimesPerWeek, available)

	done, open := 0, 0
	for day := first; !day.After(end); day = day.AddDate(0, 0, 1) {
		switch {
		case day.After(h.today):
			open++
		case h.done[day]:
			done++
		case day.Equal(h.today):
			open++
		}
	}

	switch {
	case done >= quota:
		return weekMet, done, quota
	case done+open >= quota:
		return weekOpen, done, quota
	default:
		return weekMissed, done, quota
	}
}

func (h *history) evaluateWeekly() (Status, int) {
	status := Status{CompletedToday: h.done[h.today]}
	if h.today.Before(h.created) {
		return status, 0
	}

	current := utils.WeekStart(h.today)
	state, done, quota := h.week(current)
	status.IsDueToday = done < quota

	if state != weekMissed {
		if state == weekMet {
			status.CurrentStreak++
		}
		for start := current.AddDate(0, 0, -7); !start.AddDate(0, 0, 6).Before(h.created); start = start.AddDate(0, 0, -7) {
			if s, _, _ := h.week(start); s != weekMet {
				break
			}
			status.CurrentStreak++
		}
	}

	best, run := 0, 0
	for start := utils.WeekStart(h.created); !start.After(current); start = start.AddDate(0, 0, 7) {
		switch s, _, _ := h.week(start); s {
		case weekMet:
			run++
			best = max(best, run)
		case weekMissed:
			run = 0
		}
	}
	return status, best
}

// GlobalStreak counts consecutive days on which every due daily or weekday
// habit was satisfied. Days with nothing due are skipped, and today only
// counts once it is complete. logs is keyed by habit id.
func GlobalStreak(habits []models.Habit, logs map[string][]models.HabitLog, asOf time.Time) int {
	var tracked []*history
	for i := range habits {
		habit := &habits[i]
		if !habit.Tracked() || habit.Frequency.Type == models.FrequencyNPerWeek {
			continue
		}
		if habit.Frequency.Validate() != nil {
			continue
		}
		tracked = append(tracked, newHistory(habit, logs[habit.ID], asOf))
	}
	if len(tracked) == 0 {
		return 0
	}

	earliest := tracked[0].created
	for _, h := range tracked[1:] {
		if h.created.Before(earliest) {
			earliest = h.created
		}
	}

	today := tracked[0].today
	streak := 0
	for day := today; !day.Before(earliest); day = day.AddDate(0, 0, -1) {
		due, done := 0, 0
		for _, h := range tracked {
			if h.dueOn(day) {
				due++
				if h.done[day] {
					done++
				}
			}
		}
		if due == 0 {
			continue
		}
		if done == due {
			streak++
			continue
		}
		if !day.Equal(today) {
			break
		}
	}
	return streak
}

// Tally returns how many habits were due and done on day, as used by the
// weekly summary. N-per-week habits only count on days they were satisfied.
func Tally(habits []models.Habit, logs map[string][]models.HabitLog, day time.Time) (due, done int) {
	for i := range habits {
		habit := &habits[i]
		if !habit.Tracked() || habit.Frequency.Validate() != nil {
			continue
		}
		h := newHistory(habit, logs[habit.ID], day)
		d := h.today
		if habit.Frequency.Type == models.FrequencyNPerWeek {
			if h.done[d] && !d.Before(h.created) {
				due++
				done++
			}
			continue
		}
		if h.dueOn(d) {
			due++
			if h.done[d] {
				done++
			}
		}
	}
	return due, done
}
