// Package schedule decides which reminders are due for a user at a given
// instant and builds the payload each delivery channel renders.
package schedule

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/julianstephens/streakd/internal/constants"
	"github.com/julianstephens/streakd/internal/gamification"
	"github.com/julianstephens/streakd/internal/logger"
	"github.com/julianstephens/streakd/internal/metrics"
	"github.com/julianstephens/streakd/internal/models"
	"github.com/julianstephens/streakd/internal/streak"
	"github.com/julianstephens/streakd/internal/utils"
)

// urgentStreak is the global streak from which an evening reminder is
// escalated from a nudge to urgent.
const urgentStreak = 3

// Input is one consistent snapshot of a user's state.
type Input struct {
	User      models.User
	Reminders []models.Reminder
	Routines  []models.Routine
	Habits    []models.Habit
	Logs      map[string][]models.HabitLog // keyed by habit id
	XP        int
}

// Reader is the store access needed to gather an Input.
type Reader interface {
	streak.LogReader
	GetRemindersForUser(ctx context.Context, userID string) ([]models.Reminder, error)
	GetRoutinesForUser(ctx context.Context, userID string) ([]models.Routine, error)
	GetUserXP(ctx context.Context, userID string) (int, error)
}

// Gather reads everything Plan needs for user.
func Gather(ctx context.Context, r Reader, user models.User) (Input, error) {
	in := Input{User: user}
	var err error
	in.Habits, in.Logs, err = streak.Load(ctx, r, user.ID, "")
	if err != nil {
		return Input{}, err
	}
	if in.Reminders, err = r.GetRemindersForUser(ctx, user.ID); err != nil {
		return Input{}, fmt.Errorf("failed to load reminders for %s: %w", user.ID, err)
	}
	if in.Routines, err = r.GetRoutinesForUser(ctx, user.ID); err != nil {
		return Input{}, fmt.Errorf("failed to load routines for %s: %w", user.ID, err)
	}
	if in.XP, err = r.GetUserXP(ctx, user.ID); err != nil {
		return Input{}, fmt.Errorf("failed to read xp for %s: %w", user.ID, err)
	}
	return in, nil
}

type Config struct {
	// Window is how long after its trigger time a reminder stays eligible.
	Window time.Duration
	// DefaultLocation is used when a user's timezone cannot be loaded.
	DefaultLocation *time.Location
}

type Engine struct {
	window     time.Duration
	defaultLoc *time.Location
	metrics    *metrics.Metrics
}

func New(cfg Config, m *metrics.Metrics) *Engine {
	if cfg.Window <= 0 {
		cfg.Window = constants.DefaultTriggerWindow
	}
	if cfg.DefaultLocation == nil {
		cfg.DefaultLocation = time.UTC
	}
	return &Engine{window: cfg.Window, defaultLoc: cfg.DefaultLocation, metrics: m}
}

// NominalTime is the trigger time of kinds configured without one.
func NominalTime(kind models.ReminderKind) string {
	switch kind {
	case models.ReminderMorning:
		return constants.NominalMorning
	case models.ReminderMidday:
		return constants.NominalMidday
	case models.ReminderEvening:
		return constants.NominalEvening
	case models.ReminderNight:
		return constants.NominalNight
	case models.ReminderSummary:
		return constants.NominalSummary
	case models.ReminderWeeklySummary:
		return constants.NominalWeeklySummary
	}
	return ""
}

// exemptFromMode reports whether a reminder still fires while the user is
// on vacation or sick. Summaries are informational rather than nags.
func exemptFromMode(r *models.Reminder) bool {
	switch r.Kind {
	case models.ReminderSummary, models.ReminderWeeklySummary:
		return true
	case models.ReminderCustom:
		return r.IgnoreMode
	}
	return false
}

type due struct {
	reminder *models.Reminder
	trigger  time.Time
	order    int
}

// Plan returns the reminders of in.User whose trigger window contains now,
// ordered by trigger time and kind.
func (e *Engine) Plan(in Input, now time.Time) []models.Candidate {
	user := in.User
	if !user.Active {
		return nil
	}
	if user.DoNotDisturb {
		logger.Debug("Do not disturb, skipping user", "user", user.ID)
		return nil
	}

	loc, fellBack := utils.ResolveLocation(user.Timezone, e.defaultLoc)
	if fellBack {
		logger.Warn("Falling back to default timezone", "user", user.ID, "timezone", user.Timezone, "default", loc.String())
		e.metrics.ObserveTimezoneFallback()
	}
	local := now.In(loc)
	day := utils.FormatDay(local)

	routines := make(map[string]bool, len(in.Routines))
	for _, r := range in.Routines {
		routines[r.ID] = true
	}

	var hits []due
	for i := range in.Reminders {
		r := &in.Reminders[i]
		if !r.Enabled || r.UserID != user.ID {
			continue
		}
		if err := r.Validate(); err != nil {
			logger.Warn("Skipping reminder", "user", user.ID, "reminder", r.ID, "error", err)
			e.metrics.ObserveSkipped("reminder")
			continue
		}
		if r.Kind == models.ReminderRoutine && !routines[r.LinkedRoutineID] {
			logger.Warn("Skipping reminder for unknown routine", "user", user.ID, "reminder", r.ID, "routine", r.LinkedRoutineID)
			e.metrics.ObserveSkipped("reminder")
			continue
		}
		if !r.ActiveOn(local.Weekday()) {
			continue
		}
		if r.Kind == models.ReminderWeeklySummary && local.Weekday() != time.Sunday {
			continue
		}
		if user.Mode.Suppressing() && !exemptFromMode(r) {
			continue
		}

		at := r.Time
		if at == "" {
			at = NominalTime(r.Kind)
		}
		trigger, err := utils.CombineDateAndTime(day, at, loc)
		if err != nil {
			continue
		}
		if local.Before(trigger) || !local.Before(trigger.Add(e.window)) {
			continue
		}
		hits = append(hits, due{reminder: r, trigger: trigger, order: slices.Index(models.ReminderKinds, r.Kind)})
	}
	if len(hits) == 0 {
		return nil
	}

	slices.SortStableFunc(hits, func(a, b due) int {
		return cmp.Or(
			a.trigger.Compare(b.trigger),
			cmp.Compare(a.order, b.order),
			cmp.Compare(a.reminder.ID, b.reminder.ID),
		)
	})

	snap := e.snapshot(in, local)
	seen := make(map[models.ClaimKey]bool, len(hits))
	var out []models.Candidate
	for _, h := range hits {
		r := h.reminder
		key := models.ClaimKey{UserID: user.ID, Kind: r.Kind, Day: day}
		if r.Kind.PerReminder() {
			key.Ref = r.ID
		}
		if seen[key] {
			continue
		}

		payload, ok := snap.payload(r, local)
		if !ok {
			logger.Debug("Nothing pending, dropping reminder", "user", user.ID, "kind", r.Kind, "day", day)
			continue
		}
		if r.Kind == models.ReminderWeeklySummary {
			payload.Week = weekTally(in, local)
		}
		seen[key] = true
		out = append(out, models.Candidate{User: user, Key: key, Payload: payload})
	}
	return out
}

// snapshot is the streak and XP state shared by every candidate of a tick.
type snapshot struct {
	day          string
	habits       []models.HabitSnapshot
	pending      []models.HabitSnapshot
	dueCount     int
	doneCount    int
	globalStreak int
	xp           int
	level        int
	title        string
}

func (e *Engine) snapshot(in Input, local time.Time) *snapshot {
	s := &snapshot{
		day:          utils.FormatDay(local),
		habits:       []models.HabitSnapshot{},
		pending:      []models.HabitSnapshot{},
		globalStreak: streak.GlobalStreak(in.Habits, in.Logs, local),
		xp:           in.XP,
		level:        gamification.LevelFor(in.XP),
	}
	s.title = gamification.Title(s.level)

	for i := range in.Habits {
		habit := &in.Habits[i]
		if !habit.Tracked() {
			continue
		}
		status, err := streak.Evaluate(habit, in.Logs[habit.ID], local)
		if err != nil {
			logger.Warn("Skipping habit", "user", in.User.ID, "habit", habit.ID, "error", err)
			e.metrics.ObserveSkipped("habit")
			continue
		}
		hs := models.HabitSnapshot{
			ID:            habit.ID,
			Name:          habit.Name,
			CurrentStreak: status.CurrentStreak,
			BestStreak:    status.BestStreak,
			Completed:     status.CompletedToday,
		}
		s.habits = append(s.habits, hs)

		dueToday := status.IsDueToday
		if habit.Frequency.Type == models.FrequencyNPerWeek && status.CompletedToday {
			dueToday = true
		}
		if !dueToday {
			continue
		}
		s.dueCount++
		if status.CompletedToday {
			s.doneCount++
		} else {
			s.pending = append(s.pending, hs)
		}
	}
	return s
}

// payload builds the reminder's payload. It reports false for escalating
// kinds when nothing is pending.
func (s *snapshot) payload(r *models.Reminder, local time.Time) (models.Payload, bool) {
	p := models.Payload{
		Day:           s.day,
		LocalTime:     local.Format(constants.TimeFormat),
		PendingHabits: s.pending,
		DueCount:      s.dueCount,
		DoneCount:     s.doneCount,
		Habits:        s.habits,
		GlobalStreak:  s.globalStreak,
		XP:            s.xp,
		Level:         s.level,
		LevelTitle:    s.title,
		Escalation:    models.EscalationNone,
	}

	switch r.Kind {
	case models.ReminderEvening, models.ReminderNight:
		if len(s.pending) == 0 {
			return models.Payload{}, false
		}
		p.StreakAtRisk = s.globalStreak > 0
		p.Escalation = models.EscalationNudge
		if r.Kind == models.ReminderNight {
			p.Escalation = models.EscalationLastCall
		} else if s.globalStreak >= urgentStreak {
			p.Escalation = models.EscalationUrgent
		}
	case models.ReminderRoutine:
		p.LinkedRoutineID = r.LinkedRoutineID
	case models.ReminderCustom:
		p.Message = r.Message
	}
	return p, true
}

// weekTally returns due and done counts for the seven days ending on the
// local day of local.
func weekTally(in Input, local time.Time) []models.DayTally {
	week := make([]models.DayTally, 0, 7)
	for offset := 6; offset >= 0; offset-- {
		d := time.Date(local.Year(), local.Month(), local.Day()-offset, 12, 0, 0, 0, local.Location())
		dueN, doneN := streak.Tally(in.Habits, in.Logs, d)
		week = append(week, models.DayTally{Day: utils.FormatDay(d), Due: dueN, Done: doneN})
	}
	return week
}
