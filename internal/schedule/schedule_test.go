package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/streakd/internal/metrics"
	"github.com/julianstephens/streakd/internal/models"
	"github.com/julianstephens/streakd/internal/storage/memory"
)

// 2026-10-16 is a Friday.
func at(day, hh, mm int) time.Time {
	return time.Date(2026, 10, day, hh, mm, 0, 0, time.UTC)
}

func testUser() models.User {
	return models.User{
		ID:        "u1",
		Name:      "Ada",
		Timezone:  "UTC",
		Mode:      models.ModeNormal,
		Active:    true,
		CreatedAt: at(1, 9, 0),
	}
}

func testHabit() models.Habit {
	return models.Habit{
		ID:        "h1",
		UserID:    "u1",
		Name:      "Read",
		Frequency: models.Daily(),
		Kind:      models.HabitBoolean,
		Active:    true,
		CreatedAt: at(6, 9, 0),
	}
}

func reminder(id string, kind models.ReminderKind) models.Reminder {
	return models.Reminder{ID: id, UserID: "u1", Kind: kind, Enabled: true}
}

func doneOn(days ...int) []models.HabitLog {
	var logs []models.HabitLog
	for _, d := range days {
		logs = append(logs, models.HabitLog{
			HabitID:   "h1",
			UserID:    "u1",
			Day:       at(d, 0, 0).Format("2006-01-02"),
			Completed: true,
		})
	}
	return logs
}

func input(reminders ...models.Reminder) Input {
	return Input{
		User:      testUser(),
		Reminders: reminders,
		Habits:    []models.Habit{testHabit()},
		Logs:      map[string][]models.HabitLog{},
	}
}

func kinds(cands []models.Candidate) []models.ReminderKind {
	var out []models.ReminderKind
	for _, c := range cands {
		out = append(out, c.Key.Kind)
	}
	return out
}

func TestPlanTriggerWindow(t *testing.T) {
	e := New(Config{}, nil)
	in := input(reminder("r1", models.ReminderMorning))

	assert.Empty(t, e.Plan(in, at(16, 6, 59)))
	assert.Len(t, e.Plan(in, at(16, 7, 0)), 1)
	assert.Len(t, e.Plan(in, at(16, 7, 9)), 1)
	assert.Empty(t, e.Plan(in, at(16, 7, 10)))

	in.Reminders[0].Time = "08:30"
	assert.Empty(t, e.Plan(in, at(16, 7, 0)))
	assert.Len(t, e.Plan(in, at(16, 8, 35)), 1)
}

func TestPlanCandidateShape(t *testing.T) {
	e := New(Config{}, nil)
	in := input(reminder("r1", models.ReminderMorning))
	in.XP = 150

	cands := e.Plan(in, at(16, 7, 0))
	require.Len(t, cands, 1)
	c := cands[0]
	assert.Equal(t, models.ClaimKey{UserID: "u1", Kind: models.ReminderMorning, Day: "2026-10-16"}, c.Key)
	assert.Equal(t, "07:00", c.Payload.LocalTime)
	assert.Equal(t, 1, c.Payload.DueCount)
	assert.Equal(t, 0, c.Payload.DoneCount)
	require.Len(t, c.Payload.PendingHabits, 1)
	assert.Equal(t, "h1", c.Payload.PendingHabits[0].ID)
	assert.Equal(t, 150, c.Payload.XP)
	assert.Equal(t, 2, c.Payload.Level)
	assert.NotEmpty(t, c.Payload.LevelTitle)
	assert.Equal(t, models.EscalationNone, c.Payload.Escalation)
}

func TestPlanEveningEscalation(t *testing.T) {
	e := New(Config{}, nil)

	t.Run("nudge without streak", func(t *testing.T) {
		cands := e.Plan(input(reminder("r1", models.ReminderEvening)), at(16, 20, 0))
		require.Len(t, cands, 1)
		assert.Equal(t, models.EscalationNudge, cands[0].Payload.Escalation)
		assert.False(t, cands[0].Payload.StreakAtRisk)
	})

	t.Run("urgent with streak", func(t *testing.T) {
		in := input(reminder("r1", models.ReminderEvening))
		in.Logs["h1"] = doneOn(13, 14, 15)
		cands := e.Plan(in, at(16, 20, 0))
		require.Len(t, cands, 1)
		assert.Equal(t, models.EscalationUrgent, cands[0].Payload.Escalation)
		assert.True(t, cands[0].Payload.StreakAtRisk)
		assert.Equal(t, 3, cands[0].Payload.GlobalStreak)
	})

	t.Run("night is last call", func(t *testing.T) {
		cands := e.Plan(input(reminder("r1", models.ReminderNight)), at(16, 22, 0))
		require.Len(t, cands, 1)
		assert.Equal(t, models.EscalationLastCall, cands[0].Payload.Escalation)
	})

	t.Run("dropped when nothing pending", func(t *testing.T) {
		in := input(reminder("r1", models.ReminderEvening), reminder("r2", models.ReminderNight))
		in.Logs["h1"] = doneOn(16)
		assert.Empty(t, e.Plan(in, at(16, 20, 0)))
		assert.Empty(t, e.Plan(in, at(16, 22, 0)))
	})
}

func TestPlanSuppression(t *testing.T) {
	e := New(Config{}, nil)
	custom := reminder("c1", models.ReminderCustom)
	custom.Time = "20:00"
	custom.Message = "stretch"
	loud := custom
	loud.ID = "c2"
	loud.IgnoreMode = true
	summary := reminder("s1", models.ReminderSummary)
	summary.Time = "20:00"

	in := input(reminder("r1", models.ReminderEvening), custom, loud, summary)
	assert.Equal(t,
		[]models.ReminderKind{models.ReminderEvening, models.ReminderSummary, models.ReminderCustom, models.ReminderCustom},
		kinds(e.Plan(in, at(16, 20, 0))))

	for _, mode := range []models.Mode{models.ModeVacation, models.ModeSick} {
		in.User.Mode = mode
		cands := e.Plan(in, at(16, 20, 0))
		require.Len(t, cands, 2, mode)
		assert.Equal(t, models.ReminderSummary, cands[0].Key.Kind)
		assert.Equal(t, "c2", cands[1].Key.Ref)
	}

	in.User.Mode = models.ModeNormal
	in.User.DoNotDisturb = true
	assert.Empty(t, e.Plan(in, at(16, 20, 0)))

	in.User.DoNotDisturb = false
	in.User.Active = false
	assert.Empty(t, e.Plan(in, at(16, 20, 0)))
}

func TestPlanVacationKeepsSummary(t *testing.T) {
	e := New(Config{}, nil)
	in := input(
		reminder("r1", models.ReminderEvening),
		reminder("r2", models.ReminderNight),
		reminder("r3", models.ReminderSummary),
	)
	in.User.Mode = models.ModeVacation

	assert.Empty(t, e.Plan(in, at(16, 20, 0)))
	assert.Empty(t, e.Plan(in, at(16, 22, 0)))
	cands := e.Plan(in, at(16, 23, 0))
	require.Len(t, cands, 1)
	assert.Equal(t, models.ReminderSummary, cands[0].Key.Kind)
}

func TestPlanWeeklySummaryOnlyOnSunday(t *testing.T) {
	e := New(Config{}, nil)
	in := input(reminder("w1", models.ReminderWeeklySummary))
	in.Logs["h1"] = doneOn(12, 14, 18)

	assert.Empty(t, e.Plan(in, at(17, 23, 0)))

	cands := e.Plan(in, at(18, 23, 0))
	require.Len(t, cands, 1)
	week := cands[0].Payload.Week
	require.Len(t, week, 7)
	assert.Equal(t, "2026-10-12", week[0].Day)
	assert.Equal(t, "2026-10-18", week[6].Day)
	assert.Equal(t, models.DayTally{Day: "2026-10-12", Due: 1, Done: 1}, week[0])
	assert.Equal(t, models.DayTally{Day: "2026-10-13", Due: 1, Done: 0}, week[1])
}

func TestPlanWeekdaysAndValidation(t *testing.T) {
	e := New(Config{}, nil)

	monday := reminder("r1", models.ReminderMorning)
	monday.Weekdays = []time.Weekday{time.Monday}
	assert.Empty(t, e.Plan(input(monday), at(16, 7, 0)))

	friday := monday
	friday.Weekdays = []time.Weekday{time.Friday}
	assert.Len(t, e.Plan(input(friday), at(16, 7, 0)), 1)

	broken := reminder("r2", models.ReminderCustom)
	broken.Time = "07:00"
	m := metrics.New()
	assert.Empty(t, New(Config{}, m).Plan(input(broken), at(16, 7, 0)))

	disabled := reminder("r3", models.ReminderMorning)
	disabled.Enabled = false
	assert.Empty(t, e.Plan(input(disabled), at(16, 7, 0)))
}

func TestPlanPerReminderKeys(t *testing.T) {
	e := New(Config{}, nil)

	routine := reminder("rt", models.ReminderRoutine)
	routine.Time = "07:00"
	routine.LinkedRoutineID = "morning-routine"
	a := reminder("b-custom", models.ReminderCustom)
	a.Time = "07:00"
	a.Message = "water"
	b := a
	b.ID = "a-custom"

	in := input(routine, a, b, reminder("m1", models.ReminderMorning), reminder("m2", models.ReminderMorning))
	assert.NotContains(t, kinds(e.Plan(in, at(16, 7, 0))), models.ReminderRoutine, "routine reminders need a known routine")

	in.Routines = []models.Routine{{ID: "morning-routine", UserID: "u1", Name: "Morning"}}
	cands := e.Plan(in, at(16, 7, 0))
	require.Len(t, cands, 4)
	assert.Equal(t, models.ReminderMorning, cands[0].Key.Kind)
	assert.Empty(t, cands[0].Key.Ref)
	assert.Equal(t, "rt", cands[1].Key.Ref)
	assert.Equal(t, "morning-routine", cands[1].Payload.LinkedRoutineID)
	assert.Equal(t, "a-custom", cands[2].Key.Ref)
	assert.Equal(t, "b-custom", cands[3].Key.Ref)
	assert.Equal(t, "water", cands[3].Payload.Message)
}

func TestPlanTimezones(t *testing.T) {
	e := New(Config{}, metrics.New())
	in := input(reminder("r1", models.ReminderMorning))

	in.User.Timezone = "America/New_York"
	cands := e.Plan(in, at(16, 11, 0))
	require.Len(t, cands, 1)
	assert.Equal(t, "2026-10-16", cands[0].Key.Day)
	assert.Equal(t, "07:00", cands[0].Payload.LocalTime)

	in.User.Timezone = "Asia/Tokyo"
	cands = e.Plan(in, at(15, 22, 0))
	require.Len(t, cands, 1)
	assert.Equal(t, "2026-10-16", cands[0].Key.Day)

	in.User.Timezone = "Mars/Olympus_Mons"
	cands = e.Plan(in, at(16, 7, 0))
	require.Len(t, cands, 1, "unknown zone falls back to the default")
	assert.Equal(t, "2026-10-16", cands[0].Key.Day)
}

func TestEveningThenCompletionSilencesNight(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.AddUser(ctx, testUser()))
	require.NoError(t, store.AddHabit(ctx, testHabit()))
	for _, r := range []models.Reminder{
		reminder("r1", models.ReminderEvening),
		reminder("r2", models.ReminderNight),
		reminder("r3", models.ReminderSummary),
	} {
		require.NoError(t, store.AddReminder(ctx, r))
	}
	e := New(Config{}, nil)

	in, err := Gather(ctx, store, testUser())
	require.NoError(t, err)
	cands := e.Plan(in, at(16, 20, 0))
	require.Len(t, cands, 1)
	assert.Equal(t, models.ReminderEvening, cands[0].Key.Kind)
	require.Len(t, cands[0].Payload.PendingHabits, 1)
	assert.Equal(t, "h1", cands[0].Payload.PendingHabits[0].ID)

	_, err = store.UpsertHabitLog(ctx, models.HabitLog{
		HabitID: "h1", UserID: "u1", Day: "2026-10-16", Completed: true, UpdatedAt: at(16, 20, 5),
	})
	require.NoError(t, err)

	in, err = Gather(ctx, store, testUser())
	require.NoError(t, err)
	assert.Empty(t, e.Plan(in, at(16, 22, 0)))

	cands = e.Plan(in, at(16, 23, 0))
	require.Len(t, cands, 1)
	assert.Equal(t, models.ReminderSummary, cands[0].Key.Kind)
	assert.Equal(t, 1, cands[0].Payload.DoneCount)
	assert.Empty(t, cands[0].Payload.PendingHabits)
	assert.Equal(t, 1, cands[0].Payload.Habits[0].CurrentStreak)
}

func TestPlanSkipsInvalidHabit(t *testing.T) {
	e := New(Config{}, metrics.New())
	in := input(reminder("r1", models.ReminderMorning))
	bad := testHabit()
	bad.ID = "h2"
	bad.Frequency = models.Frequency{Type: "hourly"}
	in.Habits = append(in.Habits, bad)

	cands := e.Plan(in, at(16, 7, 0))
	require.Len(t, cands, 1)
	assert.Len(t, cands[0].Payload.Habits, 1)
	assert.Equal(t, 1, cands[0].Payload.DueCount)
}

func TestNominalTime(t *testing.T) {
	assert.Equal(t, "07:00", NominalTime(models.ReminderMorning))
	assert.Equal(t, "22:00", NominalTime(models.ReminderNight))
	assert.Empty(t, NominalTime(models.ReminderCustom))
}
