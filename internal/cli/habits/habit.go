package habits

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/streakd/internal/activity"
	"github.com/julianstephens/streakd/internal/cli"
	"github.com/julianstephens/streakd/internal/gamification"
	"github.com/julianstephens/streakd/internal/models"
	"github.com/julianstephens/streakd/internal/streak"
	"github.com/julianstephens/streakd/internal/utils"
)

type HabitCmd struct {
	Add     HabitAddCmd     `cmd:"" help:"Add a new habit."`
	Log     HabitLogCmd     `cmd:"" help:"Log a habit for a day."`
	Status  HabitStatusCmd  `cmd:"" help:"Show streaks and today's completion."`
	Archive HabitArchiveCmd `cmd:"" help:"Archive a habit."`
}

type HabitAddCmd struct {
	User      string  `required:"" help:"Owning user ID."`
	Name      string  `arg:"" help:"Habit name."`
	Frequency string  `enum:"daily,weekdays,n_per_week" default:"daily" help:"daily, weekdays or n_per_week."`
	Weekdays  string  `help:"Weekdays for the weekdays frequency (e.g. mon,wed,fri)."`
	Times     int     `help:"Completions per ISO week for n_per_week." default:"0"`
	Target    float64 `help:"Daily target; makes this a quantity habit." default:"0"`
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	if _, err := ctx.Store.GetUser(bg, c.User); err != nil {
		return fmt.Errorf("user %q not found: %w", c.User, err)
	}

	var freq models.Frequency
	switch models.FrequencyType(c.Frequency) {
	case models.FrequencyWeekdays:
		days, err := cli.ParseWeekdays(c.Weekdays)
		if err != nil {
			return err
		}
		freq = models.OnWeekdays(days...)
	case models.FrequencyNPerWeek:
		freq = models.NPerWeek(c.Times)
	default:
		freq = models.Daily()
	}

	habit := models.Habit{
		ID:        uuid.New().String(),
		UserID:    c.User,
		Name:      c.Name,
		Frequency: freq,
		Kind:      models.HabitBoolean,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if c.Target > 0 {
		habit.Kind = models.HabitQuantity
		habit.TargetQuantity = c.Target
	}
	if err := habit.Validate(); err != nil {
		return err
	}
	if err := ctx.Store.AddHabit(bg, habit); err != nil {
		return fmt.Errorf("failed to add habit: %w", err)
	}

	fmt.Printf("Added habit: %s (%s)\n", habit.Name, habit.ID)
	return nil
}

type HabitLogCmd struct {
	ID       string  `arg:"" help:"Habit ID."`
	Date     string  `help:"Date in YYYY-MM-DD format (default: today in the user's timezone)." default:""`
	Quantity float64 `help:"Quantity logged for quantity habits." default:"0"`
	Note     string  `help:"Optional note for this entry." default:""`
	Undo     bool    `help:"Record the day as not completed."`
}

func (c *HabitLogCmd) Run(ctx *cli.Context) error {
	if c.Date != "" {
		if _, err := utils.ParseDay(c.Date); err != nil {
			return fmt.Errorf("invalid date format: %s (expected YYYY-MM-DD)", c.Date)
		}
	}

	res, err := ctx.Activity().LogHabit(context.Background(), activity.HabitEntry{
		HabitID:   c.ID,
		Day:       c.Date,
		Completed: !c.Undo,
		Quantity:  c.Quantity,
		Note:      c.Note,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Logged %s for %s: streak %d (best %d)\n", res.Log.HabitID, res.Log.Day, res.Status.CurrentStreak, res.Status.BestStreak)
	for _, r := range res.Rewards {
		printReward(r)
	}
	return nil
}

func printReward(r gamification.Result) {
	if r.XPDelta > 0 {
		fmt.Printf("  +%d XP (total %d)\n", r.XPDelta, r.XP)
	}
	if r.LeveledUp {
		fmt.Printf("  Level up! Now level %d, %s\n", r.Level, r.LevelTitle)
	}
	for _, a := range r.Unlocked {
		fmt.Printf("  Achievement unlocked: %s (+%d XP)\n", a.Name, a.XPReward)
	}
}

type HabitStatusCmd struct {
	User string `arg:"" help:"User ID."`
	Date string `help:"Date in YYYY-MM-DD format (default: today in the user's timezone)." default:""`
}

func (c *HabitStatusCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	user, err := ctx.Store.GetUser(bg, c.User)
	if err != nil {
		return fmt.Errorf("user %q not found: %w", c.User, err)
	}
	day := c.Date
	if day == "" {
		day = ctx.Today(user.Timezone)
	}
	asOf, err := utils.ParseDay(day)
	if err != nil {
		return fmt.Errorf("invalid date format: %s (expected YYYY-MM-DD)", day)
	}

	habits, logs, err := streak.Load(bg, ctx.Store, user.ID, day)
	if err != nil {
		return err
	}
	if len(habits) == 0 {
		fmt.Println("No habits found.")
		return nil
	}

	rows := make([][]string, 0, len(habits))
	var statuses []streak.Status
	for i := range habits {
		h := &habits[i]
		st, err := streak.Evaluate(h, logs[h.ID], asOf)
		if err != nil {
			rows = append(rows, []string{h.Name, formatFrequency(h.Frequency), "invalid", "", "", ""})
			statuses = append(statuses, streak.Status{})
			continue
		}
		statuses = append(statuses, st)
		rows = append(rows, []string{
			h.Name,
			formatFrequency(h.Frequency),
			yesNo(st.IsDueToday),
			yesNo(st.CompletedToday),
			strconv.Itoa(st.CurrentStreak),
			strconv.Itoa(st.BestStreak),
		})
	}

	cli.PrintTable([]string{"Habit", "Frequency", "Due", "Done", "Streak", "Best"}, rows, func(i int) bool {
		return !statuses[i].IsDueToday || statuses[i].CompletedToday
	})
	due, done := streak.Tally(habits, logs, asOf)
	fmt.Printf("%s: %d/%d done, global streak %d\n", day, done, due, streak.GlobalStreak(habits, logs, asOf))
	return nil
}

type HabitArchiveCmd struct {
	ID string `arg:"" help:"Habit ID."`
}

func (c *HabitArchiveCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	habit, err := ctx.Store.GetHabit(bg, c.ID)
	if err != nil {
		return fmt.Errorf("habit %q not found: %w", c.ID, err)
	}
	if habit.ArchivedAt != nil {
		return fmt.Errorf("habit %q is already archived", habit.Name)
	}
	now := time.Now().UTC()
	habit.ArchivedAt = &now
	habit.Active = false
	if err := ctx.Store.UpdateHabit(bg, habit); err != nil {
		return fmt.Errorf("failed to archive habit: %w", err)
	}
	fmt.Printf("Archived habit: %s\n", habit.Name)
	return nil
}

func formatFrequency(f models.Frequency) string {
	switch f.Type {
	case models.FrequencyWeekdays:
		return "on " + cli.FormatWeekdays(f.Weekdays)
	case models.FrequencyNPerWeek:
		return fmt.Sprintf("%dx per week", f.TimesPerWeek)
	default:
		return "daily"
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
