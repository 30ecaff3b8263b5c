package reminders

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/streakd/internal/cli"
	"github.com/julianstephens/streakd/internal/models"
	"github.com/julianstephens/streakd/internal/schedule"
)

type ReminderCmd struct {
	Add     ReminderAddCmd     `cmd:"" help:"Add a reminder."`
	List    ReminderListCmd    `cmd:"" help:"List a user's reminders."`
	Enable  ReminderEnableCmd  `cmd:"" help:"Enable a reminder."`
	Disable ReminderDisableCmd `cmd:"" help:"Disable a reminder."`
}

type ReminderAddCmd struct {
	User       string `required:"" help:"Owning user ID."`
	Kind       string `arg:"" enum:"morning,midday,evening,night,summary,weekly_summary,routine,custom" help:"Reminder kind."`
	Time       string `help:"Local time HH:MM (default: the kind's nominal time)." default:""`
	Weekdays   string `help:"Restrict to weekdays (e.g. mon,tue). Empty means every day." default:""`
	Routine    string `help:"Linked routine ID for routine reminders." default:""`
	Message    string `help:"Message text for custom reminders." default:""`
	IgnoreMode bool   `help:"Custom reminders only: fire in vacation and sick mode."`
}

func (c *ReminderAddCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	if _, err := ctx.Store.GetUser(bg, c.User); err != nil {
		return fmt.Errorf("user %q not found: %w", c.User, err)
	}
	days, err := cli.ParseWeekdays(c.Weekdays)
	if err != nil {
		return err
	}

	r := models.Reminder{
		ID:              uuid.New().String(),
		UserID:          c.User,
		Kind:            models.ReminderKind(c.Kind),
		Time:            c.Time,
		Weekdays:        days,
		Enabled:         true,
		LinkedRoutineID: c.Routine,
		Message:         c.Message,
		IgnoreMode:      c.IgnoreMode,
		CreatedAt:       time.Now().UTC(),
	}
	if err := r.Validate(); err != nil {
		return err
	}
	if r.LinkedRoutineID != "" {
		routine, err := ctx.Store.GetRoutine(bg, r.LinkedRoutineID)
		if err != nil {
			return fmt.Errorf("routine %q not found: %w", r.LinkedRoutineID, err)
		}
		if routine.UserID != r.UserID {
			return fmt.Errorf("routine %q belongs to another user", routine.ID)
		}
	}
	if err := ctx.Store.AddReminder(bg, r); err != nil {
		return fmt.Errorf("failed to add reminder: %w", err)
	}

	fmt.Printf("Added %s reminder at %s (%s)\n", r.Kind, displayTime(r), r.ID)
	return nil
}

type ReminderListCmd struct {
	User string `arg:"" help:"User ID."`
}

func (c *ReminderListCmd) Run(ctx *cli.Context) error {
	reminders, err := ctx.Store.GetRemindersForUser(context.Background(), c.User)
	if err != nil {
		return fmt.Errorf("failed to get reminders: %w", err)
	}
	if len(reminders) == 0 {
		fmt.Println("No reminders configured.")
		return nil
	}
	slices.SortStableFunc(reminders, func(a, b models.Reminder) int {
		return cmp.Or(
			cmp.Compare(displayTime(a), displayTime(b)),
			cmp.Compare(slices.Index(models.ReminderKinds, a.Kind), slices.Index(models.ReminderKinds, b.Kind)),
		)
	})

	rows := make([][]string, 0, len(reminders))
	for _, r := range reminders {
		detail := r.Message
		if r.Kind == models.ReminderRoutine {
			detail = "routine " + r.LinkedRoutineID
		}
		if len(detail) > 28 {
			detail = detail[:25] + "..."
		}
		enabled := "Yes"
		if !r.Enabled {
			enabled = "No"
		}
		rows = append(rows, []string{r.ID, string(r.Kind), displayTime(r), cli.FormatWeekdays(r.Weekdays), detail, enabled})
	}
	cli.PrintTable([]string{"ID", "Kind", "Time", "Days", "Detail", "Enabled"}, rows, func(i int) bool {
		return !reminders[i].Enabled
	})
	return nil
}

type ReminderEnableCmd struct {
	User string `required:"" help:"Owning user ID."`
	ID   string `arg:"" help:"Reminder ID."`
}

func (c *ReminderEnableCmd) Run(ctx *cli.Context) error {
	return setEnabled(ctx, c.User, c.ID, true)
}

type ReminderDisableCmd ReminderEnableCmd

func (c *ReminderDisableCmd) Run(ctx *cli.Context) error {
	return setEnabled(ctx, c.User, c.ID, false)
}

func setEnabled(ctx *cli.Context, userID, id string, enabled bool) error {
	bg := context.Background()
	reminders, err := ctx.Store.GetRemindersForUser(bg, userID)
	if err != nil {
		return fmt.Errorf("failed to get reminders: %w", err)
	}
	i := slices.IndexFunc(reminders, func(r models.Reminder) bool { return r.ID == id })
	if i < 0 {
		return fmt.Errorf("reminder %q not found for user %q", id, userID)
	}
	r := reminders[i]
	r.Enabled = enabled
	if err := ctx.Store.UpdateReminder(bg, r); err != nil {
		return fmt.Errorf("failed to update reminder: %w", err)
	}
	state := "Disabled"
	if enabled {
		state = "Enabled"
	}
	fmt.Printf("%s %s reminder %s\n", state, r.Kind, r.ID)
	return nil
}

func displayTime(r models.Reminder) string {
	if r.Time != "" {
		return r.Time
	}
	return schedule.NominalTime(r.Kind)
}
