package system

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/julianstephens/streakd/internal/cli"
	apperrors "github.com/julianstephens/streakd/internal/errors"
	"github.com/julianstephens/streakd/internal/models"
)

type DebugCmd struct {
	DBPath    *DebugDBPathCmd    `cmd:"" help:"Show database path."`
	DumpUser  *DebugDumpUserCmd  `cmd:"" help:"Dump user data as JSON."`
	DumpHabit *DebugDumpHabitCmd `cmd:"" help:"Dump habit data and logs as JSON."`
	DumpClaim *DebugDumpClaimCmd `cmd:"" help:"Dump a dispatch claim as JSON."`
}

type DebugDBPathCmd struct{}

func (cmd *DebugDBPathCmd) Run(ctx *cli.Context) error {
	return printJSON(map[string]string{"path": ctx.Store.GetConfigPath()})
}

type DebugDumpUserCmd struct {
	ID string `arg:"" help:"ID of the user to dump."`
}

func (cmd *DebugDumpUserCmd) Run(ctx *cli.Context) error {
	c := context.Background()
	user, err := ctx.Store.GetUser(c, cmd.ID)
	if err != nil {
		return notFound("user", cmd.ID, err)
	}
	reminders, err := ctx.Store.GetRemindersForUser(c, cmd.ID)
	if err != nil {
		return fmt.Errorf("failed to get reminders: %w", err)
	}
	routines, err := ctx.Store.GetRoutinesForUser(c, cmd.ID)
	if err != nil {
		return fmt.Errorf("failed to get routines: %w", err)
	}
	xp, err := ctx.Store.GetUserXP(c, cmd.ID)
	if err != nil {
		return fmt.Errorf("failed to get xp: %w", err)
	}
	unlocks, err := ctx.Store.GetUnlocks(c, cmd.ID)
	if err != nil {
		return fmt.Errorf("failed to get achievements: %w", err)
	}
	return printJSON(struct {
		User      models.User                `json:"user"`
		XP        int                        `json:"xp"`
		Reminders []models.Reminder          `json:"reminders"`
		Routines  []models.Routine           `json:"routines"`
		Unlocks   []models.AchievementUnlock `json:"unlocks"`
	}{user, xp, reminders, routines, unlocks})
}

type DebugDumpHabitCmd struct {
	ID string `arg:"" help:"ID of the habit to dump."`
}

func (cmd *DebugDumpHabitCmd) Run(ctx *cli.Context) error {
	c := context.Background()
	habit, err := ctx.Store.GetHabit(c, cmd.ID)
	if err != nil {
		return notFound("habit", cmd.ID, err)
	}
	logs, err := ctx.Store.GetHabitLogs(c, cmd.ID, "", "")
	if err != nil {
		return fmt.Errorf("failed to get habit logs: %w", err)
	}
	return printJSON(struct {
		Habit models.Habit      `json:"habit"`
		Logs  []models.HabitLog `json:"logs"`
	}{habit, logs})
}

type DebugDumpClaimCmd struct {
	User string              `arg:"" help:"User ID."`
	Kind models.ReminderKind `arg:"" help:"Reminder kind."`
	Day  string              `arg:"" help:"Local day (YYYY-MM-DD or 'today')."`
	Ref  string              `help:"Reminder ID for routine and custom reminders."`
}

func (cmd *DebugDumpClaimCmd) Run(ctx *cli.Context) error {
	c := context.Background()
	day := cmd.Day
	if day == "today" {
		user, err := ctx.Store.GetUser(c, cmd.User)
		if err != nil {
			return notFound("user", cmd.User, err)
		}
		day = ctx.Today(user.Timezone)
	}
	key := models.ClaimKey{UserID: cmd.User, Kind: cmd.Kind, Day: day, Ref: cmd.Ref}
	claim, err := ctx.Store.GetClaim(c, key)
	if err != nil {
		return notFound("claim", key.String(), err)
	}
	return printJSON(claim)
}

func notFound(what, id string, err error) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("no %s found with ID: %s", what, id)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

func printJSON(v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Println(string(jsonBytes))
	return nil
}
