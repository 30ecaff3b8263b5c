package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/streakd/internal/cli"
	"github.com/julianstephens/streakd/internal/models"
	"github.com/julianstephens/streakd/internal/utils"
)

type RoutineCmd struct {
	Add      RoutineAddCmd      `cmd:"" help:"Add a routine."`
	List     RoutineListCmd     `cmd:"" help:"List a user's routines."`
	Complete RoutineCompleteCmd `cmd:"" help:"Mark a routine complete for a day."`
}

type RoutineAddCmd struct {
	User string `required:"" help:"Owning user ID."`
	Name string `arg:"" help:"Routine name."`
}

func (c *RoutineAddCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	if _, err := ctx.Store.GetUser(bg, c.User); err != nil {
		return fmt.Errorf("user %q not found: %w", c.User, err)
	}
	if c.Name == "" {
		return fmt.Errorf("routine name cannot be empty")
	}
	r := models.Routine{
		ID:        uuid.New().String(),
		UserID:    c.User,
		Name:      c.Name,
		CreatedAt: time.Now().UTC(),
	}
	if err := ctx.Store.AddRoutine(bg, r); err != nil {
		return fmt.Errorf("failed to add routine: %w", err)
	}
	fmt.Printf("Added routine: %s (%s)\n", r.Name, r.ID)
	return nil
}

type RoutineListCmd struct {
	User string `arg:"" help:"User ID."`
}

func (c *RoutineListCmd) Run(ctx *cli.Context) error {
	routines, err := ctx.Store.GetRoutinesForUser(context.Background(), c.User)
	if err != nil {
		return fmt.Errorf("failed to get routines: %w", err)
	}
	if len(routines) == 0 {
		fmt.Println("No routines found.")
		return nil
	}
	rows := make([][]string, 0, len(routines))
	for _, r := range routines {
		rows = append(rows, []string{r.ID, r.Name, utils.FormatDay(r.CreatedAt)})
	}
	cli.PrintTable([]string{"ID", "Name", "Created"}, rows, nil)
	return nil
}

type RoutineCompleteCmd struct {
	ID   string `arg:"" help:"Routine ID."`
	Date string `help:"Date in YYYY-MM-DD format (default: today in the user's timezone)." default:""`
}

func (c *RoutineCompleteCmd) Run(ctx *cli.Context) error {
	res, err := ctx.Activity().CompleteRoutine(context.Background(), c.ID, c.Date)
	if err != nil {
		return err
	}
	if res.XPDelta == 0 {
		fmt.Println("Routine already completed for that day.")
		return nil
	}
	fmt.Printf("Routine complete: +%d XP (total %d, level %d)\n", res.XPDelta, res.XP, res.Level)
	for _, a := range res.Unlocked {
		fmt.Printf("  Achievement unlocked: %s (+%d XP)\n", a.Name, a.XPReward)
	}
	return nil
}
