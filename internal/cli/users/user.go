package users

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/streakd/internal/cli"
	"github.com/julianstephens/streakd/internal/gamification"
	"github.com/julianstephens/streakd/internal/models"
	"github.com/julianstephens/streakd/internal/streak"
	"github.com/julianstephens/streakd/internal/utils"
)

type UserCmd struct {
	Add  UserAddCmd  `cmd:"" help:"Add a user."`
	List UserListCmd `cmd:"" help:"List active users."`
	Mode UserModeCmd `cmd:"" help:"Change a user's mode or do-not-disturb flag."`
	Show UserShowCmd `cmd:"" help:"Show XP, level, streaks and achievements."`
}

type UserAddCmd struct {
	Name     string `arg:"" help:"Display name."`
	ID       string `help:"User ID (default: random)."`
	Timezone string `help:"IANA timezone, e.g. Europe/Madrid." default:"UTC"`
}

func (c *UserAddCmd) Run(ctx *cli.Context) error {
	if !utils.ValidateTimezone(c.Timezone) {
		return fmt.Errorf("invalid timezone: %s", c.Timezone)
	}
	id := c.ID
	if id == "" {
		id = uuid.New().String()
	}
	user := models.User{
		ID:        id,
		Name:      c.Name,
		Timezone:  c.Timezone,
		Mode:      models.ModeNormal,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := user.Validate(); err != nil {
		return err
	}
	if err := ctx.Store.AddUser(context.Background(), user); err != nil {
		return fmt.Errorf("failed to add user: %w", err)
	}
	fmt.Printf("Added user: %s (%s)\n", user.Name, user.ID)
	return nil
}

type UserListCmd struct{}

func (c *UserListCmd) Run(ctx *cli.Context) error {
	users, err := ctx.Store.ListActiveUsers(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	if len(users) == 0 {
		fmt.Println("No users found.")
		return nil
	}
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		dnd := ""
		if u.DoNotDisturb {
			dnd = "on"
		}
		rows = append(rows, []string{u.ID, u.Name, u.Timezone, string(u.Mode), dnd})
	}
	cli.PrintTable([]string{"ID", "Name", "Timezone", "Mode", "DND"}, rows, func(i int) bool {
		return users[i].Mode.Suppressing() || users[i].DoNotDisturb
	})
	return nil
}

type UserModeCmd struct {
	ID         string `arg:"" help:"User ID."`
	Mode       string `help:"normal, vacation or sick."`
	DND        string `name:"dnd" enum:"on,off,keep" default:"keep" help:"Set or clear do-not-disturb."`
	Deactivate bool   `help:"Stop scheduling reminders for the user."`
}

func (c *UserModeCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	user, err := ctx.Store.GetUser(bg, c.ID)
	if err != nil {
		return fmt.Errorf("user %q not found: %w", c.ID, err)
	}
	if c.Mode != "" {
		user.Mode = models.Mode(c.Mode)
	}
	switch c.DND {
	case "on":
		user.DoNotDisturb = true
	case "off":
		user.DoNotDisturb = false
	}
	if c.Deactivate {
		user.Active = false
	}
	if err := user.Validate(); err != nil {
		return err
	}
	if err := ctx.Store.UpdateUser(bg, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	fmt.Printf("User %s: mode=%s dnd=%t active=%t\n", user.ID, user.Mode, user.DoNotDisturb, user.Active)
	return nil
}

type UserShowCmd struct {
	ID string `arg:"" help:"User ID."`
}

func (c *UserShowCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	user, err := ctx.Store.GetUser(bg, c.ID)
	if err != nil {
		return fmt.Errorf("user %q not found: %w", c.ID, err)
	}
	engine := ctx.Gamification()
	xp, level, title, err := engine.Snapshot(bg, user.ID)
	if err != nil {
		return err
	}

	today := ctx.Today(user.Timezone)
	habits, logs, err := streak.Load(bg, ctx.Store, user.ID, today)
	if err != nil {
		return err
	}
	asOf, err := utils.ParseDay(today)
	if err != nil {
		return err
	}
	global := streak.GlobalStreak(habits, logs, asOf)
	into, remaining := gamification.Progress(xp)

	fmt.Printf("%s (%s)\n", user.Name, user.ID)
	fmt.Printf("  Timezone: %s  Mode: %s\n", user.Timezone, user.Mode)
	fmt.Printf("  Level %d %s, %d XP (%d into level, %d to next)\n", level, title, xp, into, remaining)
	fmt.Printf("  Global streak: %d day(s)\n", global)

	unlocks, err := ctx.Store.GetUnlocks(bg, user.ID)
	if err != nil {
		return fmt.Errorf("failed to get achievements: %w", err)
	}
	if len(unlocks) == 0 {
		return nil
	}
	names := make(map[string]models.Achievement)
	for _, a := range engine.Achievements() {
		names[a.ID] = a
	}
	rows := make([][]string, 0, len(unlocks))
	for _, u := range unlocks {
		a := names[u.AchievementID]
		rows = append(rows, []string{a.Name, a.Description, strconv.Itoa(a.XPReward), utils.FormatDay(u.UnlockedAt)})
	}
	fmt.Println()
	cli.PrintTable([]string{"Achievement", "Description", "XP", "Unlocked"}, rows, nil)
	return nil
}
