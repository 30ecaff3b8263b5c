package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/streakd/internal/cli"
	"github.com/julianstephens/streakd/internal/cli/daemon"
	"github.com/julianstephens/streakd/internal/cli/habits"
	"github.com/julianstephens/streakd/internal/cli/reminders"
	"github.com/julianstephens/streakd/internal/cli/system"
	"github.com/julianstephens/streakd/internal/cli/tracking"
	"github.com/julianstephens/streakd/internal/cli/users"
	"github.com/julianstephens/streakd/internal/config"
	"github.com/julianstephens/streakd/internal/constants"
	"github.com/julianstephens/streakd/internal/logger"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path." type:"string" default:"${config_path}"`
	Verbose bool   `short:"v" help:"Enable debug logging to stderr."`

	Init     system.InitCmd        `cmd:"" help:"Initialize streakd storage."`
	Migrate  system.MigrateCmd     `cmd:"" help:"Run database migrations."`
	Doctor   system.DoctorCmd      `cmd:"" help:"Run health checks and diagnostics."`
	Keyring  system.KeyringCmd     `cmd:"" help:"Manage credentials in the OS keyring."`
	Debug    system.DebugCmd       `cmd:"" help:"Debug commands for troubleshooting."`
	Backup   system.BackupCmd      `cmd:"" help:"Manage SQLite database backups."`
	Run      daemon.RunCmd         `cmd:"" help:"Run the reminder scheduler until interrupted."`
	Tick     daemon.TickCmd        `cmd:"" help:"Run one scheduling pass."`
	User     users.UserCmd         `cmd:"" help:"Manage users."`
	Habit    habits.HabitCmd       `cmd:"" help:"Manage habits and habit tracking."`
	Reminder reminders.ReminderCmd `cmd:"" help:"Manage reminders."`
	Routine  reminders.RoutineCmd  `cmd:"" help:"Manage routines."`
	Track    tracking.TrackCmd     `cmd:"" help:"Record a mood, water, sleep or similar entry."`
}

// noStoreLoad lists commands that open storage themselves.
var noStoreLoad = map[string]bool{
	"init":    true,
	"migrate": true,
	"doctor":  true,
	"keyring": true,
	"backup":  true,
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Habit streaks, XP and reminder scheduling"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":     constants.Version,
			"config_path": constants.DefaultConfigPath,
		},
	)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{
		Debug:  CLI.Verbose || cfg.Log.Debug,
		Dir:    config.ExpandPath(cfg.Log.Dir),
		Stderr: ctx.Command() == "run",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	root := rootCommand(ctx)
	appCtx, err := cli.NewContext(cfg)
	if err != nil {
		// keyring commands must work before the keyring holds a connection
		if root != "keyring" {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		appCtx = &cli.Context{Config: cfg}
	}

	// Load the store before running the command (some commands handle their own loading)
	if !noStoreLoad[root] {
		if err := appCtx.Connect(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	err = ctx.Run(appCtx)
	if appCtx.Store != nil {
		appCtx.Store.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// rootCommand returns the first word of the selected command path.
func rootCommand(ctx *kong.Context) string {
	node := ctx.Selected()
	if node == nil {
		return ""
	}
	for node.Parent != nil && node.Parent.Type != kong.ApplicationNode {
		node = node.Parent
	}
	return node.Name
}
