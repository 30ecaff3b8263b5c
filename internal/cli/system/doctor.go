package system

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/julianstephens/streakd/internal/cli"
	"github.com/julianstephens/streakd/internal/constants"
	"github.com/julianstephens/streakd/internal/keyring"
	"github.com/julianstephens/streakd/internal/notifier"
	"github.com/julianstephens/streakd/internal/storage/redisclaims"
	"github.com/julianstephens/streakd/internal/storage/sqlite"
	"github.com/julianstephens/streakd/internal/utils"
)

type DoctorCmd struct{}

type check struct {
	name string
	// skip returns a reason when the check does not apply.
	skip func(ctx *cli.Context) string
	run  func(ctx *cli.Context) error
	// warn marks failures that do not fail the command.
	warn bool
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	dbReachable := false
	checks := []check{
		{name: "Configuration", run: func(ctx *cli.Context) error { return ctx.Config.Validate() }},
		{name: "Database reachable", run: func(ctx *cli.Context) error {
			err := checkDBReachable(ctx)
			dbReachable = err == nil
			return err
		}},
		{name: "Schema version", skip: needDB(&dbReachable), run: checkSchemaVersion},
		{name: "User timezones", skip: needDB(&dbReachable), run: checkUserTimezones, warn: true},
		{name: "OS keyring", skip: skipUnless(usesKeyring, "not configured"), run: checkKeyring},
		{name: "Redis claims", skip: skipUnless(func(ctx *cli.Context) bool { return ctx.Config.Redis.Addr != "" }, "not configured"), run: checkRedis},
		{name: "NATS", skip: skipUnless(func(ctx *cli.Context) bool { return ctx.Config.NATS.URL != "" }, "not configured"), run: checkNATS},
		{name: "Tray app", skip: skipUnless(func(ctx *cli.Context) bool { return ctx.Config.Tray }, "disabled"), run: checkTray, warn: true},
	}

	hasError := false
	for _, c := range checks {
		if c.skip != nil {
			if reason := c.skip(ctx); reason != "" {
				fmt.Printf("⊘ %s: SKIPPED (%s)\n", c.name, reason)
				continue
			}
		}
		err := c.run(ctx)
		switch {
		case err == nil:
			fmt.Printf("✓ %s: OK\n", c.name)
		case c.warn:
			fmt.Printf("⚠ %s: WARNING\n", c.name)
			fmt.Printf("   %v\n", err)
		default:
			fmt.Printf("❌ %s: FAIL\n", c.name)
			fmt.Printf("   Error: %v\n", err)
			hasError = true
		}
	}

	fmt.Println()
	if hasError {
		fmt.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	fmt.Println("All diagnostics passed!")
	return nil
}

func needDB(reachable *bool) func(*cli.Context) string {
	return func(*cli.Context) string {
		if *reachable {
			return ""
		}
		return "database not reachable"
	}
}

func skipUnless(applies func(*cli.Context) bool, reason string) func(*cli.Context) string {
	return func(ctx *cli.Context) string {
		if applies(ctx) {
			return ""
		}
		return reason
	}
}

func usesKeyring(ctx *cli.Context) bool {
	return ctx.Config.Database == constants.KeyringValue || ctx.Config.Redis.Password == constants.KeyringValue
}

func checkDBReachable(ctx *cli.Context) error {
	// Opening a missing SQLite file would create it
	if s, ok := ctx.Store.(*sqlite.Store); ok {
		if _, err := os.Stat(s.GetConfigPath()); err != nil {
			return fmt.Errorf("database not found at %s, run 'streakd init' first", s.GetConfigPath())
		}
	}
	m, ok := ctx.Store.(Migrator)
	if !ok {
		return ctx.Store.Load()
	}
	_, _, err := m.SchemaVersion()
	return err
}

func checkSchemaVersion(ctx *cli.Context) error {
	m, ok := ctx.Store.(Migrator)
	if !ok {
		return nil
	}
	current, latest, err := m.SchemaVersion()
	if err != nil {
		return err
	}
	if current > latest {
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", current, latest)
	}
	if current < latest {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d, run 'streakd migrate'", current, latest)
	}
	return nil
}

func checkUserTimezones(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	users, err := ctx.Store.ListActiveUsers(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	var errs []error
	for _, u := range users {
		if !utils.ValidateTimezone(u.Timezone) {
			errs = append(errs, fmt.Errorf("user %s has unknown timezone %q, reminders fall back to %s", u.ID, u.Timezone, ctx.Config.Timezone))
		}
	}
	return errors.Join(errs...)
}

func checkKeyring(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		return keyring.ErrKeyringUnavailable
	}
	if ctx.Config.Database == constants.KeyringValue {
		if _, err := keyring.GetConnectionString(); err != nil {
			return fmt.Errorf("database connection: %w", err)
		}
	}
	if ctx.Config.Redis.Password == constants.KeyringValue {
		if _, err := keyring.Get(keyring.ItemRedisPassword); err != nil {
			return fmt.Errorf("redis password: %w", err)
		}
	}
	return nil
}

func checkRedis(ctx *cli.Context) error {
	pass, err := ctx.Config.RedisPassword()
	if err != nil {
		return err
	}
	dialCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := redisclaims.Dial(dialCtx, ctx.Config.Redis.Addr, pass, ctx.Config.Redis.DB)
	if err != nil {
		return err
	}
	return client.Close()
}

func checkNATS(ctx *cli.Context) error {
	nc, err := notifier.DialNATS(ctx.Config.NATS.URL)
	if err != nil {
		return err
	}
	nc.Close()
	return nil
}

func checkTray(*cli.Context) error {
	return notifier.TrayAvailable()
}
