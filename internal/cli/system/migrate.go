package system

import (
	"fmt"

	"github.com/julianstephens/streakd/internal/cli"
)

// Migrator is implemented by the SQL backends.
type Migrator interface {
	Migrate() (int, error)
	SchemaVersion() (current, latest int, err error)
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	m, ok := ctx.Store.(Migrator)
	if !ok {
		return fmt.Errorf("storage backend %s does not support migrations", ctx.Store.GetConfigPath())
	}
	defer ctx.Store.Close()

	count, err := m.Migrate()
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if count == 0 {
		fmt.Println("No migrations to apply. Database is up to date.")
	} else {
		fmt.Printf("\nSuccessfully applied %d migration(s).\n", count)
	}
	return nil
}
