package system

import (
	"fmt"
	"os"

	"github.com/julianstephens/streakd/internal/backup"
	"github.com/julianstephens/streakd/internal/cli"
	"github.com/julianstephens/streakd/internal/storage/sqlite"
)

type InitCmd struct {
	Force bool `help:"Force reset by deleting existing database before initialization."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		if _, ok := ctx.Store.(*sqlite.Store); !ok {
			return fmt.Errorf("--force only supports SQLite storage")
		}
		dbPath := ctx.Store.GetConfigPath()
		if _, err := os.Stat(dbPath); err == nil {
			if path, err := backup.NewManager(dbPath, ctx.Config.Backups).Create(); err != nil {
				fmt.Printf("Warning: could not back up existing database: %v\n", err)
			} else {
				fmt.Printf("Backed up existing database to: %s\n", path)
			}
			// Close first to release the file lock
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			if err := os.Remove(dbPath); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			fmt.Printf("Deleted existing database at: %s\n", dbPath)
			ctx.Store = sqlite.NewStore(dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	fmt.Printf("Initialized streakd storage at: %s\n", ctx.Store.GetConfigPath())
	return nil
}
