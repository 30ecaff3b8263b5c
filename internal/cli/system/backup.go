package system

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/julianstephens/streakd/internal/backup"
	"github.com/julianstephens/streakd/internal/cli"
	"github.com/julianstephens/streakd/internal/storage/sqlite"
)

type BackupCmd struct {
	Create  BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
	List    BackupListCmd    `cmd:"" help:"List available backups."`
	Restore BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
}

func backupManager(ctx *cli.Context) (*backup.Manager, error) {
	if _, ok := ctx.Store.(*sqlite.Store); !ok {
		return nil, errors.New("backups are only supported for SQLite storage; use pg_dump for PostgreSQL")
	}
	return backup.NewManager(ctx.Store.GetConfigPath(), ctx.Config.Backups), nil
}

type BackupCreateCmd struct{}

func (c *BackupCreateCmd) Run(ctx *cli.Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}
	path, err := mgr.Create()
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	fmt.Printf("✓ Backup created: %s\n", filepath.Base(path))
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(ctx *cli.Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}
	backups, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		fmt.Println("No backups found.")
		fmt.Printf("Backups are stored in: %s\n", mgr.Dir())
		return nil
	}

	fmt.Printf("Available backups (%d total, keeping most recent %d):\n\n", len(backups), mgr.Keep())
	rows := make([][]string, 0, len(backups))
	for _, b := range backups {
		rows = append(rows, []string{
			b.Timestamp.Format("2006-01-02 15:04:05"),
			filepath.Base(b.Path),
			fmt.Sprintf("%.1f KB", float64(b.Size)/1024.0),
		})
	}
	cli.PrintTable([]string{"Created", "File", "Size"}, rows, nil)
	fmt.Printf("\nBackup directory: %s\n", mgr.Dir())
	return nil
}

type BackupRestoreCmd struct {
	File string `arg:"" help:"Path or filename of the backup to restore."`
	Yes  bool   `short:"y" help:"Skip the confirmation prompt."`

	in io.Reader
}

func (c *BackupRestoreCmd) Run(ctx *cli.Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}
	path, err := mgr.Resolve(c.File)
	if err != nil {
		return err
	}

	if !c.Yes {
		fmt.Println("⚠️  WARNING: This will replace your current database with the backup.")
		fmt.Println("⚠️  IMPORTANT: Stop 'streakd run' before restoring.")
		fmt.Println("A backup of your current database will be created before restoring.")
		fmt.Printf("\nRestore from: %s\n", path)
		fmt.Print("Continue? [y/N]: ")

		in := c.in
		if in == nil {
			in = os.Stdin
		}
		response, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println("Restore cancelled.")
			return nil
		}
	}

	if err := ctx.Store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database connection: %v\n", err)
	}
	previous, err := mgr.Restore(path)
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}
	if previous != "" {
		fmt.Printf("Created backup of current database: %s\n", filepath.Base(previous))
	}
	fmt.Println("✓ Database restored successfully!")
	return nil
}
