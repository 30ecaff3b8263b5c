package sqlite

import (
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/streakd/internal/logger"
	"github.com/julianstephens/streakd/internal/migration"
	"github.com/julianstephens/streakd/internal/storage"
	"github.com/julianstephens/streakd/internal/storage/sqlstore"
	"github.com/julianstephens/streakd/migrations"
)

var _ storage.Provider = (*Store)(nil)

// Store is the default single-file backend. Claim upserts serialise on a
// single connection, and busy_timeout covers other processes sharing the
// file.
type Store struct {
	*sqlstore.Store
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) open() error {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", s.path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	s.Store = sqlstore.New(db, migration.SQLite)
	return nil
}

func (s *Store) Init() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if s.Store == nil {
		if err := s.open(); err != nil {
			return err
		}
	}
	if err := s.runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *Store) Load() error {
	if s.Store != nil {
		return nil
	}
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return fmt.Errorf("storage not initialized, run 'streakd init' first")
	}
	if err := s.open(); err != nil {
		return err
	}
	return s.runner().ValidateVersion()
}

func (s *Store) Close() error {
	if s.Store != nil {
		return s.DB().Close()
	}
	return nil
}

// Migrate applies pending migrations to an already initialised database.
func (s *Store) Migrate() (int, error) {
	if s.Store == nil {
		if err := s.open(); err != nil {
			return 0, err
		}
	}
	return s.runner().ApplyMigrations(func(msg string) { logger.Info(msg) })
}

// SchemaVersion reports the applied and the latest embedded migration.
func (s *Store) SchemaVersion() (current, latest int, err error) {
	if s.Store == nil {
		if err := s.open(); err != nil {
			return 0, 0, err
		}
	}
	r := s.runner()
	if current, err = r.GetCurrentVersion(); err != nil {
		return 0, 0, err
	}
	if latest, err = r.GetLatestVersion(); err != nil {
		return 0, 0, err
	}
	return current, latest, nil
}

func (s *Store) runner() *migration.Runner {
	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		// The sub-directory is embedded at build time.
		panic(err)
	}
	return migration.NewRunner(s.DB(), subFS, migration.SQLite)
}

func (s *Store) runMigrations() error {
	_, err := s.runner().ApplyMigrations(func(msg string) { logger.Info(msg) })
	return err
}

func (s *Store) GetConfigPath() string {
	return s.path
}
