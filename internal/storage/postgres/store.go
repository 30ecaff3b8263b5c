package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	pq "github.com/lib/pq"

	"github.com/julianstephens/streakd/internal/constants"
	"github.com/julianstephens/streakd/internal/logger"
	"github.com/julianstephens/streakd/internal/migration"
	"github.com/julianstephens/streakd/internal/storage"
	"github.com/julianstephens/streakd/internal/storage/sqlstore"
	"github.com/julianstephens/streakd/migrations"
)

var _ storage.Provider = (*Store)(nil)

var (
	ErrInvalidConnectionString = errors.New("invalid PostgreSQL connection string")
	ErrEmbeddedCredentials     = errors.New("connection string must not contain a password")
)

type Store struct {
	*sqlstore.Store
	connStr string
}

func New(connStr string) *Store {
	s := &Store{connStr: connStr}
	s.ensureSearchPath()
	return s
}

func (s *Store) ensureSearchPath() {
	if storage.IsPostgres(s.connStr) {
		u, err := url.Parse(s.connStr)
		if err != nil {
			logger.Warn("Failed to parse Postgres connection string", "error", err)
			return
		}
		q := u.Query()
		if q.Get("search_path") == "" {
			q.Set("search_path", constants.AppName)
			u.RawQuery = q.Encode()
			s.connStr = u.String()
		}
		return
	}
	if !hasParam(s.connStr, "search_path") {
		s.connStr = strings.TrimSpace(s.connStr) + " search_path=" + constants.AppName
	}
}

// hasParam reports whether a key=value style DSN sets key.
func hasParam(connStr, key string) bool {
	for _, part := range strings.Fields(connStr) {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) == 2 && strings.EqualFold(kv[0], key) {
			return true
		}
	}
	return false
}

func hasSSLMode(connStr string) bool {
	if u, err := url.Parse(connStr); err == nil && u.Scheme != "" {
		for key := range u.Query() {
			if strings.EqualFold(key, "sslmode") {
				return true
			}
		}
	}
	return hasParam(connStr, "sslmode")
}

// ValidateConnString checks that connStr parses and carries no password.
func ValidateConnString(connStr string) error {
	if strings.TrimSpace(connStr) == "" {
		return fmt.Errorf("%w: connection string cannot be empty", ErrInvalidConnectionString)
	}
	if _, err := pq.NewConnector(connStr); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConnectionString, err)
	}
	if storage.HasEmbeddedCredentials(connStr) {
		return ErrEmbeddedCredentials
	}
	return nil
}

func (s *Store) open() error {
	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		if strings.Contains(err.Error(), "SSL is not enabled on the server") && !hasSSLMode(s.connStr) {
			return fmt.Errorf("failed to connect to database: %w (hint: try adding ?sslmode=disable to your connection string)", err)
		}
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.Store = sqlstore.New(db, migration.Postgres)
	return nil
}

func (s *Store) Init() error {
	if s.Store == nil {
		if err := s.open(); err != nil {
			return err
		}
	}
	if _, err := s.DB().Exec("CREATE SCHEMA IF NOT EXISTS " + constants.AppName); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := s.runner().ApplyMigrations(func(msg string) { logger.Info(msg) }); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *Store) Load() error {
	if s.Store != nil {
		return nil
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

// Migrate applies pending migrations.
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
	subFS, err := fs.Sub(migrations.FS, "postgres")
	if err != nil {
		panic(err)
	}
	return migration.NewRunner(s.DB(), subFS, migration.Postgres)
}

func (s *Store) GetConfigPath() string {
	// Never echo the connection string.
	return "postgresql"
}
