// Package backup snapshots and restores the SQLite database.
package backup

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/streakd/internal/constants"
	"github.com/julianstephens/streakd/internal/logger"
)

const (
	filePrefix = constants.AppName + "-"
	fileSuffix = ".db"
	stampFmt   = "20060102-150405"
)

type Info struct {
	Path      string
	Timestamp time.Time
	Size      int64
}

// Manager keeps up to Keep timestamped copies of one database file in a
// backups directory next to it.
type Manager struct {
	dbPath string
	dir    string
	keep   int
	now    func() time.Time
}

func NewManager(dbPath string, keep int) *Manager {
	if keep < 1 {
		keep = constants.DefaultMaxBackups
	}
	return &Manager{
		dbPath: dbPath,
		dir:    filepath.Join(filepath.Dir(dbPath), constants.BackupDirName),
		keep:   keep,
		now:    time.Now,
	}
}

func (m *Manager) Dir() string { return m.dir }

func (m *Manager) Keep() int { return m.keep }

// Create snapshots the database and prunes the oldest backups.
func (m *Manager) Create() (string, error) {
	path, err := m.create()
	if err != nil {
		return "", err
	}
	if err := m.rotate(); err != nil {
		logger.Warn("Failed to rotate old backups", "dir", m.dir, "error", err)
	}
	return path, nil
}

func (m *Manager) create() (string, error) {
	if _, err := os.Stat(m.dbPath); err != nil {
		return "", fmt.Errorf("database does not exist: %s", m.dbPath)
	}
	if err := os.MkdirAll(m.dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	path, err := m.nextPath()
	if err != nil {
		return "", err
	}
	if err := snapshot(m.dbPath, path); err != nil {
		return "", fmt.Errorf("failed to backup database: %w", err)
	}
	logger.Info("Database backed up", "path", path)
	return path, nil
}

func (m *Manager) nextPath() (string, error) {
	stamp := m.now().Format(stampFmt)
	path := filepath.Join(m.dir, filePrefix+stamp+fileSuffix)
	for n := 1; fileExists(path); n++ {
		if n > 100 {
			return "", errors.New("failed to generate unique backup filename")
		}
		path = filepath.Join(m.dir, fmt.Sprintf("%s%s-%d%s", filePrefix, stamp, n, fileSuffix))
	}
	return path, nil
}

// snapshot writes a consistent copy with VACUUM INTO, falling back to a
// plain file copy.
func snapshot(src, dst string) error {
	db, err := sql.Open("sqlite", "file:"+src)
	if err != nil {
		return fmt.Errorf("failed to open source database: %w", err)
	}
	defer db.Close()

	if err := verify(db); err != nil {
		return fmt.Errorf("source database is not a %s database: %w", constants.AppName, err)
	}
	if _, err := db.Exec("VACUUM INTO ?", dst); err != nil {
		logger.Debug("VACUUM INTO failed, copying file", "error", err)
		db.Close()
		return copyFile(src, dst)
	}
	return nil
}

// List returns backups newest first.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []Info
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ts, ok := parseName(entry.Name())
		if !ok {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, Info{
			Path:      filepath.Join(m.dir, entry.Name()),
			Timestamp: ts,
			Size:      fi.Size(),
		})
	}
	slices.SortStableFunc(backups, func(a, b Info) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return strings.Compare(b.Path, a.Path)
	})
	return backups, nil
}

// parseName extracts the timestamp from streakd-YYYYMMDD-HHMMSS[-N].db.
func parseName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	if len(stamp) > len(stampFmt) {
		stamp = stamp[:len(stampFmt)]
	}
	ts, err := time.ParseInLocation(stampFmt, stamp, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func (m *Manager) rotate() error {
	backups, err := m.List()
	if err != nil {
		return err
	}
	for _, b := range backups[min(m.keep, len(backups)):] {
		if err := os.Remove(b.Path); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", b.Path, err)
		}
	}
	return nil
}

// Resolve finds name as a path or inside the backup directory.
func (m *Manager) Resolve(name string) (string, error) {
	if fileExists(name) {
		return filepath.Abs(name)
	}
	if !filepath.IsAbs(name) {
		if p := filepath.Join(m.dir, name); fileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("backup file not found: tried %s and %s", name, m.dir)
}

// Restore replaces the database with the backup at path. The current
// database is snapshotted first without rotation; its path is returned.
// The database must be closed by every process before calling Restore.
func (m *Manager) Restore(path string) (string, error) {
	if err := verifyFile(path); err != nil {
		return "", fmt.Errorf("backup file is corrupted or invalid: %w", err)
	}

	var previous string
	if fileExists(m.dbPath) {
		p, err := m.create()
		if err != nil {
			return "", fmt.Errorf("failed to backup current database before restore: %w", err)
		}
		previous = p
	}

	tmp := m.dbPath + ".restore.tmp"
	if err := copyFile(path, tmp); err != nil {
		return "", fmt.Errorf("failed to copy backup file: %w", err)
	}
	// A leftover WAL would be replayed over the restored file.
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(m.dbPath + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to remove %s file: %w", suffix, err)
		}
	}
	if err := os.Rename(tmp, m.dbPath); err != nil {
		if rmErr := os.Remove(tmp); rmErr != nil {
			logger.Warn("Failed to remove temporary file", "path", tmp, "error", rmErr)
		}
		return "", fmt.Errorf("failed to restore database: %w", err)
	}
	logger.Info("Database restored", "from", path, "previous", previous)
	return previous, nil
}

func verifyFile(path string) error {
	if !fileExists(path) {
		return fmt.Errorf("backup file does not exist: %s", path)
	}
	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		return err
	}
	defer db.Close()
	return verify(db)
}

// verify checks the file is SQLite and carries the streakd schema table.
func verify(db *sql.DB) error {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'").Scan(&n)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("schema_version table missing")
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := out.ReadFrom(in); err != nil {
		return err
	}
	return out.Sync()
}
