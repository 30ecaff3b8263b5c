package sqlite

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/julianstephens/streakd/internal/storage"
	"github.com/julianstephens/streakd/internal/storage/storagetest"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "streakd.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Provider {
		return setupTestStore(t)
	})
}

func TestLoadRequiresInit(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.db"))
	err := store.Load()
	if err == nil || !strings.Contains(err.Error(), "streakd init") {
		t.Errorf("Load() error = %v, want hint to run init", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streakd.db")
	store := NewStore(path)
	if err := store.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	storagetest.Seed(t, store, "u1")
	store.Close()

	reopened := NewStore(path)
	if err := reopened.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.GetUser(t.Context(), "u1"); err != nil {
		t.Errorf("GetUser after reopen: %v", err)
	}

	applied, err := reopened.Migrate()
	if err != nil || applied != 0 {
		t.Errorf("Migrate() = %d, %v; want no pending migrations", applied, err)
	}
}
