package redisclaims

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/julianstephens/streakd/internal/models"
	"github.com/julianstephens/streakd/internal/storage"
	"github.com/julianstephens/streakd/internal/storage/storagetest"
)

// Set REDIS_TEST_ADDR (e.g. "localhost:6379") to run against a real server.
func TestStoreIntegration(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set, skipping Redis integration test")
	}
	client, err := Dial(context.Background(), addr, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { client.Close() })

	storagetest.RunClaims(t, func(t *testing.T) storage.ClaimStore {
		// A fresh prefix isolates each subtest.
		return New(client, "streakd-test-"+uuid.NewString())
	})
}

func TestKeyLayout(t *testing.T) {
	s := New(nil, "")
	fixed := models.ClaimKey{UserID: "u1", Kind: models.ReminderEvening, Day: "2026-10-16"}
	if got := s.key(fixed); got != "streakd:claim:u1:evening:2026-10-16:" {
		t.Errorf("key() = %q", got)
	}
	custom := models.ClaimKey{UserID: "u1", Kind: models.ReminderCustom, Day: "2026-10-16", Ref: "rem-9"}
	if got := s.key(custom); got != "streakd:claim:u1:custom:2026-10-16:rem-9" {
		t.Errorf("key() = %q", got)
	}
}
