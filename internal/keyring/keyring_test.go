package keyring

import (
	"testing"

	gokeyring "github.com/zalando/go-keyring"
)

func TestSetAndGetConnectionString(t *testing.T) {
	gokeyring.MockInit()

	testConnStr := "postgres://testuser@localhost:5432/streakd?sslmode=disable"
	if err := SetConnectionString(testConnStr); err != nil {
		t.Fatalf("SetConnectionString() failed: %v", err)
	}

	retrieved, err := GetConnectionString()
	if err != nil {
		t.Fatalf("GetConnectionString() failed: %v", err)
	}
	if retrieved != testConnStr {
		t.Errorf("GetConnectionString() = %q, want %q", retrieved, testConnStr)
	}
}

func TestSetEmpty(t *testing.T) {
	gokeyring.MockInit()

	if err := SetConnectionString(""); err == nil {
		t.Error("SetConnectionString(\"\") should return an error")
	}
}

func TestItemsAreIndependent(t *testing.T) {
	gokeyring.MockInit()

	if err := Set(ItemRedisPassword, "hunter2"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if _, err := GetConnectionString(); err != ErrNotFound {
		t.Errorf("GetConnectionString() error = %v, want %v", err, ErrNotFound)
	}
	got, err := Get(ItemRedisPassword)
	if err != nil || got != "hunter2" {
		t.Errorf("Get(%q) = %q, %v", ItemRedisPassword, got, err)
	}
}

func TestDelete(t *testing.T) {
	gokeyring.MockInit()

	if err := SetConnectionString("postgres://testuser@localhost:5432/streakd"); err != nil {
		t.Fatalf("SetConnectionString() failed: %v", err)
	}
	if err := Delete(ItemDatabase); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := GetConnectionString(); err != ErrNotFound {
		t.Errorf("after Delete(), GetConnectionString() error = %v, want %v", err, ErrNotFound)
	}
	if err := Delete(ItemDatabase); err != ErrNotFound {
		t.Errorf("second Delete() error = %v, want %v", err, ErrNotFound)
	}
}

func TestIsAvailable(t *testing.T) {
	gokeyring.MockInit()

	if !IsAvailable() {
		t.Error("IsAvailable() = false, want true in mock mode")
	}
}
