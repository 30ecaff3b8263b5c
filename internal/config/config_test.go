package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gokeyring "github.com/zalando/go-keyring"

	"github.com/julianstephens/streakd/internal/keyring"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Schedule.Window != 10*time.Minute {
		t.Errorf("window = %v, want 10m", cfg.Schedule.Window)
	}
	if cfg.Dispatch.MaxAttempts != 3 {
		t.Errorf("max attempts = %d, want 3", cfg.Dispatch.MaxAttempts)
	}
	if cfg.Location() != time.UTC {
		t.Errorf("default location = %v, want UTC", cfg.Location())
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
database: /var/lib/streakd/streakd.db
timezone: Europe/Madrid
schedule:
  window: 5m
  workers: 2
dispatch:
  max_attempts: 5
  delivery_timeout: 10s
nats:
  url: nats://localhost:4222
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Database != "/var/lib/streakd/streakd.db" {
		t.Errorf("database = %q", cfg.Database)
	}
	if cfg.Schedule.Window != 5*time.Minute || cfg.Schedule.Workers != 2 {
		t.Errorf("schedule = %+v", cfg.Schedule)
	}
	if cfg.Dispatch.MaxAttempts != 5 || cfg.Dispatch.DeliveryTimeout != 10*time.Second {
		t.Errorf("dispatch = %+v", cfg.Dispatch)
	}
	if cfg.Dispatch.Lease != 5*time.Minute {
		t.Errorf("unset fields keep their default, got lease %v", cfg.Dispatch.Lease)
	}
	if cfg.Location().String() != "Europe/Madrid" {
		t.Errorf("location = %v", cfg.Location())
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	if _, err := Load(writeConfig(t, "databse: typo.db\n")); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestLoadEmptyFile(t *testing.T) {
	if _, err := Load(writeConfig(t, "")); err != nil {
		t.Errorf("empty file should load defaults: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STREAKD_DB_CONNECTION", "postgres://streakd@db:5432/streakd")
	t.Setenv("STREAKD_NATS_URL", "nats://bus:4222")
	t.Setenv("STREAKD_REDIS_ADDR", "cache:6379")

	cfg, err := Load(writeConfig(t, "database: local.db\n"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Database != "postgres://streakd@db:5432/streakd" {
		t.Errorf("database = %q", cfg.Database)
	}
	if cfg.NATS.URL != "nats://bus:4222" || cfg.Redis.Addr != "cache:6379" {
		t.Errorf("env overrides not applied: %+v %+v", cfg.NATS, cfg.Redis)
	}
}

func TestValidate(t *testing.T) {
	tests := map[string]string{
		"embedded password": "database: postgres://user:secret@db:5432/streakd\n",
		"bad timezone":      "timezone: Nowhere/City\n",
		"zero window":       "schedule:\n  window: 0s\n",
		"no workers":        "schedule:\n  workers: 0\n",
		"short lease":       "dispatch:\n  lease: 10s\n",
		"negative rate":     "dispatch:\n  rate: -1\n",
	}
	for name, body := range tests {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestDatabaseURLFromKeyring(t *testing.T) {
	gokeyring.MockInit()

	cfg := Default()
	cfg.Database = "keyring"
	if _, err := cfg.DatabaseURL(); err == nil {
		t.Error("expected error when the keyring is empty")
	}

	if err := keyring.SetConnectionString("postgres://streakd@db:5432/streakd"); err != nil {
		t.Fatal(err)
	}
	got, err := cfg.DatabaseURL()
	if err != nil {
		t.Fatalf("DatabaseURL() failed: %v", err)
	}
	if got != "postgres://streakd@db:5432/streakd" {
		t.Errorf("DatabaseURL() = %q", got)
	}
}

func TestRedisPassword(t *testing.T) {
	gokeyring.MockInit()

	cfg := Default()
	cfg.Redis.Password = "plain"
	if got, _ := cfg.RedisPassword(); got != "plain" {
		t.Errorf("RedisPassword() = %q, want plain", got)
	}

	cfg.Redis.Password = "keyring"
	if err := keyring.Set(keyring.ItemRedisPassword, "from-keyring"); err != nil {
		t.Fatal(err)
	}
	if got, err := cfg.RedisPassword(); err != nil || got != "from-keyring" {
		t.Errorf("RedisPassword() = %q, %v", got, err)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandPath("~/.config/streakd/streakd.db"); got != filepath.Join(home, ".config/streakd/streakd.db") {
		t.Errorf("ExpandPath() = %q", got)
	}
	if got := ExpandPath("/abs/path.db"); got != "/abs/path.db" {
		t.Errorf("ExpandPath() = %q", got)
	}
	if got := ExpandPath("~other/x"); !strings.HasPrefix(got, "~") {
		t.Errorf("ExpandPath() should leave ~user alone, got %q", got)
	}
}
