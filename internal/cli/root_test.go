package cli

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/streakd/internal/config"
	"github.com/julianstephens/streakd/internal/storage/postgres"
	"github.com/julianstephens/streakd/internal/storage/sqlite"
)

func TestParseWeekdays(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []time.Weekday
		wantErr bool
	}{
		{name: "empty", input: "", want: nil},
		{name: "short names", input: "mon,wed,fri", want: []time.Weekday{time.Monday, time.Wednesday, time.Friday}},
		{name: "long names and spaces", input: "Sunday, saturday", want: []time.Weekday{time.Sunday, time.Saturday}},
		{name: "numbers", input: "0,6", want: []time.Weekday{time.Sunday, time.Saturday}},
		{name: "out of range", input: "7", wantErr: true},
		{name: "garbage", input: "mon,someday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWeekdays(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseWeekdays(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseWeekdays(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatWeekdays(t *testing.T) {
	if got := FormatWeekdays(nil); got != "every day" {
		t.Errorf("FormatWeekdays(nil) = %q", got)
	}
	if got := FormatWeekdays([]time.Weekday{time.Monday, time.Thursday}); got != "mon,thu" {
		t.Errorf("FormatWeekdays = %q, want mon,thu", got)
	}
}

func TestOpenStore(t *testing.T) {
	cfg := config.Default()
	cfg.Database = filepath.Join(t.TempDir(), "streakd.db")
	store, err := OpenStore(cfg)
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	if _, ok := store.(*sqlite.Store); !ok {
		t.Errorf("expected SQLite store for a file path, got %T", store)
	}

	cfg.Database = "postgres://streakd@localhost:5432/streakd?sslmode=disable"
	store, err = OpenStore(cfg)
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	if _, ok := store.(*postgres.Store); !ok {
		t.Errorf("expected PostgreSQL store for a URL, got %T", store)
	}
}

func TestToday(t *testing.T) {
	ctx := &Context{
		Config: config.Default(),
		Now:    func() time.Time { return time.Date(2026, 10, 16, 23, 30, 0, 0, time.UTC) },
	}
	if got := ctx.Today("UTC"); got != "2026-10-16" {
		t.Errorf("Today(UTC) = %s", got)
	}
	if got := ctx.Today("Asia/Tokyo"); got != "2026-10-17" {
		t.Errorf("Today(Asia/Tokyo) = %s, want 2026-10-17", got)
	}
	if got := ctx.Today("Not/AZone"); got != "2026-10-16" {
		t.Errorf("Today with a bad zone should fall back to the configured zone, got %s", got)
	}
}

func TestTable(t *testing.T) {
	out := Table([]string{"Name", "Streak"}, [][]string{{"Read", "3"}, {"Run", "0"}}, func(i int) bool { return i == 1 })
	for _, want := range []string{"Name", "Streak", "Read", "Run"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}
