package users

import (
	"context"
	"testing"
	"time"

	"github.com/julianstephens/streakd/internal/cli"
	"github.com/julianstephens/streakd/internal/config"
	"github.com/julianstephens/streakd/internal/models"
	"github.com/julianstephens/streakd/internal/storage/memory"
)

func setupTestContext(t *testing.T) (*cli.Context, *memory.Store) {
	t.Helper()
	store := memory.New()
	return &cli.Context{
		Config: config.Default(),
		Store:  store,
		Now:    func() time.Time { return time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC) },
	}, store
}

func TestUserAddCmd(t *testing.T) {
	ctx, store := setupTestContext(t)

	cmd := &UserAddCmd{Name: "Ada", ID: "ada", Timezone: "Europe/Madrid"}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("user add failed: %v", err)
	}

	u, err := store.GetUser(context.Background(), "ada")
	if err != nil {
		t.Fatalf("user not stored: %v", err)
	}
	if u.Mode != models.ModeNormal || !u.Active {
		t.Errorf("new user should be active in normal mode, got %+v", u)
	}

	if err := cmd.Run(ctx); err == nil {
		t.Error("adding the same user id twice should fail")
	}
}

func TestUserAddCmd_InvalidTimezone(t *testing.T) {
	ctx, _ := setupTestContext(t)

	cmd := &UserAddCmd{Name: "Ada", Timezone: "Mars/Olympus"}
	if err := cmd.Run(ctx); err == nil {
		t.Error("expected an error for an unknown timezone")
	}
}

func TestUserModeCmd(t *testing.T) {
	ctx, store := setupTestContext(t)
	if err := (&UserAddCmd{Name: "Ada", ID: "ada", Timezone: "UTC"}).Run(ctx); err != nil {
		t.Fatalf("user add failed: %v", err)
	}

	tests := []struct {
		name    string
		cmd     UserModeCmd
		check   func(models.User) bool
		wantErr bool
	}{
		{
			name:  "vacation",
			cmd:   UserModeCmd{ID: "ada", Mode: "vacation", DND: "keep"},
			check: func(u models.User) bool { return u.Mode == models.ModeVacation },
		},
		{
			name:  "do not disturb",
			cmd:   UserModeCmd{ID: "ada", DND: "on"},
			check: func(u models.User) bool { return u.DoNotDisturb && u.Mode == models.ModeVacation },
		},
		{
			name:  "back to normal",
			cmd:   UserModeCmd{ID: "ada", Mode: "normal", DND: "off"},
			check: func(u models.User) bool { return !u.DoNotDisturb && u.Mode == models.ModeNormal },
		},
		{
			name:    "unknown mode",
			cmd:     UserModeCmd{ID: "ada", Mode: "holiday", DND: "keep"},
			wantErr: true,
		},
		{
			name:    "unknown user",
			cmd:     UserModeCmd{ID: "nobody", DND: "keep"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Run(ctx)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Run() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			u, err := store.GetUser(context.Background(), "ada")
			if err != nil {
				t.Fatal(err)
			}
			if !tt.check(u) {
				t.Errorf("unexpected user state %+v", u)
			}
		})
	}
}

func TestUserModeCmd_Deactivate(t *testing.T) {
	ctx, store := setupTestContext(t)
	if err := (&UserAddCmd{Name: "Ada", ID: "ada", Timezone: "UTC"}).Run(ctx); err != nil {
		t.Fatalf("user add failed: %v", err)
	}
	if err := (&UserModeCmd{ID: "ada", DND: "keep", Deactivate: true}).Run(ctx); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	users, err := store.ListActiveUsers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 0 {
		t.Errorf("deactivated user still listed as active: %+v", users)
	}
}

func TestUserShowCmd(t *testing.T) {
	ctx, _ := setupTestContext(t)
	if err := (&UserAddCmd{Name: "Ada", ID: "ada", Timezone: "UTC"}).Run(ctx); err != nil {
		t.Fatalf("user add failed: %v", err)
	}
	if err := (&UserShowCmd{ID: "ada"}).Run(ctx); err != nil {
		t.Errorf("user show failed: %v", err)
	}
	if err := (&UserShowCmd{ID: "nobody"}).Run(ctx); err == nil {
		t.Error("showing an unknown user should fail")
	}
}
