package models

import (
	"fmt"
	"time"
)

type Mode string

const (
	ModeNormal   Mode = "normal"
	ModeVacation Mode = "vacation"
	ModeSick     Mode = "sick"
)

// Valid reports whether m is one of the closed set of modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeNormal, ModeVacation, ModeSick:
		return true
	}
	return false
}

// Suppressing reports whether the mode silences ordinary reminders.
func (m Mode) Suppressing() bool {
	return m == ModeVacation || m == ModeSick
}

// User is the account that owns habits, reminders and the XP ledger.
// XP, level and the global streak are not stored here; they are derived
// on read from the ledger and the habit logs.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Timezone     string    `json:"timezone"` // IANA name, e.g. "Europe/Madrid"
	Mode         Mode      `json:"mode"`
	DoNotDisturb bool      `json:"do_not_disturb"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("user id cannot be empty")
	}
	if u.Name == "" {
		return fmt.Errorf("user name cannot be empty")
	}
	if !u.Mode.Valid() {
		return fmt.Errorf("invalid mode %q", u.Mode)
	}
	return nil
}
