package models

import (
	"fmt"
	"time"
)

type ClaimState string

// A missing claim row is the unclaimed state.
const (
	ClaimClaimed   ClaimState = "claimed"
	ClaimRetryable ClaimState = "retryable"
	ClaimDelivered ClaimState = "delivered"
	ClaimFailed    ClaimState = "failed"
)

// ClaimKey identifies one reminder instance. Ref is empty for the fixed
// kinds and holds the reminder id for routine and custom reminders.
type ClaimKey struct {
	UserID string       `json:"user_id"`
	Kind   ReminderKind `json:"kind"`
	Day    string       `json:"day"`
	Ref    string       `json:"ref,omitempty"`
}

func (k ClaimKey) String() string {
	if k.Ref == "" {
		return fmt.Sprintf("%s/%s/%s", k.UserID, k.Kind, k.Day)
	}
	return fmt.Sprintf("%s/%s/%s/%s", k.UserID, k.Kind, k.Day, k.Ref)
}

// DispatchClaim is the concurrency-control record for one ClaimKey.
type DispatchClaim struct {
	Key        ClaimKey   `json:"key"`
	State      ClaimState `json:"state"`
	Attempts   int        `json:"attempts"`
	LeaseUntil time.Time  `json:"lease_until"`
	LastError  string     `json:"last_error,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Terminal reports whether no further delivery attempt is allowed.
func (c DispatchClaim) Terminal() bool {
	return c.State == ClaimDelivered || c.State == ClaimFailed
}
