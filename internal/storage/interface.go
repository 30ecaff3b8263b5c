package storage

import (
	"context"
	"time"

	"github.com/julianstephens/streakd/internal/models"
)

// ClaimStore holds the dispatch claim table. Every transition is a single
// atomic operation so concurrent dispatchers agree on one winner.
type ClaimStore interface {
	// AcquireClaim moves key to claimed when it is unclaimed, retryable, or
	// claimed with an expired lease. The bool reports whether this caller won.
	AcquireClaim(ctx context.Context, key models.ClaimKey, now time.Time, lease time.Duration) (models.DispatchClaim, bool, error)
	// CompleteClaim marks held delivered. It matches only while held.LeaseUntil
	// is still the row's lease, so a holder whose lease was taken over gets
	// ErrNotFound.
	CompleteClaim(ctx context.Context, held models.DispatchClaim, now time.Time) error
	// ReleaseClaim records a failed attempt on held, with the same lease
	// match as CompleteClaim. The claim becomes retryable, or failed once
	// maxAttempts is reached.
	ReleaseClaim(ctx context.Context, held models.DispatchClaim, now time.Time, lastErr string, maxAttempts int) (models.DispatchClaim, error)
	GetClaim(ctx context.Context, key models.ClaimKey) (models.DispatchClaim, error)
}

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Users
	AddUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, id string) (models.User, error)
	UpdateUser(ctx context.Context, user models.User) error
	ListActiveUsers(ctx context.Context) ([]models.User, error)

	// Habits
	AddHabit(ctx context.Context, habit models.Habit) error
	GetHabit(ctx context.Context, id string) (models.Habit, error)
	GetHabitsForUser(ctx context.Context, userID string) ([]models.Habit, error)
	// UpdateHabit writes user-editable fields; the streak caches are untouched.
	UpdateHabit(ctx context.Context, habit models.Habit) error
	// UpdateHabitStreaks stores recomputed caches. The stored best never
	// decreases.
	UpdateHabitStreaks(ctx context.Context, id string, current, best int) error

	// Habit logs
	// UpsertHabitLog amends the (habit, day) row, keeping the largest
	// quantity seen, and returns the stored row.
	UpsertHabitLog(ctx context.Context, log models.HabitLog) (models.HabitLog, error)
	// GetHabitLogs returns logs with from <= day <= to. Empty bounds are open.
	GetHabitLogs(ctx context.Context, habitID, from, to string) ([]models.HabitLog, error)
	CountCompletedLogs(ctx context.Context, userID string) (int, error)

	// Reminders and routines
	AddReminder(ctx context.Context, reminder models.Reminder) error
	UpdateReminder(ctx context.Context, reminder models.Reminder) error
	GetRemindersForUser(ctx context.Context, userID string) ([]models.Reminder, error)
	AddRoutine(ctx context.Context, routine models.Routine) error
	GetRoutine(ctx context.Context, id string) (models.Routine, error)
	GetRoutinesForUser(ctx context.Context, userID string) ([]models.Routine, error)

	// Tracking entries, insert-if-absent on SourceID
	AddTrackingEntry(ctx context.Context, entry models.TrackingEntry) (bool, error)
	CountTrackingEntries(ctx context.Context, userID string, kind models.TrackingKind) (int, error)

	// XP ledger and achievements, insert-if-absent
	AppendXPEvent(ctx context.Context, ev models.XPEvent) (bool, error)
	GetUserXP(ctx context.Context, userID string) (int, error)
	UnlockAchievement(ctx context.Context, unlock models.AchievementUnlock) (bool, error)
	GetUnlocks(ctx context.Context, userID string) ([]models.AchievementUnlock, error)

	ClaimStore

	// Utils
	GetConfigPath() string
}
