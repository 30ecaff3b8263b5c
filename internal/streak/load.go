package streak

import (
	"context"
	"fmt"

	"github.com/julianstephens/streakd/internal/models"
)

// LogReader is the read access needed to rebuild a user's log snapshot.
type LogReader interface {
	GetHabitsForUser(ctx context.Context, userID string) ([]models.Habit, error)
	GetHabitLogs(ctx context.Context, habitID, from, to string) ([]models.HabitLog, error)
}

// Load reads the user's habits and their logs up to and including day.
// The returned map is keyed by habit id.
func Load(ctx context.Context, r LogReader, userID, day string) ([]models.Habit, map[string][]models.HabitLog, error) {
	habits, err := r.GetHabitsForUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load habits for %s: %w", userID, err)
	}
	logs := make(map[string][]models.HabitLog, len(habits))
	for _, h := range habits {
		hl, err := r.GetHabitLogs(ctx, h.ID, "", day)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load logs for habit %s: %w", h.ID, err)
		}
		logs[h.ID] = hl
	}
	return habits, logs, nil
}
