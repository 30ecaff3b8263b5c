package sqlstore

import (
	"context"
	"fmt"

	"github.com/julianstephens/streakd/internal/models"
)

func (s *Store) AddTrackingEntry(ctx context.Context, e models.TrackingEntry) (bool, error) {
	res, err := s.exec(ctx, `
		INSERT INTO tracking_entries (id, user_id, kind, day, quantity, source_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_id) DO NOTHING`,
		e.ID, e.UserID, string(e.Kind), e.Day, e.Quantity, e.SourceID, formatTime(e.CreatedAt))
	if err != nil {
		return false, fmt.Errorf("failed to add tracking entry: %w", err)
	}
	return inserted(res)
}

func (s *Store) CountTrackingEntries(ctx context.Context, userID string, kind models.TrackingKind) (int, error) {
	var n int
	err := s.queryRow(ctx, "SELECT COUNT(*) FROM tracking_entries WHERE user_id = ? AND kind = ?",
		userID, string(kind)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count tracking entries: %w", err)
	}
	return n, nil
}

func (s *Store) AppendXPEvent(ctx context.Context, ev models.XPEvent) (bool, error) {
	res, err := s.exec(ctx, `
		INSERT INTO xp_events (user_id, source_id, kind, amount, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, source_id) DO NOTHING`,
		ev.UserID, ev.SourceID, string(ev.Kind), ev.Amount, formatTime(ev.CreatedAt))
	if err != nil {
		return false, fmt.Errorf("failed to append xp event: %w", err)
	}
	return inserted(res)
}

func (s *Store) GetUserXP(ctx context.Context, userID string) (int, error) {
	var xp int
	err := s.queryRow(ctx, "SELECT COALESCE(SUM(amount), 0) FROM xp_events WHERE user_id = ?", userID).Scan(&xp)
	if err != nil {
		return 0, fmt.Errorf("failed to sum xp: %w", err)
	}
	return xp, nil
}

func (s *Store) UnlockAchievement(ctx context.Context, u models.AchievementUnlock) (bool, error) {
	res, err := s.exec(ctx, `
		INSERT INTO achievement_unlocks (user_id, achievement_id, unlocked_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, achievement_id) DO NOTHING`,
		u.UserID, u.AchievementID, formatTime(u.UnlockedAt))
	if err != nil {
		return false, fmt.Errorf("failed to unlock achievement: %w", err)
	}
	return inserted(res)
}

func (s *Store) GetUnlocks(ctx context.Context, userID string) ([]models.AchievementUnlock, error) {
	rows, err := s.query(ctx, `
		SELECT user_id, achievement_id, unlocked_at FROM achievement_unlocks
		WHERE user_id = ? ORDER BY unlocked_at, achievement_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var unlocks []models.AchievementUnlock
	for rows.Next() {
		var u models.AchievementUnlock
		var unlockedAt string
		if err := rows.Scan(&u.UserID, &u.AchievementID, &unlockedAt); err != nil {
			return nil, err
		}
		if u.UnlockedAt, err = parseTime(unlockedAt); err != nil {
			return nil, err
		}
		unlocks = append(unlocks, u)
	}
	return unlocks, rows.Err()
}
