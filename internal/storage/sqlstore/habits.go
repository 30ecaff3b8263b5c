package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	apperrors "github.com/julianstephens/streakd/internal/errors"
	"github.com/julianstephens/streakd/internal/models"
	"github.com/julianstephens/streakd/internal/storage"
)

const habitColumns = `id, user_id, name, frequency_type, frequency_weekdays, times_per_week, kind,
	target_quantity, current_streak, best_streak, active, created_at, archived_at`

func (s *Store) AddHabit(ctx context.Context, habit models.Habit) error {
	res, err := s.exec(ctx, `
		INSERT INTO habits (`+habitColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		habit.ID, habit.UserID, habit.Name,
		string(habit.Frequency.Type), storage.EncodeWeekdays(habit.Frequency.Weekdays), habit.Frequency.TimesPerWeek,
		string(habit.Kind), habit.TargetQuantity, habit.CurrentStreak, habit.BestStreak,
		habit.Active, formatTime(habit.CreatedAt), nullTime(habit.ArchivedAt))
	if err != nil {
		return fmt.Errorf("failed to add habit: %w", err)
	}
	ok, err := inserted(res)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("habit %s: %w", habit.ID, apperrors.ErrDuplicate)
	}
	return nil
}

func (s *Store) UpdateHabit(ctx context.Context, habit models.Habit) error {
	res, err := s.exec(ctx, `
		UPDATE habits SET name = ?, frequency_type = ?, frequency_weekdays = ?, times_per_week = ?,
			kind = ?, target_quantity = ?, active = ?, archived_at = ?
		WHERE id = ?`,
		habit.Name, string(habit.Frequency.Type), storage.EncodeWeekdays(habit.Frequency.Weekdays),
		habit.Frequency.TimesPerWeek, string(habit.Kind), habit.TargetQuantity, habit.Active,
		nullTime(habit.ArchivedAt), habit.ID)
	if err != nil {
		return fmt.Errorf("failed to update habit: %w", err)
	}
	ok, err := inserted(res)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("habit %s: %w", habit.ID, apperrors.ErrNotFound)
	}
	return nil
}

func (s *Store) UpdateHabitStreaks(ctx context.Context, id string, current, best int) error {
	_, err := s.exec(ctx, fmt.Sprintf(`
		UPDATE habits SET current_streak = ?, best_streak = %s(best_streak, ?, ?)
		WHERE id = ?`, s.greatest),
		current, best, current, id)
	if err != nil {
		return fmt.Errorf("failed to update streaks for habit %s: %w", id, err)
	}
	return nil
}

func scanHabit(row scanner) (models.Habit, error) {
	var h models.Habit
	var freqType, weekdays, kind, createdAt string
	var archivedAt sql.NullString
	err := row.Scan(&h.ID, &h.UserID, &h.Name, &freqType, &weekdays, &h.Frequency.TimesPerWeek, &kind,
		&h.TargetQuantity, &h.CurrentStreak, &h.BestStreak, &h.Active, &createdAt, &archivedAt)
	if err != nil {
		return models.Habit{}, err
	}
	h.Frequency.Type = models.FrequencyType(freqType)
	h.Kind = models.HabitKind(kind)
	// A corrupt weekday list surfaces as an empty set, which fails
	// frequency validation and gets the habit skipped.
	h.Frequency.Weekdays, _ = storage.DecodeWeekdays(weekdays)
	if h.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Habit{}, fmt.Errorf("habit %s: %w", h.ID, err)
	}
	if archivedAt.Valid {
		t, err := parseTime(archivedAt.String)
		if err != nil {
			return models.Habit{}, fmt.Errorf("habit %s: %w", h.ID, err)
		}
		h.ArchivedAt = &t
	}
	return h, nil
}

func (s *Store) GetHabit(ctx context.Context, id string) (models.Habit, error) {
	h, err := scanHabit(s.queryRow(ctx, "SELECT "+habitColumns+" FROM habits WHERE id = ?", id))
	if err != nil {
		return models.Habit{}, notFound(err, "habit", id)
	}
	return h, nil
}

func (s *Store) GetHabitsForUser(ctx context.Context, userID string) ([]models.Habit, error) {
	rows, err := s.query(ctx, "SELECT "+habitColumns+" FROM habits WHERE user_id = ? ORDER BY created_at, id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var habits []models.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}
