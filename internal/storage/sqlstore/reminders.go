package sqlstore

import (
	"context"
	"fmt"

	apperrors "github.com/julianstephens/streakd/internal/errors"
	"github.com/julianstephens/streakd/internal/models"
	"github.com/julianstephens/streakd/internal/storage"
)

const reminderColumns = "id, user_id, kind, time, weekdays, enabled, linked_routine_id, message, ignore_mode, created_at"

func (s *Store) AddReminder(ctx context.Context, r models.Reminder) error {
	res, err := s.exec(ctx, `
		INSERT INTO reminders (`+reminderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		r.ID, r.UserID, string(r.Kind), r.Time, storage.EncodeWeekdays(r.Weekdays), r.Enabled,
		r.LinkedRoutineID, r.Message, r.IgnoreMode, formatTime(r.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to add reminder: %w", err)
	}
	ok, err := inserted(res)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("reminder %s: %w", r.ID, apperrors.ErrDuplicate)
	}
	return nil
}

func (s *Store) UpdateReminder(ctx context.Context, r models.Reminder) error {
	res, err := s.exec(ctx, `
		UPDATE reminders SET kind = ?, time = ?, weekdays = ?, enabled = ?, linked_routine_id = ?,
			message = ?, ignore_mode = ?
		WHERE id = ?`,
		string(r.Kind), r.Time, storage.EncodeWeekdays(r.Weekdays), r.Enabled, r.LinkedRoutineID,
		r.Message, r.IgnoreMode, r.ID)
	if err != nil {
		return fmt.Errorf("failed to update reminder: %w", err)
	}
	ok, err := inserted(res)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("reminder %s: %w", r.ID, apperrors.ErrNotFound)
	}
	return nil
}

func (s *Store) GetRemindersForUser(ctx context.Context, userID string) ([]models.Reminder, error) {
	rows, err := s.query(ctx, "SELECT "+reminderColumns+" FROM reminders WHERE user_id = ? ORDER BY time, id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []models.Reminder
	for rows.Next() {
		var r models.Reminder
		var kind, weekdays, createdAt string
		if err := rows.Scan(&r.ID, &r.UserID, &kind, &r.Time, &weekdays, &r.Enabled,
			&r.LinkedRoutineID, &r.Message, &r.IgnoreMode, &createdAt); err != nil {
			return nil, err
		}
		r.Kind = models.ReminderKind(kind)
		if r.Weekdays, err = storage.DecodeWeekdays(weekdays); err != nil {
			return nil, fmt.Errorf("reminder %s: %w", r.ID, err)
		}
		if r.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("reminder %s: %w", r.ID, err)
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

func (s *Store) AddRoutine(ctx context.Context, r models.Routine) error {
	res, err := s.exec(ctx, `
		INSERT INTO routines (id, user_id, name, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		r.ID, r.UserID, r.Name, formatTime(r.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to add routine: %w", err)
	}
	ok, err := inserted(res)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("routine %s: %w", r.ID, apperrors.ErrDuplicate)
	}
	return nil
}

func scanRoutine(row scanner) (models.Routine, error) {
	var r models.Routine
	var createdAt string
	if err := row.Scan(&r.ID, &r.UserID, &r.Name, &createdAt); err != nil {
		return models.Routine{}, err
	}
	var err error
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Routine{}, err
	}
	return r, nil
}

func (s *Store) GetRoutine(ctx context.Context, id string) (models.Routine, error) {
	r, err := scanRoutine(s.queryRow(ctx, "SELECT id, user_id, name, created_at FROM routines WHERE id = ?", id))
	if err != nil {
		return models.Routine{}, notFound(err, "routine", id)
	}
	return r, nil
}

func (s *Store) GetRoutinesForUser(ctx context.Context, userID string) ([]models.Routine, error) {
	rows, err := s.query(ctx, "SELECT id, user_id, name, created_at FROM routines WHERE user_id = ? ORDER BY name", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routines []models.Routine
	for rows.Next() {
		r, err := scanRoutine(rows)
		if err != nil {
			return nil, err
		}
		routines = append(routines, r)
	}
	return routines, rows.Err()
}
