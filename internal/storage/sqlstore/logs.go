package sqlstore

import (
	"context"
	"fmt"

	"github.com/julianstephens/streakd/internal/models"
)

func (s *Store) UpsertHabitLog(ctx context.Context, log models.HabitLog) (models.HabitLog, error) {
	_, err := s.exec(ctx, fmt.Sprintf(`
		INSERT INTO habit_logs (habit_id, user_id, day, completed, quantity_logged, note, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (habit_id, day) DO UPDATE SET
			completed = excluded.completed,
			quantity_logged = %s(habit_logs.quantity_logged, excluded.quantity_logged),
			note = CASE WHEN excluded.note = '' THEN habit_logs.note ELSE excluded.note END,
			updated_at = excluded.updated_at`, s.greatest),
		log.HabitID, log.UserID, log.Day, log.Completed, log.QuantityLogged, log.Note, formatTime(log.UpdatedAt))
	if err != nil {
		return models.HabitLog{}, fmt.Errorf("failed to upsert log for habit %s on %s: %w", log.HabitID, log.Day, err)
	}

	row := s.queryRow(ctx, `
		SELECT habit_id, user_id, day, completed, quantity_logged, note, updated_at
		FROM habit_logs WHERE habit_id = ? AND day = ?`, log.HabitID, log.Day)
	stored, err := scanLog(row)
	if err != nil {
		return models.HabitLog{}, notFound(err, "habit log", log.HabitID+"/"+log.Day)
	}
	return stored, nil
}

func scanLog(row scanner) (models.HabitLog, error) {
	var l models.HabitLog
	var updatedAt string
	if err := row.Scan(&l.HabitID, &l.UserID, &l.Day, &l.Completed, &l.QuantityLogged, &l.Note, &updatedAt); err != nil {
		return models.HabitLog{}, err
	}
	var err error
	if l.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.HabitLog{}, err
	}
	return l, nil
}

func (s *Store) GetHabitLogs(ctx context.Context, habitID, from, to string) ([]models.HabitLog, error) {
	query := `SELECT habit_id, user_id, day, completed, quantity_logged, note, updated_at
		FROM habit_logs WHERE habit_id = ?`
	args := []any{habitID}
	if from != "" {
		query += " AND day >= ?"
		args = append(args, from)
	}
	if to != "" {
		query += " AND day <= ?"
		args = append(args, to)
	}
	query += " ORDER BY day"

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.HabitLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// CountCompletedLogs counts satisfied (habit, day) rows across the user's
// habits: completed booleans and quantity logs at or above target.
func (s *Store) CountCompletedLogs(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.queryRow(ctx, `
		SELECT COUNT(*) FROM habit_logs l
		JOIN habits h ON h.id = l.habit_id
		WHERE l.user_id = ?
		  AND ((h.kind = 'boolean' AND l.completed = ?)
		    OR (h.kind = 'quantity' AND l.quantity_logged >= h.target_quantity))`,
		userID, true).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count completions: %w", err)
	}
	return n, nil
}
