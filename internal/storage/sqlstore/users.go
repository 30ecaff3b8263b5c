package sqlstore

import (
	"context"
	"fmt"

	apperrors "github.com/julianstephens/streakd/internal/errors"
	"github.com/julianstephens/streakd/internal/models"
)

const userColumns = "id, name, timezone, mode, do_not_disturb, active, created_at"

func (s *Store) AddUser(ctx context.Context, user models.User) error {
	res, err := s.exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		user.ID, user.Name, user.Timezone, string(user.Mode), user.DoNotDisturb, user.Active, formatTime(user.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to add user: %w", err)
	}
	ok, err := inserted(res)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %s: %w", user.ID, apperrors.ErrDuplicate)
	}
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, user models.User) error {
	res, err := s.exec(ctx, `
		UPDATE users SET name = ?, timezone = ?, mode = ?, do_not_disturb = ?, active = ?
		WHERE id = ?`,
		user.Name, user.Timezone, string(user.Mode), user.DoNotDisturb, user.Active, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	ok, err := inserted(res)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %s: %w", user.ID, apperrors.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (models.User, error) {
	var u models.User
	var mode, createdAt string
	if err := row.Scan(&u.ID, &u.Name, &u.Timezone, &mode, &u.DoNotDisturb, &u.Active, &createdAt); err != nil {
		return models.User{}, err
	}
	u.Mode = models.Mode(mode)
	var err error
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.User{}, err
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	u, err := scanUser(s.queryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if err != nil {
		return models.User{}, notFound(err, "user", id)
	}
	return u, nil
}

func (s *Store) ListActiveUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.query(ctx, "SELECT "+userColumns+" FROM users WHERE active = ? ORDER BY id", true)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
