package sqlstore

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/julianstephens/streakd/internal/errors"
	"github.com/julianstephens/streakd/internal/models"
)

const claimColumns = "user_id, kind, day, ref, state, attempts, lease_until, last_error, updated_at"

// AcquireClaim is a single upsert: a missing row is inserted as claimed,
// and an existing row is taken over only when it is retryable or its
// lease has run out. Zero affected rows means another dispatcher owns it.
func (s *Store) AcquireClaim(ctx context.Context, key models.ClaimKey, now time.Time, lease time.Duration) (models.DispatchClaim, bool, error) {
	leaseUntil := now.Add(lease).UnixMilli()
	res, err := s.exec(ctx, `
		INSERT INTO dispatch_claims (`+claimColumns+`)
		VALUES (?, ?, ?, ?, ?, 0, ?, '', ?)
		ON CONFLICT (user_id, kind, day, ref) DO UPDATE SET
			state = excluded.state,
			lease_until = excluded.lease_until,
			updated_at = excluded.updated_at
		WHERE dispatch_claims.state = ?
		   OR (dispatch_claims.state = ? AND dispatch_claims.lease_until < ?)`,
		key.UserID, string(key.Kind), key.Day, key.Ref, string(models.ClaimClaimed), leaseUntil, formatTime(now),
		string(models.ClaimRetryable), string(models.ClaimClaimed), now.UnixMilli())
	if err != nil {
		return models.DispatchClaim{}, false, fmt.Errorf("failed to acquire claim %s: %w", key, err)
	}
	won, err := inserted(res)
	if err != nil {
		return models.DispatchClaim{}, false, err
	}
	claim, err := s.GetClaim(ctx, key)
	if err != nil {
		return models.DispatchClaim{}, false, err
	}
	return claim, won, nil
}

func (s *Store) CompleteClaim(ctx context.Context, held models.DispatchClaim, now time.Time) error {
	key := held.Key
	res, err := s.exec(ctx, `
		UPDATE dispatch_claims SET state = ?, attempts = attempts + 1, last_error = '', updated_at = ?
		WHERE user_id = ? AND kind = ? AND day = ? AND ref = ? AND state = ? AND lease_until = ?`,
		string(models.ClaimDelivered), formatTime(now),
		key.UserID, string(key.Kind), key.Day, key.Ref, string(models.ClaimClaimed), held.LeaseUntil.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to complete claim %s: %w", key, err)
	}
	ok, err := inserted(res)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("claimed row %s: %w", key, apperrors.ErrNotFound)
	}
	return nil
}

func (s *Store) ReleaseClaim(ctx context.Context, held models.DispatchClaim, now time.Time, lastErr string, maxAttempts int) (models.DispatchClaim, error) {
	key := held.Key
	res, err := s.exec(ctx, `
		UPDATE dispatch_claims SET
			attempts = attempts + 1,
			state = CASE WHEN attempts + 1 >= ? THEN ? ELSE ? END,
			last_error = ?,
			updated_at = ?
		WHERE user_id = ? AND kind = ? AND day = ? AND ref = ? AND state = ? AND lease_until = ?`,
		maxAttempts, string(models.ClaimFailed), string(models.ClaimRetryable), lastErr, formatTime(now),
		key.UserID, string(key.Kind), key.Day, key.Ref, string(models.ClaimClaimed), held.LeaseUntil.UnixMilli())
	if err != nil {
		return models.DispatchClaim{}, fmt.Errorf("failed to release claim %s: %w", key, err)
	}
	ok, err := inserted(res)
	if err != nil {
		return models.DispatchClaim{}, err
	}
	if !ok {
		return models.DispatchClaim{}, fmt.Errorf("claimed row %s: %w", key, apperrors.ErrNotFound)
	}
	return s.GetClaim(ctx, key)
}

func (s *Store) GetClaim(ctx context.Context, key models.ClaimKey) (models.DispatchClaim, error) {
	row := s.queryRow(ctx, "SELECT "+claimColumns+` FROM dispatch_claims
		WHERE user_id = ? AND kind = ? AND day = ? AND ref = ?`,
		key.UserID, string(key.Kind), key.Day, key.Ref)

	var c models.DispatchClaim
	var kind, state, updatedAt string
	var leaseUntil int64
	if err := row.Scan(&c.Key.UserID, &kind, &c.Key.Day, &c.Key.Ref, &state, &c.Attempts,
		&leaseUntil, &c.LastError, &updatedAt); err != nil {
		return models.DispatchClaim{}, notFound(err, "claim", key.String())
	}
	c.Key.Kind = models.ReminderKind(kind)
	c.State = models.ClaimState(state)
	c.LeaseUntil = time.UnixMilli(leaseUntil).UTC()
	var err error
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.DispatchClaim{}, err
	}
	return c, nil
}
