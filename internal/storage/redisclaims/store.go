// Package redisclaims keeps the dispatch claim table in Redis so several
// streakd daemons can share one exactly-once boundary. Each transition is
// a Lua script, which Redis runs atomically.
package redisclaims

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/julianstephens/streakd/internal/errors"
	"github.com/julianstephens/streakd/internal/models"
	"github.com/julianstephens/streakd/internal/storage"
)

var _ storage.ClaimStore = (*Store)(nil)

// DefaultTTL bounds how long a claim outlives its day.
const DefaultTTL = 72 * time.Hour

var acquireScript = redis.NewScript(`
local state = redis.call('HGET', KEYS[1], 'state')
if state and state ~= 'retryable' then
  if state ~= 'claimed' then return 0 end
  local lease = tonumber(redis.call('HGET', KEYS[1], 'lease_until'))
  if lease >= tonumber(ARGV[1]) then return 0 end
end
if not state then
  redis.call('HSET', KEYS[1], 'attempts', 0, 'last_error', '')
end
redis.call('HSET', KEYS[1], 'state', 'claimed', 'lease_until', ARGV[2], 'updated_at', ARGV[3])
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return 1
`)

var completeScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'state') ~= 'claimed' then return 0 end
if tonumber(redis.call('HGET', KEYS[1], 'lease_until')) ~= tonumber(ARGV[2]) then return 0 end
redis.call('HINCRBY', KEYS[1], 'attempts', 1)
redis.call('HSET', KEYS[1], 'state', 'delivered', 'last_error', '', 'updated_at', ARGV[1])
return 1
`)

var releaseScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'state') ~= 'claimed' then return -1 end
if tonumber(redis.call('HGET', KEYS[1], 'lease_until')) ~= tonumber(ARGV[4]) then return -1 end
local attempts = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
local state = 'retryable'
if attempts >= tonumber(ARGV[1]) then state = 'failed' end
redis.call('HSET', KEYS[1], 'state', state, 'last_error', ARGV[2], 'updated_at', ARGV[3])
return attempts
`)

type Store struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// New wraps client. Keys are namespaced under prefix.
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "streakd"
	}
	return &Store{client: client, prefix: prefix, ttl: DefaultTTL}
}

// Dial connects to addr and checks it answers.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	return client, nil
}

func (s *Store) key(k models.ClaimKey) string {
	return fmt.Sprintf("%s:claim:%s:%s:%s:%s", s.prefix, k.UserID, k.Kind, k.Day, k.Ref)
}

func (s *Store) AcquireClaim(ctx context.Context, key models.ClaimKey, now time.Time, lease time.Duration) (models.DispatchClaim, bool, error) {
	won, err := acquireScript.Run(ctx, s.client, []string{s.key(key)},
		now.UnixMilli(), now.Add(lease).UnixMilli(), now.UTC().Format(time.RFC3339Nano), s.ttl.Milliseconds()).Int()
	if err != nil {
		return models.DispatchClaim{}, false, fmt.Errorf("failed to acquire claim %s: %w", key, err)
	}
	claim, err := s.GetClaim(ctx, key)
	if err != nil {
		return models.DispatchClaim{}, false, err
	}
	return claim, won == 1, nil
}

func (s *Store) CompleteClaim(ctx context.Context, held models.DispatchClaim, now time.Time) error {
	key := held.Key
	ok, err := completeScript.Run(ctx, s.client, []string{s.key(key)},
		now.UTC().Format(time.RFC3339Nano), held.LeaseUntil.UnixMilli()).Int()
	if err != nil {
		return fmt.Errorf("failed to complete claim %s: %w", key, err)
	}
	if ok != 1 {
		return fmt.Errorf("claimed row %s: %w", key, apperrors.ErrNotFound)
	}
	return nil
}

func (s *Store) ReleaseClaim(ctx context.Context, held models.DispatchClaim, now time.Time, lastErr string, maxAttempts int) (models.DispatchClaim, error) {
	key := held.Key
	attempts, err := releaseScript.Run(ctx, s.client, []string{s.key(key)},
		maxAttempts, lastErr, now.UTC().Format(time.RFC3339Nano), held.LeaseUntil.UnixMilli()).Int()
	if err != nil {
		return models.DispatchClaim{}, fmt.Errorf("failed to release claim %s: %w", key, err)
	}
	if attempts < 0 {
		return models.DispatchClaim{}, fmt.Errorf("claimed row %s: %w", key, apperrors.ErrNotFound)
	}
	return s.GetClaim(ctx, key)
}

func (s *Store) GetClaim(ctx context.Context, key models.ClaimKey) (models.DispatchClaim, error) {
	fields, err := s.client.HGetAll(ctx, s.key(key)).Result()
	if err != nil {
		return models.DispatchClaim{}, fmt.Errorf("failed to read claim %s: %w", key, err)
	}
	if len(fields) == 0 {
		return models.DispatchClaim{}, fmt.Errorf("claim %s: %w", key, apperrors.ErrNotFound)
	}

	c := models.DispatchClaim{
		Key:       key,
		State:     models.ClaimState(fields["state"]),
		LastError: fields["last_error"],
	}
	if c.Attempts, err = strconv.Atoi(fields["attempts"]); err != nil {
		return models.DispatchClaim{}, fmt.Errorf("claim %s: bad attempts: %w", key, err)
	}
	lease, err := strconv.ParseInt(fields["lease_until"], 10, 64)
	if err != nil {
		return models.DispatchClaim{}, fmt.Errorf("claim %s: bad lease: %w", key, err)
	}
	c.LeaseUntil = time.UnixMilli(lease).UTC()
	if c.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields["updated_at"]); err != nil {
		return models.DispatchClaim{}, fmt.Errorf("claim %s: bad timestamp: %w", key, err)
	}
	return c, nil
}
