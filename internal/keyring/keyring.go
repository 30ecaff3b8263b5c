package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/streakd/internal/constants"
)

var (
	// ErrNotFound is returned when no secret is stored under the item
	ErrNotFound = errors.New("credentials not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// Items stored under the streakd service.
const (
	ItemDatabase      = constants.DefaultKeyringUser
	ItemRedisPassword = "redis-password"
)

// Get retrieves a secret from the OS keyring.
func Get(item string) (string, error) {
	secret, err := keyring.Get(constants.AppName, item)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return secret, nil
}

// Set stores a secret in the OS keyring.
func Set(item, secret string) error {
	if secret == "" {
		return fmt.Errorf("%s cannot be empty", item)
	}
	if err := keyring.Set(constants.AppName, item, secret); err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", item, err)
	}
	return nil
}

// Delete removes a secret from the OS keyring.
func Delete(item string) error {
	if err := keyring.Delete(constants.AppName, item); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", item, err)
	}
	return nil
}

// GetConnectionString retrieves the database connection string.
func GetConnectionString() (string, error) {
	return Get(ItemDatabase)
}

// SetConnectionString stores the database connection string.
func SetConnectionString(connStr string) error {
	return Set(ItemDatabase, connStr)
}

// IsAvailable is a best-effort probe of the OS keyring.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
