package system

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/julianstephens/streakd/internal/cli"
	"github.com/julianstephens/streakd/internal/keyring"
	"github.com/julianstephens/streakd/internal/storage"
	"github.com/julianstephens/streakd/internal/storage/postgres"
)

type KeyringCmd struct {
	Set      KeyringSetCmd      `cmd:"" help:"Store the database connection string."`
	SetRedis KeyringSetRedisCmd `cmd:"" name:"set-redis" help:"Store the Redis password."`
	Get      KeyringGetCmd      `cmd:"" help:"Show the stored connection string with the password masked."`
	Delete   KeyringDeleteCmd   `cmd:"" help:"Remove the stored connection string."`
	Status   KeyringStatusCmd   `cmd:"" help:"Check keyring availability."`
}

// KeyringSetCmd stores database connection credentials in the OS keyring
type KeyringSetCmd struct {
	ConnectionString string `arg:"" help:"PostgreSQL connection string to store in keyring"`
}

func (cmd *KeyringSetCmd) Run(ctx *cli.Context) error {
	if !storage.IsPostgres(cmd.ConnectionString) && !strings.Contains(cmd.ConnectionString, "host=") {
		return errors.New("connection string must be a valid PostgreSQL connection string")
	}

	if err := postgres.ValidateConnString(cmd.ConnectionString); err != nil {
		if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
			return fmt.Errorf("invalid connection string: %w", err)
		}
		// Embedded credentials are accepted in the keyring
		fmt.Println("⚠️  Warning: Connection string contains embedded credentials.")
		fmt.Println("   It will be stored as-is in the encrypted OS keyring.")
	}

	if err := keyring.SetConnectionString(cmd.ConnectionString); err != nil {
		return fmt.Errorf("failed to store connection string in keyring: %w", err)
	}

	fmt.Println("✓ Connection string stored successfully in OS keyring")
	fmt.Println("  Set 'database: keyring' in the config file to use it")
	return nil
}

type KeyringSetRedisCmd struct {
	Password string `arg:"" help:"Redis password."`
}

func (cmd *KeyringSetRedisCmd) Run(ctx *cli.Context) error {
	if err := keyring.Set(keyring.ItemRedisPassword, cmd.Password); err != nil {
		return err
	}
	fmt.Println("✓ Redis password stored successfully in OS keyring")
	fmt.Println("  Set 'redis.password: keyring' in the config file to use it")
	return nil
}

// KeyringGetCmd retrieves database connection credentials from the OS keyring
type KeyringGetCmd struct{}

func (cmd *KeyringGetCmd) Run(ctx *cli.Context) error {
	connStr, err := keyring.GetConnectionString()
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no connection string found in keyring. Use 'streakd keyring set' to store one")
		}
		return fmt.Errorf("failed to retrieve connection string from keyring: %w", err)
	}

	fmt.Println("Connection string retrieved from keyring:")
	fmt.Println(maskPassword(connStr))
	return nil
}

// KeyringDeleteCmd removes database connection credentials from the OS keyring
type KeyringDeleteCmd struct{}

func (cmd *KeyringDeleteCmd) Run(ctx *cli.Context) error {
	if err := keyring.Delete(keyring.ItemDatabase); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no connection string found in keyring")
		}
		return fmt.Errorf("failed to delete connection string from keyring: %w", err)
	}

	fmt.Println("✓ Connection string deleted from OS keyring")
	return nil
}

// KeyringStatusCmd checks the availability of the OS keyring
type KeyringStatusCmd struct{}

func (cmd *KeyringStatusCmd) Run(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		fmt.Println("❌ OS keyring is not available on this system")
		return errors.New("keyring unavailable")
	}
	fmt.Println("✓ OS keyring is available")

	for _, item := range []string{keyring.ItemDatabase, keyring.ItemRedisPassword} {
		_, err := keyring.Get(item)
		switch {
		case err == nil:
			fmt.Printf("✓ %s is stored in keyring\n", item)
		case errors.Is(err, keyring.ErrNotFound):
			fmt.Printf("ℹ No %s stored in keyring\n", item)
		default:
			fmt.Printf("❌ %s: %v\n", item, err)
		}
	}
	return nil
}

// maskPassword masks passwords in connection strings for display
func maskPassword(connStr string) string {
	if storage.IsPostgres(connStr) {
		if u, err := url.Parse(connStr); err == nil {
			return u.Redacted()
		}
		return connStr
	}

	if !strings.Contains(connStr, "password=") {
		return connStr
	}
	parts := strings.Fields(connStr)
	for i, part := range parts {
		if strings.HasPrefix(part, "password=") {
			parts[i] = "password=****"
		}
	}
	return strings.Join(parts, " ")
}
