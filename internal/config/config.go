// Package config loads streakd's YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/streakd/internal/constants"
	"github.com/julianstephens/streakd/internal/keyring"
	"github.com/julianstephens/streakd/internal/storage"
	"github.com/julianstephens/streakd/internal/utils"
)

type Config struct {
	// Database is a SQLite path, a PostgreSQL URL without a password, or
	// "keyring" to read the connection string from the OS keyring.
	Database string `yaml:"database"`
	// Timezone is the fallback zone for users whose zone fails to load.
	Timezone    string `yaml:"timezone"`
	MetricsAddr string `yaml:"metrics_addr"`

	Schedule Schedule `yaml:"schedule"`
	Dispatch Dispatch `yaml:"dispatch"`
	Redis    Redis    `yaml:"redis"`
	NATS     NATS     `yaml:"nats"`
	Tray     bool     `yaml:"tray"`
	Log      Log      `yaml:"log"`
	// Backups is how many SQLite backups to keep.
	Backups int `yaml:"backups"`
}

type Schedule struct {
	Tick    string        `yaml:"tick"`
	Window  time.Duration `yaml:"window"`
	Workers int           `yaml:"workers"`
}

type Dispatch struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	DeliveryTimeout time.Duration `yaml:"delivery_timeout"`
	Lease           time.Duration `yaml:"lease"`
	// Rate caps deliveries per second across channels; 0 disables it.
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

// Redis moves the claim table out of the database when Addr is set.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type NATS struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type Log struct {
	Dir   string `yaml:"dir"`
	Debug bool   `yaml:"debug"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Database: constants.DefaultDBPath,
		Timezone: constants.DefaultTimezone,
		Schedule: Schedule{
			Tick:    constants.DefaultTickSpec,
			Window:  constants.DefaultTriggerWindow,
			Workers: constants.DefaultWorkers,
		},
		Dispatch: Dispatch{
			MaxAttempts:     constants.DefaultMaxAttempts,
			DeliveryTimeout: constants.DefaultDeliveryTimeout,
			Lease:           constants.DefaultClaimLease,
			Rate:            constants.DefaultDeliveryRate,
			Burst:           constants.DefaultDeliveryRate,
		},
		Redis:   Redis{Prefix: constants.AppName},
		NATS:    NATS{Subject: constants.DefaultNATSSubject},
		Log:     Log{Dir: "~/.config/streakd/logs"},
		Backups: constants.DefaultMaxBackups,
	}
}

// Load reads path over the defaults. A missing file is not an error.
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(ExpandPath(path))
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := cfg.decode(data); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(constants.EnvDBConnection); v != "" {
		c.Database = v
	}
	if v := os.Getenv(constants.EnvNATSURL); v != "" {
		c.NATS.URL = v
	}
	if v := os.Getenv(constants.EnvRedisAddr); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv(constants.EnvRedisPass); v != "" {
		c.Redis.Password = v
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Database == "" {
		errs = append(errs, errors.New("database cannot be empty"))
	}
	if storage.IsPostgres(c.Database) && storage.HasEmbeddedCredentials(c.Database) {
		errs = append(errs, errors.New("database connection strings must not embed a password; use the keyring, .pgpass or "+constants.EnvDBConnection))
	}
	if !utils.ValidateTimezone(c.Timezone) {
		errs = append(errs, fmt.Errorf("invalid timezone %q", c.Timezone))
	}
	if c.Schedule.Window <= 0 {
		errs = append(errs, errors.New("schedule.window must be positive"))
	}
	if c.Schedule.Workers < 1 {
		errs = append(errs, errors.New("schedule.workers must be at least 1"))
	}
	if c.Dispatch.MaxAttempts < 1 {
		errs = append(errs, errors.New("dispatch.max_attempts must be at least 1"))
	}
	if c.Dispatch.DeliveryTimeout <= 0 {
		errs = append(errs, errors.New("dispatch.delivery_timeout must be positive"))
	}
	if c.Dispatch.Lease <= c.Dispatch.DeliveryTimeout {
		errs = append(errs, errors.New("dispatch.lease must exceed dispatch.delivery_timeout"))
	}
	if c.Dispatch.Rate < 0 {
		errs = append(errs, errors.New("dispatch.rate cannot be negative"))
	}
	if c.Backups < 1 {
		errs = append(errs, errors.New("backups must be at least 1"))
	}
	return errors.Join(errs...)
}

// Location returns the fallback zone.
func (c *Config) Location() *time.Location {
	loc, err := utils.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DatabaseURL resolves the keyring indirection and expands "~" in SQLite
// paths.
func (c *Config) DatabaseURL() (string, error) {
	db := c.Database
	if db == constants.KeyringValue {
		connStr, err := keyring.GetConnectionString()
		if err != nil {
			return "", fmt.Errorf("failed to read database connection from keyring: %w", err)
		}
		db = connStr
	}
	if storage.IsPostgres(db) {
		return db, nil
	}
	return ExpandPath(db), nil
}

// RedisPassword resolves the keyring indirection for the Redis password.
func (c *Config) RedisPassword() (string, error) {
	if c.Redis.Password != constants.KeyringValue {
		return c.Redis.Password, nil
	}
	pass, err := keyring.Get(keyring.ItemRedisPassword)
	if err != nil {
		return "", fmt.Errorf("failed to read redis password from keyring: %w", err)
	}
	return pass, nil
}

// ExpandPath replaces a leading "~" with the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
