package constants

import "time"

const (
	AppName            = "streakd"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/streakd/config.yaml"
	DefaultDBPath      = "~/.config/streakd/streakd.db"
	Version            = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// Environment overrides
	EnvDBConnection = "STREAKD_DB_CONNECTION"
	EnvNATSURL      = "STREAKD_NATS_URL"
	EnvRedisAddr    = "STREAKD_REDIS_ADDR"
	EnvRedisPass    = "STREAKD_REDIS_PASSWORD"

	// KeyringValue in a secret field selects the OS keyring
	KeyringValue = "keyring"

	// Notify constants
	NotifierLockfileName   = "streakd-notifier.lock"
	NotificationDurationMs = 5000
	TrayAppIdentifier      = "com.julianstephens.streakd"
	TrayProcessPrefix      = "streakd-tray"
)

const (
	// Scheduling defaults
	DefaultTimezone      = "UTC"
	DefaultTickSpec      = "0 * * * * *" // second 0 of every minute
	DefaultTriggerWindow = 10 * time.Minute
	DefaultWorkers       = 8

	// Dispatch defaults
	DefaultMaxAttempts     = 3
	DefaultDeliveryTimeout = 30 * time.Second
	DefaultClaimLease      = 5 * time.Minute
	DefaultDeliveryRate    = 20 // deliveries per second, 0 disables throttling

	DefaultNATSSubject = "streakd.reminders"

	// SQLite backups
	DefaultMaxBackups = 14
	BackupDirName     = "backups"
)

// Nominal trigger times used when a reminder has no explicit time of day.
const (
	NominalMorning       = "07:00"
	NominalMidday        = "13:00"
	NominalEvening       = "20:00"
	NominalNight         = "22:00"
	NominalSummary       = "23:00"
	NominalWeeklySummary = "23:00"
)
