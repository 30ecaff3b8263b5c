package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/julianstephens/streakd/internal/activity"
	"github.com/julianstephens/streakd/internal/config"
	"github.com/julianstephens/streakd/internal/gamification"
	"github.com/julianstephens/streakd/internal/logger"
	"github.com/julianstephens/streakd/internal/metrics"
	"github.com/julianstephens/streakd/internal/storage"
	"github.com/julianstephens/streakd/internal/storage/postgres"
	"github.com/julianstephens/streakd/internal/storage/sqlite"
	"github.com/julianstephens/streakd/internal/utils"
)

type Context struct {
	Config  *config.Config
	Store   storage.Provider
	Metrics *metrics.Metrics
	// Now is the clock used for "today"; tests pin it.
	Now func() time.Time
}

// NewContext builds the store selected by cfg without opening it.
func NewContext(cfg *config.Config) (*Context, error) {
	store, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	return &Context{
		Config:  cfg,
		Store:   store,
		Metrics: metrics.New(),
		Now:     time.Now,
	}, nil
}

// OpenStore picks the backend from the database setting.
func OpenStore(cfg *config.Config) (storage.Provider, error) {
	dsn, err := cfg.DatabaseURL()
	if err != nil {
		return nil, err
	}
	if storage.IsPostgres(dsn) || strings.Contains(dsn, "host=") {
		return postgres.New(dsn), nil
	}
	return sqlite.NewStore(dsn), nil
}

// Connect loads the store. PostgreSQL is retried with exponential backoff;
// SQLite fails fast.
func (c *Context) Connect(ctx context.Context) error {
	if _, ok := c.Store.(*postgres.Store); !ok {
		return c.Store.Load()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 30 * time.Second
	return backoff.RetryNotify(c.Store.Load, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		logger.Warn("Database not ready, retrying", "error", err, "wait", wait)
	})
}

// Gamification returns an engine over the store with the default catalogue.
func (c *Context) Gamification() *gamification.Engine {
	return gamification.New(c.Store, nil, c.Config.Location(), c.Metrics)
}

// Activity returns the writer service used by the logging commands.
func (c *Context) Activity() *activity.Service {
	return activity.New(c.Store, c.Gamification(), c.Config.Location())
}

func (c *Context) clock() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// Today is the current day in the user's zone, falling back to the
// configured zone.
func (c *Context) Today(timezone string) string {
	loc, _ := utils.ResolveLocation(timezone, c.Config.Location())
	return utils.FormatDay(c.clock().In(loc))
}

// ParseWeekdays parses a comma-separated list of weekdays
func ParseWeekdays(s string) ([]time.Weekday, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	var weekdays []time.Weekday

	dayMap := map[string]time.Weekday{
		"sun":       time.Sunday,
		"sunday":    time.Sunday,
		"mon":       time.Monday,
		"monday":    time.Monday,
		"tue":       time.Tuesday,
		"tuesday":   time.Tuesday,
		"wed":       time.Wednesday,
		"wednesday": time.Wednesday,
		"thu":       time.Thursday,
		"thursday":  time.Thursday,
		"fri":       time.Friday,
		"friday":    time.Friday,
		"sat":       time.Saturday,
		"saturday":  time.Saturday,
	}

	for _, part := range parts {
		part = strings.TrimSpace(strings.ToLower(part))
		if wd, ok := dayMap[part]; ok {
			weekdays = append(weekdays, wd)
		} else {
			// Try parsing as number (0=Sunday, 6=Saturday)
			num, err := strconv.Atoi(part)
			if err == nil && num >= 0 && num <= 6 {
				weekdays = append(weekdays, time.Weekday(num))
			} else {
				return nil, fmt.Errorf("invalid weekday: %s", part)
			}
		}
	}

	return weekdays, nil
}

// FormatWeekdays is the inverse of ParseWeekdays; empty means every day.
func FormatWeekdays(days []time.Weekday) string {
	if len(days) == 0 {
		return "every day"
	}
	names := make([]string, 0, len(days))
	for _, wd := range days {
		names = append(names, strings.ToLower(wd.String()[:3]))
	}
	return strings.Join(names, ",")
}
