// Package scheduler drives the reminder pipeline on a cron tick: gather each
// active user's state, plan candidates and hand them to the dispatcher.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/streakd/internal/constants"
	"github.com/julianstephens/streakd/internal/dispatch"
	"github.com/julianstephens/streakd/internal/logger"
	"github.com/julianstephens/streakd/internal/metrics"
	"github.com/julianstephens/streakd/internal/models"
	"github.com/julianstephens/streakd/internal/schedule"
)

type Store interface {
	schedule.Reader
	ListActiveUsers(ctx context.Context) ([]models.User, error)
}

type Config struct {
	// Spec is a six-field cron expression (with seconds).
	Spec    string
	Workers int
}

// Report summarises one tick.
type Report struct {
	Users          int `json:"users"`
	Candidates     int `json:"candidates"`
	Delivered      int `json:"delivered"`
	AlreadyClaimed int `json:"already_claimed"`
	Failed         int `json:"failed"`
	Errors         int `json:"errors"`
}

type Runner struct {
	store   Store
	planner *schedule.Engine
	coord   *dispatch.Coordinator
	deliver dispatch.Deliverer
	cfg     Config
	metrics *metrics.Metrics
}

func New(store Store, planner *schedule.Engine, coord *dispatch.Coordinator, deliver dispatch.Deliverer, cfg Config, m *metrics.Metrics) *Runner {
	if cfg.Spec == "" {
		cfg.Spec = constants.DefaultTickSpec
	}
	if cfg.Workers < 1 {
		cfg.Workers = constants.DefaultWorkers
	}
	return &Runner{store: store, planner: planner, coord: coord, deliver: deliver, cfg: cfg, metrics: m}
}

// Plan returns every candidate due at now without dispatching anything.
// Users whose state cannot be read are logged and skipped, as in Tick.
func (r *Runner) Plan(ctx context.Context, now time.Time) ([]models.Candidate, error) {
	users, err := r.store.ListActiveUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	var out []models.Candidate
	for _, u := range users {
		in, err := schedule.Gather(ctx, r.store, u)
		if err != nil {
			logger.Error("Failed to gather user state", "user", u.ID, "error", err)
			continue
		}
		out = append(out, r.planner.Plan(in, now)...)
	}
	return out, nil
}

// Tick runs one scheduling pass. Users are processed concurrently on a
// bounded pool; a failure for one user is logged and counted without
// stopping the others.
func (r *Runner) Tick(ctx context.Context, now time.Time) (Report, error) {
	start := time.Now()
	defer func() { r.metrics.ObserveTick(time.Since(start).Seconds()) }()

	users, err := r.store.ListActiveUsers(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list users: %w", err)
	}

	var (
		mu     sync.Mutex
		report = Report{Users: len(users)}
	)
	var g errgroup.Group
	g.SetLimit(r.cfg.Workers)
	for _, u := range users {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			rep := r.tickUser(ctx, u, now)
			mu.Lock()
			report.add(rep)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return report, ctx.Err()
}

func (r *Runner) tickUser(ctx context.Context, user models.User, now time.Time) Report {
	var rep Report
	in, err := schedule.Gather(ctx, r.store, user)
	if err != nil {
		logger.Error("Failed to gather user state", "user", user.ID, "error", err)
		rep.Errors++
		return rep
	}

	for _, cand := range r.planner.Plan(in, now) {
		rep.Candidates++
		res, err := r.coord.TryDispatch(ctx, cand, r.deliver)
		if err != nil {
			logger.Error("Dispatch failed", "user", user.ID, "kind", cand.Key.Kind, "day", cand.Key.Day, "error", err)
			rep.Errors++
			continue
		}
		switch res.Outcome {
		case dispatch.Delivered:
			rep.Delivered++
		case dispatch.AlreadyClaimed:
			rep.AlreadyClaimed++
		case dispatch.Failed:
			rep.Failed++
		}
	}
	return rep
}

func (r *Report) add(o Report) {
	r.Candidates += o.Candidates
	r.Delivered += o.Delivered
	r.AlreadyClaimed += o.AlreadyClaimed
	r.Failed += o.Failed
	r.Errors += o.Errors
}

// Start ticks on the configured cron spec until ctx is done, then waits for
// running ticks to finish. Ticks may overlap; the claim table keeps
// deliveries exclusive.
func (r *Runner) Start(ctx context.Context) error {
	c := cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC), cron.WithLogger(cronLogger{}))
	_, err := c.AddFunc(r.cfg.Spec, func() {
		rep, err := r.Tick(ctx, time.Now())
		if err != nil {
			logger.Warn("Tick interrupted", "error", err)
			return
		}
		if rep.Candidates > 0 || rep.Errors > 0 {
			logger.Info("Tick complete",
				"users", rep.Users,
				"candidates", rep.Candidates,
				"delivered", rep.Delivered,
				"already_claimed", rep.AlreadyClaimed,
				"failed", rep.Failed,
				"errors", rep.Errors,
			)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid tick spec %q: %w", r.cfg.Spec, err)
	}

	logger.Info("Scheduler started", "spec", r.cfg.Spec, "workers", r.cfg.Workers)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("Scheduler stopped")
	return nil
}

// cronLogger routes cron's own messages to the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error(msg, append(keysAndValues, "error", err)...)
}
