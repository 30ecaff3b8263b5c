// Package daemon wires the scheduler, dispatcher and delivery channels
// behind the run and tick commands.
package daemon

import (
	"context"
	"fmt"

	"github.com/julianstephens/streakd/internal/cli"
	"github.com/julianstephens/streakd/internal/dispatch"
	"github.com/julianstephens/streakd/internal/logger"
	"github.com/julianstephens/streakd/internal/notifier"
	"github.com/julianstephens/streakd/internal/schedule"
	"github.com/julianstephens/streakd/internal/scheduler"
	"github.com/julianstephens/streakd/internal/storage"
	"github.com/julianstephens/streakd/internal/storage/redisclaims"
)

// pipeline owns the connections opened for one command.
type pipeline struct {
	runner  *scheduler.Runner
	closers []func() error
}

func (p *pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			logger.Warn("Failed to close connection", "error", err)
		}
	}
}

// build assembles the runner. With logOnly set every channel is replaced by
// the log channel.
func build(ctx context.Context, app *cli.Context, logOnly bool) (*pipeline, error) {
	p := &pipeline{}
	cfg := app.Config

	claims, err := claimStore(ctx, app, p)
	if err != nil {
		p.Close()
		return nil, err
	}

	deliver, err := channels(app, logOnly, p)
	if err != nil {
		p.Close()
		return nil, err
	}

	planner := schedule.New(schedule.Config{
		Window:          cfg.Schedule.Window,
		DefaultLocation: cfg.Location(),
	}, app.Metrics)
	coord := dispatch.New(claims, dispatch.Config{
		MaxAttempts:     cfg.Dispatch.MaxAttempts,
		DeliveryTimeout: cfg.Dispatch.DeliveryTimeout,
		Lease:           cfg.Dispatch.Lease,
	}, app.Metrics)
	p.runner = scheduler.New(app.Store, planner, coord, deliver, scheduler.Config{
		Spec:    cfg.Schedule.Tick,
		Workers: cfg.Schedule.Workers,
	}, app.Metrics)
	return p, nil
}

func claimStore(ctx context.Context, app *cli.Context, p *pipeline) (storage.ClaimStore, error) {
	rc := app.Config.Redis
	if rc.Addr == "" {
		return app.Store, nil
	}
	pass, err := app.Config.RedisPassword()
	if err != nil {
		return nil, err
	}
	client, err := redisclaims.Dial(ctx, rc.Addr, pass, rc.DB)
	if err != nil {
		return nil, err
	}
	p.closers = append(p.closers, client.Close)
	logger.Info("Using Redis claim table", "addr", rc.Addr)
	return redisclaims.New(client, rc.Prefix), nil
}

func channels(app *cli.Context, logOnly bool, p *pipeline) (notifier.Deliverer, error) {
	cfg := app.Config
	if logOnly {
		return notifier.Log{}, nil
	}

	var multi notifier.Multi
	if cfg.Tray {
		multi = append(multi, notifier.NewTray())
	}
	if cfg.NATS.URL != "" {
		nc, err := notifier.DialNATS(cfg.NATS.URL)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, func() error { return nc.Drain() })
		multi = append(multi, notifier.NewNATS(nc, cfg.NATS.Subject))
	}
	if len(multi) == 0 {
		logger.Warn("No delivery channel configured, reminders are only logged")
		multi = append(multi, notifier.Log{})
	}

	var out notifier.Deliverer = multi
	if len(multi) == 1 {
		out = multi[0]
	}
	if cfg.Dispatch.Rate > 0 {
		out = notifier.NewRateLimited(out, cfg.Dispatch.Rate, cfg.Dispatch.Burst)
	}
	return out, nil
}

func printReport(rep scheduler.Report) {
	fmt.Printf("users=%d candidates=%d delivered=%d already_claimed=%d failed=%d errors=%d\n",
		rep.Users, rep.Candidates, rep.Delivered, rep.AlreadyClaimed, rep.Failed, rep.Errors)
}
