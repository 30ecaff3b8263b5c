package daemon

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julianstephens/streakd/internal/cli"
	"github.com/julianstephens/streakd/internal/logger"
)

type RunCmd struct {
	LogOnly     bool   `help:"Deliver to the log instead of the configured channels."`
	MetricsAddr string `help:"Serve Prometheus metrics on this address (overrides metrics_addr)." default:""`
}

func (c *RunCmd) Run(ctx *cli.Context) error {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := build(sigCtx, ctx, c.LogOnly)
	if err != nil {
		return err
	}
	defer p.Close()

	addr := c.MetricsAddr
	if addr == "" {
		addr = ctx.Config.MetricsAddr
	}
	if addr != "" {
		srv := serveMetrics(ctx, addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	return p.runner.Start(sigCtx)
}

func serveMetrics(ctx *cli.Context, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", ctx.Metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "error", err)
		}
	}()
	return srv
}
