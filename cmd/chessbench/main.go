package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/iammadab/chessbench/internal/benchbuilder"
	appcfg "github.com/iammadab/chessbench/internal/config"
	"github.com/iammadab/chessbench/internal/httpapi"
	"github.com/iammadab/chessbench/internal/obslog"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	cfg.BindFlags(pflag.CommandLine)
	pflag.Parse()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := obslog.Init(cfg.LogOptions())
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := benchbuilder.New(ctx, cfg, obslog.Component("bench"))
	if err != nil {
		logger.Fatal("bench_init_failed", zap.Error(err))
	}

	api := httpapi.New(deps.Service,
		httpapi.WithLogger(obslog.Component("http")),
		httpapi.WithMetrics(deps.Metrics),
		httpapi.WithStreamInterval(cfg.StreamInterval),
	)
	srv := &http.Server{
		Addr:              cfg.Bind,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http_listen", zap.String("addr", cfg.Bind))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown_signal")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_serve_failed", zap.Error(err))
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// Running matches end as errored; close them before the listener so feeds see the result.
	if err := deps.Close(sctx); err != nil {
		logger.Warn("bench_close_incomplete", zap.Error(err))
	}
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warn("http_shutdown_incomplete", zap.Error(err))
	}
	logger.Info("shutdown_complete")
}
