// Package benchbuilder assembles the server's dependencies from configuration.
package benchbuilder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iammadab/chessbench/internal/archive"
	"github.com/iammadab/chessbench/internal/chess/uci"
	"github.com/iammadab/chessbench/internal/config"
	"github.com/iammadab/chessbench/internal/domain"
	"github.com/iammadab/chessbench/internal/metrics"
	"github.com/iammadab/chessbench/internal/registry"
	"github.com/iammadab/chessbench/internal/service"
)

var ErrNoEngines = errors.New("no engine in the roster answered the UCI handshake")

const schemaTimeout = 10 * time.Second

type Deps struct {
	Service  *service.Service
	Registry *registry.Registry
	Metrics  *metrics.Metrics
	Engines  []domain.EngineHandle
	Mirror   *archive.Mirror
	Repo     *archive.Repository
}

func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	roster, err := config.LoadRoster(cfg.EnginesFile)
	if err != nil {
		return nil, err
	}
	engines := uci.Discover(ctx, roster, cfg.HandshakeTimeout, cfg.ShutdownGrace, logger)
	if len(engines) == 0 {
		return nil, ErrNoEngines
	}

	deps := &Deps{Metrics: metrics.New(), Engines: engines}

	// Snapshot mirror (Redis optional)
	var observers []registry.Observer
	if cfg.RedisURL != "" {
		deps.Mirror, err = archive.NewMirror(cfg.RedisURL, cfg.SnapshotTTL, logger)
		if err != nil {
			return nil, fmt.Errorf("init snapshot mirror: %w", err)
		}
		observers = append(observers, deps.Mirror.Observe)
	}
	deps.Registry = registry.New(observers...)

	opts := []service.Option{service.WithLogger(logger), service.WithMetrics(deps.Metrics)}

	// Result archive (Postgres optional)
	if cfg.DatabaseURL != "" {
		deps.Repo, err = archive.NewRepository(cfg.DatabaseURL)
		if err != nil {
			deps.closeStores()
			return nil, fmt.Errorf("init result archive: %w", err)
		}
		sctx, cancel := context.WithTimeout(ctx, schemaTimeout)
		err = deps.Repo.EnsureSchema(sctx)
		cancel()
		if err != nil {
			deps.closeStores()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		opts = append(opts, service.WithArchiver(deps.Repo))
	}

	deps.Service = service.New(service.Config{
		MaxConcurrent:    cfg.MaxConcurrentMatches,
		HandshakeTimeout: cfg.HandshakeTimeout,
		ShutdownGrace:    cfg.ShutdownGrace,
	}, engines, deps.Registry, opts...)

	logger.Info("bench_ready",
		zap.Int("engines", len(engines)),
		zap.Int("roster", len(roster)),
		zap.Bool("snapshot_mirror", deps.Mirror != nil),
		zap.Bool("result_archive", deps.Repo != nil),
		zap.Int("max_concurrent", cfg.MaxConcurrentMatches),
	)
	return deps, nil
}

// Close stops the service and then releases the stores it writes to.
func (d *Deps) Close(ctx context.Context) error {
	var err error
	if d.Service != nil {
		err = d.Service.Close(ctx)
	}
	return errors.Join(err, d.closeStores())
}

func (d *Deps) closeStores() error {
	var errs []error
	if d.Mirror != nil {
		errs = append(errs, d.Mirror.Close())
	}
	if d.Repo != nil {
		errs = append(errs, d.Repo.Close())
	}
	return errors.Join(errs...)
}
