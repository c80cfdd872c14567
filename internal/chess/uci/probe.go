package uci

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iammadab/chessbench/internal/domain"
)

// Probe launches the engine, runs the handshake and readiness exchange, and
// shuts the process down again.
func Probe(ctx context.Context, cfg Config, timeout time.Duration) (Identity, error) {
	s, err := Spawn(cfg)
	if err != nil {
		return Identity{}, err
	}
	defer s.Shutdown()

	id, err := s.Handshake(ctx, timeout)
	if err != nil {
		return Identity{}, err
	}
	if err := s.AwaitReady(ctx, timeout); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// Discover probes handles one by one and returns the engines that answered,
// with their declared name and author. Engines that fail are skipped.
func Discover(ctx context.Context, handles []domain.EngineHandle, timeout, grace time.Duration, logger *zap.Logger) []domain.EngineHandle {
	if logger == nil {
		logger = zap.NewNop()
	}
	ready := make([]domain.EngineHandle, 0, len(handles))
	for _, h := range handles {
		id, err := Probe(ctx, ConfigFor(h, grace, logger), timeout)
		if err != nil {
			logger.Warn("engine_probe_skip", zap.String("engine_id", h.ID), zap.String("path", h.Path), zap.Error(err))
			continue
		}
		h.Name = id.Name
		if h.Name == "" {
			h.Name = h.ID
		}
		h.Author = id.Author
		logger.Info("engine_probe_ok", zap.String("engine_id", h.ID), zap.String("name", h.Name), zap.String("author", h.Author))
		ready = append(ready, h)
	}
	return ready
}
