// Package service creates matches: it validates requests against the
// engine roster, applies the optional admission limit and runs one
// orchestrator goroutine per accepted match.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/iammadab/chessbench/internal/domain"
	"github.com/iammadab/chessbench/internal/match"
	"github.com/iammadab/chessbench/internal/metrics"
	"github.com/iammadab/chessbench/internal/registry"
	"github.com/iammadab/chessbench/internal/rules"
)

var (
	ErrInvalidBudget  = errors.New("initial_ms must be greater than zero")
	ErrBudgetTooLarge = errors.New("initial_ms is too large")
	ErrUnknownEngine  = errors.New("unknown engine id")
	ErrSameEngine     = errors.New("white and black engines must differ")
	ErrInvalidStart   = errors.New("invalid start position")
	ErrCapacity       = errors.New("match capacity reached")
	ErrNotFound       = errors.New("match not found")
	ErrClosed         = errors.New("service is shutting down")
)

const (
	archiveTimeout = 5 * time.Second

	// MaxInitialMS is the largest budget whose deadline fits in a time.Duration.
	MaxInitialMS = math.MaxInt64 / int64(time.Millisecond)
)

// Archiver records finished matches.
type Archiver interface {
	SaveResult(ctx context.Context, state domain.MatchState) error
}

type Config struct {
	MaxConcurrent    int
	HandshakeTimeout time.Duration
	ShutdownGrace    time.Duration
}

type CreateRequest struct {
	WhiteID   string
	BlackID   string
	InitialMS int64
	StartFEN  string
}

type Service struct {
	cfg      Config
	roster   []domain.EngineHandle
	byID     map[string]domain.EngineHandle
	reg      *registry.Registry
	spawn    match.SpawnFunc
	sem      *semaphore.Weighted
	metrics  *metrics.Metrics
	archiver Archiver
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }
func WithArchiver(a Archiver) Option        { return func(s *Service) { s.archiver = a } }
func WithSpawner(fn match.SpawnFunc) Option { return func(s *Service) { s.spawn = fn } }

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(cfg Config, roster []domain.EngineHandle, reg *registry.Registry, opts ...Option) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		cfg:    cfg,
		roster: append([]domain.EngineHandle(nil), roster...),
		byID:   make(map[string]domain.EngineHandle, len(roster)),
		reg:    reg,
		logger: zap.NewNop(),
		now:    time.Now,
		newID:  uuid.NewString,
		ctx:    ctx,
		cancel: cancel,
	}
	for _, h := range roster {
		s.byID[h.ID] = h
	}
	if cfg.MaxConcurrent > 0 {
		s.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.spawn == nil {
		s.spawn = match.UCISpawner(cfg.ShutdownGrace, s.logger)
	}
	return s
}

// Engines returns the resolved roster in configuration order.
func (s *Service) Engines() []domain.EngineHandle {
	return append([]domain.EngineHandle(nil), s.roster...)
}

// Create validates req, registers the running state and starts play.
func (s *Service) Create(req CreateRequest) (string, error) {
	white, black, pos, err := s.validate(req)
	if err != nil {
		s.metrics.MatchRejected("invalid")
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	if s.sem != nil && !s.sem.TryAcquire(1) {
		s.metrics.MatchRejected("capacity")
		return "", ErrCapacity
	}

	r := rules.Chess{}
	id := s.newID()
	state := domain.NewMatchState(id, r.Encode(pos), r.Turn(pos), white.ID, black.ID, req.InitialMS, s.now())
	s.reg.Insert(id, state)
	s.metrics.MatchStarted()

	orch := match.New(match.Config{
		MatchID:          id,
		White:            white,
		Black:            black,
		StartFEN:         state.StartFEN,
		InitialMS:        req.InitialMS,
		HandshakeTimeout: s.cfg.HandshakeTimeout,
	}, s.reg, s.spawn,
		match.WithLogger(s.logger),
		match.WithHooks(match.Hooks{
			OnPly:    func(domain.MoveRecord) { s.metrics.PlyApplied() },
			OnFinish: s.finished,
		}),
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if s.sem != nil {
			defer s.sem.Release(1)
		}
		orch.Run(s.ctx)
	}()
	return id, nil
}

func (s *Service) validate(req CreateRequest) (domain.EngineHandle, domain.EngineHandle, rules.Position, error) {
	var none domain.EngineHandle
	if req.InitialMS <= 0 {
		return none, none, rules.Position{}, ErrInvalidBudget
	}
	if req.InitialMS > MaxInitialMS {
		return none, none, rules.Position{}, fmt.Errorf("%w: at most %d", ErrBudgetTooLarge, MaxInitialMS)
	}
	whiteID, blackID := strings.TrimSpace(req.WhiteID), strings.TrimSpace(req.BlackID)
	white, ok := s.byID[whiteID]
	if !ok {
		return none, none, rules.Position{}, fmt.Errorf("%w: %q", ErrUnknownEngine, whiteID)
	}
	black, ok := s.byID[blackID]
	if !ok {
		return none, none, rules.Position{}, fmt.Errorf("%w: %q", ErrUnknownEngine, blackID)
	}
	if whiteID == blackID {
		return none, none, rules.Position{}, ErrSameEngine
	}
	pos, err := rules.Chess{}.Start(req.StartFEN)
	if err != nil {
		return none, none, rules.Position{}, fmt.Errorf("%w: %v", ErrInvalidStart, err)
	}
	return white, black, pos, nil
}

func (s *Service) finished(state domain.MatchState) {
	s.metrics.MatchFinished(state)
	if s.archiver == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	if err := s.archiver.SaveResult(ctx, state); err != nil {
		s.logger.Warn("match_archive_failed", zap.String("match_id", state.MatchID), zap.Error(err))
	}
}

func (s *Service) Get(id string) (domain.MatchState, error) {
	state, ok := s.reg.Snapshot(id)
	if !ok {
		return domain.MatchState{}, ErrNotFound
	}
	return state, nil
}

// Snapshot lets the service act as a feed source.
func (s *Service) Snapshot(id string) (domain.MatchState, bool) { return s.reg.Snapshot(id) }

func (s *Service) List() []domain.MatchState { return s.reg.List() }

// Close stops accepting matches, cancels running ones and waits for their
// orchestrators to record a terminal state or for ctx to end.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
