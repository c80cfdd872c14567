// Package match runs a single engine-vs-engine game: it alternates two UCI
// sessions, charges their clocks, applies their moves and decides how the
// game ends. Every run ends with exactly one terminal state written to the
// store.
package match

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/iammadab/chessbench/internal/chess/uci"
	"github.com/iammadab/chessbench/internal/domain"
	"github.com/iammadab/chessbench/internal/rules"
)

const (
	defaultHandshakeTimeout = 10 * time.Second

	maxDeadlineMS = math.MaxInt64 / int64(time.Millisecond)
)

var errNoMoveInLivePosition = errors.New("engine reported no move but the position is not terminal")

// Engine is the protocol surface used by the orchestrator. *uci.Session implements it.
type Engine interface {
	Handshake(ctx context.Context, timeout time.Duration) (uci.Identity, error)
	AwaitReady(ctx context.Context, timeout time.Duration) error
	NewGame() error
	SendPosition(fen string) error
	RequestMove(ctx context.Context, clock domain.Clock, deadline time.Duration) (string, error)
	Shutdown()
}

// SpawnFunc starts a fresh engine process for a handle.
type SpawnFunc func(h domain.EngineHandle) (Engine, error)

// Store receives state writes. *registry.Registry implements it.
type Store interface {
	Update(id string, fn func(*domain.MatchState)) bool
}

// UCISpawner launches real engine processes.
func UCISpawner(grace time.Duration, logger *zap.Logger) SpawnFunc {
	return func(h domain.EngineHandle) (Engine, error) {
		s, err := uci.Spawn(uci.ConfigFor(h, grace, logger))
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

type Config struct {
	MatchID          string
	White            domain.EngineHandle
	Black            domain.EngineHandle
	StartFEN         string
	InitialMS        int64
	HandshakeTimeout time.Duration
}

// Hooks are optional callbacks invoked from the match goroutine.
type Hooks struct {
	OnPly    func(rec domain.MoveRecord)
	OnFinish func(state domain.MatchState)
}

type Orchestrator struct {
	cfg    Config
	store  Store
	spawn  SpawnFunc
	rules  rules.Chess
	hooks  Hooks
	logger *zap.Logger
	now    func() time.Time

	terminated bool
}

type Option func(*Orchestrator)

func WithHooks(h Hooks) Option { return func(o *Orchestrator) { o.hooks = h } }

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock replaces the wall clock used to measure engine think time.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

func New(cfg Config, store Store, spawn SpawnFunc, opts ...Option) *Orchestrator {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	o := &Orchestrator{
		cfg:    cfg,
		store:  store,
		spawn:  spawn,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With(zap.String("match_id", cfg.MatchID))
	return o
}

// Run plays the game to completion. It never returns an error: every failure
// is recorded as a terminal state in the store.
func (o *Orchestrator) Run(ctx context.Context) {
	o.logger.Info("match_start",
		zap.String("white", o.cfg.White.ID),
		zap.String("black", o.cfg.Black.ID),
		zap.Int64("initial_ms", o.cfg.InitialMS),
	)

	engines := make(map[domain.Side]Engine, 2)
	defer func() {
		for _, e := range engines {
			e.Shutdown()
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			o.fail(fmt.Errorf("match panic: %v", r), nil)
		}
	}()

	if err := o.setup(ctx, engines); err != nil {
		o.fail(err, nil)
		return
	}
	o.play(ctx, engines)
}

func (o *Orchestrator) setup(ctx context.Context, engines map[domain.Side]Engine) error {
	handles := map[domain.Side]domain.EngineHandle{domain.White: o.cfg.White, domain.Black: o.cfg.Black}
	for _, side := range []domain.Side{domain.White, domain.Black} {
		e, err := o.spawn(handles[side])
		if err != nil {
			return fmt.Errorf("spawn %s engine %s: %w", side, handles[side].ID, err)
		}
		engines[side] = e
	}
	for _, side := range []domain.Side{domain.White, domain.Black} {
		e := engines[side]
		if _, err := e.Handshake(ctx, o.cfg.HandshakeTimeout); err != nil {
			return fmt.Errorf("%s engine handshake: %w", side, err)
		}
		if err := e.AwaitReady(ctx, o.cfg.HandshakeTimeout); err != nil {
			return fmt.Errorf("%s engine readiness: %w", side, err)
		}
		if err := e.NewGame(); err != nil {
			return fmt.Errorf("%s engine new game: %w", side, err)
		}
	}
	return nil
}

func (o *Orchestrator) play(ctx context.Context, engines map[domain.Side]Engine) {
	pos, err := o.rules.Start(o.cfg.StartFEN)
	if err != nil {
		o.fail(err, nil)
		return
	}
	clock := domain.NewClock(o.cfg.InitialMS)
	blackFirst := o.rules.Turn(pos) == domain.Black
	moveText := ""
	ply := 0

	for {
		side := o.rules.Turn(pos)
		remaining := clock.Remaining(side)
		if remaining <= 0 {
			o.forfeit(side, domain.ReasonTimeout, clock)
			return
		}

		eng := engines[side]
		if err := eng.SendPosition(o.rules.Encode(pos)); err != nil {
			o.fail(fmt.Errorf("%s engine position: %w", side, err), &clock)
			return
		}
		started := o.now()
		token, err := eng.RequestMove(ctx, clock, moveDeadline(remaining))
		elapsed := o.now().Sub(started)
		clock = clock.Charge(side, elapsed)
		if err != nil {
			if errors.Is(err, uci.ErrTimeout) {
				o.forfeit(side, domain.ReasonTimeout, clock)
				return
			}
			o.fail(fmt.Errorf("%s engine move: %w", side, err), &clock)
			return
		}
		// A reply that arrives after the flag fell is never applied.
		if elapsed >= moveDeadline(remaining) {
			o.logger.Info("match_late_reply", zap.String("side", string(side)), zap.String("token", token), zap.Duration("elapsed", elapsed))
			o.forfeit(side, domain.ReasonTimeout, clock)
			return
		}

		if token == uci.NoMove {
			out := o.rules.Outcome(pos)
			if out.Kind == rules.Ongoing {
				o.fail(errNoMoveInLivePosition, &clock)
				return
			}
			o.conclude(out, clock)
			return
		}

		mv, err := o.rules.ParseMove(pos, token)
		if err != nil {
			o.logger.Info("match_illegal_move", zap.String("side", string(side)), zap.String("token", token), zap.Error(err))
			o.forfeit(side, domain.ReasonIllegal, clock)
			return
		}
		next, err := o.rules.Apply(pos, mv)
		if err != nil {
			o.logger.Info("match_illegal_move", zap.String("side", string(side)), zap.String("token", token), zap.Error(err))
			o.forfeit(side, domain.ReasonIllegal, clock)
			return
		}

		san := o.rules.Algebraic(pos, mv)
		ply++
		moveText = domain.AppendMoveText(moveText, san, ply, blackFirst)
		rec := domain.MoveRecord{Ply: ply, UCI: mv.String(), SAN: san, FEN: o.rules.Encode(next), PGN: moveText}
		pos = next
		o.publishPly(rec, clock, o.rules.Turn(pos))

		if out := o.rules.Outcome(pos); out.Kind != rules.Ongoing {
			o.conclude(out, clock)
			return
		}
	}
}

// moveDeadline converts a remaining budget in ms to a request deadline,
// saturating instead of overflowing.
func moveDeadline(remainingMS int64) time.Duration {
	if remainingMS > maxDeadlineMS {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(remainingMS) * time.Millisecond
}

func (o *Orchestrator) publishPly(rec domain.MoveRecord, clock domain.Clock, toMove domain.Side) {
	now := o.now()
	o.store.Update(o.cfg.MatchID, func(s *domain.MatchState) {
		if s.Status.Terminal() {
			return
		}
		s.Ply = rec.Ply
		s.History = append(s.History, rec)
		last := rec
		s.LastMove = &last
		s.CurrentFEN = rec.FEN
		s.PGN = rec.PGN
		s.Clock = clock
		s.SideToMove = toMove
		s.UpdatedAt = now
	})
	o.logger.Debug("match_ply",
		zap.Int("ply", rec.Ply),
		zap.String("uci", rec.UCI),
		zap.String("san", rec.SAN),
		zap.Int64("white_ms", clock.WhiteMS),
		zap.Int64("black_ms", clock.BlackMS),
	)
	if o.hooks.OnPly != nil {
		o.hooks.OnPly(rec)
	}
}

func (o *Orchestrator) conclude(out rules.Outcome, clock domain.Clock) {
	o.terminate(domain.StatusFinished, domain.Result{Score: out.Score, Reason: out.Reason()}, &clock, nil)
}

// forfeit ends the game against offender.
func (o *Orchestrator) forfeit(offender domain.Side, reason domain.Reason, clock domain.Clock) {
	o.terminate(domain.StatusFinished, domain.Result{Score: domain.WinFor(offender.Opponent()), Reason: reason}, &clock, nil)
}

func (o *Orchestrator) fail(err error, clock *domain.Clock) {
	o.terminate(domain.StatusErrored, domain.Result{Score: domain.ScoreUnresolved, Reason: domain.ReasonError}, clock, err)
}

func (o *Orchestrator) terminate(status domain.Status, result domain.Result, clock *domain.Clock, cause error) {
	if o.terminated {
		return
	}
	o.terminated = true

	now := o.now()
	var final domain.MatchState
	written := false
	o.store.Update(o.cfg.MatchID, func(s *domain.MatchState) {
		if s.Status.Terminal() {
			return
		}
		s.Status = status
		r := result
		s.Result = &r
		if clock != nil {
			s.Clock = *clock
		}
		s.UpdatedAt = now
		final = s.Clone()
		written = true
	})

	fields := []zap.Field{
		zap.String("status", string(status)),
		zap.String("result", result.Score),
		zap.String("reason", string(result.Reason)),
	}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
		o.logger.Warn("match_finish", fields...)
	} else {
		o.logger.Info("match_finish", fields...)
	}

	if written && o.hooks.OnFinish != nil {
		o.hooks.OnFinish(final)
	}
}
