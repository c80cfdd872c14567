package match

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/iammadab/chessbench/internal/chess/uci"
	"github.com/iammadab/chessbench/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1700000000, 0)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type reply struct {
	token string
	think time.Duration
	err   error
	panic bool
}

type fakeEngine struct {
	clock        *fakeClock
	replies      []reply
	handshakeErr error
	readyErr     error

	positions []string
	requests  []domain.Clock
	deadlines []time.Duration
	newGames  int
	shutdowns int
}

func (e *fakeEngine) Handshake(context.Context, time.Duration) (uci.Identity, error) {
	return uci.Identity{Name: "fake"}, e.handshakeErr
}

func (e *fakeEngine) AwaitReady(context.Context, time.Duration) error { return e.readyErr }

func (e *fakeEngine) NewGame() error {
	e.newGames++
	return nil
}

func (e *fakeEngine) SendPosition(fen string) error {
	e.positions = append(e.positions, fen)
	return nil
}

func (e *fakeEngine) RequestMove(_ context.Context, clock domain.Clock, deadline time.Duration) (string, error) {
	e.requests = append(e.requests, clock)
	e.deadlines = append(e.deadlines, deadline)
	if len(e.replies) == 0 {
		return "", uci.ErrClosed
	}
	r := e.replies[0]
	e.replies = e.replies[1:]
	if r.panic {
		panic("engine exploded")
	}
	e.clock.Advance(r.think)
	return r.token, r.err
}

func (e *fakeEngine) Shutdown() { e.shutdowns++ }

var errSpawn = errors.New("no such engine")

// fakeSpawner hands out pre-built engines by handle id.
func fakeSpawner(engines map[string]*fakeEngine) SpawnFunc {
	return func(h domain.EngineHandle) (Engine, error) {
		e, ok := engines[h.ID]
		if !ok {
			return nil, errSpawn
		}
		return e, nil
	}
}

func moves(think time.Duration, tokens ...string) []reply {
	out := make([]reply, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, reply{token: t, think: think})
	}
	return out
}
