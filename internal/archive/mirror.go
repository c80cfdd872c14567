// Package archive keeps best-effort copies of match state outside the
// process: live snapshots in Redis and finished games in Postgres.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iammadab/chessbench/internal/domain"
)

const (
	defaultSnapshotTTL = 24 * time.Hour
	mirrorWriteTimeout = 2 * time.Second
	mirrorFlushTimeout = 5 * time.Second
)

// Mirror copies match snapshots into Redis and announces each write on a
// per-match pub/sub channel. Writes happen on a background worker; only the
// newest pending snapshot of each match is kept, so a slow Redis drops
// intermediate plies but never the latest state.
type Mirror struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	pending map[string]domain.MatchState
	closed  bool

	wake      chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func NewMirror(redisURL string, ttl time.Duration, logger *zap.Logger) (*Mirror, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for snapshot mirror")
	}
	opts, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewMirrorWithClient(rdb, ttl, logger), nil
}

func NewMirrorWithClient(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Mirror {
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Mirror{
		rdb:     rdb,
		ttl:     ttl,
		logger:  logger,
		pending: make(map[string]domain.MatchState),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go m.run()
	return m
}

// Close flushes pending snapshots, bounded by mirrorFlushTimeout, and then
// closes the client.
func (m *Mirror) Close() error {
	if m == nil || m.rdb == nil {
		return nil
	}
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()
		close(m.stop)
		<-m.done
		m.closeErr = m.rdb.Close()
	})
	return m.closeErr
}

func MatchKey(id string) string     { return "chessbench:match:" + strings.TrimSpace(id) }
func EventsChannel(id string) string { return MatchKey(id) + ":events" }

// Save stores state under its match key and publishes it on the events channel.
func (m *Mirror) Save(ctx context.Context, state domain.MatchState) error {
	if m == nil || m.rdb == nil {
		return nil
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	pipe := m.rdb.TxPipeline()
	pipe.Set(ctx, MatchKey(state.MatchID), raw, m.ttl)
	pipe.Publish(ctx, EventsChannel(state.MatchID), raw)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mirror snapshot: %w", err)
	}
	return nil
}

// Observe is a registry observer. It only queues the snapshot; failures are
// logged by the worker and otherwise ignored.
func (m *Mirror) Observe(state domain.MatchState) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.pending[state.MatchID] = state
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Mirror) run() {
	defer close(m.done)
	for {
		select {
		case <-m.wake:
			m.flush(context.Background())
		case <-m.stop:
			ctx, cancel := context.WithTimeout(context.Background(), mirrorFlushTimeout)
			m.flush(ctx)
			cancel()
			return
		}
	}
}

func (m *Mirror) flush(parent context.Context) {
	m.mu.Lock()
	batch := m.pending
	m.pending = make(map[string]domain.MatchState)
	m.mu.Unlock()

	for id, state := range batch {
		ctx, cancel := context.WithTimeout(parent, mirrorWriteTimeout)
		err := m.Save(ctx, state)
		cancel()
		if err != nil {
			m.logger.Warn("snapshot_mirror_failed", zap.String("match_id", id), zap.Error(err))
		}
	}
}

// ParseRedisURL accepts redis:// and rediss:// URLs with an optional db path.
func ParseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redis db %q", p)
		}
		db = n
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Username: u.User.Username(), Password: pass, DB: db}, nil
}
