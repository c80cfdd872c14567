package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/iammadab/chessbench/internal/domain"
)

const schema = `CREATE TABLE IF NOT EXISTS bench_matches (
    match_id     TEXT PRIMARY KEY,
    white_engine TEXT NOT NULL,
    black_engine TEXT NOT NULL,
    initial_ms   BIGINT NOT NULL,
    start_fen    TEXT NOT NULL,
    status       TEXT NOT NULL,
    result       TEXT NOT NULL,
    reason       TEXT NOT NULL,
    plies        INTEGER NOT NULL,
    moves_uci    JSONB NOT NULL,
    pgn          TEXT NOT NULL,
    white_ms     BIGINT NOT NULL,
    black_ms     BIGINT NOT NULL,
    started_at   TIMESTAMPTZ NOT NULL,
    ended_at     TIMESTAMPTZ NOT NULL,
    duration_ms  BIGINT NOT NULL
)`

// Repository archives finished matches in Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// SaveResult upserts a terminal match. Running matches are ignored.
func (r *Repository) SaveResult(ctx context.Context, state domain.MatchState) error {
	if r == nil || r.db == nil || !state.Status.Terminal() {
		return nil
	}
	score, reason := domain.ScoreUnresolved, domain.ReasonError
	if state.Result != nil {
		score, reason = state.Result.Score, state.Result.Reason
	}
	uciMoves := make([]string, 0, len(state.History))
	for _, rec := range state.History {
		uciMoves = append(uciMoves, rec.UCI)
	}
	movesRaw, _ := json.Marshal(uciMoves)
	duration := state.UpdatedAt.Sub(state.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO bench_matches (
        match_id, white_engine, black_engine, initial_ms, start_fen,
        status, result, reason, plies, moves_uci, pgn,
        white_ms, black_ms, started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16
      ) ON CONFLICT (match_id) DO UPDATE SET
        status=EXCLUDED.status,
        result=EXCLUDED.result,
        reason=EXCLUDED.reason,
        plies=EXCLUDED.plies,
        moves_uci=EXCLUDED.moves_uci,
        pgn=EXCLUDED.pgn,
        white_ms=EXCLUDED.white_ms,
        black_ms=EXCLUDED.black_ms,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err := r.db.ExecContext(ctx, q,
		state.MatchID, state.WhiteEngine, state.BlackEngine, state.InitialMS, state.StartFEN,
		string(state.Status), score, string(reason), state.Ply, string(movesRaw), BuildPGN(state),
		state.Clock.WhiteMS, state.Clock.BlackMS, state.CreatedAt, state.UpdatedAt, duration,
	)
	if err != nil {
		return fmt.Errorf("archive match %s: %w", state.MatchID, err)
	}
	return nil
}
