package archive

import (
	"context"
	"strings"
	"testing"

	"github.com/iammadab/chessbench/internal/domain"
)

func TestBuildPGNHeadersAndMoves(t *testing.T) {
	s := sampleState()
	s.Status = domain.StatusFinished
	s.Result = &domain.Result{Score: domain.ScoreWhiteWins, Reason: domain.ReasonTimeout}

	pgn := BuildPGN(s)
	for _, want := range []string{
		`[Event "chessbench match"]`,
		`[Date "2024.03.01"]`,
		`[White "alpha"]`,
		`[Black "beta"]`,
		`[Result "1-0"]`,
		`[TimeControl "60"]`,
		`[Termination "timeout"]`,
	} {
		if !strings.Contains(pgn, want) {
			t.Fatalf("missing %s in\n%s", want, pgn)
		}
	}
	if strings.Contains(pgn, "[FEN") {
		t.Fatalf("standard start should not carry a FEN tag")
	}
	if !strings.HasSuffix(pgn, "\n\n1. e4 1-0") {
		t.Fatalf("unexpected movetext in\n%s", pgn)
	}
}

func TestBuildPGNCustomStart(t *testing.T) {
	s := domain.NewMatchState("m-2", "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", domain.Black, `we"ird`, "beta", 1000, sampleState().CreatedAt)
	pgn := BuildPGN(s)
	if !strings.Contains(pgn, `[SetUp "1"]`) || !strings.Contains(pgn, `[FEN "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1"]`) {
		t.Fatalf("missing setup tags in\n%s", pgn)
	}
	if !strings.Contains(pgn, `[White "we'ird"]`) {
		t.Fatalf("header not sanitized in\n%s", pgn)
	}
	if !strings.HasSuffix(pgn, "\n\n*") {
		t.Fatalf("running match should end with *: %q", pgn)
	}
}

func TestRepositoryIgnoresRunningAndNil(t *testing.T) {
	var r *Repository
	if err := r.SaveResult(context.Background(), sampleState()); err != nil {
		t.Fatalf("nil repository: %v", err)
	}
	if err := r.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("nil repository schema: %v", err)
	}
	if _, err := NewRepository("  "); err == nil {
		t.Fatalf("expected error for blank url")
	}
}
