package uci

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/iammadab/chessbench/internal/chess/ucitest"
	"github.com/iammadab/chessbench/internal/domain"
)

func TestMain(m *testing.M) {
	ucitest.Main()
	os.Exit(m.Run())
}

const testTimeout = 5 * time.Second

func spawnFake(t *testing.T, mode string) *Session {
	t.Helper()
	s, err := Spawn(ConfigFor(ucitest.Handle("fake", mode), 500*time.Millisecond, nil))
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	t.Cleanup(s.Shutdown)
	return s
}

func ready(t *testing.T, s *Session) Identity {
	t.Helper()
	ctx := context.Background()
	id, err := s.Handshake(ctx, testTimeout)
	if err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if err := s.AwaitReady(ctx, testTimeout); err != nil {
		t.Fatalf("AwaitReady: %v", err)
	}
	return id
}

func TestSpawnMissingExecutable(t *testing.T) {
	_, err := Spawn(Config{Path: "/nonexistent/engine-binary"})
	if !errors.Is(err, ErrProcessStart) {
		t.Fatalf("expected ErrProcessStart, got %v", err)
	}
	if _, err := Spawn(Config{Path: "  "}); !errors.Is(err, ErrProcessStart) {
		t.Fatalf("expected ErrProcessStart for blank path, got %v", err)
	}
}

func TestHandshakeReadsIdentity(t *testing.T) {
	s := spawnFake(t, ucitest.ModeNoisy)
	id := ready(t, s)
	if id.Name != "Fake Engine noisy" || id.Author != "chessbench" {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestHandshakeTimeout(t *testing.T) {
	s := spawnFake(t, ucitest.ModeSilent)
	start := time.Now()
	_, err := s.Handshake(context.Background(), 200*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("handshake waited too long: %s", elapsed)
	}
}

func TestHandshakeEndOfStream(t *testing.T) {
	s := spawnFake(t, ucitest.ModeExit)
	_, err := s.Handshake(context.Background(), testTimeout)
	if !errors.Is(err, ErrClosed) && !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrClosed or ErrIO, got %v", err)
	}
}

func TestRequestMoveSkipsNoise(t *testing.T) {
	s := spawnFake(t, ucitest.ModeNoisy)
	ready(t, s)
	if err := s.NewGame(); err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	if err := s.SendPosition("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"); err != nil {
		t.Fatalf("SendPosition: %v", err)
	}
	mv, err := s.RequestMove(context.Background(), domain.NewClock(1000), testTimeout)
	if err != nil {
		t.Fatalf("RequestMove: %v", err)
	}
	if len(mv) < 4 || mv == NoMove {
		t.Fatalf("unexpected move token %q", mv)
	}
}

func TestRequestMoveNoMoveToken(t *testing.T) {
	s := spawnFake(t, ucitest.ModeNone)
	ready(t, s)
	mv, err := s.RequestMove(context.Background(), domain.NewClock(1000), testTimeout)
	if err != nil {
		t.Fatalf("RequestMove: %v", err)
	}
	if mv != NoMove {
		t.Fatalf("expected %q, got %q", NoMove, mv)
	}
}

func TestRequestMoveDeadline(t *testing.T) {
	s := spawnFake(t, ucitest.ModeSlow)
	ready(t, s)
	start := time.Now()
	_, err := s.RequestMove(context.Background(), domain.NewClock(1000), 150*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond || elapsed > 2*time.Second {
		t.Fatalf("deadline not honoured: %s", elapsed)
	}

	if _, err := s.RequestMove(context.Background(), domain.NewClock(1000), 0); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout for exhausted budget, got %v", err)
	}
}

func TestRequestMoveProcessExit(t *testing.T) {
	s := spawnFake(t, ucitest.ModeCrash)
	ready(t, s)
	_, err := s.RequestMove(context.Background(), domain.NewClock(1000), testTimeout)
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestShutdownKillsStubbornEngine(t *testing.T) {
	s, err := Spawn(ConfigFor(ucitest.Handle("hang", ucitest.ModeHang), 100*time.Millisecond, nil))
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	ready(t, s)

	done := make(chan struct{})
	go func() {
		s.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("shutdown blocked")
	}
	s.Shutdown()

	if err := s.SendLine("isready"); !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO after shutdown, got %v", err)
	}
}

func TestParseBestMove(t *testing.T) {
	cases := []struct {
		line string
		want string
		ok   bool
	}{
		{"bestmove e2e4", "e2e4", true},
		{"bestmove e7e8q ponder a2a3", "e7e8q", true},
		{"bestmove (none)", NoMove, true},
		{"bestmove 0000", NoMove, true},
		{"bestmove", "", false},
		{"info depth 3 pv e2e4", "", false},
		{"bestmoves e2e4", "", false},
	}
	for _, tc := range cases {
		got, ok := parseBestMove(tc.line)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("parseBestMove(%q) = %q,%v want %q,%v", tc.line, got, ok, tc.want, tc.ok)
		}
	}
}

func TestCommandBuilders(t *testing.T) {
	if got := buildPositionCommand(""); got != "position startpos" {
		t.Fatalf("unexpected %q", got)
	}
	if got := buildPositionCommand("8/8/8/8/8/8/8/K6k w - - 0 1"); got != "position fen 8/8/8/8/8/8/8/K6k w - - 0 1" {
		t.Fatalf("unexpected %q", got)
	}
	if got := buildGoCommand(domain.Clock{WhiteMS: 298800, BlackMS: 300000}); got != "go wtime 298800 btime 300000" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestDiscoverSkipsFailingEngines(t *testing.T) {
	handles := []domain.EngineHandle{
		ucitest.Handle("good", ucitest.ModeLegal),
		{ID: "missing", Path: "/nonexistent/engine-binary"},
		ucitest.Handle("mute", ucitest.ModeSilent),
	}
	got := Discover(context.Background(), handles, 300*time.Millisecond, 100*time.Millisecond, nil)
	if len(got) != 1 || got[0].ID != "good" {
		t.Fatalf("unexpected roster %+v", got)
	}
	if got[0].Name != "Fake Engine legal" || got[0].Author != "chessbench" {
		t.Fatalf("identity not recorded: %+v", got[0])
	}
}
