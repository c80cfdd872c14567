package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iammadab/chessbench/internal/domain"
)

const (
	defaultShutdownGrace = 2 * time.Second
	lineBufferSize       = 256

	// NoMove is the bestmove token an engine sends when it has no legal reply.
	NoMove = "(none)"
)

type Config struct {
	Path          string
	Args          []string
	WorkingDir    string
	ShutdownGrace time.Duration
	Logger        *zap.Logger
}

// ConfigFor builds a session config for a resolved engine handle.
func ConfigFor(h domain.EngineHandle, grace time.Duration, logger *zap.Logger) Config {
	return Config{
		Path:          h.Path,
		Args:          append([]string(nil), h.Args...),
		WorkingDir:    h.WorkingDir,
		ShutdownGrace: grace,
		Logger:        logger,
	}
}

type Identity struct {
	Name   string
	Author string
}

// Session owns one engine process. Calls are not safe for concurrent use,
// except Shutdown which may be called at any time.
type Session struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  chan string
	done   chan struct{}
	logger *zap.Logger
	grace  time.Duration

	readErr  error
	mu       sync.Mutex
	shutOnce sync.Once
}

// Spawn launches the engine with piped stdin/stdout; stderr is discarded.
func Spawn(cfg Config) (*Session, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("%w: empty executable path", ErrProcessStart)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	grace := cfg.ShutdownGrace
	if grace <= 0 {
		grace = defaultShutdownGrace
	}

	cmd := exec.Command(cfg.Path, cfg.Args...)
	cmd.Dir = cfg.WorkingDir
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: create stdin pipe: %v", ErrProcessStart, err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("%w: create stdout pipe: %v", ErrProcessStart, err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutPipe.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrProcessStart, cfg.Path, err)
	}

	s := &Session{
		cmd:    cmd,
		stdin:  stdin,
		lines:  make(chan string, lineBufferSize),
		done:   make(chan struct{}),
		logger: logger.With(zap.String("engine_path", cfg.Path), zap.Int("pid", cmd.Process.Pid)),
		grace:  grace,
	}
	go s.readLoop(stdoutPipe)
	s.logger.Debug("engine_spawn")
	return s, nil
}

func (s *Session) readLoop(r io.Reader) {
	defer close(s.lines)
	br := bufio.NewReader(r)
	for {
		raw, err := br.ReadString('\n')
		if line := strings.TrimSpace(raw); line != "" {
			select {
			case s.lines <- line:
			case <-s.done:
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.readErr = err
			}
			return
		}
	}
}

// SendLine writes text followed by a newline.
func (s *Session) SendLine(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.stdin, text+"\n"); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrIO, text, err)
	}
	return nil
}

// Handshake sends "uci" and collects id lines until "uciok".
func (s *Session) Handshake(ctx context.Context, timeout time.Duration) (Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.SendLine("uci"); err != nil {
		return Identity{}, err
	}
	var id Identity
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return Identity{}, fmt.Errorf("wait uciok: %w", err)
		}
		switch {
		case line == "uciok":
			return id, nil
		case strings.HasPrefix(line, "id name "):
			id.Name = strings.TrimSpace(strings.TrimPrefix(line, "id name "))
		case strings.HasPrefix(line, "id author "):
			id.Author = strings.TrimSpace(strings.TrimPrefix(line, "id author "))
		}
	}
}

// AwaitReady sends "isready" and waits for "readyok".
func (s *Session) AwaitReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.SendLine("isready"); err != nil {
		return err
	}
	if err := s.awaitToken(ctx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

// NewGame sends "ucinewgame". The protocol defines no acknowledgement.
func (s *Session) NewGame() error {
	return s.SendLine("ucinewgame")
}

func (s *Session) SendPosition(fen string) error {
	return s.SendLine(buildPositionCommand(fen))
}

// RequestMove asks for a move with both clocks and waits at most deadline for
// the bestmove line. NoMove is returned when the engine reports no legal move.
func (s *Session) RequestMove(ctx context.Context, clock domain.Clock, deadline time.Duration) (string, error) {
	if deadline <= 0 {
		return "", fmt.Errorf("%w: no time remaining", ErrTimeout)
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	if err := s.SendLine(buildGoCommand(clock)); err != nil {
		return "", err
	}
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			if errors.Is(err, ErrTimeout) {
				_ = s.SendLine("stop")
			}
			return "", fmt.Errorf("wait bestmove: %w", err)
		}
		if mv, ok := parseBestMove(line); ok {
			return mv, nil
		}
	}
}

// Shutdown asks the engine to quit, waits up to the grace period, then kills it.
// It never fails; problems are logged.
func (s *Session) Shutdown() {
	s.shutOnce.Do(func() {
		close(s.done)
		if err := s.SendLine("quit"); err != nil {
			s.logger.Debug("engine_quit_send_failed", zap.Error(err))
		}
		_ = s.stdin.Close()

		exited := make(chan error, 1)
		go func() { exited <- s.cmd.Wait() }()

		timer := time.NewTimer(s.grace)
		defer timer.Stop()
		select {
		case err := <-exited:
			if err != nil {
				s.logger.Debug("engine_exit", zap.Error(err))
			}
			return
		case <-timer.C:
		}

		if err := s.cmd.Process.Kill(); err != nil {
			s.logger.Debug("engine_kill_failed", zap.Error(err))
		}
		select {
		case <-exited:
		case <-time.After(s.grace):
			s.logger.Warn("engine_exit_wait_abandoned")
		}
	})
}

func (s *Session) awaitToken(ctx context.Context, token string) error {
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return err
		}
		if fields := strings.Fields(line); len(fields) > 0 && fields[0] == token {
			return nil
		}
	}
}

func (s *Session) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", ctx.Err()
	case line, ok := <-s.lines:
		if !ok {
			if s.readErr != nil {
				return "", fmt.Errorf("%w: %v", ErrClosed, s.readErr)
			}
			return "", ErrClosed
		}
		return line, nil
	}
}

func buildPositionCommand(fen string) string {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == "startpos" {
		return "position startpos"
	}
	return "position fen " + fen
}

func buildGoCommand(c domain.Clock) string {
	return "go wtime " + strconv.FormatInt(c.WhiteMS, 10) + " btime " + strconv.FormatInt(c.BlackMS, 10)
}

// parseBestMove extracts the move from a "bestmove <move> [ponder <move>]" line.
func parseBestMove(line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != "bestmove" {
		return "", false
	}
	switch mv := fields[1]; mv {
	case NoMove, "0000":
		return NoMove, true
	default:
		return mv, true
	}
}
