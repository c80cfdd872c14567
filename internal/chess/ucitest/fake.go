// Package ucitest provides a scripted UCI engine that runs inside a test
// binary. A test package calls Main from TestMain; Handle returns an engine
// handle that re-executes the test binary in fake-engine mode.
package ucitest

import (
	"bufio"
	"io"
	"os"
	"strings"
	"time"

	"github.com/iammadab/chessbench/internal/domain"
	"github.com/iammadab/chessbench/internal/rules"
)

const modeFlag = "--fake-engine="

// Engine behaviours.
const (
	// ModeLegal plays the first legal move of every position.
	ModeLegal = "legal"
	// ModeNoisy is ModeLegal with banners, info lines, CRLF endings and a truncated bestmove line.
	ModeNoisy = "noisy"
	// ModeSilent never acknowledges the handshake.
	ModeSilent = "silent"
	// ModeSlow completes the handshake but never answers a search.
	ModeSlow = "slow"
	// ModeDelay answers searches after MoveDelay.
	ModeDelay = "delay"
	// ModeIllegal answers every search with a move that is never legal from the start position.
	ModeIllegal = "illegal"
	// ModeGarbage answers every search with an unparseable token.
	ModeGarbage = "garbage"
	// ModeNone always reports that it has no move.
	ModeNone = "none"
	// ModeExit exits before reading anything.
	ModeExit = "exit"
	// ModeCrash exits while a search is pending.
	ModeCrash = "crash"
	// ModeHang ignores quit and end of input.
	ModeHang = "hang"
)

const MoveDelay = 150 * time.Millisecond

// Main runs the fake engine and exits the process when the binary was
// started through Handle. Otherwise it returns immediately.
func Main() {
	for _, arg := range os.Args[1:] {
		if strings.HasPrefix(arg, modeFlag) {
			os.Exit(Run(strings.TrimPrefix(arg, modeFlag), os.Stdin, os.Stdout))
		}
	}
}

// Handle returns an engine handle that launches the current test binary as a
// fake engine with the given mode.
func Handle(id, mode string) domain.EngineHandle {
	return domain.EngineHandle{ID: id, Path: os.Args[0], Args: []string{modeFlag + mode}}
}

// Run speaks UCI on in/out until quit or end of input and returns the exit code.
func Run(mode string, in io.Reader, out io.Writer) int {
	if mode == ModeExit {
		return 3
	}
	w := bufio.NewWriter(out)
	say := func(lines ...string) {
		for _, l := range lines {
			w.WriteString(l + "\n")
		}
		w.Flush()
	}

	r := rules.Chess{}
	pos, _ := r.Start("")
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "uci":
			if mode == ModeSilent {
				continue
			}
			if mode == ModeNoisy {
				say("Fake engine by chessbench", "option name Hash type spin default 16 min 1 max 64")
			}
			say("id name Fake Engine "+mode, "id author chessbench", "uciok")
		case "isready":
			say("readyok")
		case "position":
			if len(fields) > 2 && fields[1] == "fen" {
				pos, _ = r.Start(strings.Join(fields[2:], " "))
			} else {
				pos, _ = r.Start("")
			}
		case "go":
			switch mode {
			case ModeSlow, ModeHang:
				continue
			case ModeCrash:
				return 2
			case ModeIllegal:
				say("bestmove e2e5")
				continue
			case ModeGarbage:
				say("bestmove zz99")
				continue
			case ModeNone:
				say("bestmove (none)")
				continue
			case ModeDelay:
				time.Sleep(MoveDelay)
			}
			moves := r.LegalMoves(pos)
			if len(moves) == 0 {
				say("bestmove (none)")
				continue
			}
			if mode == ModeNoisy {
				w.WriteString("info depth 1 score cp 13 pv " + moves[0] + "\r\n")
				say("bestmo", "bestmove", "bestmove   "+moves[0]+"   ponder 0000\r")
				continue
			}
			say("bestmove " + moves[0])
		case "quit":
			if mode == ModeHang {
				continue
			}
			return 0
		}
	}
	if mode == ModeHang {
		time.Sleep(time.Hour)
	}
	return 0
}
