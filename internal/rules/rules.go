// Package rules adapts github.com/corentings/chess/v2 to the operations a
// match needs: position encoding, move parsing and application, notation and
// outcome classification. Positions are immutable values.
package rules

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/iammadab/chessbench/internal/domain"
)

const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var (
	ErrInvalidFEN  = errors.New("invalid fen")
	ErrMalformed   = errors.New("malformed move token")
	ErrIllegalMove = errors.New("illegal move")
)

// Position wraps a game whose current position is the one represented.
// The wrapped game is never mutated after construction.
type Position struct {
	game *nchess.Game
}

// Move is a move resolved against a specific position.
type Move struct {
	mv  *nchess.Move
	uci string
}

func (m Move) String() string { return m.uci }

// OutcomeKind classifies a position.
type OutcomeKind int

const (
	Ongoing OutcomeKind = iota
	Decisive
	Drawn
)

type Outcome struct {
	Kind      OutcomeKind
	Score     string
	Checkmate bool
	Stalemate bool
}

// Reason maps a terminal outcome to the match termination reason.
func (o Outcome) Reason() domain.Reason {
	switch {
	case o.Checkmate:
		return domain.ReasonCheckmate
	case o.Stalemate:
		return domain.ReasonStalemate
	default:
		return domain.ReasonDraw
	}
}

// Chess implements the rules operations on standard chess.
type Chess struct{}

// Start returns the position for fen, or the standard start position when fen is blank or "startpos".
func (Chess) Start(fen string) (Position, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == "startpos" {
		return Position{game: nchess.NewGame()}, nil
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return Position{}, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	return Position{game: nchess.NewGame(opt)}, nil
}

func (Chess) Encode(p Position) string {
	if p.game == nil {
		return ""
	}
	return p.game.FEN()
}

func (Chess) Turn(p Position) domain.Side {
	if p.game != nil && p.game.Position().Turn() == nchess.Black {
		return domain.Black
	}
	return domain.White
}

// ParseMove resolves a long algebraic token against p. The token must name one of p's legal moves.
func (Chess) ParseMove(p Position, token string) (Move, error) {
	tok := strings.ToLower(strings.TrimSpace(token))
	if p.game == nil || len(tok) < 4 || len(tok) > 5 {
		return Move{}, fmt.Errorf("%w: %q", ErrMalformed, token)
	}
	mv, err := nchess.UCINotation{}.Decode(p.game.Position(), tok)
	if err != nil {
		return Move{}, fmt.Errorf("%w: %q: %v", ErrMalformed, token, err)
	}
	legal := false
	for _, vm := range p.game.ValidMoves() {
		if vm.String() == tok {
			legal = true
			break
		}
	}
	if !legal {
		return Move{}, fmt.Errorf("%w: %s", ErrIllegalMove, tok)
	}
	return Move{mv: mv, uci: tok}, nil
}

// Apply returns the position after m. p is left untouched.
func (Chess) Apply(p Position, m Move) (Position, error) {
	if p.game == nil || m.mv == nil {
		return Position{}, ErrIllegalMove
	}
	next := p.game.Clone()
	if err := next.Move(m.mv, nil); err != nil {
		return Position{}, fmt.Errorf("%w: %s: %v", ErrIllegalMove, m.uci, err)
	}
	return Position{game: next}, nil
}

// Algebraic returns the SAN of m computed against the position before the move.
func (Chess) Algebraic(p Position, m Move) string {
	if p.game == nil || m.mv == nil {
		return m.uci
	}
	return nchess.AlgebraicNotation{}.Encode(p.game.Position(), m.mv)
}

func (Chess) Outcome(p Position) Outcome {
	if p.game == nil {
		return Outcome{Kind: Ongoing, Score: domain.ScoreUnresolved}
	}
	outcome := p.game.Outcome()
	method := p.game.Method()
	switch outcome {
	case nchess.WhiteWon, nchess.BlackWon:
		return Outcome{Kind: Decisive, Score: outcome.String(), Checkmate: method == nchess.Checkmate}
	case nchess.Draw:
		return Outcome{Kind: Drawn, Score: outcome.String(), Stalemate: method == nchess.Stalemate}
	default:
		return Outcome{Kind: Ongoing, Score: domain.ScoreUnresolved}
	}
}

// Board exposes the piece placement for rendering.
func (Chess) Board(p Position) *nchess.Board {
	if p.game == nil {
		return nil
	}
	return p.game.Position().Board()
}

// LegalMoves lists p's legal moves in long algebraic notation.
func (Chess) LegalMoves(p Position) []string {
	if p.game == nil {
		return nil
	}
	moves := p.game.ValidMoves()
	out := make([]string, 0, len(moves))
	for _, mv := range moves {
		out = append(out, mv.String())
	}
	return out
}
