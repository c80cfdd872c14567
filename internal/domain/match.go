package domain

import "time"

// Side identifies one of the two players. White moves first.
type Side string

const (
	White Side = "white"
	Black Side = "black"
)

func (s Side) Opponent() Side {
	if s == White {
		return Black
	}
	return White
}

// Status represents a match lifecycle state. Only StatusRunning is non-terminal.
type Status string

const (
	StatusRunning  Status = "running"
	StatusFinished Status = "finished"
	StatusErrored  Status = "error"
)

func (s Status) Terminal() bool { return s != StatusRunning }

// Reason explains why a match ended.
type Reason string

const (
	ReasonCheckmate   Reason = "checkmate"
	ReasonStalemate   Reason = "stalemate"
	ReasonDraw        Reason = "draw"
	ReasonTimeout     Reason = "timeout"
	ReasonIllegal     Reason = "illegal"
	ReasonResignation Reason = "resignation"
	ReasonError       Reason = "error"
)

// Score tokens in PGN result notation.
const (
	ScoreWhiteWins  = "1-0"
	ScoreBlackWins  = "0-1"
	ScoreDraw       = "1/2-1/2"
	ScoreUnresolved = "*"
)

// WinFor returns the score token crediting side with the win.
func WinFor(side Side) string {
	if side == White {
		return ScoreWhiteWins
	}
	return ScoreBlackWins
}

type Result struct {
	Score  string `json:"result"`
	Reason Reason `json:"reason"`
}

// Clock holds remaining milliseconds per side.
type Clock struct {
	WhiteMS int64 `json:"white_ms"`
	BlackMS int64 `json:"black_ms"`
}

func NewClock(initialMS int64) Clock {
	if initialMS < 0 {
		initialMS = 0
	}
	return Clock{WhiteMS: initialMS, BlackMS: initialMS}
}

func (c Clock) Remaining(side Side) int64 {
	if side == White {
		return c.WhiteMS
	}
	return c.BlackMS
}

// Charge deducts elapsed from side's clock, saturating at zero. The other side is untouched.
func (c Clock) Charge(side Side, elapsed time.Duration) Clock {
	ms := elapsed.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	sub := func(v int64) int64 {
		if ms >= v {
			return 0
		}
		return v - ms
	}
	if side == White {
		c.WhiteMS = sub(c.WhiteMS)
	} else {
		c.BlackMS = sub(c.BlackMS)
	}
	return c
}

type MoveRecord struct {
	Ply int    `json:"ply"`
	UCI string `json:"uci"`
	SAN string `json:"san"`
	FEN string `json:"fen"`
	PGN string `json:"pgn"`
}

// MatchState is the unit written by a match orchestrator and read by observers.
type MatchState struct {
	MatchID     string       `json:"match_id"`
	Status      Status       `json:"status"`
	CurrentFEN  string       `json:"current_fen"`
	PGN         string       `json:"pgn"`
	Clock       Clock        `json:"clocks"`
	Result      *Result      `json:"result,omitempty"`
	SideToMove  Side         `json:"side_to_move"`
	Ply         int          `json:"ply"`
	StartFEN    string       `json:"start_fen"`
	LastMove    *MoveRecord  `json:"last_move,omitempty"`
	History     []MoveRecord `json:"history"`
	WhiteEngine string       `json:"white_engine"`
	BlackEngine string       `json:"black_engine"`
	InitialMS   int64        `json:"initial_ms"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// NewMatchState builds the running state published before any engine process is spawned.
func NewMatchState(id, startFEN string, startSide Side, white, black string, initialMS int64, now time.Time) MatchState {
	return MatchState{
		MatchID:     id,
		Status:      StatusRunning,
		CurrentFEN:  startFEN,
		Clock:       NewClock(initialMS),
		SideToMove:  startSide,
		StartFEN:    startFEN,
		History:     []MoveRecord{},
		WhiteEngine: white,
		BlackEngine: black,
		InitialMS:   initialMS,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a deep copy that shares no mutable memory with s.
func (s MatchState) Clone() MatchState {
	out := s
	if s.Result != nil {
		r := *s.Result
		out.Result = &r
	}
	if s.LastMove != nil {
		m := *s.LastMove
		out.LastMove = &m
	}
	out.History = append([]MoveRecord(nil), s.History...)
	if out.History == nil {
		out.History = []MoveRecord{}
	}
	return out
}
