package benchdto

import "encoding/json"

type Clocks struct {
	WhiteMS int64 `json:"white_ms"`
	BlackMS int64 `json:"black_ms"`
}

type Result struct {
	Result string `json:"result"`
	Reason string `json:"reason"`
}

type MatchStatus struct {
	MatchID     string  `json:"match_id"`
	Status      string  `json:"status"`
	CurrentFEN  string  `json:"current_fen"`
	PGN         string  `json:"pgn"`
	Clocks      Clocks  `json:"clocks"`
	Result      *Result `json:"result"`
	SideToMove  string  `json:"side_to_move"`
	Ply         int     `json:"ply"`
	WhiteEngine string  `json:"white_engine"`
	BlackEngine string  `json:"black_engine"`
	StartFEN    string  `json:"start_fen"`
}

type MatchesResponse struct {
	Matches []MatchStatus `json:"matches"`
}

type Move struct {
	Ply int    `json:"ply"`
	UCI string `json:"uci"`
	SAN string `json:"san"`
	FEN string `json:"fen"`
	PGN string `json:"pgn"`
}

type MovesResponse struct {
	MatchID string `json:"match_id"`
	Moves   []Move `json:"moves"`
}

// Feed event types.
const (
	EventMatchStarted = "match_started"
	EventClock        = "clock"
	EventMove         = "move"
	EventResult       = "result"
)

type MatchStarted struct {
	MatchID     string `json:"match_id"`
	StartFEN    string `json:"start_fen"`
	WhiteEngine string `json:"white_engine"`
	BlackEngine string `json:"black_engine"`
}

// Frame is one feed event as sent over the websocket.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}
