package benchpresenter

import (
	"github.com/iammadab/chessbench/internal/domain"
	"github.com/iammadab/chessbench/pkg/benchdto"
)

func ToDTOStatus(s domain.MatchState) benchdto.MatchStatus {
	return benchdto.MatchStatus{
		MatchID:     s.MatchID,
		Status:      string(s.Status),
		CurrentFEN:  s.CurrentFEN,
		PGN:         s.PGN,
		Clocks:      ToDTOClocks(s.Clock),
		Result:      ToDTOResult(s.Result),
		SideToMove:  string(s.SideToMove),
		Ply:         s.Ply,
		WhiteEngine: s.WhiteEngine,
		BlackEngine: s.BlackEngine,
		StartFEN:    s.StartFEN,
	}
}

func ToDTOStatuses(states []domain.MatchState) benchdto.MatchesResponse {
	out := benchdto.MatchesResponse{Matches: make([]benchdto.MatchStatus, 0, len(states))}
	for _, s := range states {
		out.Matches = append(out.Matches, ToDTOStatus(s))
	}
	return out
}

func ToDTOClocks(c domain.Clock) benchdto.Clocks {
	return benchdto.Clocks{WhiteMS: c.WhiteMS, BlackMS: c.BlackMS}
}

func ToDTOResult(r *domain.Result) *benchdto.Result {
	if r == nil {
		return nil
	}
	return &benchdto.Result{Result: r.Score, Reason: string(r.Reason)}
}

func ToDTOMove(m domain.MoveRecord) benchdto.Move {
	return benchdto.Move{Ply: m.Ply, UCI: m.UCI, SAN: m.SAN, FEN: m.FEN, PGN: m.PGN}
}

func ToDTOMoves(s domain.MatchState) benchdto.MovesResponse {
	out := benchdto.MovesResponse{MatchID: s.MatchID, Moves: make([]benchdto.Move, 0, len(s.History))}
	for _, m := range s.History {
		out.Moves = append(out.Moves, ToDTOMove(m))
	}
	return out
}

func ToDTOStarted(s domain.MatchState) benchdto.MatchStarted {
	return benchdto.MatchStarted{
		MatchID:     s.MatchID,
		StartFEN:    s.StartFEN,
		WhiteEngine: s.WhiteEngine,
		BlackEngine: s.BlackEngine,
	}
}

func ToDTOEngines(handles []domain.EngineHandle) benchdto.EnginesResponse {
	out := benchdto.EnginesResponse{Engines: make([]benchdto.EngineInfo, 0, len(handles))}
	for _, h := range handles {
		name := h.Name
		if name == "" {
			name = h.ID
		}
		out.Engines = append(out.Engines, benchdto.EngineInfo{ID: h.ID, Name: name, Author: h.Author})
	}
	return out
}
