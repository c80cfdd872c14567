package benchdto

type TimeControl struct {
	InitialMS int64 `json:"initial_ms"`
}

type CreateMatchRequest struct {
	WhiteEngineID string      `json:"white_engine_id"`
	BlackEngineID string      `json:"black_engine_id"`
	TimeControl   TimeControl `json:"time_control"`
	StartFEN      string      `json:"start_fen,omitempty"`
}

type CreateMatchResponse struct {
	MatchID string `json:"match_id"`
}

type EngineInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Author string `json:"author,omitempty"`
}

type EnginesResponse struct {
	Engines []EngineInfo `json:"engines"`
}
