package archive

import (
	"fmt"
	"strings"
	"time"

	"github.com/iammadab/chessbench/internal/domain"
)

const standardStartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// BuildPGN renders a match as a PGN game with a seven tag roster header.
func BuildPGN(state domain.MatchState) string {
	score := domain.ScoreUnresolved
	termination := ""
	if state.Result != nil {
		score = state.Result.Score
		termination = string(state.Result.Reason)
	}
	date := state.CreatedAt
	if date.IsZero() {
		date = time.Now()
	}

	var b strings.Builder
	b.WriteString("[Event \"chessbench match\"]\n")
	b.WriteString(fmt.Sprintf("[Site \"%s\"]\n", sanitizePGN(state.MatchID)))
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString("[Round \"-\"]\n")
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(state.WhiteEngine)))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(state.BlackEngine)))
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n", score))
	if state.InitialMS > 0 {
		b.WriteString(fmt.Sprintf("[TimeControl \"%d\"]\n", state.InitialMS/1000))
	}
	if termination != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", termination))
	}
	if fen := strings.TrimSpace(state.StartFEN); fen != "" && fen != "startpos" && fen != standardStartFEN {
		b.WriteString("[SetUp \"1\"]\n")
		b.WriteString(fmt.Sprintf("[FEN \"%s\"]\n", sanitizePGN(fen)))
	}
	b.WriteString("\n")

	if state.PGN != "" {
		b.WriteString(state.PGN)
		b.WriteString(" ")
	}
	b.WriteString(score)
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
