package benchpresenter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iammadab/chessbench/pkg/benchdto"
)

// FormatClock renders milliseconds as m:ss.t.
func FormatClock(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	tenths := (ms % 1000) / 100
	secs := ms / 1000
	return fmt.Sprintf("%d:%02d.%d", secs/60, secs%60, tenths)
}

func FormatEngines(resp benchdto.EnginesResponse) string {
	if len(resp.Engines) == 0 {
		return "no engines available"
	}
	var sb strings.Builder
	for _, e := range resp.Engines {
		sb.WriteString(fmt.Sprintf("%-16s %s", e.ID, e.Name))
		if e.Author != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", e.Author))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func FormatStatus(s benchdto.MatchStatus) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("match   %s\n", s.MatchID))
	sb.WriteString(fmt.Sprintf("players %s (white) vs %s (black)\n", s.WhiteEngine, s.BlackEngine))
	sb.WriteString(fmt.Sprintf("status  %s", s.Status))
	if s.Result != nil {
		sb.WriteString(fmt.Sprintf(" %s by %s", s.Result.Result, s.Result.Reason))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("clocks  white %s  black %s\n", FormatClock(s.Clocks.WhiteMS), FormatClock(s.Clocks.BlackMS)))
	sb.WriteString(fmt.Sprintf("ply     %d, %s to move\n", s.Ply, s.SideToMove))
	sb.WriteString(fmt.Sprintf("fen     %s\n", s.CurrentFEN))
	if s.PGN != "" {
		sb.WriteString(fmt.Sprintf("moves   %s\n", s.PGN))
	}
	return sb.String()
}

// FormatFrame renders one feed event as a single line.
func FormatFrame(f benchdto.Frame) string {
	switch f.Type {
	case benchdto.EventMatchStarted:
		var v benchdto.MatchStarted
		if json.Unmarshal(f.Data, &v) == nil {
			return fmt.Sprintf("started %s: %s vs %s", v.MatchID, v.WhiteEngine, v.BlackEngine)
		}
	case benchdto.EventClock:
		var v benchdto.Clocks
		if json.Unmarshal(f.Data, &v) == nil {
			return fmt.Sprintf("clock   white %s  black %s", FormatClock(v.WhiteMS), FormatClock(v.BlackMS))
		}
	case benchdto.EventMove:
		var v benchdto.Move
		if json.Unmarshal(f.Data, &v) == nil {
			return fmt.Sprintf("move    %d. %s (%s)", v.Ply, v.SAN, v.UCI)
		}
	case benchdto.EventResult:
		var v benchdto.Result
		if json.Unmarshal(f.Data, &v) == nil {
			return fmt.Sprintf("result  %s by %s", v.Result, v.Reason)
		}
	}
	return fmt.Sprintf("%s %s", f.Type, string(f.Data))
}
