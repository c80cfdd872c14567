package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/iammadab/chessbench/internal/feed"
	"github.com/iammadab/chessbench/pkg/benchdto"
)

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if _, ok := s.matches.Snapshot(id); !ok {
		writeError(w, http.StatusNotFound, "not_found", "match not found")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal", "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range feed.Watch(r.Context(), s.matches, id, s.interval) {
		data, err := json.Marshal(ev.Data)
		if err != nil {
			s.logger.Warn("stream_encode_failed", zap.String("match_id", id), zap.Error(err))
			continue
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
			return
		}
		flusher.Flush()
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if _, ok := s.matches.Snapshot(id); !ok {
		writeError(w, http.StatusNotFound, "not_found", "match not found")
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		s.logger.Debug("ws_accept_failed", zap.String("match_id", id), zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "feed aborted")

	// Observers only listen; CloseRead handles control frames and ends ctx when the peer leaves.
	ctx := conn.CloseRead(r.Context())
	for ev := range feed.Watch(ctx, s.matches, id, s.interval) {
		data, err := json.Marshal(ev.Data)
		if err != nil {
			s.logger.Warn("ws_encode_failed", zap.String("match_id", id), zap.Error(err))
			continue
		}
		if err := wsjson.Write(ctx, conn, benchdto.Frame{Type: ev.Type, Data: data}); err != nil {
			s.logger.Debug("ws_write_failed", zap.String("match_id", id), zap.Error(err))
			return
		}
	}
	conn.Close(websocket.StatusNormalClosure, "match feed complete")
}
