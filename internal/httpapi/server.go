// Package httpapi exposes match creation, status and live feeds over HTTP,
// Server-Sent Events and WebSocket.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iammadab/chessbench/internal/adapter/benchpresenter"
	"github.com/iammadab/chessbench/internal/board"
	"github.com/iammadab/chessbench/internal/domain"
	"github.com/iammadab/chessbench/internal/feed"
	"github.com/iammadab/chessbench/internal/metrics"
	"github.com/iammadab/chessbench/internal/service"
	"github.com/iammadab/chessbench/pkg/benchdto"
)

const maxBodyBytes = 1 << 20

// Matches is the service surface the transport needs. *service.Service implements it.
type Matches interface {
	Engines() []domain.EngineHandle
	Create(req service.CreateRequest) (string, error)
	Get(id string) (domain.MatchState, error)
	List() []domain.MatchState
	Snapshot(id string) (domain.MatchState, bool)
}

type Server struct {
	matches  Matches
	metrics  *metrics.Metrics
	interval time.Duration
	logger   *zap.Logger
}

type Option func(*Server)

func WithMetrics(m *metrics.Metrics) Option { return func(s *Server) { s.metrics = m } }

// WithStreamInterval sets the feed polling interval.
func WithStreamInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(matches Matches, opts ...Option) *Server {
	s := &Server{matches: matches, interval: feed.DefaultInterval, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/engines", s.handleEngines)
	mux.HandleFunc("POST /api/match", s.handleCreate)
	mux.HandleFunc("GET /api/matches", s.handleList)
	mux.HandleFunc("GET /api/match/{id}", s.handleStatus)
	mux.HandleFunc("GET /api/match/{id}/moves", s.handleMoves)
	mux.HandleFunc("GET /api/match/{id}/stream", s.handleStream)
	mux.HandleFunc("GET /api/match/{id}/ws", s.handleWebSocket)
	mux.HandleFunc("GET /api/match/{id}/board.png", s.handleBoard)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", s.metrics.Handler())
	return mux
}

func (s *Server) handleEngines(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, benchpresenter.ToDTOEngines(s.matches.Engines()))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req benchdto.CreateMatchRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty body")
		}
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid request body: %v", err))
		return
	}

	id, err := s.matches.Create(service.CreateRequest{
		WhiteID:   req.WhiteEngineID,
		BlackID:   req.BlackEngineID,
		InitialMS: req.TimeControl.InitialMS,
		StartFEN:  req.StartFEN,
	})
	if err != nil {
		status, code := classify(err)
		if status >= http.StatusInternalServerError {
			s.logger.Warn("match_create_failed", zap.Error(err))
		}
		writeError(w, status, code, err.Error())
		return
	}
	s.logger.Info("match_created", zap.String("match_id", id), zap.String("white", req.WhiteEngineID), zap.String("black", req.BlackEngineID))
	writeJSON(w, http.StatusOK, benchdto.CreateMatchResponse{MatchID: id})
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, benchpresenter.ToDTOStatuses(s.matches.List()))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	state, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, benchpresenter.ToDTOStatus(state))
}

func (s *Server) handleMoves(w http.ResponseWriter, r *http.Request) {
	state, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, benchpresenter.ToDTOMoves(state))
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	state, ok := s.lookup(w, r)
	if !ok {
		return
	}
	img, err := board.RenderState(r.Context(), state)
	if err != nil {
		s.logger.Warn("board_render_failed", zap.String("match_id", state.MatchID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "render_failed", "failed to render board")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(img)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (domain.MatchState, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	state, err := s.matches.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "match not found")
		return domain.MatchState{}, false
	}
	return state, true
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidBudget),
		errors.Is(err, service.ErrBudgetTooLarge),
		errors.Is(err, service.ErrUnknownEngine),
		errors.Is(err, service.ErrSameEngine),
		errors.Is(err, service.ErrInvalidStart):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, service.ErrCapacity):
		return http.StatusServiceUnavailable, "capacity"
	case errors.Is(err, service.ErrClosed):
		return http.StatusServiceUnavailable, "shutting_down"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, benchdto.APIError{Code: code, Message: msg})
}
