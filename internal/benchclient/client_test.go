package benchclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/iammadab/chessbench/pkg/benchdto"
)

func TestEnginesAndCreate(t *testing.T) {
	var body benchdto.CreateMatchRequest
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/engines", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(benchdto.EnginesResponse{Engines: []benchdto.EngineInfo{{ID: "sf", Name: "Stockfish"}}})
	})
	mux.HandleFunc("POST /api/match", func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &body)
		json.NewEncoder(w).Encode(benchdto.CreateMatchResponse{MatchID: "abc"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL + "/")
	engines, err := c.Engines(context.Background())
	if err != nil || len(engines) != 1 || engines[0].ID != "sf" {
		t.Fatalf("Engines = %+v, %v", engines, err)
	}
	id, err := c.CreateMatch(context.Background(), benchdto.CreateMatchRequest{
		WhiteEngineID: "sf", BlackEngineID: "lc0", TimeControl: benchdto.TimeControl{InitialMS: 5000},
	})
	if err != nil || id != "abc" {
		t.Fatalf("CreateMatch = %q, %v", id, err)
	}
	if body.WhiteEngineID != "sf" || body.TimeControl.InitialMS != 5000 {
		t.Fatalf("server saw %+v", body)
	}
}

func TestAPIErrorDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":"not_found","error":"match not found"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Match(context.Background(), "missing")
	var apiErr *benchdto.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Message != "match not found" || apiErr.Retryable() {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestRetriesIdempotentRequests(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(benchdto.MatchesResponse{Matches: []benchdto.MatchStatus{{MatchID: "m"}}})
	}))
	defer srv.Close()

	list, err := NewClient(srv.URL, WithRetry(3)).Matches(context.Background())
	if err != nil || len(list) != 1 {
		t.Fatalf("Matches = %+v, %v", list, err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestCreateIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"code":"capacity","error":"match capacity reached"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, WithRetry(5)).CreateMatch(context.Background(), benchdto.CreateMatchRequest{})
	var apiErr *benchdto.APIError
	if !errors.As(err, &apiErr) || !apiErr.Retryable() {
		t.Fatalf("expected retryable APIError, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestWatchReadsUntilNormalClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/match/m1/ws" {
			http.NotFound(w, r)
			return
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		for _, typ := range []string{benchdto.EventMatchStarted, benchdto.EventMove, benchdto.EventResult} {
			wsjson.Write(r.Context(), conn, benchdto.Frame{Type: typ, Data: json.RawMessage(`{}`)})
		}
		conn.Close(websocket.StatusNormalClosure, "done")
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var got []string
	err := NewClient(srv.URL).Watch(ctx, "m1", func(f benchdto.Frame) error {
		got = append(got, f.Type)
		return nil
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if len(got) != 3 || got[2] != benchdto.EventResult {
		t.Fatalf("frames = %v", got)
	}
}

func TestWSURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:8080":  "ws://localhost:8080/api/match/x/ws",
		"https://bench.example/": "wss://bench.example/api/match/x/ws",
	}
	for base, want := range cases {
		if got := NewClient(base).wsURL("x"); got != want {
			t.Fatalf("wsURL(%q) = %q, want %q", base, got, want)
		}
	}
}
