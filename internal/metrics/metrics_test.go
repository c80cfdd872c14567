package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iammadab/chessbench/internal/domain"
)

func TestMatchLifecycleCounters(t *testing.T) {
	m := New()
	m.MatchStarted()
	m.MatchStarted()
	m.PlyApplied()
	m.MatchFinished(domain.MatchState{Status: domain.StatusFinished, Result: &domain.Result{Score: "1-0", Reason: domain.ReasonCheckmate}})

	if got := testutil.ToFloat64(m.active); got != 1 {
		t.Fatalf("active = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.started); got != 2 {
		t.Fatalf("started = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.finished.WithLabelValues("finished", "checkmate")); got != 1 {
		t.Fatalf("finished = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.plies); got != 1 {
		t.Fatalf("plies = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.MatchStarted()
	m.PlyApplied()
	m.MatchRejected("capacity")
	m.MatchFinished(domain.MatchState{})
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.MatchRejected("capacity")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `chessbench_matches_rejected_total{cause="capacity"} 1`) {
		t.Fatalf("counter missing from exposition:\n%s", body)
	}
}
