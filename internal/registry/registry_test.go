package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/iammadab/chessbench/internal/domain"
)

func newState(id string, created time.Time) domain.MatchState {
	return domain.NewMatchState(id, "startpos", domain.White, "a", "b", 60000, created)
}

func TestInsertGetSnapshot(t *testing.T) {
	r := New()
	r.Insert("m1", newState("m1", time.Unix(0, 0)))

	got, ok := r.Get("m1")
	if !ok || got.MatchID != "m1" || got.Status != domain.StatusRunning {
		t.Fatalf("unexpected entry %+v ok=%v", got, ok)
	}
	if _, ok := r.Snapshot("missing"); ok {
		t.Fatalf("expected missing entry")
	}
	if _, ok := r.Get("missing"); ok {
		t.Fatalf("expected missing entry")
	}
}

func TestUpdateMissingIsNoop(t *testing.T) {
	r := New()
	called := false
	if r.Update("ghost", func(*domain.MatchState) { called = true }) {
		t.Fatalf("update on missing entry reported success")
	}
	if called {
		t.Fatalf("mutator ran for missing entry")
	}
	if r.Len() != 0 {
		t.Fatalf("update created an entry")
	}
}

func TestPanickingMutatorReleasesLock(t *testing.T) {
	r := New()
	r.Insert("m1", newState("m1", time.Unix(0, 0)))

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected mutator panic to propagate")
			}
		}()
		r.Update("m1", func(s *domain.MatchState) {
			s.Ply = 99
			panic("mutator exploded")
		})
	}()

	done := make(chan domain.MatchState, 1)
	go func() {
		r.Update("m1", func(s *domain.MatchState) { s.Ply = 1 })
		got, _ := r.Snapshot("m1")
		done <- got
	}()
	select {
	case got := <-done:
		if got.Ply != 1 {
			t.Fatalf("expected ply 1 after recovery, got %d", got.Ply)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("registry lock still held after mutator panic")
	}
}

func TestSnapshotDoesNotAlias(t *testing.T) {
	r := New()
	r.Insert("m1", newState("m1", time.Unix(0, 0)))
	r.Update("m1", func(s *domain.MatchState) {
		s.History = append(s.History, domain.MoveRecord{Ply: 1, UCI: "e2e4"})
		s.Ply = 1
	})

	snap, _ := r.Snapshot("m1")
	snap.History[0].UCI = "tampered"
	snap.History = append(snap.History, domain.MoveRecord{Ply: 2})

	again, _ := r.Snapshot("m1")
	if len(again.History) != 1 || again.History[0].UCI != "e2e4" {
		t.Fatalf("snapshot aliased registry memory: %+v", again.History)
	}
}

func TestListOrdersByCreation(t *testing.T) {
	r := New()
	base := time.Unix(100, 0)
	r.Insert("late", newState("late", base.Add(time.Second)))
	r.Insert("early", newState("early", base))

	list := r.List()
	if len(list) != 2 || list[0].MatchID != "early" || list[1].MatchID != "late" {
		t.Fatalf("unexpected order %+v", list)
	}
}

func TestObserversSeeEveryWrite(t *testing.T) {
	var mu sync.Mutex
	var plies []int
	r := New(func(s domain.MatchState) {
		mu.Lock()
		plies = append(plies, s.Ply)
		mu.Unlock()
	})
	r.Insert("m1", newState("m1", time.Unix(0, 0)))
	for i := 1; i <= 3; i++ {
		r.Update("m1", func(s *domain.MatchState) { s.Ply++ })
	}
	r.Update("ghost", func(s *domain.MatchState) { s.Ply = 99 })

	mu.Lock()
	defer mu.Unlock()
	want := []int{0, 1, 2, 3}
	if len(plies) != len(want) {
		t.Fatalf("observer calls = %v, want %v", plies, want)
	}
	for i := range want {
		if plies[i] != want[i] {
			t.Fatalf("observer calls = %v, want %v", plies, want)
		}
	}
}

func TestConcurrentReadersNeverSeeTornState(t *testing.T) {
	r := New()
	r.Insert("m1", newState("m1", time.Unix(0, 0)))

	const plies = 500
	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan string, 16)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				s, ok := r.Snapshot("m1")
				if !ok {
					continue
				}
				if s.Ply != len(s.History) {
					errs <- "ply/history mismatch"
					return
				}
				if s.Ply > 0 && (s.LastMove == nil || s.LastMove.Ply != s.Ply) {
					errs <- "last move does not match ply"
					return
				}
				if s.Clock.WhiteMS != 60000-int64(s.Ply) {
					errs <- "clock from a different update"
					return
				}
			}
		}()
	}

	for i := 1; i <= plies; i++ {
		r.Update("m1", func(s *domain.MatchState) {
			s.Ply++
			rec := domain.MoveRecord{Ply: s.Ply}
			s.History = append(s.History, rec)
			s.LastMove = &rec
			s.Clock.WhiteMS--
		})
	}
	close(stop)
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Fatalf("%s", msg)
	}

	final, _ := r.Snapshot("m1")
	if final.Ply != plies || len(final.History) != plies {
		t.Fatalf("unexpected final state ply=%d history=%d", final.Ply, len(final.History))
	}
}
