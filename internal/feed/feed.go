// Package feed turns registry snapshots into an ordered stream of observer
// events by polling at a fixed interval.
package feed

import (
	"context"
	"time"

	"github.com/iammadab/chessbench/internal/adapter/benchpresenter"
	"github.com/iammadab/chessbench/internal/domain"
	"github.com/iammadab/chessbench/pkg/benchdto"
)

const DefaultInterval = 200 * time.Millisecond

type Event struct {
	Type string
	Data any
}

// Source is the read side of the match registry.
type Source interface {
	Snapshot(id string) (domain.MatchState, bool)
}

// Watch emits match_started, then on every tick a clock event followed by
// each move not yet delivered, and finally one result event once the match
// is terminal. The channel closes after the result, when the match
// disappears, or when ctx is done.
func Watch(ctx context.Context, src Source, id string, interval time.Duration) <-chan Event {
	if interval <= 0 {
		interval = DefaultInterval
	}
	out := make(chan Event)
	go func() {
		defer close(out)
		send := func(typ string, data any) bool {
			select {
			case out <- Event{Type: typ, Data: data}:
				return true
			case <-ctx.Done():
				return false
			}
		}

		first, ok := src.Snapshot(id)
		if !ok {
			return
		}
		if !send(benchdto.EventMatchStarted, benchpresenter.ToDTOStarted(first)) {
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		lastPly := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			snap, ok := src.Snapshot(id)
			if !ok {
				return
			}
			if !send(benchdto.EventClock, benchpresenter.ToDTOClocks(snap.Clock)) {
				return
			}
			for _, rec := range snap.History {
				if rec.Ply <= lastPly {
					continue
				}
				if !send(benchdto.EventMove, benchpresenter.ToDTOMove(rec)) {
					return
				}
				lastPly = rec.Ply
			}
			if snap.Status.Terminal() {
				if snap.Result != nil {
					send(benchdto.EventResult, benchpresenter.ToDTOResult(snap.Result))
				}
				return
			}
		}
	}()
	return out
}
