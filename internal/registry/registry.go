// Package registry stores live match state. Each entry has a single writer
// (its orchestrator) and any number of readers.
package registry

import (
	"sort"
	"sync"

	"github.com/iammadab/chessbench/internal/domain"
)

// Observer receives a private copy of every state written to the registry.
// Observers for one match are called in write order.
type Observer func(domain.MatchState)

type Registry struct {
	mu        sync.RWMutex
	matches   map[string]domain.MatchState
	observers []Observer
}

func New(observers ...Observer) *Registry {
	return &Registry{
		matches:   make(map[string]domain.MatchState),
		observers: observers,
	}
}

// Insert stores the initial state for id, replacing any previous entry.
func (r *Registry) Insert(id string, state domain.MatchState) {
	state = state.Clone()
	r.mu.Lock()
	r.matches[id] = state
	r.mu.Unlock()
	r.notify(state)
}

// Update applies fn to a copy of the entry and stores the result atomically.
// A missing entry is a no-op and reports false.
func (r *Registry) Update(id string, fn func(*domain.MatchState)) bool {
	next, ok := r.apply(id, fn)
	if !ok {
		return false
	}
	r.notify(next)
	return true
}

// apply runs fn on a clone under the write lock. A panicking fn leaves the
// stored state untouched and the lock released.
func (r *Registry) apply(id string, fn func(*domain.MatchState)) (domain.MatchState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.matches[id]
	if !ok {
		return domain.MatchState{}, false
	}
	next := cur.Clone()
	fn(&next)
	r.matches[id] = next
	return next, true
}

// Get returns the stored state. Stored states are never modified in place,
// but callers must treat slices and pointers in the result as read-only.
func (r *Registry) Get(id string) (domain.MatchState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.matches[id]
	return state, ok
}

// Snapshot returns a deep copy of the stored state.
func (r *Registry) Snapshot(id string) (domain.MatchState, bool) {
	r.mu.RLock()
	state, ok := r.matches[id]
	r.mu.RUnlock()
	if !ok {
		return domain.MatchState{}, false
	}
	return state.Clone(), true
}

// List returns copies of every entry, oldest first.
func (r *Registry) List() []domain.MatchState {
	r.mu.RLock()
	out := make([]domain.MatchState, 0, len(r.matches))
	for _, state := range r.matches {
		out = append(out, state.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].MatchID < out[j].MatchID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matches)
}

func (r *Registry) notify(state domain.MatchState) {
	for _, obs := range r.observers {
		obs(state.Clone())
	}
}
