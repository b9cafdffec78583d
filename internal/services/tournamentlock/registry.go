package tournamentlock

import (
	"context"
	"sync"

	"github.com/mcoot/chiptourney/internal/model"
)

// Registry hands out one mutex per tournament. Assignment and cutoff hold
// it for their whole critical section; storage-level compare-and-swap covers
// callers in other processes.
type Registry struct {
	mu    sync.Mutex
	locks map[model.TournamentID]*entry
}

type entry struct {
	sem  chan struct{}
	refs int
}

// New creates an empty Registry
func New() *Registry {
	return &Registry{locks: make(map[model.TournamentID]*entry)}
}

// Lock blocks until the tournament's lock is held or ctx is done.
// The returned func releases the lock and must be called exactly once.
func (r *Registry) Lock(ctx context.Context, id model.TournamentID) (func(), error) {
	e := r.acquire(id)

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		r.release(id)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			r.release(id)
		})
	}, nil
}

// acquire returns the entry for id with its reference count raised
func (r *Registry) acquire(id model.TournamentID) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.locks[id]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		r.locks[id] = e
	}
	e.refs++
	return e
}

// release drops a reference and forgets unused entries
func (r *Registry) release(id model.TournamentID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.locks[id]
	if !ok {
		return
	}
	e.refs--
	if e.refs == 0 {
		delete(r.locks, id)
	}
}

// Len returns the number of tournaments with a held or awaited lock
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}
