package apiclient

import (
	"context"
	"sync"
)

type inflight struct {
	id     uint64
	cancel context.CancelCauseFunc
}

// registry tracks at most one live request per logical key.
type registry struct {
	mu      sync.Mutex
	seq     uint64
	entries map[string]inflight
}

func newRegistry() *registry {
	return &registry{entries: make(map[string]inflight)}
}

// start supersedes any live request under key and registers a new one.
// The returned release func must be called when the request finishes.
func (r *registry) start(parent context.Context, key string) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(parent)

	r.mu.Lock()
	if prev, ok := r.entries[key]; ok {
		prev.cancel(ErrSuperseded)
	}
	r.seq++
	id := r.seq
	r.entries[key] = inflight{id: id, cancel: cancel}
	r.mu.Unlock()

	release := func() {
		r.mu.Lock()
		if cur, ok := r.entries[key]; ok && cur.id == id {
			delete(r.entries, key)
		}
		r.mu.Unlock()
		cancel(nil)
	}
	return ctx, release
}

func (r *registry) cancel(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[key]
	if !ok {
		return false
	}
	delete(r.entries, key)
	entry.cancel(ErrCancelled)
	return true
}

func (r *registry) cancelAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.entries)
	for key, entry := range r.entries {
		entry.cancel(ErrCancelled)
		delete(r.entries, key)
	}
	return n
}

func (r *registry) active(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[key]
	return ok
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
