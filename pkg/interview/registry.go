package interview

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry owns all live sessions. Lookups hand out exclusive, serialized
// access to one session's mutable state via With: mutations from the
// connection path and from job-completion callbacks never interleave.
//
// Ended ids are tombstoned so late-arriving job results fail lookup
// predictably instead of resurrecting a session.
type Registry struct {
	mu         sync.Mutex
	sessions   map[string]*registryEntry
	tombstones map[string]struct{}
	now        func() time.Time
}

type registryEntry struct {
	mu   sync.Mutex
	sess *Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:   make(map[string]*registryEntry),
		tombstones: make(map[string]struct{}),
		now:        time.Now,
	}
}

// Create allocates a new session seeded with the given plan and returns its id.
func (r *Registry) Create(plan Plan) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.sessions[id] = &registryEntry{sess: newSession(id, plan, r.now())}
	r.mu.Unlock()
	return id
}

// With runs fn while holding the session's exclusive lock. It returns
// ErrSessionNotFound for unknown or tombstoned ids. fn must not block on
// external calls; dispatch work after With returns.
func (r *Registry) With(id string, fn func(*Session) error) error {
	r.mu.Lock()
	entry, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	// The entry may have been ended between the map lookup and acquiring its
	// lock; treat that the same as a missing id.
	if entry.sess == nil || entry.sess.phase == PhaseEnded {
		return ErrSessionNotFound
	}
	return fn(entry.sess)
}

// End removes the session from the live map, tombstones the id, marks the
// session Ended under its lock, and returns the final record for any
// post-processing handoff. fn, when non-nil, runs under the session lock just
// before the snapshot so the caller can collect resources (the live
// connection) that the record does not carry. Ending an unknown or
// already-ended id reports ErrSessionNotFound.
func (r *Registry) End(id string, fn func(*Session)) (Record, error) {
	r.mu.Lock()
	entry, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
		r.tombstones[id] = struct{}{}
	}
	r.mu.Unlock()
	if !ok {
		return Record{}, ErrSessionNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.sess == nil || entry.sess.phase == PhaseEnded {
		return Record{}, ErrSessionNotFound
	}
	entry.sess.phase = PhaseEnded
	if fn != nil {
		fn(entry.sess)
	}
	rec := entry.sess.Snapshot(r.now())
	return rec, nil
}

// Tombstoned reports whether the id once named a session that has since ended.
func (r *Registry) Tombstoned(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tombstones[id]
	return ok
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// IDs returns a snapshot of live session ids, for shutdown sweeps.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	return out
}
