package service

import (
	"sync"
	"time"

	"github.com/nknandakumar/tablet-scheduler/internal/form"
)

type session struct {
	form     *form.Form
	lastSeen time.Time
}

type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*session)}
}

// get returns the session form, creating it on first use, and marks it seen.
func (r *sessionRegistry) get(id string, now time.Time, create func() *form.Form) (*form.Form, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		s = &session{form: create()}
		r.sessions[id] = s
	}
	s.lastSeen = now
	return s.form, len(r.sessions)
}

// expire removes sessions not seen since cutoff and hands each to evict while
// the registry is still locked, so a returning session id cannot stage files
// before the old ones are gone. Sessions with an upload in flight are kept
// until it finishes.
func (r *sessionRegistry) expire(cutoff time.Time, evict func(id string, f *form.Form)) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) && !s.form.Loading() {
			delete(r.sessions, id)
			evict(id, s.form)
			removed++
		}
	}
	return removed
}

func (r *sessionRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
