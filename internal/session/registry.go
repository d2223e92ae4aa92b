package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lucsky/cuid"
	"github.com/norrisp90/geneticai/internal/metrics"
)

// Session is one live chat conversation bound to an agent thread.
type Session struct {
	ID         string
	ThreadID   string
	CreatedAt  time.Time
	LastActive time.Time
}

// Registry is the in-memory session store. Sessions expire after the
// configured idle timeout; Start runs the background sweeper.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	timeout  time.Duration
	now      func() time.Time
}

func NewRegistry(timeout time.Duration) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		timeout:  timeout,
		now:      time.Now,
	}
}

// Open registers a new session for the given agent thread.
func (r *Registry) Open(threadID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	session := &Session{
		ID:         cuid.New(),
		ThreadID:   threadID,
		CreatedAt:  now,
		LastActive: now,
	}
	r.sessions[session.ID] = session

	metrics.IncSessionOpened()
	metrics.SetActiveSessions(len(r.sessions))
	return session
}

// Get returns the session and marks it active.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s not found", id)
	}
	session.LastActive = r.now()
	return session, nil
}

// SetThread binds an agent thread to a session that was opened before the
// backend became reachable.
func (r *Registry) SetThread(id, threadID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	session.ThreadID = threadID
	return nil
}

// Remove drops a session, if present.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	metrics.SetActiveSessions(len(r.sessions))
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep removes sessions idle longer than the timeout and returns how many
// were reaped.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.timeout)
	reaped := 0
	for id, session := range r.sessions {
		if session.LastActive.Before(cutoff) {
			delete(r.sessions, id)
			reaped++
			metrics.IncSessionExpired()
		}
	}
	if reaped > 0 {
		metrics.SetActiveSessions(len(r.sessions))
	}
	return reaped
}

// Start runs the sweeper until the context is cancelled.
func (r *Registry) Start(ctx context.Context) {
	interval := r.timeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	if interval > time.Minute {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep()
			}
		}
	}()
}
