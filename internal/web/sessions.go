package web

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/catalogrecon/internal/core"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many sessions")
)

// session is one client's filter state. The state value is replaced, never
// mutated, so a copy handed to a query stays consistent.
type session struct {
	state    core.FilterState
	lastUsed time.Time
}

// sessionStore keeps filter sessions in memory, evicting idle ones.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	idle     time.Duration
	max      int
	now      func() time.Time
	onChange func(n int)
}

func newSessionStore(idle time.Duration, max int, onChange func(n int)) *sessionStore {
	if onChange == nil {
		onChange = func(int) {}
	}
	return &sessionStore{
		sessions: make(map[string]*session),
		idle:     idle,
		max:      max,
		now:      time.Now,
		onChange: onChange,
	}
}

// Create starts a session with an empty filter state.
func (st *sessionStore) Create() (string, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.evictLocked()
	if st.max > 0 && len(st.sessions) >= st.max {
		return "", ErrTooManySessions
	}
	id := uuid.NewString()
	st.sessions[id] = &session{state: core.NewFilterState(), lastUsed: st.now()}
	st.onChange(len(st.sessions))
	return id, nil
}

// Get returns the state of a live session and refreshes its idle timer.
func (st *sessionStore) Get(id string) (core.FilterState, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, err := st.lookupLocked(id)
	if err != nil {
		return core.FilterState{}, err
	}
	return sess.state, nil
}

// Update replaces the state of a session with fn's result.
func (st *sessionStore) Update(id string, fn func(core.FilterState) core.FilterState) (core.FilterState, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, err := st.lookupLocked(id)
	if err != nil {
		return core.FilterState{}, err
	}
	sess.state = fn(sess.state)
	return sess.state, nil
}

// Delete drops a session. Deleting an unknown session is an error.
func (st *sessionStore) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(st.sessions, id)
	st.onChange(len(st.sessions))
	return nil
}

// Len returns the number of live sessions.
func (st *sessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

func (st *sessionStore) lookupLocked(id string) (*session, error) {
	sess, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	now := st.now()
	if st.idle > 0 && now.Sub(sess.lastUsed) > st.idle {
		delete(st.sessions, id)
		st.onChange(len(st.sessions))
		return nil, ErrSessionNotFound
	}
	sess.lastUsed = now
	return sess, nil
}

func (st *sessionStore) evictLocked() int {
	if st.idle <= 0 {
		return 0
	}
	now := st.now()
	evicted := 0
	for id, sess := range st.sessions {
		if now.Sub(sess.lastUsed) > st.idle {
			delete(st.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		st.onChange(len(st.sessions))
	}
	return evicted
}

// Sweep evicts idle sessions every interval until ctx is done.
func (st *sessionStore) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.mu.Lock()
			st.evictLocked()
			st.mu.Unlock()
		}
	}
}
