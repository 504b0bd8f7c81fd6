package web

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/catalogrecon/internal/core"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(idle time.Duration, max int) (*sessionStore, *fakeClock, *[]int) {
	clock := &fakeClock{now: time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)}
	var counts []int
	st := newSessionStore(idle, max, func(n int) { counts = append(counts, n) })
	st.now = clock.Now
	return st, clock, &counts
}

func TestSessionStore_Lifecycle(t *testing.T) {
	st, _, counts := newTestStore(time.Minute, 0)

	id, err := st.Create()
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	state, err := st.Get(id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if state.Phase() != core.PhaseNoCategory {
		t.Errorf("new session phase = %q", state.Phase())
	}

	updated, err := st.Update(id, func(s core.FilterState) core.FilterState { return s.WithCategory("Freni") })
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if cat, _ := updated.Category(); cat != "Freni" {
		t.Errorf("category = %q, want Freni", cat)
	}
	if got, _ := st.Get(id); got.Phase() != core.PhaseCategorySelected {
		t.Errorf("stored phase = %q", got.Phase())
	}

	if err := st.Delete(id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := st.Delete(id); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second Delete() error = %v, want ErrSessionNotFound", err)
	}
	if _, err := st.Update(id, func(s core.FilterState) core.FilterState { return s }); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Update() after delete error = %v", err)
	}

	if got := *counts; len(got) != 2 || got[0] != 1 || got[1] != 0 {
		t.Errorf("session counts = %v, want [1 0]", got)
	}
}

func TestSessionStore_IdleEviction(t *testing.T) {
	st, clock, _ := newTestStore(10*time.Minute, 0)

	idle, _ := st.Create()
	active, _ := st.Create()

	clock.Advance(6 * time.Minute)
	if _, err := st.Get(active); err != nil {
		t.Fatalf("Get(active) error = %v", err)
	}

	clock.Advance(6 * time.Minute)
	if _, err := st.Get(idle); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get(idle) error = %v, want ErrSessionNotFound", err)
	}
	if _, err := st.Get(active); err != nil {
		t.Errorf("Get(active) after refresh error = %v", err)
	}
	if st.Len() != 1 {
		t.Errorf("Len() = %d, want 1", st.Len())
	}
}

func TestSessionStore_MaxSessions(t *testing.T) {
	st, clock, _ := newTestStore(time.Minute, 2)

	st.Create()
	st.Create()
	if _, err := st.Create(); !errors.Is(err, ErrTooManySessions) {
		t.Fatalf("Create() over the limit error = %v, want ErrTooManySessions", err)
	}

	// idle sessions free their slots
	clock.Advance(2 * time.Minute)
	if _, err := st.Create(); err != nil {
		t.Errorf("Create() after idle eviction error = %v", err)
	}
	if st.Len() != 1 {
		t.Errorf("Len() = %d, want 1", st.Len())
	}
}

func TestSessionStore_Sweep(t *testing.T) {
	st := newSessionStore(20*time.Millisecond, 0, nil)
	st.Create()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		st.Sweep(ctx, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for st.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if st.Len() != 0 {
		t.Error("Sweep did not evict the idle session")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Sweep did not stop on cancel")
	}
}

func TestSessionStore_UniqueIDs(t *testing.T) {
	st := newSessionStore(time.Minute, 0, nil)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id, err := st.Create()
		if err != nil {
			t.Fatal(err)
		}
		if seen[id] {
			t.Fatalf("duplicate session id %q", id)
		}
		seen[id] = true
	}
}

func TestRateLimiter_Window(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := &fakeClock{now: time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)}
	rl := newRateLimiter(ctx, 2, time.Minute)
	rl.now = clock.Now

	tests := []struct {
		name    string
		advance time.Duration
		ip      string
		want    bool
	}{
		{"first", 0, "10.0.0.1", true},
		{"second", 0, "10.0.0.1", true},
		{"over limit", 0, "10.0.0.1", false},
		{"other client", 0, "10.0.0.2", true},
		{"new window", 61 * time.Second, "10.0.0.1", true},
	}
	for _, tt := range tests {
		clock.Advance(tt.advance)
		if got := rl.allow(tt.ip); got != tt.want {
			t.Errorf("%s: allow(%s) = %v, want %v", tt.name, tt.ip, got, tt.want)
		}
	}
}
