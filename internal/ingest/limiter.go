package ingest

// limiter.go bounds the number of source files parsed at once.
//
// Parsing a large workbook holds the whole file and its cells in memory, so
// the HTTP adapter takes a slot before reading an upload. When every slot is
// taken a caller waits up to maxWait, then fails with ErrBusy.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrBusy is returned when no parse slot frees up within the wait time.
var ErrBusy = errors.New("too many concurrent uploads, please try again later")

// Defaults used when the limiter is created with non-positive values.
const (
	DefaultMaxConcurrent = 5
	DefaultMaxWait       = 30 * time.Second
)

// Limiter is a counting semaphore over parse slots.
type Limiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// NewLimiter allows at most maxConcurrent parses at once.
func NewLimiter(maxConcurrent int, maxWait time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &Limiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot, waiting at most the configured time. The caller
// must Release a slot it acquired.
func (l *Limiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrBusy
	}
}

// TryAcquire takes a slot only if one is free.
func (l *Limiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return true
	default:
		return false
	}
}

// Release returns a slot.
func (l *Limiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// Active returns the number of slots in use.
func (l *Limiter) Active() int {
	return int(l.active.Load())
}

// Capacity returns the number of slots.
func (l *Limiter) Capacity() int {
	return cap(l.slots)
}

// Drain blocks until no slot is in use or ctx is done.
func (l *Limiter) Drain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for l.Active() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// LimiterStatus reports limiter usage for the snapshot endpoint.
type LimiterStatus struct {
	Active    int `json:"active"`
	Available int `json:"available"`
	Capacity  int `json:"capacity"`
}

// Status returns current usage.
func (l *Limiter) Status() LimiterStatus {
	active := l.Active()
	return LimiterStatus{
		Active:    active,
		Available: cap(l.slots) - active,
		Capacity:  cap(l.slots),
	}
}
