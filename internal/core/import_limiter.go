package core

// import_limiter.go bounds concurrent commits.
//
// A semaphore restricts parallel commits across all events. When every slot
// is taken, new commits wait up to maxWait before failing with
// ErrTooManyImports. Independently, each event may run at most one commit at
// a time; a second request for a busy event fails immediately with
// ErrImportInProgress.

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxConcurrentImports is the default limit for parallel commits.
const DefaultMaxConcurrentImports = 4

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 10 * time.Second

// ImportLimiter controls concurrent commit processing.
type ImportLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.Mutex
	active int
	busy   map[string]bool
}

// NewImportLimiter creates a limiter that allows at most maxConcurrent
// simultaneous commits.
func NewImportLimiter(maxConcurrent int, maxWait time.Duration) *ImportLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentImports
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &ImportLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
		busy:      make(map[string]bool),
	}
}

// Acquire reserves the event and a global slot. The caller MUST call
// Release(eventID) when the commit finishes.
func (l *ImportLimiter) Acquire(ctx context.Context, eventID string) error {
	l.mu.Lock()
	if l.busy[eventID] {
		l.mu.Unlock()
		return ErrImportInProgress
	}
	l.busy[eventID] = true
	l.mu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		l.unmark(eventID)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyImports
	}
}

// Release frees the global slot and the event.
// Must be called exactly once for each successful Acquire.
func (l *ImportLimiter) Release(eventID string) {
	l.mu.Lock()
	l.active--
	delete(l.busy, eventID)
	l.mu.Unlock()

	<-l.semaphore
}

func (l *ImportLimiter) unmark(eventID string) {
	l.mu.Lock()
	delete(l.busy, eventID)
	l.mu.Unlock()
}

// Busy reports whether a commit is running for the event.
func (l *ImportLimiter) Busy(eventID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.busy[eventID]
}

// ActiveCount returns the number of running commits.
func (l *ImportLimiter) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Available returns the number of free slots.
func (l *ImportLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until all running commits complete or ctx is done.
func (l *ImportLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
