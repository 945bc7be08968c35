// Package lock provides the per-listing critical section.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/shared"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// LocalLocker serializes work per listing inside one process. Waiters are
// admitted in arrival order; a waiter that does not get in within the wait
// gets shared.ErrListingBusy.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*slot
	wait  time.Duration
}

type slot struct {
	sem  *semaphore.Weighted
	refs int
}

// NewLocalLocker creates a locker with the given bounded wait
func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{
		slots: make(map[uuid.UUID]*slot),
		wait:  wait,
	}
}

// Lock acquires the section of listingID
func (l *LocalLocker) Lock(ctx context.Context, listingID uuid.UUID) (func(), error) {
	s := l.acquireSlot(listingID)

	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	if err := s.sem.Acquire(waitCtx, 1); err != nil {
		l.releaseSlot(listingID, s)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, shared.ErrListingBusy
		}
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.sem.Release(1)
			l.releaseSlot(listingID, s)
		})
	}, nil
}

func (l *LocalLocker) acquireSlot(listingID uuid.UUID) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[listingID]
	if !ok {
		s = &slot{sem: semaphore.NewWeighted(1)}
		l.slots[listingID] = s
	}
	s.refs++
	return s
}

// releaseSlot drops the slot once nobody holds or waits for it
func (l *LocalLocker) releaseSlot(listingID uuid.UUID, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, listingID)
	}
}

// Held returns the number of listings with a holder or waiter
func (l *LocalLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
