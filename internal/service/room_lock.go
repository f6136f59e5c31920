package service

import (
	"context"
	"sync"
)

// roomLocks serializes all state mutation of a single room. Rooms are
// independent: holding one room's lock never blocks another room.
type roomLocks struct {
	mu    sync.Mutex
	locks map[string]*roomLock
}

type roomLock struct {
	sem  chan struct{}
	refs int
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[string]*roomLock)}
}

// lock acquires roomID's lock, giving up when ctx is done. The returned
// func releases it and must be called exactly once.
func (l *roomLocks) lock(ctx context.Context, roomID string) (func(), error) {
	l.mu.Lock()
	rl, ok := l.locks[roomID]
	if !ok {
		rl = &roomLock{sem: make(chan struct{}, 1)}
		l.locks[roomID] = rl
	}
	rl.refs++
	l.mu.Unlock()

	select {
	case rl.sem <- struct{}{}:
		return func() {
			<-rl.sem
			l.release(roomID, rl)
		}, nil
	case <-ctx.Done():
		l.release(roomID, rl)
		return nil, ctx.Err()
	}
}

func (l *roomLocks) release(roomID string, rl *roomLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rl.refs--
	if rl.refs == 0 {
		delete(l.locks, roomID)
	}
}

// size returns the number of rooms with a held or awaited lock
func (l *roomLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
