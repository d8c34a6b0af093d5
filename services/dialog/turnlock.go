package dialog

import (
	"context"
	"sync"
)

// turnLanes serializes turn processing per client. Each client key owns a
// lane; the lane holder processes while later arrivals wait FIFO, up to a
// bounded depth. Arrivals past the bound are rejected immediately so a
// flood from one client cannot pile up goroutines.
type turnLanes struct {
	mu    sync.Mutex
	lanes map[string]*lane
	depth int
}

type lane struct {
	busy    bool
	waiters []chan struct{}
}

func newTurnLanes(depth int) *turnLanes {
	if depth <= 0 {
		depth = 1
	}
	return &turnLanes{lanes: make(map[string]*lane), depth: depth}
}

// Acquire takes the client's lane, waiting behind earlier turns. The
// returned release must be called exactly once. Returns ErrTurnQueueFull
// when the wait queue is at capacity.
func (t *turnLanes) Acquire(ctx context.Context, key string) (func(), error) {
	t.mu.Lock()
	l, ok := t.lanes[key]
	if !ok {
		l = &lane{}
		t.lanes[key] = l
	}
	if !l.busy {
		l.busy = true
		t.mu.Unlock()
		return func() { t.release(key) }, nil
	}
	if len(l.waiters) >= t.depth {
		t.mu.Unlock()
		return nil, ErrTurnQueueFull
	}
	ch := make(chan struct{})
	l.waiters = append(l.waiters, ch)
	t.mu.Unlock()

	select {
	case <-ch:
		return func() { t.release(key) }, nil
	case <-ctx.Done():
		t.abandon(key, ch)
		return nil, ctx.Err()
	}
}

// release hands the lane to the oldest waiter, or frees it.
func (t *turnLanes) release(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.lanes[key]
	if !ok {
		return
	}
	if len(l.waiters) > 0 {
		next := l.waiters[0]
		l.waiters = l.waiters[1:]
		close(next)
		return
	}
	l.busy = false
	delete(t.lanes, key)
}

// abandon withdraws a cancelled waiter. If the grant raced the
// cancellation, the lane is passed on so it is never orphaned.
func (t *turnLanes) abandon(key string, ch chan struct{}) {
	t.mu.Lock()
	l, ok := t.lanes[key]
	if ok {
		for i, w := range l.waiters {
			if w == ch {
				l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
				t.mu.Unlock()
				return
			}
		}
	}
	t.mu.Unlock()
	// Not in the queue: the grant already happened.
	t.release(key)
}
