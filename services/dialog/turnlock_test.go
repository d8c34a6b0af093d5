package dialog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnLanesSerializeOneClient(t *testing.T) {
	lanes := newTurnLanes(4)
	var mu sync.Mutex
	var order []int
	var inFlight, maxInFlight int

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			<-start
			// Stagger arrivals so the queue order is deterministic.
			time.Sleep(time.Duration(n) * 20 * time.Millisecond)
			release, err := lanes.Acquire(context.Background(), "client-1")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inFlight++
			if inFlight > maxInFlight {
				maxInFlight = inFlight
			}
			order = append(order, n)
			mu.Unlock()
			time.Sleep(30 * time.Millisecond)
			mu.Lock()
			inFlight--
			mu.Unlock()
			release()
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, maxInFlight, "turns of one client must never overlap")
	assert.Equal(t, []int{0, 1, 2, 3}, order, "waiters must be served in arrival order")
}

func TestTurnLanesIndependentClients(t *testing.T) {
	lanes := newTurnLanes(1)

	r1, err := lanes.Acquire(context.Background(), "a")
	require.NoError(t, err)
	defer r1()

	// A different client is not blocked by a's lane.
	done := make(chan struct{})
	go func() {
		r2, err := lanes.Acquire(context.Background(), "b")
		assert.NoError(t, err)
		r2()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("independent client was blocked")
	}
}

func TestTurnLanesRejectPastDepth(t *testing.T) {
	lanes := newTurnLanes(1)

	release, err := lanes.Acquire(context.Background(), "a")
	require.NoError(t, err)

	// One waiter fits.
	waiterDone := make(chan error, 1)
	go func() {
		r, err := lanes.Acquire(context.Background(), "a")
		if err == nil {
			r()
		}
		waiterDone <- err
	}()
	// Give the waiter time to enqueue.
	time.Sleep(50 * time.Millisecond)

	// The next arrival overflows the queue.
	_, err = lanes.Acquire(context.Background(), "a")
	assert.ErrorIs(t, err, ErrTurnQueueFull)

	release()
	assert.NoError(t, <-waiterDone)
}

func TestTurnLanesCancelledWaiterWithdraws(t *testing.T) {
	lanes := newTurnLanes(2)

	release, err := lanes.Acquire(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := lanes.Acquire(ctx, "a")
		errCh <- err
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	// The lane still works after the withdrawal.
	release()
	r2, err := lanes.Acquire(context.Background(), "a")
	require.NoError(t, err)
	r2()
}
