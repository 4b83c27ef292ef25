package dispatch_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/asynchttp/core/dispatch"
)

func TestPoolCapsConcurrency(t *testing.T) {
	pool := dispatch.NewPool(2)

	var inFlight, maxSeen atomic.Int32
	release := make(chan struct{})

	observe := func() {
		n := inFlight.Add(1)
		for {
			old := maxSeen.Load()
			if n <= old || maxSeen.CompareAndSwap(old, n) {
				break
			}
		}
		<-release
		inFlight.Add(-1)
	}

	for i := 0; i < 5; i++ {
		require.NoError(t, pool.Run(context.Background(), dispatch.CallableFunc(observe)))
	}

	assert.Eventually(t, func() bool { return inFlight.Load() == 2 }, time.Second, time.Millisecond)
	assert.LessOrEqual(t, maxSeen.Load(), int32(2))

	close(release)
}

func TestPoolRunDedicatedReleasesOnQuit(t *testing.T) {
	pool := dispatch.NewPool(1)

	a := newSpyAsync()
	loop, err := pool.RunDedicated(context.Background(), a)
	require.NoError(t, err)

	select {
	case got := <-a.entered:
		assert.Equal(t, loop, got)
	case <-time.After(time.Second):
		t.Fatal("OnEnter was never called")
	}

	require.NoError(t, loop.Quit())

	// The permit is released once the dedicated loop drains; a second
	// RunDedicated must be able to acquire it.
	acquired := make(chan struct{})
	go func() {
		second := newSpyAsync()
		_, _ = pool.RunDedicated(context.Background(), second)
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second RunDedicated never acquired the released permit")
	}
}
