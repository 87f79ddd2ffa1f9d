package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateAdmitsUpToBound(t *testing.T) {
	g := newGate(2, 1)
	ctx := context.Background()
	require.NoError(t, g.acquire(ctx))
	require.NoError(t, g.acquire(ctx))
	g.release()
	g.release()
}

func TestGateQueuesThenRejects(t *testing.T) {
	g := newGate(1, 1)
	ctx := context.Background()
	require.NoError(t, g.acquire(ctx))

	// One waiter fits in the queue.
	waiterDone := make(chan error, 1)
	go func() { waiterDone <- g.acquire(ctx) }()

	// Give the waiter time to enter the queue, then overflow it.
	assert.Eventually(t, func() bool { return g.queued.Load() == 1 }, time.Second, time.Millisecond)

	err := g.acquire(ctx)
	var de *Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, KindOverloaded, de.Kind)
	assert.True(t, de.Retryable())

	// Releasing lets the queued waiter in.
	g.release()
	require.NoError(t, <-waiterDone)
	g.release()
}

func TestGateHonorsCancellation(t *testing.T) {
	g := newGate(1, 4)
	require.NoError(t, g.acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.acquire(ctx) }()
	cancel()
	assert.Error(t, <-done)
	g.release()
}
