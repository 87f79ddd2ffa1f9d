package dispatch

import (
	"context"
	"sync/atomic"
)

// gate bounds concurrent CPU-heavy renders. Admission beyond the
// render bound queues up to queueDepth waiters; past that requests
// are rejected immediately with a retryable overload error. Without
// both bounds latency collapses once enough decodes pile up.
type gate struct {
	tokens     chan struct{}
	queued     atomic.Int64
	queueDepth int64
}

func newGate(maxConcurrent, queueDepth int) *gate {
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	if queueDepth <= 0 {
		queueDepth = 4 * maxConcurrent
	}
	return &gate{
		tokens:     make(chan struct{}, maxConcurrent),
		queueDepth: int64(queueDepth),
	}
}

func (g *gate) acquire(ctx context.Context) error {
	select {
	case g.tokens <- struct{}{}:
		return nil
	default:
	}
	if g.queued.Add(1) > g.queueDepth {
		g.queued.Add(-1)
		return E(KindOverloaded, "render queue full")
	}
	defer g.queued.Add(-1)
	select {
	case g.tokens <- struct{}{}:
		return nil
	case <-ctx.Done():
		return Wrap(KindSourceUnavailable, ctx.Err(), "request abandoned in render queue")
	}
}

func (g *gate) release() { <-g.tokens }
