package coordinator

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultGateCapacity is the default number of concurrently running tasks.
const DefaultGateCapacity = 200

// Gate limits the number of background tasks in flight. A permit is held for
// the whole life of a task, so Go blocks while the gate is full.
type Gate struct {
	sem      *semaphore.Weighted
	wg       sync.WaitGroup
	inFlight atomic.Int64
}

// NewGate creates a Gate admitting at most capacity concurrent tasks.
func NewGate(capacity int) *Gate {
	if capacity < 1 {
		capacity = DefaultGateCapacity
	}
	return &Gate{sem: semaphore.NewWeighted(int64(capacity))}
}

// Go runs fn in a new goroutine once a permit is available. Returns ctx.Err()
// without running fn if ctx ends while waiting.
func (g *Gate) Go(ctx context.Context, fn func()) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	g.wg.Add(1)
	g.inFlight.Add(1)
	go func() {
		defer g.wg.Done()
		defer g.sem.Release(1)
		defer g.inFlight.Add(-1)
		fn()
	}()
	return nil
}

// Wait blocks until every task started by Go has returned.
func (g *Gate) Wait() {
	g.wg.Wait()
}

// InFlight returns the number of running tasks.
func (g *Gate) InFlight() int {
	return int(g.inFlight.Load())
}
