package coordinator

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rickgao/arbwatch/internal/model"
	"github.com/rickgao/arbwatch/internal/store"
)

// ErrTimedOut is returned when an operation does not finish before its deadline.
var ErrTimedOut = errors.New("operation timed out")

// WithDeadline runs op and waits at most d for its result.
//
// op is never interrupted: after a timeout it keeps running and its result
// is discarded. Returns ErrTimedOut on deadline, or ctx.Err() if ctx ends first.
func WithDeadline[T any](ctx context.Context, d time.Duration, op func() T) (T, error) {
	return WithDeadlineTracked(ctx, d, op, nil)
}

// Abandoned counts operations that are still running after their caller
// stopped waiting for them. The zero value is ready to use.
type Abandoned struct {
	running atomic.Int64
	total   atomic.Int64
}

// Running returns how many abandoned operations have not finished yet.
func (a *Abandoned) Running() int64 {
	return a.running.Load()
}

// Total returns how many operations were ever abandoned.
func (a *Abandoned) Total() int64 {
	return a.total.Load()
}

const (
	opRunning int32 = iota
	opFinished
	opAbandoned
)

// WithDeadlineTracked is WithDeadline that records abandoned operations in a
// until they finish. a may be nil.
func WithDeadlineTracked[T any](ctx context.Context, d time.Duration, op func() T, a *Abandoned) (T, error) {
	var state atomic.Int32
	done := make(chan T, 1) // buffered so a late op never blocks
	go func() {
		done <- op()
		if !state.CompareAndSwap(opRunning, opFinished) && a != nil {
			a.running.Add(-1)
		}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	abandon := func() {
		if a != nil && state.CompareAndSwap(opRunning, opAbandoned) {
			a.running.Add(1)
			a.total.Add(1)
		}
	}

	var zero T
	select {
	case v := <-done:
		return v, nil
	case <-timer.C:
		abandon()
		return zero, ErrTimedOut
	case <-ctx.Done():
		abandon()
		return zero, ctx.Err()
	}
}

// Merger folds quotes into stored records.
type Merger interface {
	Merge(asset string, q model.Quote) (store.MergeResult, error)
}

type mergeOutcome struct {
	res store.MergeResult
	err error
}

// BoundedMerge runs m.Merge under a deadline of d. A timed-out merge is not
// retried; if it completes later its result is dropped.
func BoundedMerge(ctx context.Context, m Merger, asset string, q model.Quote, d time.Duration) (store.MergeResult, error) {
	return BoundedMergeTracked(ctx, m, asset, q, d, nil)
}

// BoundedMergeTracked is BoundedMerge recording timed-out merges in a.
func BoundedMergeTracked(ctx context.Context, m Merger, asset string, q model.Quote, d time.Duration, a *Abandoned) (store.MergeResult, error) {
	out, err := WithDeadlineTracked(ctx, d, func() mergeOutcome {
		res, err := m.Merge(asset, q)
		return mergeOutcome{res: res, err: err}
	}, a)
	if err != nil {
		return store.MergeResult{}, err
	}
	return out.res, out.err
}
