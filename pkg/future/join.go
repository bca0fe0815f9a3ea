package future

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// JoinBoth runs a and b concurrently and returns once both complete
// (spec.md §4.7's join_both). Grounded on golang.org/x/sync/errgroup's
// fan-out/fan-in shape: the original hand-rolls a join_both future
// type that polls two sub-futures in lockstep, which an errgroup of
// two goroutines models directly at the host level.
func JoinBoth[A, B any](ctx context.Context, a func(context.Context) (A, error), b func(context.Context) (B, error)) (A, B, error) {
	var av A
	var bv B
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := a(gctx)
		av = v
		return err
	})
	g.Go(func() error {
		v, err := b(gctx)
		bv = v
		return err
	})
	err := g.Wait()
	return av, bv, err
}

// JoinResult is the value returned by JoinOne: which index completed
// first and its slot-erased value.
type JoinResult struct {
	Index int
	Value any
	Err   error
}

// JoinOne runs fns concurrently and returns as soon as the first one
// completes, leaving the rest running in the background (spec.md
// §4.7's join_one: resolves on the first ready leaf).
func JoinOne(ctx context.Context, fns ...func(context.Context) (any, error)) JoinResult {
	results := make(chan JoinResult, len(fns))
	for i, fn := range fns {
		i, fn := i, fn
		go func() {
			v, err := fn(ctx)
			results <- JoinResult{Index: i, Value: v, Err: err}
		}()
	}
	return <-results
}
