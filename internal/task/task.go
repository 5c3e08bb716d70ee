// Package task runs build work on a bounded number of goroutines.
package task

import (
	"context"
	"fmt"
	"sync"
)

// Error reports the first failing item of a batch.
type Error struct {
	Index int
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("task %d failed: %v", e.Index, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Executor bounds concurrent work to Size goroutines. Size 1 or less runs
// everything inline on the calling goroutine.
type Executor struct {
	size int
}

// NewExecutor returns an executor running at most size tasks at once.
func NewExecutor(size int) *Executor {
	if size < 1 {
		size = 1
	}
	return &Executor{size: size}
}

// Size returns the concurrency bound.
func (e *Executor) Size() int { return e.size }

// Run executes a single unit of work.
func (e *Executor) Run(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		return &Error{Index: 0, Err: err}
	}
	return nil
}

// RunAll executes fns and waits for them. The first failure stops dispatch
// of further work; tasks already running are drained before returning.
func (e *Executor) RunAll(ctx context.Context, fns ...func(context.Context) error) error {
	_, err := Map(ctx, e, fns, func(ctx context.Context, fn func(context.Context) error) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Map applies fn to every item on exec and returns the results in
// submission order. On failure the results are nil and the error is a *Error
// naming the lowest failing index observed.
func Map[T, R any](ctx context.Context, exec *Executor, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	if exec == nil || exec.size <= 1 {
		for i, item := range items {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			r, err := fn(ctx, item)
			if err != nil {
				return nil, &Error{Index: i, Err: err}
			}
			results[i] = r
		}
		return results, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		first *Error
	)
	sem := make(chan struct{}, exec.size)

dispatch:
	for i, item := range items {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break dispatch
		}
		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			defer func() { <-sem }()
			r, err := fn(ctx, item)
			if err != nil {
				mu.Lock()
				if first == nil || i < first.Index {
					first = &Error{Index: i, Err: err}
				}
				mu.Unlock()
				cancel()
				return
			}
			results[i] = r
		}(i, item)
	}
	wg.Wait()

	if first != nil {
		return nil, first
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
