package resource

import (
	"context"
	"fmt"
)

// Future is the pending result of an operation started with Go. Once started
// the operation runs to completion; callers only choose how long they wait.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Go runs fn in a new goroutine and returns a Future for its result.
// fn receives a context that keeps ctx's values but is never canceled, so a
// waiter that gives up does not abort the operation.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("panic: %v", r)
			}
		}()
		f.value, f.err = fn(runCtx)
	}()
	return f
}

// Completed returns a Future that is already resolved with value and err.
func Completed[T any](value T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), value: value, err: err}
	close(f.done)
	return f
}

// Done is closed when the operation has finished.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the operation finishes or ctx is done, whichever comes
// first. When ctx ends first the operation keeps running and ctx.Err() is
// returned.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Ready reports whether the operation has finished, without blocking.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
