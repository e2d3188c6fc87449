/*
Package async holds the calling convention of the non-blocking reader API: every
operation returns a Future which is settled exactly once by a goroutine running the
blocking implementation.
*/
package async

import (
	"context"
	"sync"
)

// Future is the eventual result of an operation started with Go.
type Future[T any] struct {
	done   chan struct{}
	once   sync.Once
	value  T
	err    error
	cancel context.CancelFunc
}

/*
Go starts operation on its own goroutine and returns its Future. The operation gets a
context derived from ctx which is cancelled by Cancel, or once the operation returns.
*/
func Go[T any](ctx context.Context, operation func(ctx context.Context) (T, error)) *Future[T] {
	operationCtx, cancel := context.WithCancel(ctx)
	future := &Future[T]{done: make(chan struct{}), cancel: cancel}

	go func() {
		defer cancel()
		value, err := operation(operationCtx)
		future.settle(value, err)
	}()

	return future
}

// Returns a Future that is already settled with err.
func Failed[T any](err error) *Future[T] {
	future := &Future[T]{done: make(chan struct{}), cancel: func() {}}
	var zero T
	future.settle(zero, err)
	return future
}

func (future *Future[T]) settle(value T, err error) {
	future.once.Do(func() {
		future.value = value
		future.err = err
		close(future.done)
	})
}

// Done is closed once the result is available.
func (future *Future[T]) Done() <-chan struct{} {
	return future.done
}

/*
Await blocks until the operation finishes or ctx is done. Giving up on ctx does not
cancel the operation; call Cancel for that.
*/
func (future *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-future.done:
		return future.value, future.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Cancels the context the operation runs with.
func (future *Future[T]) Cancel() {
	future.cancel()
}
