package monument

import (
	"context"
	"sync"
)

// Future is a single-assignment result cell, the Go-native stand-in for
// the source pipeline's exception-carrying futures (design note in
// spec §9). It is produced by Submit and consumed through the
// combinators below (Map, AndThen, All) — callers never block a worker
// goroutine except via these combinators.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// complete resolves the future exactly once; later calls are no-ops, to
// tolerate cancellation races between a worker finishing and a context
// being cancelled underneath it.
func (f *Future[T]) complete(val T, err error) {
	f.once.Do(func() {
		f.val = val
		f.err = err
		close(f.done)
	})
}

// Get blocks the caller until the future resolves or ctx is cancelled,
// whichever comes first.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done reports whether the future has already resolved.
func (f *Future[T]) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// NewPendingFuture returns a not-yet-resolved future paired with the
// function that resolves it exactly once. Used by schedulers/coordinators
// that must publish a future to concurrent callers before the
// value-producing work has finished (e.g. fetch.Coordinator's
// at-most-once map).
func NewPendingFuture[T any]() (*Future[T], func(T, error)) {
	f := newFuture[T]()
	return f, f.complete
}

// Resolved constructs an already-completed future, for composing
// synchronous results (e.g. cached values) into a future-typed pipeline.
func Resolved[T any](val T, err error) *Future[T] {
	f := newFuture[T]()
	f.complete(val, err)
	return f
}

// Map transforms a future's value on completion without introducing a
// new scheduled task; fn runs on a goroutine Map starts, once f has
// resolved, mirroring the "join-like combinator" design note.
func Map[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	out := newFuture[U]()
	go func() {
		v, err := f.Get(context.Background())
		if err != nil {
			var zero U
			out.complete(zero, err)
			return
		}
		u, err := fn(v)
		out.complete(u, err)
	}()
	return out
}

// AndThen sequences a dependent future-producing continuation.
func AndThen[T, U any](f *Future[T], fn func(T) (*Future[U], error)) *Future[U] {
	out := newFuture[U]()
	go func() {
		v, err := f.Get(context.Background())
		if err != nil {
			var zero U
			out.complete(zero, err)
			return
		}
		next, err := fn(v)
		if err != nil {
			var zero U
			out.complete(zero, err)
			return
		}
		nv, err := next.Get(context.Background())
		out.complete(nv, err)
	}()
	return out
}

// All composes independent futures into one that resolves once every
// input has resolved, failing with the first error observed (by index
// order, for determinism) if any failed.
func All[T any](futures []*Future[T]) *Future[[]T] {
	out := newFuture[[]T]()
	go func() {
		vals := make([]T, len(futures))
		errs := make([]error, len(futures))
		var wg sync.WaitGroup
		wg.Add(len(futures))
		for i, fu := range futures {
			go func(i int, fu *Future[T]) {
				defer wg.Done()
				v, err := fu.Get(context.Background())
				vals[i] = v
				errs[i] = err
			}(i, fu)
		}
		wg.Wait()
		for _, err := range errs {
			if err != nil {
				out.complete(nil, err)
				return
			}
		}
		out.complete(vals, nil)
	}()
	return out
}
