// Package lazy provides a value that is computed once, on first use, by
// whichever goroutine gets there first.
package lazy

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Value holds the result of a one-time initialization.
//
// Concurrent callers of Get share a single in-flight attempt. A successful
// result is stored and returned to every later caller without running the
// factory again. A failed attempt is reported to all of its waiters and is
// not cached: the next Get starts a fresh attempt.
type Value[T any] struct {
	factory func(ctx context.Context) (T, error)
	group   singleflight.Group

	mu    sync.Mutex
	done  bool
	value T
}

// New returns a Value computed by factory.
func New[T any](factory func(ctx context.Context) (T, error)) *Value[T] {
	return &Value[T]{factory: factory}
}

// Get returns the value, running the factory if no attempt has succeeded yet.
//
// The attempt is detached from the caller's cancellation; ctx only bounds how
// long this caller waits.
func (v *Value[T]) Get(ctx context.Context) (T, error) {
	if val, ok := v.load(); ok {
		return val, nil
	}

	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	ch := v.group.DoChan("", func() (interface{}, error) {
		// A previous flight may have completed between load and DoChan.
		if val, ok := v.load(); ok {
			return val, nil
		}

		val, err := v.factory(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		v.mu.Lock()
		v.value = val
		v.done = true
		v.mu.Unlock()

		return val, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Done reports whether an attempt has succeeded.
func (v *Value[T]) Done() bool {
	_, ok := v.load()
	return ok
}

func (v *Value[T]) load() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.value, v.done
}
