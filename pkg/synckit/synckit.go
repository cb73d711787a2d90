// Package synckit contains synchronisation primitives used across pagekit.
package synckit

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Memo is a single-assignment cell for a lazily computed value.
//
// The first Do caller starts the computation, concurrent callers await the very same in-flight
// computation instead of re-invoking the init function (compute-once guarantee).
// Once the cell resolved successfully it never resets.
//
// The zero value is ready to use.
type Memo[T any] struct {
	// CacheFailures makes the first non-cancellation failure permanent:
	// every later Do call observes the cached error without re-invoking init.
	// When false (the default), a failed computation may be retried by a later call.
	//
	// Cancellation errors are never cached under either policy.
	CacheFailures bool

	group singleflight.Group
	mu    sync.RWMutex
	value T
	err   error
	done  bool
}

// Lookup returns the resolved value without blocking.
// It reports false while the cell is unresolved or resolved with a failure.
func (m *Memo[T]) Lookup() (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.done || m.err != nil {
		var zero T
		return zero, false
	}
	return m.value, true
}

// Resolve installs the given value into the cell, unless it already resolved.
func (m *Memo[T]) Resolve(v T) {
	m.store(v, nil)
}

// Do returns the memoized value, computing it with init when the cell is still unresolved.
//
// A caller whose context gets cancelled stops waiting and receives the context's error,
// without corrupting the shared computation for the other callers.
func (m *Memo[T]) Do(ctx context.Context, init func(context.Context) (T, error)) (T, error) {
	if v, err, ok := m.result(); ok {
		return v, err
	}
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	ch := m.group.DoChan("memo", func() (any, error) {
		if v, err, ok := m.result(); ok {
			return v, err
		}
		v, err := init(ctx)
		m.store(v, err)
		return v, err
	})
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func (m *Memo[T]) result() (T, error, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.value, m.err, m.done
}

func (m *Memo[T]) store(v T, err error) {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		if !m.CacheFailures {
			return
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done {
		return
	}
	m.value, m.err, m.done = v, err, true
}
