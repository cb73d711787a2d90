package pageiter

import (
	"context"
	"io"
	"iter"

	"go.llib.dev/pagekit/pkg/errorkit"
	"go.llib.dev/pagekit/pkg/pagination"
)

// ErrClosed is returned when an enumerator is used after it got closed.
const ErrClosed errorkit.Error = "pageiter: enumerator is closed"

// Cursor encapsulates accessing and traversing an aggregate object
// without knowing its representation.
// Interface design inspired by https://golang.org/pkg/encoding/json/#Decoder
type Cursor[V any] interface {
	// Next will ensure that Value returns the next item when executed.
	// If the next value is not retrievable, Next should return false and ensure Err() will return the error cause.
	Next() bool
	// Value returns the current value in the cursor.
	// The action should be repeatable without side effects.
	Value() V
	// Closer is required to make it able to release resources held behind the scenes.
	io.Closer
	// Err return the error cause.
	Err() error
}

// CursorOf turns a sequence into a pull style Cursor.
func CursorOf[T any](itr iter.Seq2[T, error]) Cursor[T] {
	next, stop := iter.Pull2(itr)
	return &seqCursor[T]{next: next, stop: stop}
}

type seqCursor[T any] struct {
	next func() (T, error, bool)
	stop func()
	val  T
	err  error
	done bool
}

func (c *seqCursor[T]) Next() bool {
	if c.done || c.err != nil {
		return false
	}
	v, err, ok := c.next()
	if !ok {
		return false
	}
	if err != nil {
		c.err = err
		return false
	}
	c.val = v
	return true
}

func (c *seqCursor[T]) Value() T { return c.val }

func (c *seqCursor[T]) Err() error { return c.err }

func (c *seqCursor[T]) Close() error {
	if c.done {
		return nil
	}
	c.done = true
	c.stop()
	return nil
}

// NewEnumerator wraps an inner cursor into a pagination aware enumeration pass.
//
// The Enumerator takes exclusive ownership of the cursor, Close releases it.
func NewEnumerator[T any](cursor Cursor[T], start pagination.Pagination, strategy pagination.Strategy) *Enumerator[T] {
	return &Enumerator[T]{cursor: cursor, p: start, strategy: strategy}
}

// Enumerator is a single enumeration pass over a paged sequence.
// It applies the pagination strategy on each step and owns the disposal of its inner cursor.
//
// Concurrent Next calls on the same Enumerator are a usage error.
type Enumerator[T any] struct {
	cursor   Cursor[T]
	strategy pagination.Strategy
	p        pagination.Pagination
	index    int
	value    T
	err      error
	ended    bool
	closed   bool
}

// Next advances the enumeration by one item.
// It reports true when an item is available through Value.
// A false return with a nil error means the sequence ended normally,
// a false return with a non nil error means the pass got aborted.
func (e *Enumerator[T]) Next(ctx context.Context) (bool, error) {
	if e.closed {
		return false, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if e.err != nil {
		return false, e.err
	}
	if e.ended {
		return false, nil
	}
	if e.cursor.Next() {
		e.index++
		e.value = e.cursor.Value()
		e.p = pagination.Advance(e.p, e.strategy, e.index, false)
		return true, nil
	}
	e.ended = true
	if err := e.cursor.Err(); err != nil {
		e.err = err
		return false, err
	}
	// normal exhaustion, the end-of-sequence bookkeeping runs exactly once
	e.p = pagination.Advance(e.p, e.strategy, e.index+1, true)
	return false, nil
}

// Value returns the current item. It is only valid after a true Next.
func (e *Enumerator[T]) Value() T {
	if e.closed {
		panic(ErrClosed)
	}
	return e.value
}

// Pagination returns the running pagination value of the pass.
func (e *Enumerator[T]) Pagination() pagination.Pagination { return e.p }

// SetStrategy switches the bookkeeping strategy.
// The next advance uses the new strategy starting from the current running pagination,
// past items are not recomputed.
func (e *Enumerator[T]) SetStrategy(s pagination.Strategy) { e.strategy = s }

// Close releases the inner cursor. Calling it multiple times is a no-op.
func (e *Enumerator[T]) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	return e.cursor.Close()
}
