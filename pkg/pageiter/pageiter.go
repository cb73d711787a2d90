// Package pageiter provides lazy sequences that carry pagination metadata alongside their items.
//
// A Sequence bundles an item source with a pagination value or a pagination producing computation.
// The pagination computation is memoized: it runs at most once,
// even when requested concurrently while the items are being enumerated.
package pageiter

import (
	"context"
	"iter"
	"sync/atomic"

	"go.llib.dev/pagekit/pkg/pagination"
	"go.llib.dev/pagekit/pkg/synckit"
	"go.llib.dev/pagekit/port/option"
)

// Config contains the optional behaviours of a Sequence.
type Config struct {
	// Strategy is the default pagination bookkeeping strategy for enumerators made by the Sequence.
	Strategy pagination.Strategy
	// CachePaginationFailure makes a failed pagination computation permanent instead of retryable.
	CachePaginationFailure bool

	known   *pagination.Pagination
	compute func(context.Context) (pagination.Pagination, error)
}

type Option = option.Option[Config]

// WithStrategy sets the default pagination strategy of the sequence.
func WithStrategy(s pagination.Strategy) Option {
	return option.Func[Config](func(c *Config) { c.Strategy = s })
}

// WithPagination supplies an already known pagination value.
func WithPagination(p pagination.Pagination) Option {
	return option.Func[Config](func(c *Config) { c.known = &p })
}

// WithPaginationFunc supplies the computation that produces the pagination value on demand.
// The computation runs at most once across all concurrent callers.
func WithPaginationFunc(fn func(context.Context) (pagination.Pagination, error)) Option {
	return option.Func[Config](func(c *Config) { c.compute = fn })
}

// CachePaginationFailure makes the first pagination computation failure permanent:
// every later accessor call observes the same error without recomputing.
func CachePaginationFailure() Option {
	return option.Func[Config](func(c *Config) { c.CachePaginationFailure = true })
}

// Sequence is a lazy item sequence bundled with pagination metadata.
//
// A Sequence may produce many enumeration passes,
// but the memoized pagination computation is shared between all of them.
type Sequence[T any] struct {
	src      func(context.Context) iter.Seq2[T, error]
	strategy pagination.Strategy
	memo     *synckit.Memo[pagination.Pagination]
	compute  func(context.Context) (pagination.Pagination, error)
}

// FromSeq creates a Sequence over a single-use item sequence.
//
// Because the source can only be walked once,
// enumerating a second view over the already exhausted source yields an empty sequence.
func FromSeq[T any](itr iter.Seq2[T, error], opts ...Option) *Sequence[T] {
	single := once2(itr)
	return newSequence[T](func(context.Context) iter.Seq2[T, error] { return single }, opts)
}

// FromSeqFunc creates a Sequence whose item source is recreated for every enumeration pass.
func FromSeqFunc[T any](src func(context.Context) iter.Seq2[T, error], opts ...Option) *Sequence[T] {
	return newSequence[T](src, opts)
}

// FromSlice creates a repeatable Sequence over an in-memory item collection.
func FromSlice[T any](vs []T, opts ...Option) *Sequence[T] {
	return newSequence[T](func(context.Context) iter.Seq2[T, error] {
		return func(yield func(T, error) bool) {
			for _, v := range vs {
				if !yield(v, nil) {
					return
				}
			}
		}
	}, opts)
}

// Query is a query-like item source that knows its own offset, limit and total,
// so a Sequence made from it can synthesise its pagination without an explicit closure.
type Query[T any] interface {
	Offset() int
	Limit() int
	Total(ctx context.Context) (int64, error)
	Values(ctx context.Context) iter.Seq2[T, error]
}

// FromQuery creates a Sequence from a query-like source.
// The pagination value is derived from the query's own offset, limit and total count.
func FromQuery[T any](q Query[T], opts ...Option) *Sequence[T] {
	opts = append([]Option{WithPaginationFunc(func(ctx context.Context) (pagination.Pagination, error) {
		total, err := q.Total(ctx)
		if err != nil {
			return pagination.Empty(), err
		}
		return pagination.FromOffsetLimit(q.Offset(), q.Limit(), total), nil
	})}, opts...)
	return newSequence[T](q.Values, opts)
}

func newSequence[T any](src func(context.Context) iter.Seq2[T, error], opts []Option) *Sequence[T] {
	c := option.ToConfig(opts)
	s := &Sequence[T]{
		src:      src,
		strategy: c.Strategy,
		memo:     &synckit.Memo[pagination.Pagination]{CacheFailures: c.CachePaginationFailure},
		compute:  c.compute,
	}
	if c.known != nil {
		s.memo.Resolve(*c.known)
	}
	return s
}

// PaginationSnapshot returns the best-known pagination value without blocking.
// Before the computation resolved it returns the empty sentinel.
func (s *Sequence[T]) PaginationSnapshot() pagination.Pagination {
	if v, ok := s.memo.Lookup(); ok {
		return v
	}
	return pagination.Empty()
}

// Pagination returns the pagination value, computing it when not yet known.
// Concurrent callers before the first completion await the same in-flight computation.
func (s *Sequence[T]) Pagination(ctx context.Context) (pagination.Pagination, error) {
	if v, ok := s.memo.Lookup(); ok {
		return v, nil
	}
	if s.compute == nil {
		return s.PaginationSnapshot(), ctx.Err()
	}
	return s.memo.Do(ctx, s.compute)
}

// ResolvePagination installs an externally discovered pagination value into the memoized accessor.
// It is a no-op when the pagination already resolved.
// Intended for producers that learn the pagination as a side effect of item production,
// such as the streaming envelope decoder.
func (s *Sequence[T]) ResolvePagination(p pagination.Pagination) {
	s.memo.Resolve(p)
}

// WithStrategy returns a new view over the same underlying item source and pagination computation,
// with the given default strategy for the enumerators it creates.
func (s *Sequence[T]) WithStrategy(strategy pagination.Strategy) *Sequence[T] {
	view := *s
	view.strategy = strategy
	return &view
}

// Strategy returns the default pagination strategy of the sequence.
func (s *Sequence[T]) Strategy() pagination.Strategy { return s.strategy }

// Iter returns the item sequence for direct range-over-func consumption.
func (s *Sequence[T]) Iter(ctx context.Context) iter.Seq2[T, error] {
	return s.src(ctx)
}

// Enumerate begins a new enumeration pass.
// The returned Enumerator owns its inner cursor, Close releases it.
func (s *Sequence[T]) Enumerate(ctx context.Context) *Enumerator[T] {
	return NewEnumerator[T](CursorOf(s.src(ctx)), s.PaginationSnapshot(), s.strategy)
}

// Collect drains the sequence into a slice.
func Collect[T any](ctx context.Context, s *Sequence[T]) ([]T, error) {
	var vs []T
	for v, err := range s.Iter(ctx) {
		if err != nil {
			return vs, err
		}
		vs = append(vs, v)
	}
	return vs, nil
}

// Map returns a sequence view with every item projected through fn.
// The view shares the pagination computation of its source, the metadata is preserved.
func Map[T, U any](s *Sequence[T], fn func(T) U) *Sequence[U] {
	return &Sequence[U]{
		src: func(ctx context.Context) iter.Seq2[U, error] {
			return func(yield func(U, error) bool) {
				var zero U
				for v, err := range s.src(ctx) {
					if err != nil {
						if !yield(zero, err) {
							return
						}
						continue
					}
					if !yield(fn(v), nil) {
						return
					}
				}
			}
		},
		strategy: s.strategy,
		memo:     s.memo,
		compute:  s.compute,
	}
}

// Filter returns a sequence view containing the items that match the predicate.
// The view shares the pagination computation of its source, the metadata is preserved.
func Filter[T any](s *Sequence[T], pred func(T) bool) *Sequence[T] {
	return &Sequence[T]{
		src: func(ctx context.Context) iter.Seq2[T, error] {
			return func(yield func(T, error) bool) {
				for v, err := range s.src(ctx) {
					if err != nil {
						if !yield(v, err) {
							return
						}
						continue
					}
					if !pred(v) {
						continue
					}
					if !yield(v, nil) {
						return
					}
				}
			}
		},
		strategy: s.strategy,
		memo:     s.memo,
		compute:  s.compute,
	}
}

// Take returns a sequence view limited to the first n items.
// The view shares the pagination computation of its source, the metadata is preserved.
func Take[T any](s *Sequence[T], n int) *Sequence[T] {
	return &Sequence[T]{
		src: func(ctx context.Context) iter.Seq2[T, error] {
			return func(yield func(T, error) bool) {
				var count int
				for v, err := range s.src(ctx) {
					if err != nil {
						if !yield(v, err) {
							return
						}
						continue
					}
					if count >= n {
						return
					}
					count++
					if !yield(v, nil) {
						return
					}
				}
			}
		},
		strategy: s.strategy,
		memo:     s.memo,
		compute:  s.compute,
	}
}

func once2[K, V any](i iter.Seq2[K, V]) iter.Seq2[K, V] {
	var done int32
	return func(yield func(K, V) bool) {
		if !atomic.CompareAndSwapInt32(&done, 0, 1) {
			return
		}
		for k, v := range i {
			if !yield(k, v) {
				return
			}
		}
	}
}
