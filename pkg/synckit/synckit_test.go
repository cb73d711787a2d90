package synckit_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.llib.dev/pagekit/pkg/synckit"
	"go.llib.dev/testcase/assert"
	"go.llib.dev/testcase/random"
)

var rnd = random.New(random.CryptoSeed{})

func TestMemo_Do(t *testing.T) {
	t.Run("computes the value on first use", func(t *testing.T) {
		var m synckit.Memo[int]
		exp := rnd.Int()
		got, err := m.Do(context.Background(), func(context.Context) (int, error) {
			return exp, nil
		})
		assert.NoError(t, err)
		assert.Equal(t, exp, got)
	})

	t.Run("computes at most once", func(t *testing.T) {
		var m synckit.Memo[int]
		var count int32
		for i := 0; i < 3; i++ {
			got, err := m.Do(context.Background(), func(context.Context) (int, error) {
				return int(atomic.AddInt32(&count, 1)), nil
			})
			assert.NoError(t, err)
			assert.Equal(t, 1, got)
		}
		assert.Equal(t, int32(1), atomic.LoadInt32(&count))
	})

	t.Run("concurrent callers await the same in-flight computation", func(t *testing.T) {
		var (
			m       synckit.Memo[int]
			count   int32
			started = make(chan struct{})
			release = make(chan struct{})
		)
		const N = 10
		var (
			wg      sync.WaitGroup
			results [N]int
		)
		for i := 0; i < N; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				got, err := m.Do(context.Background(), func(context.Context) (int, error) {
					close(started)
					<-release
					return int(atomic.AddInt32(&count, 1)), nil
				})
				assert.NoError(t, err)
				results[i] = got
			}(i)
		}
		<-started
		close(release)
		wg.Wait()
		assert.Equal(t, int32(1), atomic.LoadInt32(&count))
		for _, got := range results {
			assert.Equal(t, 1, got)
		}
	})

	t.Run("failure is retried by default", func(t *testing.T) {
		var m synckit.Memo[int]
		expErr := errors.New(rnd.String())
		var count int32
		_, err := m.Do(context.Background(), func(context.Context) (int, error) {
			atomic.AddInt32(&count, 1)
			return 0, expErr
		})
		assert.ErrorIs(t, err, expErr)

		exp := rnd.Int()
		got, err := m.Do(context.Background(), func(context.Context) (int, error) {
			atomic.AddInt32(&count, 1)
			return exp, nil
		})
		assert.NoError(t, err)
		assert.Equal(t, exp, got)
		assert.Equal(t, int32(2), atomic.LoadInt32(&count))
	})

	t.Run("failure is cached when CacheFailures is set", func(t *testing.T) {
		m := synckit.Memo[int]{CacheFailures: true}
		expErr := errors.New(rnd.String())
		var count int32
		for i := 0; i < 3; i++ {
			_, err := m.Do(context.Background(), func(context.Context) (int, error) {
				atomic.AddInt32(&count, 1)
				return 0, expErr
			})
			assert.ErrorIs(t, err, expErr)
		}
		assert.Equal(t, int32(1), atomic.LoadInt32(&count))
	})

	t.Run("cancelled caller receives the context error", func(t *testing.T) {
		var m synckit.Memo[int]
		ctx, cancel := context.WithCancel(context.Background())
		blocked := make(chan struct{})
		go func() {
			<-blocked
			cancel()
		}()
		_, err := m.Do(ctx, func(ctx context.Context) (int, error) {
			close(blocked)
			<-ctx.Done()
			return 0, ctx.Err()
		})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("cancellation does not poison the cell", func(t *testing.T) {
		var m synckit.Memo[int]
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := m.Do(ctx, func(ctx context.Context) (int, error) {
			return 0, ctx.Err()
		})
		assert.ErrorIs(t, err, context.Canceled)

		exp := rnd.Int()
		got, err := m.Do(context.Background(), func(context.Context) (int, error) {
			return exp, nil
		})
		assert.NoError(t, err)
		assert.Equal(t, exp, got)
	})
}

func TestMemo_Lookup(t *testing.T) {
	t.Run("unresolved cell reports not ok", func(t *testing.T) {
		var m synckit.Memo[string]
		_, ok := m.Lookup()
		assert.False(t, ok)
	})

	t.Run("resolved cell yields the value without blocking", func(t *testing.T) {
		var m synckit.Memo[string]
		exp := rnd.String()
		_, err := m.Do(context.Background(), func(context.Context) (string, error) {
			return exp, nil
		})
		assert.NoError(t, err)

		assert.Within(t, time.Second, func(context.Context) {
			got, ok := m.Lookup()
			assert.True(t, ok)
			assert.Equal(t, exp, got)
		})
	})
}

func TestMemo_Resolve(t *testing.T) {
	t.Run("installs the value", func(t *testing.T) {
		var m synckit.Memo[int]
		exp := rnd.Int()
		m.Resolve(exp)
		got, ok := m.Lookup()
		assert.True(t, ok)
		assert.Equal(t, exp, got)
	})

	t.Run("does not override an already resolved cell", func(t *testing.T) {
		var m synckit.Memo[int]
		m.Resolve(1)
		m.Resolve(2)
		got, ok := m.Lookup()
		assert.True(t, ok)
		assert.Equal(t, 1, got)
	})

	t.Run("Do returns the resolved value without computing", func(t *testing.T) {
		var m synckit.Memo[int]
		exp := rnd.Int()
		m.Resolve(exp)
		got, err := m.Do(context.Background(), func(context.Context) (int, error) {
			t.Fatal("init was not expected to run")
			return 0, nil
		})
		assert.NoError(t, err)
		assert.Equal(t, exp, got)
	})
}
