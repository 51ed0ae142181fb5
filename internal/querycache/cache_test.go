package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetCachesWithinStalenessWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	c := New(WithClock(func() time.Time { return now }))

	var calls atomic.Int32
	fetch := func(ctx context.Context) (any, error) {
		calls.Add(1)
		return "v1", nil
	}

	v, err := c.Get(context.Background(), "k", fetch)
	require.NoError(t, err)
	require.Equal(t, "v1", v)
	require.EqualValues(t, 1, calls.Load())

	now = now.Add(DefaultStaleAfter - time.Second)
	v, err = c.Get(context.Background(), "k", fetch)
	require.NoError(t, err)
	require.Equal(t, "v1", v)
	require.EqualValues(t, 1, calls.Load())

	now = now.Add(2 * time.Second)
	_, err = c.Get(context.Background(), "k", fetch)
	require.NoError(t, err)
	require.EqualValues(t, 2, calls.Load())
}

func TestGetDeduplicatesConcurrentFetches(t *testing.T) {
	c := New()

	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	const n = 8
	results := make([]any, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Get(context.Background(), "k", fetch)
			require.NoError(t, err)
			results[i] = v
		}(i)
	}

	// let every goroutine reach either the fetch or the join
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.EqualValues(t, 1, calls.Load())
	for _, v := range results {
		require.Equal(t, 42, v)
	}
}

func TestGetRetriesExactlyOnce(t *testing.T) {
	c := New()

	var calls atomic.Int32
	flaky := func(ctx context.Context) (any, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	}
	v, err := c.Get(context.Background(), "flaky", flaky)
	require.NoError(t, err)
	require.Equal(t, "ok", v)
	require.EqualValues(t, 2, calls.Load())

	calls.Store(0)
	broken := func(ctx context.Context) (any, error) {
		calls.Add(1)
		return nil, errors.New("down")
	}
	_, err = c.Get(context.Background(), "broken", broken)
	require.Error(t, err)
	require.EqualValues(t, 2, calls.Load())
}

func TestErroredEntryRefetches(t *testing.T) {
	c := New()
	var calls atomic.Int32
	fetch := func(ctx context.Context) (any, error) {
		if calls.Add(1) <= 2 {
			return nil, errors.New("down")
		}
		return "up", nil
	}
	_, err := c.Get(context.Background(), "k", fetch)
	require.Error(t, err)

	v, err := c.Get(context.Background(), "k", fetch)
	require.NoError(t, err)
	require.Equal(t, "up", v)
}

func TestSetSupersedesInFlightFetch(t *testing.T) {
	c := New()

	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(ctx context.Context) (any, error) {
		close(started)
		<-release
		return "slow-server-value", nil
	}

	type result struct {
		v   any
		err error
	}
	got := make(chan result, 1)
	go func() {
		v, err := c.Get(context.Background(), "cart", fetch)
		got <- result{v, err}
	}()

	<-started
	c.Set("cart", "optimistic-value")
	close(release)

	r := <-got
	require.NoError(t, r.err)
	require.Equal(t, "optimistic-value", r.v, "stale response must not surface")

	v, ok := c.Peek("cart")
	require.True(t, ok)
	require.Equal(t, "optimistic-value", v, "stale response must not overwrite the optimistic write")
}

func TestInvalidateForcesRefetchButKeepsData(t *testing.T) {
	c := New()
	var calls atomic.Int32
	fetch := func(ctx context.Context) (any, error) {
		calls.Add(1)
		return calls.Load(), nil
	}

	_, err := c.Get(context.Background(), "k", fetch)
	require.NoError(t, err)

	c.Invalidate("k")
	v, ok := c.Peek("k")
	require.True(t, ok, "invalidation keeps the value visible")
	require.EqualValues(t, 1, v)

	v2, err := c.Get(context.Background(), "k", fetch)
	require.NoError(t, err)
	require.EqualValues(t, 2, v2)
}

func TestInvalidateDuringFetchSurvivesSettle(t *testing.T) {
	c := New()

	started := make(chan struct{})
	release := make(chan struct{})
	got := make(chan any, 1)
	go func() {
		v, err := c.Get(context.Background(), "k", func(ctx context.Context) (any, error) {
			close(started)
			<-release
			return "before-mutation", nil
		})
		require.NoError(t, err)
		got <- v
	}()

	<-started
	c.Invalidate("k")
	close(release)
	require.Equal(t, "before-mutation", <-got)

	// the response that was in flight when the invalidation landed must
	// not settle the entry as fresh
	v, err := c.Get(context.Background(), "k", func(ctx context.Context) (any, error) {
		return "after-mutation", nil
	})
	require.NoError(t, err)
	require.Equal(t, "after-mutation", v)
}

func TestInvalidatePrefixAndKeys(t *testing.T) {
	c := New()
	c.Set("products?page=1", "a")
	c.Set("products?page=2", "b")
	c.Set("product:p1", "c")

	require.Equal(t, []string{"products?page=1", "products?page=2"}, c.Keys("products?"))

	var calls atomic.Int32
	fetch := func(ctx context.Context) (any, error) {
		calls.Add(1)
		return "fresh", nil
	}
	c.InvalidatePrefix("products?")

	_, err := c.Get(context.Background(), "products?page=1", fetch)
	require.NoError(t, err)
	_, err = c.Get(context.Background(), "products?page=2", fetch)
	require.NoError(t, err)
	require.EqualValues(t, 2, calls.Load())

	v, err := c.Get(context.Background(), "product:p1", fetch)
	require.NoError(t, err)
	require.Equal(t, "c", v, "untouched prefix stays cached")
}

func TestCancelAbortsInFlightFetch(t *testing.T) {
	c := New()

	started := make(chan struct{})
	fetch := func(ctx context.Context) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Get(context.Background(), "k", fetch)
		errCh <- err
	}()

	<-started
	c.Cancel("k")

	err := <-errCh
	require.ErrorIs(t, err, context.Canceled)

	// cancelled entries settle, they do not wedge the key
	v, err := c.Get(context.Background(), "k", func(ctx context.Context) (any, error) {
		return "after", nil
	})
	require.NoError(t, err)
	require.Equal(t, "after", v)
}

func TestCancelAll(t *testing.T) {
	c := New()
	started := make(chan struct{}, 2)
	fetch := func(ctx context.Context) (any, error) {
		started <- struct{}{}
		<-ctx.Done()
		return nil, ctx.Err()
	}
	errs := make(chan error, 2)
	go func() {
		_, err := c.Get(context.Background(), "a", fetch)
		errs <- err
	}()
	go func() {
		_, err := c.Get(context.Background(), "b", fetch)
		errs <- err
	}()
	<-started
	<-started
	c.CancelAll()
	require.ErrorIs(t, <-errs, context.Canceled)
	require.ErrorIs(t, <-errs, context.Canceled)
}

func TestLookup(t *testing.T) {
	c := New()
	c.Set("s", "hello")

	v, ok := Lookup[string](c, "s")
	require.True(t, ok)
	require.Equal(t, "hello", v)

	_, ok = Lookup[int](c, "s")
	require.False(t, ok, "type mismatch misses")

	_, ok = Lookup[string](c, "absent")
	require.False(t, ok)
}
