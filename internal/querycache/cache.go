// Package querycache is a client-side request cache keyed by logical query
// identity. Each key is modelled as an explicit resource state machine
// (idle/loading/success/error) with a monotonically increasing fetch token,
// so a stale network response can never overwrite a newer optimistic write.
package querycache

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

// DefaultStaleAfter is the staleness window: a successful entry younger
// than this is served without hitting the network.
const DefaultStaleAfter = 30 * time.Second

// FetchFunc loads the resource from its origin.
type FetchFunc func(ctx context.Context) (any, error)

type entry struct {
	data      any
	err       error
	status    Status
	stale     bool
	fetchedAt time.Time
	token     uint64
	cancel    context.CancelFunc
	done      chan struct{}
}

type Cache struct {
	mu         sync.Mutex
	entries    map[string]*entry
	staleAfter time.Duration
	now        func() time.Time
}

type Option func(*Cache)

func WithStaleAfter(d time.Duration) Option {
	return func(c *Cache) { c.staleAfter = d }
}

// WithClock injects the time source, for staleness tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries:    make(map[string]*entry),
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) ensure(key string) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{status: StatusIdle}
		c.entries[key] = e
	}
	return e
}

// Get returns the cached value for key, fetching it when the entry is
// absent, errored, invalidated or older than the staleness window.
// Concurrent callers of the same key share one fetch. Transport-level
// results get one uniform retry. A result whose token no longer matches
// the entry is discarded and the newer cached state is returned instead.
func (c *Cache) Get(ctx context.Context, key string, fetch FetchFunc) (any, error) {
	for {
		c.mu.Lock()
		e := c.ensure(key)

		if e.status == StatusSuccess && !e.stale && c.now().Sub(e.fetchedAt) < c.staleAfter {
			data := e.data
			c.mu.Unlock()
			return data, nil
		}

		if e.status == StatusLoading {
			// join the in-flight fetch
			done := e.done
			c.mu.Unlock()
			select {
			case <-done:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			c.mu.Lock()
			e = c.ensure(key)
			data, err, status := e.data, e.err, e.status
			c.mu.Unlock()
			switch status {
			case StatusSuccess:
				return data, nil
			case StatusError:
				return nil, err
			default:
				// settled into neither state (cancelled); try again
				continue
			}
		}

		fctx, cancel := context.WithCancel(ctx)
		e.token++
		myToken := e.token
		myDone := make(chan struct{})
		e.status = StatusLoading
		// staleness is consumed here, not on settle: an Invalidate that
		// lands while the fetch is in flight re-marks the entry and must
		// survive the fetch's own success
		e.stale = false
		e.cancel = cancel
		e.done = myDone
		c.mu.Unlock()

		data, err := fetch(fctx)
		if err != nil && fctx.Err() == nil {
			data, err = fetch(fctx)
		}
		cancel()

		c.mu.Lock()
		e = c.ensure(key)
		if e.token != myToken {
			// superseded by an optimistic write; the response is stale
			data, err = e.data, nil
			if e.status == StatusError {
				err = e.err
			}
			c.mu.Unlock()
			return data, err
		}
		e.cancel = nil
		if err != nil && errors.Is(err, context.Canceled) {
			// cancelled, not failed: keep whatever was there before
			if e.data != nil {
				e.status = StatusSuccess
			} else {
				e.status = StatusIdle
			}
			e.stale = true
			e.done = nil
			close(myDone)
			c.mu.Unlock()
			return nil, err
		}
		if err != nil {
			e.err = err
			e.status = StatusError
		} else {
			e.data = data
			e.err = nil
			e.status = StatusSuccess
			e.fetchedAt = c.now()
		}
		e.done = nil
		close(myDone)
		c.mu.Unlock()
		return data, err
	}
}

// Peek returns the cached value without fetching. Loading entries expose
// their previous data, matching stale-while-revalidate reads.
func (c *Cache) Peek(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.data == nil {
		return nil, false
	}
	return e.data, true
}

// Set publishes a value immediately. This is the optimistic-write path: it
// bumps the fetch token and cancels any in-flight fetch of the key, so a
// slow response that started before the write can never clobber it.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.ensure(key)
	e.token++
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	if e.done != nil {
		close(e.done)
		e.done = nil
	}
	e.data = value
	e.err = nil
	e.status = StatusSuccess
	e.stale = false
	e.fetchedAt = c.now()
}

// Invalidate marks the entry stale; the next Get refetches. Cached data
// stays visible to Peek until then.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.stale = true
	}
}

// InvalidatePrefix marks every entry under the prefix stale.
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if strings.HasPrefix(k, prefix) {
			e.stale = true
		}
	}
}

// Cancel aborts an in-flight fetch of the key, if any.
func (c *Cache) Cancel(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// CancelAll aborts every in-flight fetch. Callers use this when the view
// owning the reads goes away; entries themselves are kept for reuse.
func (c *Cache) CancelAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.cancel != nil {
			e.cancel()
			e.cancel = nil
		}
	}
}

// Keys lists, sorted, the keys under prefix that currently hold data.
func (c *Cache) Keys(prefix string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for k, e := range c.entries {
		if e.data != nil && strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Lookup returns the cached value under key when it holds a T.
func Lookup[T any](c *Cache, key string) (T, bool) {
	var zero T
	v, ok := c.Peek(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}
