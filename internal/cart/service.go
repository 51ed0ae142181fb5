// Package cart is the reconciliation core: it presents a consistent cart
// view despite server responses that omit discounted pricing and despite
// network latency on mutations, by combining price backfill with
// optimistic local mutation and rollback.
package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/shady823/Cartify/internal/models"
	"github.com/shady823/Cartify/internal/querycache"
)

// Key is the cache key of the cart resource. The reconciliation service is
// its only writer; reads are many and non-exclusive.
const Key = "cart"

var ErrEmptyProductID = errors.New("cart: product id is empty")

// API is the slice of the backend the cart needs.
type API interface {
	GetCart(ctx context.Context) (*models.CartView, error)
	AddToCart(ctx context.Context, productID string, count int) (*models.CartView, error)
	UpdateCartItem(ctx context.Context, productID string, count int) (*models.CartView, error)
	RemoveCartItem(ctx context.Context, productID string) (*models.CartView, error)
	ClearCart(ctx context.Context) error
}

type Service struct {
	api   API
	cache *querycache.Cache

	// mu serializes mutations: each optimistic snapshot must derive from
	// the snapshot immediately preceding its own mutation, never from a
	// concurrent one.
	mu sync.Mutex
}

func New(apiClient API, cache *querycache.Cache) *Service {
	return &Service{api: apiClient, cache: cache}
}

// View is the fetch-and-enrich read. The server cart is fetched through
// the cache and every line whose embedded product lacks a discounted price
// is backfilled from previously cached product queries. Transport failure
// yields nil; callers render the same empty state for "failed", "no cart"
// and "not loaded".
func (s *Service) View(ctx context.Context) *models.CartView {
	v, err := s.cache.Get(ctx, Key, func(fctx context.Context) (any, error) {
		view, err := s.api.GetCart(fctx)
		if err != nil {
			return nil, err
		}
		s.backfill(view)
		return view, nil
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("cart fetch failed, showing empty state")
		return nil
	}
	view, _ := v.(*models.CartView)
	return view
}

// Count returns the cached item count, 0 when the cart is unavailable.
func (s *Service) Count(ctx context.Context) int {
	view := s.View(ctx)
	if view == nil {
		return 0
	}
	return view.NumOfItems
}

// Add issues a create-or-increment request. Add is deliberately not
// optimistic: the view waits for server confirmation, then the cached cart
// is invalidated so the next read is authoritative.
func (s *Service) Add(ctx context.Context, productID string, quantity int) error {
	if productID == "" {
		return ErrEmptyProductID
	}
	if quantity < 1 {
		quantity = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.api.AddToCart(ctx, productID, quantity); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Debug().Str("product", productID).Int("count", quantity).Msg("cart add confirmed")
	s.cache.Invalidate(Key)
	return nil
}

// UpdateQuantity sets a line's quantity, clamped to a minimum of 1. The
// view is updated optimistically before the network call resolves; on
// failure the pre-mutation snapshot is restored exactly, on success the
// cached cart is invalidated so the server stays authoritative.
func (s *Service) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	if productID == "" {
		return ErrEmptyProductID
	}
	if quantity < 1 {
		quantity = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.apply(productID, func(view *models.CartView, idx int) {
		view.Cart.Lines[idx].Quantity = quantity
	})

	if _, err := s.api.UpdateCartItem(ctx, productID, quantity); err != nil {
		s.rollback(ctx, prev, err)
		return err
	}
	s.cache.Invalidate(Key)
	return nil
}

// Remove deletes a line, optimistically filtering it from the view under
// the same rollback/invalidate contract as UpdateQuantity.
func (s *Service) Remove(ctx context.Context, productID string) error {
	if productID == "" {
		return ErrEmptyProductID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.apply(productID, func(view *models.CartView, idx int) {
		view.Cart.Lines = append(view.Cart.Lines[:idx], view.Cart.Lines[idx+1:]...)
	})

	if _, err := s.api.RemoveCartItem(ctx, productID); err != nil {
		s.rollback(ctx, prev, err)
		return err
	}
	s.cache.Invalidate(Key)
	return nil
}

// Clear empties the cart. Like Add it waits for confirmation; it is only
// triggered as a checkout side effect, never from a hot UI path.
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.api.ClearCart(ctx); err != nil {
		return err
	}
	s.cache.Invalidate(Key)
	return nil
}

// apply publishes an optimistic snapshot derived from the current cached
// view: mutate runs against a deep copy, then item count and total are
// recomputed with the uniform price precedence and the snapshot is written
// through the cache, superseding any in-flight cart fetch. It returns the
// pre-mutation view for rollback, or nil when there was no basis to
// mutate (no cached cart, or no line for the product); the server call
// proceeds either way and stays authoritative.
func (s *Service) apply(productID string, mutate func(view *models.CartView, idx int)) *models.CartView {
	prev, ok := querycache.Lookup[*models.CartView](s.cache, Key)
	if !ok || prev == nil {
		return nil
	}
	idx := prev.Cart.LineByProduct(productID)
	if idx < 0 {
		return nil
	}
	optimistic := prev.Clone()
	mutate(optimistic, idx)
	optimistic.Recount()
	s.cache.Set(Key, optimistic)
	return prev
}

func (s *Service) rollback(ctx context.Context, prev *models.CartView, cause error) {
	if prev == nil {
		return
	}
	s.cache.Set(Key, prev)
	zerolog.Ctx(ctx).Warn().Err(cause).Msg("cart mutation failed, optimistic state rolled back")
}
