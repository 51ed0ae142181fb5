// Package wishlist serves the current user's wishlist through the query
// cache: reads degrade to nil on failure, mutations invalidate.
package wishlist

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/shady823/Cartify/internal/models"
	"github.com/shady823/Cartify/internal/querycache"
)

const Key = "wishlist"

var ErrEmptyProductID = errors.New("wishlist: product id is empty")

// API is the slice of the backend the wishlist needs.
type API interface {
	GetWishlist(ctx context.Context) (*models.Wishlist, error)
	AddToWishlist(ctx context.Context, productID string) error
	RemoveFromWishlist(ctx context.Context, productID string) error
}

type Service struct {
	api   API
	cache *querycache.Cache
}

func New(apiClient API, cache *querycache.Cache) *Service {
	return &Service{api: apiClient, cache: cache}
}

// View returns the wishlist, or nil when it cannot be loaded.
func (s *Service) View(ctx context.Context) *models.Wishlist {
	v, err := s.cache.Get(ctx, Key, func(fctx context.Context) (any, error) {
		return s.api.GetWishlist(fctx)
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("wishlist query failed")
		return nil
	}
	w, _ := v.(*models.Wishlist)
	return w
}

// IDs returns the wished product ids, empty when the list is unavailable.
func (s *Service) IDs(ctx context.Context) []string {
	return s.View(ctx).IDs()
}

// Add puts a product on the wishlist and invalidates the cached view.
func (s *Service) Add(ctx context.Context, productID string) error {
	if productID == "" {
		return ErrEmptyProductID
	}
	if err := s.api.AddToWishlist(ctx, productID); err != nil {
		return err
	}
	s.cache.Invalidate(Key)
	return nil
}

// Remove takes a product off the wishlist and invalidates the cached view.
func (s *Service) Remove(ctx context.Context, productID string) error {
	if productID == "" {
		return ErrEmptyProductID
	}
	if err := s.api.RemoveFromWishlist(ctx, productID); err != nil {
		return err
	}
	s.cache.Invalidate(Key)
	return nil
}
