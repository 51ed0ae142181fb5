// Package catalog serves product, category and brand reads through the
// query cache. The cache keys it writes are the ones the cart price
// backfill scans, so anything browsed here can later supply a discounted
// price to a cart line.
package catalog

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/shady823/Cartify/internal/api"
	"github.com/shady823/Cartify/internal/models"
	"github.com/shady823/Cartify/internal/querycache"
)

const (
	KeyCategories = "categories"
	KeyBrands     = "brands"

	listKeyPrefix   = "products?"
	detailKeyPrefix = "product:"
)

// ListKey is the cache key of one product list query. Equivalent filter
// sets share a key because the encoding is canonical.
func ListKey(q models.ProductsQuery) string {
	return listKeyPrefix + api.QueryValues(q).Encode()
}

// DetailKey is the cache key of one product detail.
func DetailKey(id string) string {
	return detailKeyPrefix + id
}

// ListKeyPrefix and DetailKeyPrefix expose the key namespaces for cache
// scans.
func ListKeyPrefix() string   { return listKeyPrefix }
func DetailKeyPrefix() string { return detailKeyPrefix }

// API is the slice of the backend the catalog needs.
type API interface {
	Products(ctx context.Context, q models.ProductsQuery) (*models.ProductPage, error)
	Product(ctx context.Context, id string) (*models.Product, error)
	Categories(ctx context.Context) ([]models.Category, error)
	Brands(ctx context.Context) ([]models.Brand, error)
}

type Service struct {
	api   API
	cache *querycache.Cache
}

func New(apiClient API, cache *querycache.Cache) *Service {
	return &Service{api: apiClient, cache: cache}
}

// Products returns one catalog page. Read failures degrade to an empty
// page; list views render their empty state instead of an error screen.
func (s *Service) Products(ctx context.Context, q models.ProductsQuery) *models.ProductPage {
	v, err := s.cache.Get(ctx, ListKey(q), func(fctx context.Context) (any, error) {
		return s.api.Products(fctx, q)
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("products query failed")
		return &models.ProductPage{}
	}
	page, ok := v.(*models.ProductPage)
	if !ok || page == nil {
		return &models.ProductPage{}
	}
	return page
}

// Product returns one product, or nil when it cannot be loaded.
func (s *Service) Product(ctx context.Context, id string) *models.Product {
	if id == "" {
		return nil
	}
	v, err := s.cache.Get(ctx, DetailKey(id), func(fctx context.Context) (any, error) {
		return s.api.Product(fctx, id)
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("product", id).Msg("product query failed")
		return nil
	}
	p, _ := v.(*models.Product)
	return p
}

// Categories returns the category facets, empty on failure.
func (s *Service) Categories(ctx context.Context) []models.Category {
	v, err := s.cache.Get(ctx, KeyCategories, func(fctx context.Context) (any, error) {
		return s.api.Categories(fctx)
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("categories query failed")
		return nil
	}
	cats, _ := v.([]models.Category)
	return cats
}

// Brands returns the brand facets, empty on failure.
func (s *Service) Brands(ctx context.Context) []models.Brand {
	v, err := s.cache.Get(ctx, KeyBrands, func(fctx context.Context) (any, error) {
		return s.api.Brands(fctx)
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("brands query failed")
		return nil
	}
	brands, _ := v.([]models.Brand)
	return brands
}
