package cart

import (
	"github.com/shady823/Cartify/internal/catalog"
	"github.com/shady823/Cartify/internal/models"
	"github.com/shady823/Cartify/internal/querycache"
)

// backfill splices a discounted price into every line whose embedded
// product snapshot lacks one, sourcing only from product query results
// already sitting in the cache. A price is never fabricated: either a
// previously observed value is found for the same product id, or the
// snapshot stays without a discount. The server-recorded line unit price
// is never touched.
func (s *Service) backfill(view *models.CartView) {
	if view == nil || len(view.Cart.Lines) == 0 {
		return
	}
	for i := range view.Cart.Lines {
		line := &view.Cart.Lines[i]
		if line.Product.ID == "" || line.Product.PriceAfterDiscount != nil {
			continue
		}
		if price, ok := s.cachedDiscount(line.Product.ID); ok {
			p := price
			line.Product.PriceAfterDiscount = &p
		}
	}
}

// cachedDiscount searches the cached product queries for a discounted
// price of the given product: the product detail entry first, then every
// cached list page in key order.
func (s *Service) cachedDiscount(productID string) (float64, bool) {
	if p, ok := querycache.Lookup[*models.Product](s.cache, catalog.DetailKey(productID)); ok {
		if p != nil && p.PriceAfterDiscount != nil {
			return *p.PriceAfterDiscount, true
		}
	}
	for _, key := range s.cache.Keys(catalog.ListKeyPrefix()) {
		page, ok := querycache.Lookup[*models.ProductPage](s.cache, key)
		if !ok || page == nil {
			continue
		}
		for i := range page.Products {
			p := &page.Products[i]
			if p.ID == productID && p.PriceAfterDiscount != nil {
				return *p.PriceAfterDiscount, true
			}
		}
	}
	return 0, false
}
