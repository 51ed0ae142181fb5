package catalog_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shady823/Cartify/internal/api"
	"github.com/shady823/Cartify/internal/api/apitest"
	"github.com/shady823/Cartify/internal/catalog"
	"github.com/shady823/Cartify/internal/models"
	"github.com/shady823/Cartify/internal/querycache"
)

func newCatalog(t *testing.T) (*apitest.Server, *catalog.Service, *querycache.Cache) {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	client := api.New(srv.URL(), api.WithTimeout(5*time.Second))
	cache := querycache.New()
	return srv, catalog.New(client, cache), cache
}

func seed(srv *apitest.Server) {
	srv.SeedProduct(models.Product{
		ID: "p1", Title: "Trail Shoe", Price: 100,
		Category: models.Category{ID: "c1", Name: "Shoes"},
		Brand:    models.Brand{ID: "b1", Name: "Acme"},
	})
	srv.SeedProduct(models.Product{
		ID: "p2", Title: "Cap", Price: 20,
		Category: models.Category{ID: "c2", Name: "Hats"},
		Brand:    models.Brand{ID: "b1", Name: "Acme"},
	})
}

func TestListKeysAreCanonical(t *testing.T) {
	a := catalog.ListKey(models.ProductsQuery{Category: "c1", Page: 2})
	b := catalog.ListKey(models.ProductsQuery{Page: 2, Category: "c1"})
	require.Equal(t, a, b, "field order does not change the key")
	require.NotEqual(t, a, catalog.ListKey(models.ProductsQuery{Category: "c1", Page: 3}))
}

func TestProductsCachedPerQuery(t *testing.T) {
	srv, svc, _ := newCatalog(t)
	seed(srv)
	ctx := context.Background()

	page := svc.Products(ctx, models.ProductsQuery{Keyword: "shoe"})
	require.Len(t, page.Products, 1)

	_ = svc.Products(ctx, models.ProductsQuery{Keyword: "shoe"})
	require.Equal(t, 1, srv.Requests(http.MethodGet, "/api/v1/products"))

	_ = svc.Products(ctx, models.ProductsQuery{Keyword: "cap"})
	require.Equal(t, 2, srv.Requests(http.MethodGet, "/api/v1/products"), "a different query is a different key")
}

func TestProductsSwallowsFailure(t *testing.T) {
	srv, svc, _ := newCatalog(t)
	srv.Fail(http.MethodGet, "/api/v1/products", http.StatusBadGateway)

	page := svc.Products(context.Background(), models.ProductsQuery{})
	require.NotNil(t, page)
	require.Empty(t, page.Products)
}

func TestProductDetailCached(t *testing.T) {
	srv, svc, cache := newCatalog(t)
	seed(srv)
	ctx := context.Background()

	p := svc.Product(ctx, "p1")
	require.NotNil(t, p)
	require.Equal(t, "Trail Shoe", p.Title)

	cached, ok := querycache.Lookup[*models.Product](cache, catalog.DetailKey("p1"))
	require.True(t, ok)
	require.Equal(t, "p1", cached.ID)

	require.Nil(t, svc.Product(ctx, ""))
	require.Nil(t, svc.Product(ctx, "missing"))
}

func TestCategoriesAndBrands(t *testing.T) {
	srv, svc, _ := newCatalog(t)
	seed(srv)
	ctx := context.Background()

	cats := svc.Categories(ctx)
	require.Len(t, cats, 2)
	require.Equal(t, "Shoes", cats[0].Name)

	brands := svc.Brands(ctx)
	require.Len(t, brands, 1)
	require.Equal(t, "Acme", brands[0].Name)
}
