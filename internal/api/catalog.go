package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/shady823/Cartify/internal/models"
)

// QueryValues renders the list filters as request parameters. The same
// canonical encoding doubles as the cache-key suffix for list queries, so
// two equivalent filter sets always share one cache entry.
func QueryValues(q models.ProductsQuery) url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Brand != "" {
		v.Set("brand", q.Brand)
	}
	if q.Keyword != "" {
		v.Set("keyword", q.Keyword)
	}
	return v
}

// Products fetches one page of the catalog.
func (c *Client) Products(ctx context.Context, q models.ProductsQuery) (*models.ProductPage, error) {
	var out models.ProductPage
	if err := c.get(ctx, "/products", QueryValues(q), &out); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return &out, nil
}

// Product fetches one product by id.
func (c *Client) Product(ctx context.Context, id string) (*models.Product, error) {
	var out struct {
		Data models.Product `json:"data"`
	}
	if err := c.get(ctx, "/products/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return &out.Data, nil
}

// Categories fetches the category facets.
func (c *Client) Categories(ctx context.Context) ([]models.Category, error) {
	var out struct {
		Data []models.Category `json:"data"`
	}
	if err := c.get(ctx, "/categories", nil, &out); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out.Data, nil
}

// Brands fetches the brand facets.
func (c *Client) Brands(ctx context.Context) ([]models.Brand, error) {
	var out struct {
		Data []models.Brand `json:"data"`
	}
	if err := c.get(ctx, "/brands", nil, &out); err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	return out.Data, nil
}
