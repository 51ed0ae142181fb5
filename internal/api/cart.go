package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/shady823/Cartify/internal/models"
)

// GetCart retrieves the current user's cart.
func (c *Client) GetCart(ctx context.Context) (*models.CartView, error) {
	var out models.CartView
	if err := c.get(ctx, "/cart", nil, &out); err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return &out, nil
}

// AddToCart creates or increments the line for the given product.
func (c *Client) AddToCart(ctx context.Context, productID string, count int) (*models.CartView, error) {
	body := map[string]any{"productId": productID, "count": count}
	var out models.CartView
	if err := c.post(ctx, "/cart", body, &out); err != nil {
		return nil, fmt.Errorf("add to cart: %w", err)
	}
	return &out, nil
}

// UpdateCartItem sets the quantity of a line. The backend addresses lines
// by product id in the path.
func (c *Client) UpdateCartItem(ctx context.Context, productID string, count int) (*models.CartView, error) {
	body := map[string]any{"count": count}
	var out models.CartView
	if err := c.put(ctx, "/cart/"+url.PathEscape(productID), body, &out); err != nil {
		return nil, fmt.Errorf("update cart item: %w", err)
	}
	return &out, nil
}

// RemoveCartItem deletes a line.
func (c *Client) RemoveCartItem(ctx context.Context, productID string) (*models.CartView, error) {
	var out models.CartView
	if err := c.delete(ctx, "/cart/"+url.PathEscape(productID), &out); err != nil {
		return nil, fmt.Errorf("remove cart item: %w", err)
	}
	return &out, nil
}

// ClearCart empties the cart entirely.
func (c *Client) ClearCart(ctx context.Context) error {
	if err := c.delete(ctx, "/cart", nil); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
