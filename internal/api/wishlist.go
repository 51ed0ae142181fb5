package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/shady823/Cartify/internal/models"
)

// GetWishlist retrieves the current user's wishlist.
func (c *Client) GetWishlist(ctx context.Context) (*models.Wishlist, error) {
	var out models.Wishlist
	if err := c.get(ctx, "/wishlist", nil, &out); err != nil {
		return nil, fmt.Errorf("get wishlist: %w", err)
	}
	return &out, nil
}

// AddToWishlist adds a product to the wishlist.
func (c *Client) AddToWishlist(ctx context.Context, productID string) error {
	body := map[string]any{"productId": productID}
	if err := c.post(ctx, "/wishlist", body, nil); err != nil {
		return fmt.Errorf("add to wishlist: %w", err)
	}
	return nil
}

// RemoveFromWishlist removes a product from the wishlist.
func (c *Client) RemoveFromWishlist(ctx context.Context, productID string) error {
	if err := c.delete(ctx, "/wishlist/"+url.PathEscape(productID), nil); err != nil {
		return fmt.Errorf("remove from wishlist: %w", err)
	}
	return nil
}
