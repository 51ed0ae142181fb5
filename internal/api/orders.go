package api

import (
	"context"
	"fmt"

	"github.com/shady823/Cartify/internal/models"
)

// CheckoutSession is the backend's answer to a checkout request: either a
// redirect URL for card payment or the created order.
type CheckoutSession struct {
	Session *struct {
		URL string `json:"url"`
	} `json:"session,omitempty"`
	Order *models.Order `json:"data,omitempty"`
}

// CreateCheckoutSession asks the backend to open a checkout session for
// the current cart.
func (c *Client) CreateCheckoutSession(ctx context.Context, addr models.ShippingAddress) (*CheckoutSession, error) {
	body := map[string]any{"shippingAddress": addr}
	var out CheckoutSession
	if err := c.post(ctx, "/checkout-sessions", body, &out); err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &out, nil
}

// MyOrders lists the server-confirmed orders of the current user.
func (c *Client) MyOrders(ctx context.Context) ([]models.Order, error) {
	var out struct {
		Data []models.Order `json:"data"`
	}
	if err := c.get(ctx, "/orders/user/me", nil, &out); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return out.Data, nil
}
