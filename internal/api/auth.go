package api

import (
	"context"
	"fmt"

	"github.com/shady823/Cartify/internal/models"
)

// Signin exchanges credentials for a bearer token and profile.
func (c *Client) Signin(ctx context.Context, payload models.SigninPayload) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.post(ctx, "/auth/signin", payload, &out); err != nil {
		return nil, fmt.Errorf("signin: %w", err)
	}
	return &out, nil
}

// Signup registers a new account and returns the established session.
func (c *Client) Signup(ctx context.Context, payload models.SignupPayload) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.post(ctx, "/auth/signup", payload, &out); err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	return &out, nil
}
