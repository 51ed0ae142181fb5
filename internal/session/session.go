// Package session owns the authenticated user state and the theme
// preference. It is an explicit context object: persistence goes through
// an injected port, never through globals.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/shady823/Cartify/internal/localstore"
	"github.com/shady823/Cartify/internal/models"
)

// AuthAPI is the slice of the backend the session needs.
type AuthAPI interface {
	Signin(ctx context.Context, payload models.SigninPayload) (*models.AuthResponse, error)
	Signup(ctx context.Context, payload models.SignupPayload) (*models.AuthResponse, error)
}

// Storage is the persistence port, implemented by localstore.Store.
type Storage interface {
	GetString(key string) (string, bool)
	SetString(key, value string) error
	Delete(key string) error
	GetJSON(key string, out any) bool
	SetJSON(key string, v any) error
}

type Manager struct {
	auth  AuthAPI
	store Storage

	mu           sync.RWMutex
	token        string
	user         *models.User
	defaultTheme string
}

// New builds a manager and hydrates it from storage.
func New(auth AuthAPI, store Storage, defaultTheme string) *Manager {
	if defaultTheme == "" {
		defaultTheme = "light"
	}
	m := &Manager{auth: auth, store: store, defaultTheme: defaultTheme}
	m.hydrate()
	return m
}

func (m *Manager) hydrate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tok, ok := m.store.GetString(localstore.KeyToken); ok {
		m.token = tok
	}
	var u models.User
	if m.store.GetJSON(localstore.KeyUser, &u) && u.ID != "" {
		m.user = &u
	}
}

// Token returns the current bearer token, "" when anonymous. Suitable as
// an api.TokenSource.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Current returns the signed-in user. A session is authenticated exactly
// when both a token and a profile are present; nothing else is consulted.
func (m *Manager) Current() (*models.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == "" || m.user == nil {
		return nil, false
	}
	u := *m.user
	return &u, true
}

func (m *Manager) establish(resp *models.AuthResponse) error {
	if err := m.store.SetString(localstore.KeyToken, resp.Token); err != nil {
		return err
	}
	if err := m.store.SetJSON(localstore.KeyUser, resp.User); err != nil {
		return err
	}
	m.mu.Lock()
	m.token = resp.Token
	u := resp.User
	m.user = &u
	m.mu.Unlock()
	return nil
}

// SignIn authenticates and persists the session.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	resp, err := m.auth.Signin(ctx, models.SigninPayload{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	if err := m.establish(resp); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	u := resp.User
	return &u, nil
}

// SignUp registers an account and persists the returned session.
func (m *Manager) SignUp(ctx context.Context, payload models.SignupPayload) (*models.User, error) {
	resp, err := m.auth.Signup(ctx, payload)
	if err != nil {
		return nil, err
	}
	if err := m.establish(resp); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	u := resp.User
	return &u, nil
}

// SignOut drops the session from memory and storage. The theme preference
// and the local order ledger survive.
func (m *Manager) SignOut() error {
	m.mu.Lock()
	m.token = ""
	m.user = nil
	m.mu.Unlock()
	if err := m.store.Delete(localstore.KeyToken); err != nil {
		return err
	}
	return m.store.Delete(localstore.KeyUser)
}

// ExpiresAt parses the stored token without verifying it and reports its
// expiry claim. Advisory only: authentication remains a pure presence
// check, the client holds no signing secret.
func (m *Manager) ExpiresAt() (time.Time, bool) {
	m.mu.RLock()
	tok := m.token
	m.mu.RUnlock()
	if tok == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Theme returns the stored preference, or the configured default.
func (m *Manager) Theme() string {
	if t, ok := m.store.GetString(localstore.KeyTheme); ok && (t == "light" || t == "dark") {
		return t
	}
	return m.defaultTheme
}

// SetTheme persists the preference. Only "light" and "dark" exist.
func (m *Manager) SetTheme(theme string) error {
	if theme != "light" && theme != "dark" {
		return fmt.Errorf("unknown theme %q", theme)
	}
	return m.store.SetString(localstore.KeyTheme, theme)
}
