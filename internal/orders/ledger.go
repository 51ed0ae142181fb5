// Package orders keeps the client-side order ledger and merges it with
// the server's order history for display.
package orders

import (
	"fmt"

	"github.com/shady823/Cartify/internal/localstore"
	"github.com/shady823/Cartify/internal/models"
)

// Storage is the persistence port the ledger writes through.
type Storage interface {
	GetJSON(key string, out any) bool
	SetJSON(key string, v any) error
	Delete(key string) error
}

// Ledger stores locally synthesized orders, newest first, under one
// dedicated key. Records here are never reconciled against the server
// ledger; a checkout that also lands server-side may appear twice and
// that is accepted.
type Ledger struct {
	store Storage
}

func NewLedger(store Storage) *Ledger {
	return &Ledger{store: store}
}

// All returns every local order, newest first. A missing or corrupt
// ledger reads as empty.
func (l *Ledger) All() []models.LocalOrder {
	var out []models.LocalOrder
	if !l.store.GetJSON(localstore.KeyOrders, &out) {
		return nil
	}
	return out
}

// Record prepends an order to the ledger.
func (l *Ledger) Record(order models.LocalOrder) error {
	existing := l.All()
	updated := append([]models.LocalOrder{order}, existing...)
	if err := l.store.SetJSON(localstore.KeyOrders, updated); err != nil {
		return fmt.Errorf("record local order: %w", err)
	}
	return nil
}

// Clear drops the whole ledger.
func (l *Ledger) Clear() error {
	return l.store.Delete(localstore.KeyOrders)
}
