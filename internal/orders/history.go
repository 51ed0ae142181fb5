package orders

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/shady823/Cartify/internal/models"
	"github.com/shady823/Cartify/internal/querycache"
)

// Key is the cache key of the server order history.
const Key = "orders"

// Source tells which ledger a history record came from.
type Source string

const (
	SourceLocal  Source = "local"
	SourceServer Source = "server"
)

// Record is one entry of the merged history view.
type Record struct {
	ID              string
	Source          Source
	Items           []models.OrderItem
	TotalOrderPrice float64
	ShippingAddress models.ShippingAddress
	PaymentMethod   string
	IsPaid          bool
	IsDelivered     bool
	CreatedAt       time.Time
}

// API is the slice of the backend the history needs.
type API interface {
	MyOrders(ctx context.Context) ([]models.Order, error)
}

// History merges the local ledger with server-confirmed orders.
type History struct {
	api    API
	cache  *querycache.Cache
	ledger *Ledger
}

func NewHistory(apiClient API, cache *querycache.Cache, ledger *Ledger) *History {
	return &History{api: apiClient, cache: cache, ledger: ledger}
}

// List returns local and server orders combined, newest first. A failing
// server fetch contributes an empty list, not an error state; no
// de-duplication is attempted between the two ledgers.
func (h *History) List(ctx context.Context) []Record {
	records := make([]Record, 0)
	for _, o := range h.ledger.All() {
		records = append(records, Record{
			ID:              o.ID,
			Source:          SourceLocal,
			Items:           o.CartItems,
			TotalOrderPrice: o.TotalOrderPrice,
			ShippingAddress: o.ShippingAddress,
			PaymentMethod:   o.PaymentMethod,
			IsPaid:          o.IsPaid,
			IsDelivered:     o.IsDelivered,
			CreatedAt:       o.CreatedAt,
		})
	}
	for _, o := range h.serverOrders(ctx) {
		records = append(records, Record{
			ID:              o.ID,
			Source:          SourceServer,
			Items:           o.CartItems,
			TotalOrderPrice: o.TotalOrderPrice,
			ShippingAddress: o.ShippingAddress,
			PaymentMethod:   o.PaymentMethod,
			IsPaid:          o.IsPaid,
			IsDelivered:     o.IsDelivered,
			CreatedAt:       o.CreatedAt,
		})
	}
	// stable: on equal timestamps local records stay ahead of server ones
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records
}

func (h *History) serverOrders(ctx context.Context) []models.Order {
	v, err := h.cache.Get(ctx, Key, func(fctx context.Context) (any, error) {
		return h.api.MyOrders(fctx)
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("server order history unavailable")
		return nil
	}
	list, _ := v.([]models.Order)
	return list
}

// Invalidate marks the cached server history stale.
func (h *History) Invalidate() {
	h.cache.Invalidate(Key)
}
