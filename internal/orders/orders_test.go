package orders

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shady823/Cartify/internal/localstore"
	"github.com/shady823/Cartify/internal/models"
	"github.com/shady823/Cartify/internal/querycache"
)

type fakeOrdersAPI struct {
	orders []models.Order
	err    error
	calls  int
}

func (f *fakeOrdersAPI) MyOrders(ctx context.Context) ([]models.Order, error) {
	f.calls++
	return f.orders, f.err
}

type memStorage struct {
	data map[string]string
}

func newMemStorage() *memStorage { return &memStorage{data: map[string]string{}} }

func (m *memStorage) GetJSON(key string, out any) bool {
	raw, ok := m.data[key]
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(raw), out) == nil
}

func (m *memStorage) SetJSON(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.data[key] = string(raw)
	return nil
}

func (m *memStorage) Delete(key string) error {
	delete(m.data, key)
	return nil
}

func at(h int) time.Time {
	return time.Date(2026, 8, 1, h, 0, 0, 0, time.UTC)
}

func TestLedgerPrependsNewestFirst(t *testing.T) {
	l := NewLedger(newMemStorage())
	require.Nil(t, l.All())

	require.NoError(t, l.Record(models.LocalOrder{ID: "a", CreatedAt: at(1)}))
	require.NoError(t, l.Record(models.LocalOrder{ID: "b", CreatedAt: at(2)}))

	got := l.All()
	require.Len(t, got, 2)
	require.Equal(t, "b", got[0].ID)
	require.Equal(t, "a", got[1].ID)

	require.NoError(t, l.Clear())
	require.Nil(t, l.All())
}

func TestLedgerCorruptReadsAsEmpty(t *testing.T) {
	store := newMemStorage()
	store.data[localstore.KeyOrders] = "{definitely not json"
	l := NewLedger(store)
	require.Nil(t, l.All())

	// recording over a corrupt ledger starts a fresh one
	require.NoError(t, l.Record(models.LocalOrder{ID: "a"}))
	require.Len(t, l.All(), 1)
}

func TestHistoryMergesNewestFirst(t *testing.T) {
	ledger := NewLedger(newMemStorage())
	require.NoError(t, ledger.Record(models.LocalOrder{ID: "local-1", CreatedAt: at(1)}))
	require.NoError(t, ledger.Record(models.LocalOrder{ID: "local-2", CreatedAt: at(4)}))

	api := &fakeOrdersAPI{orders: []models.Order{
		{ID: "srv-1", CreatedAt: at(2)},
	}}
	h := NewHistory(api, querycache.New(), ledger)

	records := h.List(context.Background())
	require.Len(t, records, 3)
	require.Equal(t, "local-2", records[0].ID)
	require.Equal(t, "srv-1", records[1].ID)
	require.Equal(t, "local-1", records[2].ID)
	require.Equal(t, SourceLocal, records[0].Source)
	require.Equal(t, SourceServer, records[1].Source)
}

func TestHistoryTieBreaksLocalFirst(t *testing.T) {
	ledger := NewLedger(newMemStorage())
	require.NoError(t, ledger.Record(models.LocalOrder{ID: "local-1", CreatedAt: at(3)}))

	api := &fakeOrdersAPI{orders: []models.Order{
		{ID: "srv-1", CreatedAt: at(3)},
	}}
	h := NewHistory(api, querycache.New(), ledger)

	records := h.List(context.Background())
	require.Len(t, records, 2)
	require.Equal(t, "local-1", records[0].ID)
	require.Equal(t, "srv-1", records[1].ID)
}

func TestHistoryServerFailureShowsLocalsOnly(t *testing.T) {
	ledger := NewLedger(newMemStorage())
	require.NoError(t, ledger.Record(models.LocalOrder{ID: "local-1", CreatedAt: at(1)}))

	api := &fakeOrdersAPI{err: errors.New("503")}
	h := NewHistory(api, querycache.New(), ledger)

	records := h.List(context.Background())
	require.Len(t, records, 1)
	require.Equal(t, "local-1", records[0].ID)
	require.Equal(t, SourceLocal, records[0].Source)
}

func TestHistoryNoDedup(t *testing.T) {
	ledger := NewLedger(newMemStorage())
	require.NoError(t, ledger.Record(models.LocalOrder{ID: "same-checkout", CreatedAt: at(2)}))

	api := &fakeOrdersAPI{orders: []models.Order{
		{ID: "same-checkout-server-copy", CreatedAt: at(2)},
	}}
	h := NewHistory(api, querycache.New(), ledger)
	require.Len(t, h.List(context.Background()), 2)
}

func TestHistoryCachesServerFetch(t *testing.T) {
	ledger := NewLedger(newMemStorage())
	api := &fakeOrdersAPI{orders: []models.Order{{ID: "srv-1", CreatedAt: at(1)}}}
	h := NewHistory(api, querycache.New(), ledger)

	_ = h.List(context.Background())
	_ = h.List(context.Background())
	require.Equal(t, 1, api.calls)

	h.Invalidate()
	_ = h.List(context.Background())
	require.Equal(t, 2, api.calls)
}
