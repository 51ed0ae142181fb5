package checkout

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shady823/Cartify/internal/models"
)

func f64(v float64) *float64 { return &v }

type fakeCart struct {
	view     *models.CartView
	clearErr error
	cleared  bool
}

func (f *fakeCart) View(ctx context.Context) *models.CartView { return f.view }
func (f *fakeCart) Clear(ctx context.Context) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	f.cleared = true
	return nil
}

type fakeLedger struct {
	orders    []models.LocalOrder
	recordErr error
}

func (f *fakeLedger) Record(order models.LocalOrder) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.orders = append([]models.LocalOrder{order}, f.orders...)
	return nil
}

func validAddr() models.ShippingAddress {
	return models.ShippingAddress{Details: "12 High St", City: "Cairo", Phone: "0123456789"}
}

func twoLineView() *models.CartView {
	return &models.CartView{
		Cart: models.Cart{Lines: []models.CartLine{
			{Quantity: 2, Price: 100, Product: models.Product{ID: "p1", Price: 100, PriceAfterDiscount: f64(80)}},
			{Quantity: 1, Price: 50, Product: models.Product{ID: "p2", Price: 50}},
		}},
	}
}

func TestValidateAddressPhoneVectors(t *testing.T) {
	cases := []struct {
		phone string
		ok    bool
	}{
		{"0123456789", true},
		{"012 345 6789", true},
		{"  0123456789  ", true},
		{"01234567890123", true},
		{"012-345-6789", false},
		{"012345678", false},
		{"+20123456789", false},
		{"phone123456", false},
		{"", false},
	}
	for _, tc := range cases {
		t.Run(tc.phone, func(t *testing.T) {
			addr := validAddr()
			addr.Phone = tc.phone
			err := ValidateAddress(addr)
			if tc.ok {
				require.Nil(t, err)
			} else {
				require.NotNil(t, err)
				require.Contains(t, err.Fields, "phone")
			}
		})
	}
}

func TestValidateAddressRequiredFields(t *testing.T) {
	err := ValidateAddress(models.ShippingAddress{Details: "   ", City: "", Phone: "\t"})
	require.NotNil(t, err)
	require.Equal(t, "details is required", err.Fields["details"])
	require.Equal(t, "city is required", err.Fields["city"])
	require.Equal(t, "phone is required", err.Fields["phone"])
	require.Equal(t, "checkout: details is required", err.Error())
}

func TestPlaceOrderSnapshotsEffectivePrices(t *testing.T) {
	cartSvc := &fakeCart{view: twoLineView()}
	ledger := &fakeLedger{}
	svc := New(cartSvc, ledger)

	order, err := svc.PlaceOrder(context.Background(), validAddr(), MethodCash)
	require.NoError(t, err)
	require.NotNil(t, order)

	require.Len(t, order.CartItems, 2)
	require.Equal(t, models.OrderItem{Product: "p1", Quantity: 2, Price: 80}, order.CartItems[0])
	require.Equal(t, models.OrderItem{Product: "p2", Quantity: 1, Price: 50}, order.CartItems[1])
	require.Equal(t, 2*80.0+50.0, order.TotalOrderPrice)
	require.Equal(t, "cash", order.PaymentMethod)
	require.False(t, order.CreatedAt.IsZero())

	require.True(t, cartSvc.cleared)
	require.Len(t, ledger.orders, 1)
}

func TestPlaceOrderIDShape(t *testing.T) {
	svc := New(&fakeCart{view: twoLineView()}, &fakeLedger{})
	order, err := svc.PlaceOrder(context.Background(), validAddr(), MethodCard)
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^order_\d+_[0-9a-f]{12}$`), order.ID)
}

func TestPlaceOrderTrimsAddress(t *testing.T) {
	svc := New(&fakeCart{view: twoLineView()}, &fakeLedger{})
	order, err := svc.PlaceOrder(context.Background(), models.ShippingAddress{
		Details: "  12 High St  ",
		City:    " Cairo ",
		Phone:   " 0123456789 ",
	}, MethodCash)
	require.NoError(t, err)
	require.Equal(t, "12 High St", order.ShippingAddress.Details)
	require.Equal(t, "Cairo", order.ShippingAddress.City)
	require.Equal(t, "0123456789", order.ShippingAddress.Phone)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	svc := New(&fakeCart{view: nil}, &fakeLedger{})
	_, err := svc.PlaceOrder(context.Background(), validAddr(), MethodCash)
	require.ErrorIs(t, err, ErrEmptyCart)

	svc = New(&fakeCart{view: &models.CartView{}}, &fakeLedger{})
	_, err = svc.PlaceOrder(context.Background(), validAddr(), MethodCash)
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestPlaceOrderUnknownMethod(t *testing.T) {
	svc := New(&fakeCart{view: twoLineView()}, &fakeLedger{})
	_, err := svc.PlaceOrder(context.Background(), validAddr(), Method("crypto"))
	require.Error(t, err)
}

func TestPlaceOrderValidationBlocksBeforeCartRead(t *testing.T) {
	svc := New(&fakeCart{view: twoLineView()}, &fakeLedger{})
	_, err := svc.PlaceOrder(context.Background(), models.ShippingAddress{}, MethodCash)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestPlaceOrderKeepsOrderWhenClearFails(t *testing.T) {
	cartSvc := &fakeCart{view: twoLineView(), clearErr: errors.New("network down")}
	ledger := &fakeLedger{}
	svc := New(cartSvc, ledger)

	order, err := svc.PlaceOrder(context.Background(), validAddr(), MethodCash)
	require.Error(t, err)
	require.NotNil(t, order, "the recorded order survives a failed clear")
	require.Len(t, ledger.orders, 1)
	require.Equal(t, order.ID, ledger.orders[0].ID)
}

func TestPlaceOrderLedgerFailureAborts(t *testing.T) {
	cartSvc := &fakeCart{view: twoLineView()}
	svc := New(cartSvc, &fakeLedger{recordErr: errors.New("disk full")})

	order, err := svc.PlaceOrder(context.Background(), validAddr(), MethodCash)
	require.Error(t, err)
	require.Nil(t, order)
	require.False(t, cartSvc.cleared, "cart stays intact when the ledger write fails")
}
