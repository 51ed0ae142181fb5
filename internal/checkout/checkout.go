// Package checkout converts the current cart into a locally recorded
// order. There is no confirmed payment integration: the order record is
// synthesized client-side, persisted to the ledger, and only then is the
// server cart cleared.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shady823/Cartify/internal/models"
)

type Method string

const (
	MethodCash Method = "cash"
	MethodCard Method = "card"
)

var ErrEmptyCart = errors.New("checkout: cart is empty")

// digits-only after whitespace removal; hyphens and other separators fail
var phonePattern = regexp.MustCompile(`^\d{10,}$`)

// ValidationError annotates the offending address fields. Submission is
// blocked locally; nothing reaches the network.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	for _, f := range []string{"details", "city", "phone"} {
		if msg := e.Fields[f]; msg != "" {
			return "checkout: " + msg
		}
	}
	return "checkout: invalid shipping address"
}

// ValidateAddress checks the shipping fields: all three are required
// after trimming, and the phone must be at least 10 digits with nothing
// but digits once whitespace is stripped.
func ValidateAddress(addr models.ShippingAddress) *ValidationError {
	fields := map[string]string{}
	if strings.TrimSpace(addr.Details) == "" {
		fields["details"] = "details is required"
	}
	if strings.TrimSpace(addr.City) == "" {
		fields["city"] = "city is required"
	}
	phone := strings.TrimSpace(addr.Phone)
	if phone == "" {
		fields["phone"] = "phone is required"
	} else if !phonePattern.MatchString(stripWhitespace(phone)) {
		fields["phone"] = "Phone must be at least 10 digits (numbers only)"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func stripWhitespace(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// Cart is the slice of the cart service checkout needs: the enriched view
// to snapshot and the clear call to finish with.
type Cart interface {
	View(ctx context.Context) *models.CartView
	Clear(ctx context.Context) error
}

// Ledger records the synthesized order.
type Ledger interface {
	Record(order models.LocalOrder) error
}

type Service struct {
	cart   Cart
	ledger Ledger
	now    func() time.Time
}

func New(cart Cart, ledger Ledger) *Service {
	return &Service{cart: cart, ledger: ledger, now: time.Now}
}

// PlaceOrder validates the address, snapshots the current cart into a
// LocalOrder (product id, quantity and effective unit price per line),
// persists it, and then clears the server cart. The ledger write happens
// before clearing; if clearing fails the order still exists and the error
// is returned for notification only. There is no compensating rollback.
func (s *Service) PlaceOrder(ctx context.Context, addr models.ShippingAddress, method Method) (*models.LocalOrder, error) {
	if err := ValidateAddress(addr); err != nil {
		return nil, err
	}
	if method != MethodCash && method != MethodCard {
		return nil, fmt.Errorf("checkout: unknown payment method %q", method)
	}

	view := s.cart.View(ctx)
	if view == nil || len(view.Cart.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	items := make([]models.OrderItem, 0, len(view.Cart.Lines))
	total := 0.0
	for _, line := range view.Cart.Lines {
		unit := line.EffectiveUnitPrice()
		items = append(items, models.OrderItem{
			Product:  line.Product.ID,
			Quantity: line.Quantity,
			Price:    unit,
		})
		total += unit * float64(line.Quantity)
	}

	order := models.LocalOrder{
		ID:              newOrderID(s.now()),
		ShippingAddress: trimmed(addr),
		CartItems:       items,
		TotalOrderPrice: total,
		PaymentMethod:   string(method),
		CreatedAt:       s.now().UTC(),
	}
	if err := s.ledger.Record(order); err != nil {
		return nil, err
	}

	if err := s.cart.Clear(ctx); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("order", order.ID).
			Msg("cart clear failed after checkout, local order kept")
		return &order, err
	}
	zerolog.Ctx(ctx).Info().Str("order", order.ID).Float64("total", total).Msg("order placed")
	return &order, nil
}

func trimmed(addr models.ShippingAddress) models.ShippingAddress {
	return models.ShippingAddress{
		Details: strings.TrimSpace(addr.Details),
		Phone:   strings.TrimSpace(addr.Phone),
		City:    strings.TrimSpace(addr.City),
	}
}

func newOrderID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("order_%d_%s", now.UnixMilli(), suffix)
}
