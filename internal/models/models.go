package models

import (
	"encoding/json"
	"strconv"
	"time"
)

type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	ProfileImg string `json:"profileImg,omitempty"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type SigninPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupPayload struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	RePassword string `json:"rePassword"`
	Phone      string `json:"phone,omitempty"`
}

type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Image string `json:"image"`
}

type Brand struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Image string `json:"image"`
}

// Product is the canonical product shape used everywhere past the API
// boundary. PriceAfterDiscount is nil unless the server stated a discount.
type Product struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Slug               string   `json:"slug"`
	Description        string   `json:"description"`
	Quantity           int      `json:"quantity"`
	Sold               int      `json:"sold"`
	Price              float64  `json:"price"`
	PriceAfterDiscount *float64 `json:"priceAfterDiscount,omitempty"`
	ImageCover         string   `json:"imageCover"`
	Images             []string `json:"images,omitempty"`
	Category           Category `json:"category"`
	Brand              Brand    `json:"brand"`
	RatingsAverage     float64  `json:"ratingsAverage"`
	RatingsQuantity    int      `json:"ratingsQuantity"`
}

// CartLine is one cart position. ID is the line-item id, which is not the
// product id. Price is the unit price as last recorded by the server and
// stays untouched by price backfill.
type CartLine struct {
	ID       string  `json:"id"`
	Product  Product `json:"product"`
	Price    float64 `json:"price"`
	Quantity int     `json:"count"`
}

// EffectiveUnitPrice applies the uniform price precedence: a discounted
// price counts only when it is stated below the list price; otherwise the
// list price applies, falling back to the server-recorded unit price when
// the embedded snapshot carries no usable list price.
func (l CartLine) EffectiveUnitPrice() float64 {
	p := l.Product
	if p.PriceAfterDiscount != nil && p.Price > 0 && *p.PriceAfterDiscount < p.Price {
		return *p.PriceAfterDiscount
	}
	if p.Price > 0 {
		return p.Price
	}
	return l.Price
}

type Cart struct {
	ID         string     `json:"id"`
	Owner      string     `json:"cartOwner"`
	Lines      []CartLine `json:"products"`
	TotalPrice float64    `json:"totalCartPrice"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// LineByProduct returns the index of the line holding the given product,
// or -1.
func (c *Cart) LineByProduct(productID string) int {
	for i := range c.Lines {
		if c.Lines[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

// CartView is the envelope the cart endpoints return and the shape the
// cache holds under the cart key.
type CartView struct {
	Status     string `json:"status"`
	NumOfItems int    `json:"numOfCartItems"`
	Cart       Cart   `json:"data"`
}

// Recount recomputes NumOfItems and TotalPrice from the lines using the
// effective-price precedence. Optimistic snapshots and server-synced views
// both go through here so totals never diverge.
func (v *CartView) Recount() {
	items := 0
	total := 0.0
	for _, l := range v.Cart.Lines {
		items += l.Quantity
		total += l.EffectiveUnitPrice() * float64(l.Quantity)
	}
	v.NumOfItems = items
	v.Cart.TotalPrice = total
}

// Clone deep-copies the view so an optimistic edit cannot alias the saved
// rollback snapshot.
func (v *CartView) Clone() *CartView {
	if v == nil {
		return nil
	}
	out := *v
	out.Cart.Lines = make([]CartLine, len(v.Cart.Lines))
	for i, l := range v.Cart.Lines {
		cl := l
		if l.Product.PriceAfterDiscount != nil {
			pad := *l.Product.PriceAfterDiscount
			cl.Product.PriceAfterDiscount = &pad
		}
		if l.Product.Images != nil {
			cl.Product.Images = append([]string(nil), l.Product.Images...)
		}
		out.Cart.Lines[i] = cl
	}
	return &out
}

type Wishlist struct {
	Status   string    `json:"status"`
	Count    int       `json:"count"`
	Products []Product `json:"data"`
}

// IDs returns the product id set of the wishlist.
func (w *Wishlist) IDs() []string {
	if w == nil {
		return nil
	}
	ids := make([]string, 0, len(w.Products))
	for _, p := range w.Products {
		if p.ID != "" {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

type ShippingAddress struct {
	Details string `json:"details"`
	Phone   string `json:"phone"`
	City    string `json:"city"`
}

// OrderItem is the line snapshot recorded on an order: product reference,
// quantity and the unit price charged.
type OrderItem struct {
	Product  string  `json:"product"`
	Quantity int     `json:"count"`
	Price    float64 `json:"price"`
}

type Order struct {
	ID              string          `json:"id"`
	User            string          `json:"user,omitempty"`
	CartItems       []OrderItem     `json:"cartItems"`
	TotalOrderPrice float64         `json:"totalOrderPrice"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod,omitempty"`
	IsPaid          bool            `json:"isPaid"`
	IsDelivered     bool            `json:"isDelivered"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// LocalOrder is a client-synthesized order record. It has no server
// corroboration and is never reconciled against the server ledger.
type LocalOrder struct {
	ID              string          `json:"_id"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	CartItems       []OrderItem     `json:"cartItems"`
	TotalOrderPrice float64         `json:"totalOrderPrice"`
	PaymentMethod   string          `json:"paymentMethod"`
	IsPaid          bool            `json:"isPaid"`
	IsDelivered     bool            `json:"isDelivered"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// ProductsQuery carries the list endpoint filters. Zero values are omitted
// from the request.
type ProductsQuery struct {
	Page     int
	Limit    int
	Sort     string
	Category string
	Brand    string
	Keyword  string
}

// ProductPage is the normalized product list response.
type ProductPage struct {
	Products   []Product `json:"data"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"totalPages"`
}

// ---- tolerant decode -------------------------------------------------
//
// The backend is inconsistent about identifier keys (`id` vs `_id`) and
// pagination envelopes. All of that is normalized here, on ingress, so the
// rest of the module never probes optional shapes.

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// optionalNumber accepts a JSON number or a numeric string. Anything else
// yields nil: prices are never fabricated from bad input.
func optionalNumber(raw json.RawMessage) *float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return &n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return &v
		}
	}
	return nil
}

func (c *Category) UnmarshalJSON(b []byte) error {
	type alias Category
	aux := struct {
		*alias
		AltID string `json:"_id"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	c.ID = firstNonEmpty(c.ID, aux.AltID)
	return nil
}

func (br *Brand) UnmarshalJSON(b []byte) error {
	type alias Brand
	aux := struct {
		*alias
		AltID string `json:"_id"`
	}{alias: (*alias)(br)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	br.ID = firstNonEmpty(br.ID, aux.AltID)
	return nil
}

func (p *Product) UnmarshalJSON(b []byte) error {
	type alias Product
	aux := struct {
		*alias
		AltID    string          `json:"_id"`
		Discount json.RawMessage `json:"priceAfterDiscount"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	p.ID = firstNonEmpty(p.ID, aux.AltID)
	p.PriceAfterDiscount = optionalNumber(aux.Discount)
	return nil
}

func (l *CartLine) UnmarshalJSON(b []byte) error {
	type alias CartLine
	aux := struct {
		*alias
		AltID string `json:"_id"`
	}{alias: (*alias)(l)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	l.ID = firstNonEmpty(l.ID, aux.AltID)
	return nil
}

func (c *Cart) UnmarshalJSON(b []byte) error {
	type alias Cart
	aux := struct {
		*alias
		AltID string `json:"_id"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	c.ID = firstNonEmpty(c.ID, aux.AltID)
	return nil
}

func (o *Order) UnmarshalJSON(b []byte) error {
	type alias Order
	aux := struct {
		*alias
		AltID string `json:"_id"`
	}{alias: (*alias)(o)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	o.ID = firstNonEmpty(o.ID, aux.AltID)
	return nil
}

// UnmarshalJSON accepts both pagination envelopes the backend is known to
// emit: the flat {data,total,page,limit,totalPages} object and the
// {results,metadata:{currentPage,numberOfPages,limit},data} variant.
func (pg *ProductPage) UnmarshalJSON(b []byte) error {
	aux := struct {
		Data       []Product `json:"data"`
		Total      int       `json:"total"`
		Page       int       `json:"page"`
		Limit      int       `json:"limit"`
		TotalPages int       `json:"totalPages"`
		Results    int       `json:"results"`
		Metadata   struct {
			CurrentPage   int `json:"currentPage"`
			NumberOfPages int `json:"numberOfPages"`
			Limit         int `json:"limit"`
		} `json:"metadata"`
	}{}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	pg.Products = aux.Data
	pg.Total = aux.Total
	if pg.Total == 0 {
		pg.Total = aux.Results
	}
	pg.Page = aux.Page
	if pg.Page == 0 {
		pg.Page = aux.Metadata.CurrentPage
	}
	pg.Limit = aux.Limit
	if pg.Limit == 0 {
		pg.Limit = aux.Metadata.Limit
	}
	pg.TotalPages = aux.TotalPages
	if pg.TotalPages == 0 {
		pg.TotalPages = aux.Metadata.NumberOfPages
	}
	return nil
}
