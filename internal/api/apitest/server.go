// Package apitest runs an in-memory stub of the storefront backend for
// integration tests. It speaks the same wire dialect as the real API,
// including its `_id` identifier keys and the metadata pagination
// envelope, and deliberately omits discounted prices from cart-embedded
// product snapshots so the backfill path gets exercised.
package apitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/shady823/Cartify/internal/models"
)

const signingSecret = "apitest-secret"

type cartLine struct {
	ID        string
	ProductID string
	Count     int
	Price     float64
}

type Server struct {
	echo *echo.Echo
	srv  *httptest.Server

	mu        sync.Mutex
	products  []models.Product
	cartLines []cartLine
	wishlist  []string
	orders    []models.Order
	nextLine  int

	failures map[string]int
	delays   map[string]time.Duration
	requests map[string]int
}

func NewServer() *Server {
	s := &Server{
		failures: make(map[string]int),
		delays:   make(map[string]time.Duration),
		requests: make(map[string]int),
	}
	e := echo.New()
	e.HideBanner = true
	e.Use(s.intercept)

	v1 := e.Group("/api/v1")
	v1.POST("/auth/signin", s.signin)
	v1.POST("/auth/signup", s.signup)
	v1.GET("/products", s.listProducts)
	v1.GET("/products/:id", s.getProduct)
	v1.GET("/categories", s.listCategories)
	v1.GET("/brands", s.listBrands)
	v1.GET("/cart", s.getCart, s.requireAuth)
	v1.POST("/cart", s.addToCart, s.requireAuth)
	v1.PUT("/cart/:id", s.updateCartItem, s.requireAuth)
	v1.DELETE("/cart/:id", s.removeCartItem, s.requireAuth)
	v1.DELETE("/cart", s.clearCart, s.requireAuth)
	v1.GET("/wishlist", s.getWishlist, s.requireAuth)
	v1.POST("/wishlist", s.addToWishlist, s.requireAuth)
	v1.DELETE("/wishlist/:productId", s.removeFromWishlist, s.requireAuth)
	v1.POST("/checkout-sessions", s.createCheckoutSession, s.requireAuth)
	v1.GET("/orders/user/me", s.myOrders, s.requireAuth)

	s.echo = e
	s.srv = httptest.NewServer(e)
	return s
}

func (s *Server) URL() string { return s.srv.URL }
func (s *Server) Close()      { s.srv.Close() }

// Token issues a valid bearer token the way signin would.
func (s *Server) Token() string {
	return s.issueToken("tester@example.com")
}

// ---- instrumentation -------------------------------------------------

func routeKey(method, path string) string { return method + " " + path }

// Fail makes every request to the route answer with the given status.
// The path is the echo route pattern, e.g. "/api/v1/cart/:id".
func (s *Server) Fail(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[routeKey(method, path)] = status
}

// Unfail removes a failure injection.
func (s *Server) Unfail(method, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, routeKey(method, path))
}

// Delay makes the route sleep before answering.
func (s *Server) Delay(method, path string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[routeKey(method, path)] = d
}

// Requests counts how often a route was hit.
func (s *Server) Requests(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[routeKey(method, path)]
}

func (s *Server) intercept(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := routeKey(c.Request().Method, c.Path())
		s.mu.Lock()
		s.requests[key]++
		status := s.failures[key]
		delay := s.delays[key]
		s.mu.Unlock()
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-c.Request().Context().Done():
				return c.Request().Context().Err()
			}
		}
		if status != 0 {
			return c.JSON(status, map[string]any{"message": "injected failure"})
		}
		return next(c)
	}
}

// ---- seeding ---------------------------------------------------------

func (s *Server) SeedProduct(p models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = append(s.products, p)
}

// SeedCartLine plants a server-side cart line; the unit price is the
// product's list price, the way the real backend records it.
func (s *Server) SeedCartLine(productID string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextLine++
	price := 0.0
	for _, p := range s.products {
		if p.ID == productID {
			price = p.Price
		}
	}
	s.cartLines = append(s.cartLines, cartLine{
		ID:        fmt.Sprintf("line-%d", s.nextLine),
		ProductID: productID,
		Count:     count,
		Price:     price,
	})
}

func (s *Server) SeedOrder(o models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, o)
}

// CartLineCount reports the server-side line count, for assertions.
func (s *Server) CartLineCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cartLines)
}

// ---- auth ------------------------------------------------------------

func (s *Server) issueToken(email string) string {
	claims := jwt.MapClaims{
		"sub": email,
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingSecret))
	return tok
}

func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		const prefix = "Bearer "
		if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
			return c.JSON(http.StatusUnauthorized, map[string]any{"message": "unauthorized"})
		}
		_, err := jwt.Parse(header[len(prefix):], func(t *jwt.Token) (any, error) {
			return []byte(signingSecret), nil
		})
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]any{"message": "unauthorized"})
		}
		return next(c)
	}
}

func (s *Server) signin(c echo.Context) error {
	var req models.SigninPayload
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "bad payload"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusUnauthorized, map[string]any{"message": "Incorrect email or password"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"token": s.issueToken(req.Email),
		"user": map[string]any{
			"_id":   "user-1",
			"name":  "Test User",
			"email": req.Email,
			"role":  "user",
		},
	})
}

func (s *Server) signup(c echo.Context) error {
	var req models.SignupPayload
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "bad payload"})
	}
	if req.Password != req.RePassword {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"errors": map[string]any{"msg": "rePassword does not match password"},
		})
	}
	if req.Email == "taken@example.com" {
		return c.JSON(http.StatusConflict, map[string]any{"message": "Account Already Exists"})
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"token": s.issueToken(req.Email),
		"user": map[string]any{
			"_id":   "user-2",
			"name":  req.Name,
			"email": req.Email,
			"role":  "user",
		},
	})
}

// ---- catalog ---------------------------------------------------------

func productJSON(p models.Product) map[string]any {
	out := map[string]any{
		"_id":             p.ID,
		"title":           p.Title,
		"slug":            p.Slug,
		"description":     p.Description,
		"quantity":        p.Quantity,
		"sold":            p.Sold,
		"price":           p.Price,
		"imageCover":      p.ImageCover,
		"images":          p.Images,
		"ratingsAverage":  p.RatingsAverage,
		"ratingsQuantity": p.RatingsQuantity,
		"category":        map[string]any{"_id": p.Category.ID, "name": p.Category.Name, "slug": p.Category.Slug},
		"brand":           map[string]any{"_id": p.Brand.ID, "name": p.Brand.Name, "slug": p.Brand.Slug},
	}
	if p.PriceAfterDiscount != nil {
		out["priceAfterDiscount"] = *p.PriceAfterDiscount
	}
	return out
}

func (s *Server) listProducts(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keyword := c.QueryParam("keyword")
	category := c.QueryParam("category")
	brand := c.QueryParam("brand")

	var matched []models.Product
	for _, p := range s.products {
		if keyword != "" && !contains(p.Title, keyword) {
			continue
		}
		if category != "" && p.Category.ID != category {
			continue
		}
		if brand != "" && p.Brand.ID != brand {
			continue
		}
		matched = append(matched, p)
	}

	page := intParam(c.QueryParam("page"), 1)
	limit := intParam(c.QueryParam("limit"), 40)
	start := (page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}

	data := make([]map[string]any, 0, end-start)
	for _, p := range matched[start:end] {
		data = append(data, productJSON(p))
	}
	pages := (len(matched) + limit - 1) / limit
	return c.JSON(http.StatusOK, map[string]any{
		"results": len(matched),
		"metadata": map[string]any{
			"currentPage":   page,
			"numberOfPages": pages,
			"limit":         limit,
		},
		"data": data,
	})
}

func (s *Server) getProduct(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Param("id")
	for _, p := range s.products {
		if p.ID == id {
			return c.JSON(http.StatusOK, map[string]any{"data": productJSON(p)})
		}
	}
	return c.JSON(http.StatusNotFound, map[string]any{"message": "No product found"})
}

func (s *Server) listCategories(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	data := make([]map[string]any, 0)
	for _, p := range s.products {
		if p.Category.ID == "" || seen[p.Category.ID] {
			continue
		}
		seen[p.Category.ID] = true
		data = append(data, map[string]any{"_id": p.Category.ID, "name": p.Category.Name, "slug": p.Category.Slug})
	}
	return c.JSON(http.StatusOK, map[string]any{"data": data})
}

func (s *Server) listBrands(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	data := make([]map[string]any, 0)
	for _, p := range s.products {
		if p.Brand.ID == "" || seen[p.Brand.ID] {
			continue
		}
		seen[p.Brand.ID] = true
		data = append(data, map[string]any{"_id": p.Brand.ID, "name": p.Brand.Name, "slug": p.Brand.Slug})
	}
	return c.JSON(http.StatusOK, map[string]any{"data": data})
}

// ---- cart ------------------------------------------------------------

// cartJSON mirrors the real backend: the embedded product snapshot never
// carries priceAfterDiscount, which is exactly why the client backfills.
func (s *Server) cartJSON() map[string]any {
	lines := make([]map[string]any, 0, len(s.cartLines))
	items := 0
	total := 0.0
	for _, l := range s.cartLines {
		var prod map[string]any
		for _, p := range s.products {
			if p.ID == l.ProductID {
				prod = productJSON(p)
				delete(prod, "priceAfterDiscount")
			}
		}
		if prod == nil {
			prod = map[string]any{}
		}
		lines = append(lines, map[string]any{
			"_id":     l.ID,
			"count":   l.Count,
			"price":   l.Price,
			"product": prod,
		})
		items += l.Count
		total += l.Price * float64(l.Count)
	}
	return map[string]any{
		"status":         "success",
		"numOfCartItems": items,
		"data": map[string]any{
			"_id":            "cart-1",
			"cartOwner":      "user-1",
			"products":       lines,
			"totalCartPrice": total,
			"createdAt":      time.Now().UTC().Format(time.RFC3339),
			"updatedAt":      time.Now().UTC().Format(time.RFC3339),
		},
	}
}

func (s *Server) getCart(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, s.cartJSON())
}

func (s *Server) addToCart(c echo.Context) error {
	var req struct {
		ProductID string `json:"productId"`
		Count     int    `json:"count"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "bad payload"})
	}
	if req.Count < 1 {
		req.Count = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for i := range s.cartLines {
		if s.cartLines[i].ProductID == req.ProductID {
			s.cartLines[i].Count += req.Count
			found = true
		}
	}
	if !found {
		s.nextLine++
		price := 0.0
		exists := false
		for _, p := range s.products {
			if p.ID == req.ProductID {
				price = p.Price
				exists = true
			}
		}
		if !exists {
			return c.JSON(http.StatusNotFound, map[string]any{"message": "No product found"})
		}
		s.cartLines = append(s.cartLines, cartLine{
			ID:        fmt.Sprintf("line-%d", s.nextLine),
			ProductID: req.ProductID,
			Count:     req.Count,
			Price:     price,
		})
	}
	return c.JSON(http.StatusOK, s.cartJSON())
}

func (s *Server) updateCartItem(c echo.Context) error {
	var req struct {
		Count int `json:"count"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "bad payload"})
	}
	productID := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cartLines {
		if s.cartLines[i].ProductID == productID {
			s.cartLines[i].Count = req.Count
			return c.JSON(http.StatusOK, s.cartJSON())
		}
	}
	return c.JSON(http.StatusNotFound, map[string]any{"message": "No cart item found"})
}

func (s *Server) removeCartItem(c echo.Context) error {
	productID := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.cartLines[:0]
	for _, l := range s.cartLines {
		if l.ProductID != productID {
			kept = append(kept, l)
		}
	}
	s.cartLines = kept
	return c.JSON(http.StatusOK, s.cartJSON())
}

func (s *Server) clearCart(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cartLines = nil
	return c.JSON(http.StatusOK, map[string]any{"message": "success"})
}

// ---- wishlist --------------------------------------------------------

func (s *Server) getWishlist(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := make([]map[string]any, 0, len(s.wishlist))
	for _, id := range s.wishlist {
		for _, p := range s.products {
			if p.ID == id {
				data = append(data, productJSON(p))
			}
		}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status": "success",
		"count":  len(data),
		"data":   data,
	})
}

func (s *Server) addToWishlist(c echo.Context) error {
	var req struct {
		ProductID string `json:"productId"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "bad payload"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.wishlist {
		if id == req.ProductID {
			return c.JSON(http.StatusOK, map[string]any{"status": "success"})
		}
	}
	s.wishlist = append(s.wishlist, req.ProductID)
	return c.JSON(http.StatusOK, map[string]any{"status": "success"})
}

func (s *Server) removeFromWishlist(c echo.Context) error {
	productID := c.Param("productId")
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.wishlist[:0]
	for _, id := range s.wishlist {
		if id != productID {
			kept = append(kept, id)
		}
	}
	s.wishlist = kept
	return c.JSON(http.StatusOK, map[string]any{"status": "success"})
}

// ---- orders ----------------------------------------------------------

func (s *Server) createCheckoutSession(c echo.Context) error {
	var req struct {
		ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "bad payload"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]map[string]any, 0, len(s.cartLines))
	total := 0.0
	for _, l := range s.cartLines {
		items = append(items, map[string]any{"product": l.ProductID, "count": l.Count, "price": l.Price})
		total += l.Price * float64(l.Count)
	}
	s.cartLines = nil
	order := map[string]any{
		"_id":             fmt.Sprintf("srv-order-%d", len(s.orders)+1),
		"user":            "user-1",
		"cartItems":       items,
		"totalOrderPrice": total,
		"shippingAddress": req.ShippingAddress,
		"isPaid":          false,
		"isDelivered":     false,
		"createdAt":       time.Now().UTC().Format(time.RFC3339),
	}
	return c.JSON(http.StatusCreated, map[string]any{"data": order})
}

func (s *Server) myOrders(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := make([]map[string]any, 0, len(s.orders))
	for _, o := range s.orders {
		items := make([]map[string]any, 0, len(o.CartItems))
		for _, it := range o.CartItems {
			items = append(items, map[string]any{"product": it.Product, "count": it.Quantity, "price": it.Price})
		}
		data = append(data, map[string]any{
			"_id":             o.ID,
			"user":            o.User,
			"cartItems":       items,
			"totalOrderPrice": o.TotalOrderPrice,
			"shippingAddress": o.ShippingAddress,
			"isPaid":          o.IsPaid,
			"isDelivered":     o.IsDelivered,
			"createdAt":       o.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"data": data})
}

// ---- helpers ---------------------------------------------------------

func intParam(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
