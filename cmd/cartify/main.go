package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/shady823/Cartify/internal/api"
	"github.com/shady823/Cartify/internal/cart"
	"github.com/shady823/Cartify/internal/catalog"
	"github.com/shady823/Cartify/internal/checkout"
	"github.com/shady823/Cartify/internal/config"
	"github.com/shady823/Cartify/internal/localstore"
	"github.com/shady823/Cartify/internal/logging"
	"github.com/shady823/Cartify/internal/models"
	"github.com/shady823/Cartify/internal/orders"
	"github.com/shady823/Cartify/internal/querycache"
	"github.com/shady823/Cartify/internal/session"
	"github.com/shady823/Cartify/internal/wishlist"
)

const usage = `usage: cartify <command> [args]

commands:
  login <email> <password>        sign in and persist the session
  signup <name> <email> <pass>    create an account
  logout                          drop the persisted session
  whoami                          show the signed-in user
  products [-keyword s] [-category id] [-brand id] [-page n]
  product <id>                    show one product
  categories                      list categories
  brands                          list brands
  cart                            show the cart
  cart-add <productID> [count]    add a product
  cart-set <productID> <count>    set a line quantity
  cart-remove <productID>         remove a line
  cart-clear                      empty the cart
  wishlist                        show the wishlist
  wish <productID>                add to the wishlist
  unwish <productID>              remove from the wishlist
  checkout <details> <city> <phone> [cash|card]
  orders                          show merged order history
  theme [light|dark]              show or set the theme
`

type app struct {
	session  *session.Manager
	catalog  *catalog.Service
	cart     *cart.Service
	wishlist *wishlist.Service
	checkout *checkout.Service
	history  *orders.History
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.IntoContext(ctx, logger)

	store, err := localstore.Open(ctx, cfg.StorePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open local store")
	}
	defer store.Close()

	authClient := api.New(cfg.APIBaseURL, api.WithTimeout(cfg.HTTPTimeout))
	sess := session.New(authClient, store, cfg.DefaultTheme)
	client := api.New(cfg.APIBaseURL,
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithToken(sess.Token),
	)

	cache := querycache.New()
	ledger := orders.NewLedger(store)
	cartSvc := cart.New(client, cache)

	a := &app{
		session:  sess,
		catalog:  catalog.New(client, cache),
		cart:     cartSvc,
		wishlist: wishlist.New(client, cache),
		checkout: checkout.New(cartSvc, ledger),
		history:  orders.NewHistory(client, cache, ledger),
	}

	if err := a.run(ctx, os.Args[1:]); err != nil {
		logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("no command given")
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return a.login(ctx, rest)
	case "signup":
		return a.signup(ctx, rest)
	case "logout":
		return a.session.SignOut()
	case "whoami":
		return a.whoami()
	case "products":
		return a.products(ctx, rest)
	case "product":
		return a.product(ctx, rest)
	case "categories":
		for _, c := range a.catalog.Categories(ctx) {
			fmt.Printf("%s\t%s\n", c.ID, c.Name)
		}
		return nil
	case "brands":
		for _, b := range a.catalog.Brands(ctx) {
			fmt.Printf("%s\t%s\n", b.ID, b.Name)
		}
		return nil
	case "cart":
		return a.showCart(ctx)
	case "cart-add":
		return a.cartAdd(ctx, rest)
	case "cart-set":
		return a.cartSet(ctx, rest)
	case "cart-remove":
		if len(rest) != 1 {
			return fmt.Errorf("cart-remove wants a product id")
		}
		return a.cart.Remove(ctx, rest[0])
	case "cart-clear":
		return a.cart.Clear(ctx)
	case "wishlist":
		return a.showWishlist(ctx)
	case "wish":
		if len(rest) != 1 {
			return fmt.Errorf("wish wants a product id")
		}
		return a.wishlist.Add(ctx, rest[0])
	case "unwish":
		if len(rest) != 1 {
			return fmt.Errorf("unwish wants a product id")
		}
		return a.wishlist.Remove(ctx, rest[0])
	case "checkout":
		return a.placeOrder(ctx, rest)
	case "orders":
		return a.showOrders(ctx)
	case "theme":
		return a.theme(rest)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("login wants an email and a password")
	}
	user, err := a.session.SignIn(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("signed in as %s <%s>\n", user.Name, user.Email)
	return nil
}

func (a *app) signup(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("signup wants a name, an email and a password")
	}
	user, err := a.session.SignUp(ctx, models.SignupPayload{
		Name:       args[0],
		Email:      args[1],
		Password:   args[2],
		RePassword: args[2],
	})
	if err != nil {
		return err
	}
	fmt.Printf("account created for %s <%s>\n", user.Name, user.Email)
	return nil
}

func (a *app) whoami() error {
	user, ok := a.session.Current()
	if !ok {
		fmt.Println("not signed in")
		return nil
	}
	fmt.Printf("%s <%s>\n", user.Name, user.Email)
	if exp, ok := a.session.ExpiresAt(); ok {
		fmt.Printf("token expires %s\n", exp.Format("2006-01-02 15:04:05 MST"))
	}
	return nil
}

func (a *app) products(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("products", flag.ContinueOnError)
	keyword := fs.String("keyword", "", "title search")
	category := fs.String("category", "", "category id")
	brand := fs.String("brand", "", "brand id")
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 40, "page size")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pageData := a.catalog.Products(ctx, models.ProductsQuery{
		Keyword:  *keyword,
		Category: *category,
		Brand:    *brand,
		Page:     *page,
		Limit:    *limit,
	})
	for _, p := range pageData.Products {
		price := strconv.FormatFloat(p.Price, 'f', 2, 64)
		if p.PriceAfterDiscount != nil {
			price = fmt.Sprintf("%s (was %s)",
				strconv.FormatFloat(*p.PriceAfterDiscount, 'f', 2, 64), price)
		}
		fmt.Printf("%s\t%s\t%s\n", p.ID, p.Title, price)
	}
	fmt.Printf("page %d of %d, %d total\n", pageData.Page, pageData.TotalPages, pageData.Total)
	return nil
}

func (a *app) product(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("product wants an id")
	}
	p := a.catalog.Product(ctx, args[0])
	if p == nil {
		return fmt.Errorf("product %s not found", args[0])
	}
	fmt.Printf("%s\n%s\n", p.Title, p.Description)
	if p.PriceAfterDiscount != nil {
		fmt.Printf("price: %.2f (list %.2f)\n", *p.PriceAfterDiscount, p.Price)
	} else {
		fmt.Printf("price: %.2f\n", p.Price)
	}
	fmt.Printf("in stock: %d, sold: %d, rating: %.1f (%d)\n",
		p.Quantity, p.Sold, p.RatingsAverage, p.RatingsQuantity)
	return nil
}

func (a *app) showCart(ctx context.Context) error {
	view := a.cart.View(ctx)
	if view == nil || len(view.Cart.Lines) == 0 {
		fmt.Println("cart is empty")
		return nil
	}
	for _, l := range view.Cart.Lines {
		fmt.Printf("%s\t%d x %.2f\t%s\n",
			l.Product.ID, l.Quantity, l.EffectiveUnitPrice(), l.Product.Title)
	}
	fmt.Printf("%d items, total %.2f\n", view.NumOfItems, view.Cart.TotalPrice)
	return nil
}

func (a *app) cartAdd(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("cart-add wants a product id and an optional count")
	}
	count := 1
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("bad count %q", args[1])
		}
		count = n
	}
	return a.cart.Add(ctx, args[0], count)
}

func (a *app) cartSet(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("cart-set wants a product id and a count")
	}
	count, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("bad count %q", args[1])
	}
	return a.cart.UpdateQuantity(ctx, args[0], count)
}

func (a *app) showWishlist(ctx context.Context) error {
	w := a.wishlist.View(ctx)
	if w == nil || len(w.Products) == 0 {
		fmt.Println("wishlist is empty")
		return nil
	}
	for _, p := range w.Products {
		fmt.Printf("%s\t%s\t%.2f\n", p.ID, p.Title, p.Price)
	}
	return nil
}

func (a *app) placeOrder(ctx context.Context, args []string) error {
	if len(args) < 3 || len(args) > 4 {
		return fmt.Errorf("checkout wants details, city, phone and an optional method")
	}
	method := checkout.MethodCash
	if len(args) == 4 {
		method = checkout.Method(args[3])
	}
	order, err := a.checkout.PlaceOrder(ctx, models.ShippingAddress{
		Details: args[0],
		City:    args[1],
		Phone:   args[2],
	}, method)
	if err != nil {
		if order != nil {
			fmt.Printf("order %s recorded, but: %v\n", order.ID, err)
			return nil
		}
		return err
	}
	a.history.Invalidate()
	fmt.Printf("order %s placed, total %.2f\n", order.ID, order.TotalOrderPrice)
	return nil
}

func (a *app) showOrders(ctx context.Context) error {
	records := a.history.List(ctx)
	if len(records) == 0 {
		fmt.Println("no orders")
		return nil
	}
	for _, r := range records {
		fmt.Printf("%s\t%s\t%s\t%.2f\n",
			r.CreatedAt.Format("2006-01-02 15:04"), r.Source, r.ID, r.TotalOrderPrice)
	}
	return nil
}

func (a *app) theme(args []string) error {
	if len(args) == 0 {
		fmt.Println(a.session.Theme())
		return nil
	}
	if err := a.session.SetTheme(args[0]); err != nil {
		return err
	}
	fmt.Println(args[0])
	return nil
}
