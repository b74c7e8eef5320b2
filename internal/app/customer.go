package app

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"menuquick/internal/config"
	"menuquick/internal/domain"
	"menuquick/internal/lifecycle"
	"menuquick/internal/metrics"
	"menuquick/internal/receipt"
	"menuquick/internal/store"
	"menuquick/internal/suggest"
	"menuquick/internal/watch"
)

// Customer is the guest-facing role: cart building, order submission,
// order tracking, suggestions, and the receipt flow. One process is
// one table session.
type Customer struct {
	cfg     config.App
	sess    lifecycle.Session
	svc     *lifecycle.Service
	menu    *domain.Menu
	gateway *suggest.Gateway
	ticker  *watch.CustomerTicker
	sink    watch.Notifier
	lg      *zap.Logger
	mx      *metrics.Registry

	mu   sync.Mutex
	cart *domain.Cart
}

func NewCustomer(cfg config.App, st *store.OrderStore, menu *domain.Menu, gateway *suggest.Gateway, sink watch.Notifier, lg *zap.Logger, mx *metrics.Registry) *Customer {
	if lg == nil {
		lg = zap.NewNop()
	}
	sess := lifecycle.Session{ID: newID(), ClientID: newID()}
	return &Customer{
		cfg:     cfg,
		sess:    sess,
		svc:     lifecycle.New(st, lg, mx, cfg.BaseURL),
		menu:    menu,
		gateway: gateway,
		ticker:  watch.NewCustomerTicker(st, sess.ID, sess.ClientID),
		sink:    sink,
		lg:      lg,
		mx:      mx,
		cart:    &domain.Cart{},
	}
}

func (a *Customer) Run(ctx context.Context) error {
	w := watch.NewWatcher("customer", a.cfg.Poll.Customer.Std(), a.ticker, a.sink, a.lg, a.mx)
	go w.Run(ctx)

	e := newServer(a.lg, a.mx)
	a.register(e)
	return serve(ctx, e, a.cfg.HTTP.CustomerAddr, a.lg)
}

func (a *Customer) register(e *echo.Echo) {
	e.GET("/menu", a.getMenu)

	e.POST("/cart/items", a.addCartItem)
	e.PATCH("/cart/items/:id", a.setCartQuantity)
	e.DELETE("/cart/items/:id", a.removeCartItem)
	e.GET("/cart", a.getCart)
	e.POST("/cart/submit", a.submitCart)

	e.GET("/orders", a.getOrders)
	e.GET("/staged/qr", a.getStagedReference)
	e.DELETE("/staged", a.cancelStaged)

	e.GET("/suggestions", a.getSuggestions)

	e.POST("/session/receipt", a.buildReceipt)
	e.GET("/session/receipt/document", a.receiptDocument)
	e.POST("/session/finalize", a.finalizeSession)
}

func (a *Customer) getMenu(c echo.Context) error {
	return c.JSON(http.StatusOK, a.menu)
}

type addItemRequest struct {
	ItemID string `json:"item_id"`
}

type cartView struct {
	Items []domain.CartItem `json:"items"`
	Total float64           `json:"total"`
}

func (a *Customer) cartSnapshot() cartView {
	return cartView{Items: a.cart.Items, Total: a.cart.Total()}
}

func (a *Customer) addCartItem(c echo.Context) error {
	var req addItemRequest
	if err := c.Bind(&req); err != nil || req.ItemID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "item_id is required")
	}
	item, ok := a.menu.ItemByID(req.ItemID)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown menu item")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.cart.Add(item)
	return c.JSON(http.StatusOK, a.cartSnapshot())
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (a *Customer) setCartQuantity(c echo.Context) error {
	var req setQuantityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "quantity is required")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.cart.SetQuantity(c.Param("id"), req.Quantity)
	return c.JSON(http.StatusOK, a.cartSnapshot())
}

func (a *Customer) removeCartItem(c echo.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cart.Remove(c.Param("id"))
	return c.JSON(http.StatusOK, a.cartSnapshot())
}

func (a *Customer) getCart(c echo.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return c.JSON(http.StatusOK, a.cartSnapshot())
}

type submitResponse struct {
	Order         domain.KDSOrder `json:"order"`
	Staged        bool            `json:"staged"`
	ActivationURL string          `json:"activation_url,omitempty"`
}

func (a *Customer) submitCart(c echo.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	res, err := a.svc.Create(c.Request().Context(), a.sess, a.cart)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, submitResponse{
		Order:         res.Order,
		Staged:        res.Staged,
		ActivationURL: res.ActivationURL,
	})
}

func (a *Customer) getOrders(c echo.Context) error {
	orders, err := a.svc.SessionOrders(c.Request().Context(), a.sess)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, orders)
}

type stagedReferenceResponse struct {
	OrderID       string `json:"order_id"`
	ShortID       string `json:"short_id"`
	ActivationURL string `json:"activation_url"`
}

func (a *Customer) getStagedReference(c echo.Context) error {
	id, ref, err := a.svc.StagedReference(c.Request().Context(), a.sess)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, stagedReferenceResponse{
		OrderID:       id,
		ShortID:       domain.ShortID(id),
		ActivationURL: ref,
	})
}

func (a *Customer) cancelStaged(c echo.Context) error {
	id, err := a.svc.CancelStaged(c.Request().Context(), a.sess)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"cancelled_order_id": id})
}

type suggestionsResponse struct {
	TimeOfDay   string   `json:"time_of_day"`
	Suggestions []string `json:"suggestions"`
}

func (a *Customer) getSuggestions(c echo.Context) error {
	ctx := c.Request().Context()
	tod := suggest.TimeOfDay(time.Now().Hour())

	previous, err := a.previousItemNames(ctx)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, suggestionsResponse{
		TimeOfDay:   tod,
		Suggestions: a.gateway.Suggest(ctx, tod, previous, a.menu),
	})
}

// previousItemNames combines the working cart with everything already
// sent to the kitchen, deduplicated, as context for the gateway.
func (a *Customer) previousItemNames(ctx context.Context) ([]string, error) {
	orders, err := a.svc.SessionOrders(ctx, a.sess)
	if err != nil {
		return nil, err
	}

	var names []string
	seen := map[string]bool{}
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	a.mu.Lock()
	for _, it := range a.cart.Items {
		add(it.Name)
	}
	a.mu.Unlock()
	for _, o := range orders {
		for _, l := range o.Lines {
			add(l.Name)
		}
	}
	return names, nil
}

func (a *Customer) buildReceipt(c echo.Context) error {
	data, err := a.svc.SessionReceipt(c.Request().Context(), a.sess)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, data)
}

// receiptDocument renders the printable pages for the receipt the
// customer reviews before paying.
func (a *Customer) receiptDocument(c echo.Context) error {
	data, err := a.svc.SessionReceipt(c.Request().Context(), a.sess)
	if err != nil {
		return httpError(err)
	}
	pages := receipt.Render(data, receipt.DefaultRowsPerPage)
	return c.JSON(http.StatusOK, map[string]any{"pages": pages})
}

func (a *Customer) finalizeSession(c echo.Context) error {
	res, err := a.svc.FinalizeSession(c.Request().Context(), a.sess)
	if err != nil {
		return httpError(err)
	}
	a.mu.Lock()
	a.cart.Clear()
	a.mu.Unlock()
	return c.JSON(http.StatusOK, res)
}
