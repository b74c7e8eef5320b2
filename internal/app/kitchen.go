package app

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"menuquick/internal/config"
	"menuquick/internal/domain"
	"menuquick/internal/lifecycle"
	"menuquick/internal/metrics"
	"menuquick/internal/store"
	"menuquick/internal/watch"
)

// Kitchen is the KDS role: the order queue, activation of staged
// orders, and moving food through pending, preparing and ready.
type Kitchen struct {
	cfg    config.App
	svc    *lifecycle.Service
	ticker *watch.KitchenTicker
	sink   watch.Notifier
	lg     *zap.Logger
	mx     *metrics.Registry
}

func NewKitchen(cfg config.App, st *store.OrderStore, sink watch.Notifier, lg *zap.Logger, mx *metrics.Registry) *Kitchen {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Kitchen{
		cfg:    cfg,
		svc:    lifecycle.New(st, lg, mx, cfg.BaseURL),
		ticker: watch.NewKitchenTicker(st),
		sink:   sink,
		lg:     lg,
		mx:     mx,
	}
}

func (a *Kitchen) Run(ctx context.Context) error {
	w := watch.NewWatcher("kitchen", a.cfg.Poll.Kitchen.Std(), a.ticker, a.sink, a.lg, a.mx)
	go w.Run(ctx)

	e := newServer(a.lg, a.mx)
	a.register(e)
	return serve(ctx, e, a.cfg.HTTP.KitchenAddr, a.lg)
}

func (a *Kitchen) register(e *echo.Echo) {
	e.GET("/orders", a.getOrders)
	e.GET("/activate", a.activate)
	e.POST("/orders/:id/advance", a.advance)
	e.DELETE("/orders/:id", a.clear)
}

// getOrders serves the queue as of the last poll, newest first,
// served orders excluded.
func (a *Kitchen) getOrders(c echo.Context) error {
	return c.JSON(http.StatusOK, a.ticker.Snapshot())
}

type activateResponse struct {
	Outcome     lifecycle.ActivateOutcome `json:"outcome"`
	Order       domain.KDSOrder           `json:"order"`
	TableNumber string                    `json:"table_number"`
}

// activate resolves a scanned activation reference. A second scan of
// the same reference reports already_activated rather than failing.
func (a *Kitchen) activate(c echo.Context) error {
	orderID := c.QueryParam("order_id")
	if orderID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "order_id is required")
	}
	res, err := a.svc.Activate(c.Request().Context(), orderID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, activateResponse{
		Outcome:     res.Outcome,
		Order:       res.Order,
		TableNumber: res.TableNumber,
	})
}

func (a *Kitchen) advance(c echo.Context) error {
	o, err := a.svc.Advance(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (a *Kitchen) clear(c echo.Context) error {
	if err := a.svc.Clear(c.Request().Context(), c.Param("id"), "kitchen"); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
