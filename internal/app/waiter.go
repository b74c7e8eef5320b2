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

// Waiter is the service role: pick up ready orders, mark them served,
// and clear mistakes before they reach a table.
type Waiter struct {
	cfg    config.App
	svc    *lifecycle.Service
	ticker *watch.WaiterTicker
	sink   watch.Notifier
	lg     *zap.Logger
	mx     *metrics.Registry
}

func NewWaiter(cfg config.App, st *store.OrderStore, sink watch.Notifier, lg *zap.Logger, mx *metrics.Registry) *Waiter {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Waiter{
		cfg:    cfg,
		svc:    lifecycle.New(st, lg, mx, cfg.BaseURL),
		ticker: watch.NewWaiterTicker(st),
		sink:   sink,
		lg:     lg,
		mx:     mx,
	}
}

func (a *Waiter) Run(ctx context.Context) error {
	w := watch.NewWatcher("waiter", a.cfg.Poll.Waiter.Std(), a.ticker, a.sink, a.lg, a.mx)
	go w.Run(ctx)

	e := newServer(a.lg, a.mx)
	a.register(e)
	return serve(ctx, e, a.cfg.HTTP.WaiterAddr, a.lg)
}

func (a *Waiter) register(e *echo.Echo) {
	e.GET("/orders", a.getOrders)
	e.POST("/orders/:id/serve", a.serve)
	e.DELETE("/orders/:id", a.clear)
}

type waiterOrders struct {
	Ready  []domain.KDSOrder `json:"ready"`
	Served []domain.KDSOrder `json:"served"`
}

func (a *Waiter) getOrders(c echo.Context) error {
	ready, served := a.ticker.Snapshot()
	return c.JSON(http.StatusOK, waiterOrders{Ready: ready, Served: served})
}

func (a *Waiter) serve(c echo.Context) error {
	o, err := a.svc.Serve(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (a *Waiter) clear(c echo.Context) error {
	if err := a.svc.Clear(c.Request().Context(), c.Param("id"), "waiter"); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
