// Package app assembles the per-role HTTP servers. Every role serves
// its own port over the same shared store; the HTTP surface is a thin
// skin over the lifecycle service and the role's poll projection.
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"menuquick/internal/lifecycle"
	"menuquick/internal/metrics"
	"menuquick/internal/receipt"
)

func newServer(lg *zap.Logger, mx *metrics.Registry) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger(lg))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if mx != nil {
		e.GET("/metrics", echo.WrapHandler(mx.Handler()))
	}
	return e
}

func requestLogger(lg *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			lg.Info("http_request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)))
			return err
		}
	}
}

// httpError maps service errors onto status codes. Conflicts with the
// state machine are 409; unknown ids are 404; bad input is 400.
func httpError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, lifecycle.ErrNotFound),
		errors.Is(err, receipt.ErrNothingToReceipt):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, lifecycle.ErrEmptyCart):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, lifecycle.ErrStagedOrderExists),
		errors.Is(err, lifecycle.ErrNotAdvanceable),
		errors.Is(err, lifecycle.ErrNotServable),
		errors.Is(err, lifecycle.ErrOrderServed):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return err
	}
}

// serve runs the echo server until ctx is cancelled, then shuts it
// down gracefully.
func serve(ctx context.Context, e *echo.Echo, addr string, lg *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	lg.Info("server_started", zap.String("addr", addr))
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	lg.Info("server_stopped", zap.String("addr", addr))
	return <-errCh
}

// newID mints a random identifier for session and client identity.
func newID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(b)
}
