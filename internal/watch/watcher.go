package watch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"menuquick/internal/metrics"
)

// Default poll periods per role, matching how fast each view needs to
// feel: the customer waits on status, the waiter only on plated food.
const (
	CustomerPeriod = 2500 * time.Millisecond
	KitchenPeriod  = 3 * time.Second
	WaiterPeriod   = 5 * time.Second
)

// Ticker is one role's reconcile step: read the store, diff, return the
// notifications to surface.
type Ticker interface {
	Tick(ctx context.Context) ([]Notification, error)
}

// Watcher drives a Ticker on a fixed period until the context is
// cancelled. There is no event wiring; polling is the sync mechanism.
type Watcher struct {
	role     string
	period   time.Duration
	ticker   Ticker
	notifier Notifier
	lg       *zap.Logger
	mx       *metrics.Registry
}

func NewWatcher(role string, period time.Duration, t Ticker, n Notifier, lg *zap.Logger, mx *metrics.Registry) *Watcher {
	if lg == nil {
		lg = zap.NewNop()
	}
	if n == nil {
		n = Fanout{}
	}
	return &Watcher{role: role, period: period, ticker: t, notifier: n, lg: lg, mx: mx}
}

// Run polls until ctx is done. Tick errors are logged and retried next
// period; a flaky store read must not kill the view.
func (w *Watcher) Run(ctx context.Context) {
	w.lg.Info("watcher_started", zap.String("role", w.role), zap.Duration("period", w.period))

	t := time.NewTicker(w.period)
	defer t.Stop()

	w.tickOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			w.lg.Info("watcher_stopped", zap.String("role", w.role))
			return
		case <-t.C:
			w.tickOnce(ctx)
		}
	}
}

func (w *Watcher) tickOnce(ctx context.Context) {
	if w.mx != nil {
		w.mx.PollTicks.WithLabelValues(w.role).Inc()
	}
	notifs, err := w.ticker.Tick(ctx)
	if err != nil {
		w.lg.Warn("watcher_tick_failed", zap.String("role", w.role), zap.Error(err))
		return
	}
	for _, n := range notifs {
		if w.mx != nil {
			w.mx.Notifications.WithLabelValues(string(n.Kind)).Inc()
		}
		w.notifier.Notify(ctx, n)
	}
}

// snapEntry is the per-order field snapshot used for diffing.
type snapEntry struct {
	status string
	table  string
}
