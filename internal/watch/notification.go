// Package watch runs the per-role polling loops. Storage is the single
// source of truth; each tick re-reads it, diffs by field against the
// previous snapshot, and emits notifications for detected transitions.
package watch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"menuquick/internal/domain"
)

type Kind string

const (
	KindOrderReceived  Kind = "order_received"  // kitchen: a new pending order appeared
	KindOrderActivated Kind = "order_activated" // customer: staged order entered the kitchen queue
	KindOrderReady     Kind = "order_ready"
	KindOrderServed    Kind = "order_served"
	KindOrderCancelled Kind = "order_cancelled" // customer: owned order vanished from the queue
)

// Notification is one observed transition. Diffing is per order id over
// (status, tableNumber); object identity is lost across storage
// round-trips and must not be relied on.
type Notification struct {
	Kind        Kind          `json:"kind"`
	OrderID     string        `json:"order_id"`
	ShortID     string        `json:"short_id"`
	TableNumber string        `json:"table_number,omitempty"`
	OldStatus   domain.Status `json:"old_status,omitempty"`
	NewStatus   domain.Status `json:"new_status,omitempty"`
	Actor       string        `json:"actor,omitempty"` // who removed it, when known
	At          time.Time     `json:"at"`
}

// Notifier is a notification sink. Sinks must not block the poll loop
// for long; a slow broker delays only its own role's next tick.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Fanout delivers to every sink.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, n Notification) {
	for _, s := range f {
		s.Notify(ctx, n)
	}
}

// LogNotifier surfaces notifications on the process log.
type LogNotifier struct {
	lg *zap.Logger
}

func NewLogNotifier(lg *zap.Logger) *LogNotifier {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &LogNotifier{lg: lg}
}

func (l *LogNotifier) Notify(_ context.Context, n Notification) {
	l.lg.Info(string(n.Kind),
		zap.String("order_id", n.ShortID),
		zap.String("table", n.TableNumber),
		zap.String("old_status", string(n.OldStatus)),
		zap.String("new_status", string(n.NewStatus)),
		zap.String("actor", n.Actor))
}
