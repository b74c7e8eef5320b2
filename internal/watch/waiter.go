package watch

import (
	"context"
	"sort"
	"sync"
	"time"

	"menuquick/internal/domain"
	"menuquick/internal/store"
)

// WaiterTicker splits the active table into pickup and served lists and
// announces orders newly plated by the kitchen.
type WaiterTicker struct {
	st     *store.OrderStore
	prev   map[string]snapEntry
	primed bool

	mu     sync.Mutex
	Ready  []domain.KDSOrder // waiting for pickup, newest first
	Served []domain.KDSOrder // most recently served first
}

func NewWaiterTicker(st *store.OrderStore) *WaiterTicker {
	return &WaiterTicker{st: st, prev: map[string]snapEntry{}}
}

func (w *WaiterTicker) Tick(ctx context.Context) ([]Notification, error) {
	now := time.Now().UTC()

	active, err := w.st.ActiveOrders(ctx)
	if err != nil {
		return nil, err
	}

	var ready, served []domain.KDSOrder
	next := map[string]snapEntry{}
	var notifs []Notification
	for _, o := range active {
		next[o.ID] = snapEntry{status: string(o.Status), table: o.TableNumber}
		switch o.Status {
		case domain.StatusReady:
			ready = append(ready, o)
			if p, seen := w.prev[o.ID]; w.primed && (!seen || p.status != string(domain.StatusReady)) {
				notifs = append(notifs, Notification{
					Kind: KindOrderReady, OrderID: o.ID, ShortID: o.ShortID(),
					TableNumber: o.TableNumber, OldStatus: domain.Status(p.status), NewStatus: o.Status, At: now,
				})
			}
		case domain.StatusServed:
			served = append(served, o)
		}
	}
	sort.SliceStable(served, func(i, j int) bool {
		var a, b time.Time
		if served[i].ServedAt != nil {
			a = *served[i].ServedAt
		}
		if served[j].ServedAt != nil {
			b = *served[j].ServedAt
		}
		return a.After(b)
	})

	w.mu.Lock()
	w.Ready = ready
	w.Served = served
	w.mu.Unlock()
	w.prev = next
	w.primed = true
	return notifs, nil
}

// Snapshot returns both lists as of the last tick.
func (w *WaiterTicker) Snapshot() (ready, served []domain.KDSOrder) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Ready, w.Served
}
