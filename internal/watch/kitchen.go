package watch

import (
	"context"
	"sync"
	"time"

	"menuquick/internal/domain"
	"menuquick/internal/store"
)

// KitchenTicker maintains the KDS view: active orders minus served,
// newest first. It announces orders newly entering the queue.
type KitchenTicker struct {
	st     *store.OrderStore
	prev   map[string]snapEntry
	primed bool

	mu sync.Mutex
	// View is the latest computed projection, for the KDS endpoint.
	View []domain.KDSOrder
}

func NewKitchenTicker(st *store.OrderStore) *KitchenTicker {
	return &KitchenTicker{st: st, prev: map[string]snapEntry{}}
}

func (k *KitchenTicker) Tick(ctx context.Context) ([]Notification, error) {
	now := time.Now().UTC()

	active, err := k.st.ActiveOrders(ctx)
	if err != nil {
		return nil, err
	}

	var view []domain.KDSOrder
	next := map[string]snapEntry{}
	var notifs []Notification
	for _, o := range active {
		if o.Status == domain.StatusServed {
			continue
		}
		view = append(view, o)
		next[o.ID] = snapEntry{status: string(o.Status), table: o.TableNumber}

		if _, seen := k.prev[o.ID]; !seen && k.primed {
			notifs = append(notifs, Notification{
				Kind: KindOrderReceived, OrderID: o.ID, ShortID: o.ShortID(),
				TableNumber: o.TableNumber, NewStatus: o.Status, At: now,
			})
		}
	}

	k.mu.Lock()
	k.View = view
	k.mu.Unlock()
	k.prev = next
	k.primed = true
	return notifs, nil
}

// Snapshot returns the projection as of the last tick. The display
// only updates on the poll period anyway.
func (k *KitchenTicker) Snapshot() []domain.KDSOrder {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.View
}
