package watch

import (
	"context"
	"time"

	"menuquick/internal/domain"
	"menuquick/internal/store"
)

// CustomerTicker reconciles one session's view: detects activation of
// its staged order, forward transitions on owned orders, and removals
// it did not cause itself.
type CustomerTicker struct {
	st        *store.OrderStore
	sessionID string
	clientID  string
	prev      map[string]snapEntry
}

func NewCustomerTicker(st *store.OrderStore, sessionID, clientID string) *CustomerTicker {
	return &CustomerTicker{st: st, sessionID: sessionID, clientID: clientID, prev: map[string]snapEntry{}}
}

func (c *CustomerTicker) Tick(ctx context.Context) ([]Notification, error) {
	now := time.Now().UTC()

	ownedIDs, err := c.st.SessionOrderIDs(ctx, c.sessionID)
	if err != nil {
		return nil, err
	}
	active, err := c.st.ActiveOrders(ctx)
	if err != nil {
		return nil, err
	}
	mirror, err := c.st.ClientStagedOrder(ctx, c.clientID)
	if err != nil {
		return nil, err
	}

	owned := map[string]bool{}
	for _, id := range ownedIDs {
		owned[id] = true
	}

	var notifs []Notification

	// staged order showing up in the owned set means staff scanned it
	if mirror != nil && owned[mirror.ID] {
		if err := c.st.DeleteClientStagedOrder(ctx, c.clientID); err != nil {
			return nil, err
		}
		var table string
		for _, o := range active {
			if o.ID == mirror.ID {
				table = o.TableNumber
			}
		}
		notifs = append(notifs, Notification{
			Kind:        KindOrderActivated,
			OrderID:     mirror.ID,
			ShortID:     mirror.ShortID(),
			TableNumber: table,
			OldStatus:   domain.StatusStaged,
			NewStatus:   domain.StatusPending,
			At:          now,
		})
		mirror = nil
	}

	next := map[string]snapEntry{}
	inActive := map[string]bool{}
	for _, o := range active {
		if !owned[o.ID] {
			continue
		}
		inActive[o.ID] = true
		next[o.ID] = snapEntry{status: string(o.Status), table: o.TableNumber}

		p, seen := c.prev[o.ID]
		switch {
		case o.Status == domain.StatusReady && (!seen || p.status != string(domain.StatusReady)):
			notifs = append(notifs, Notification{
				Kind: KindOrderReady, OrderID: o.ID, ShortID: o.ShortID(),
				TableNumber: o.TableNumber, OldStatus: domain.Status(p.status), NewStatus: o.Status, At: now,
			})
		case o.Status == domain.StatusServed && (!seen || p.status != string(domain.StatusServed)):
			notifs = append(notifs, Notification{
				Kind: KindOrderServed, OrderID: o.ID, ShortID: o.ShortID(),
				TableNumber: o.TableNumber, OldStatus: domain.Status(p.status), NewStatus: o.Status, At: now,
			})
		}
	}

	// an owned id missing from the active table, and not our staged
	// order, was removed on the kitchen side
	var remaining []string
	var stones map[string]store.Tombstone
	for _, id := range ownedIDs {
		if inActive[id] || (mirror != nil && mirror.ID == id) {
			remaining = append(remaining, id)
			continue
		}
		if stones == nil {
			if stones, err = c.st.Tombstones(ctx); err != nil {
				return nil, err
			}
		}
		n := Notification{
			Kind: KindOrderCancelled, OrderID: id, ShortID: domain.ShortID(id), At: now,
		}
		if t, ok := stones[id]; ok {
			n.Actor = t.Actor
			if t.Reason == "finalized" {
				// our own payment epilogue; nothing to announce
				continue
			}
		}
		notifs = append(notifs, n)
	}
	if len(remaining) != len(ownedIDs) {
		if err := c.st.SetSessionOrderIDs(ctx, c.sessionID, remaining); err != nil {
			return nil, err
		}
	}

	c.prev = next
	return notifs, nil
}
