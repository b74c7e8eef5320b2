package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"menuquick/internal/domain"
)

func newTestStore(t *testing.T) *OrderStore {
	t.Helper()
	return NewOrderStore(NewMemoryKV(), nil, nil)
}

func order(id string, status domain.Status, at time.Time) domain.KDSOrder {
	return domain.KDSOrder{
		ID:        id,
		Lines:     []domain.OrderLine{{ItemID: "dri2", Name: "Latte", Quantity: 2, UnitPrice: 4.50}},
		TotalCost: 9.00,
		Timestamp: at,
		Status:    status,
	}
}

func TestActiveOrdersEmptyAndCorrupt(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s := NewOrderStore(kv, nil, nil)

	orders, err := s.ActiveOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)

	// malformed table reads as empty, never errors
	require.NoError(t, kv.Set(ctx, keyActiveOrders, []byte("{not json")))
	orders, err = s.ActiveOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPutActiveMergeProtectsServed(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().UTC()

	served := order("o1", domain.StatusServed, now)
	servedAt := now.Add(time.Minute)
	served.ServedAt = &servedAt
	require.NoError(t, s.PutActive(ctx, []domain.KDSOrder{served}))

	// a stale kitchen writer still thinks o1 is preparing
	stale := order("o1", domain.StatusPreparing, now)
	require.NoError(t, s.PutActive(ctx, []domain.KDSOrder{stale}))

	orders, err := s.ActiveOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.StatusServed, orders[0].Status)
	require.NotNil(t, orders[0].ServedAt)
}

func TestPutActivePreservesOrdersMissingFromWriter(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().UTC()

	require.NoError(t, s.PutActive(ctx, []domain.KDSOrder{order("o1", domain.StatusPending, now)}))

	// a different session pushes only its own order; o1 must survive
	require.NoError(t, s.PutActive(ctx, []domain.KDSOrder{order("o2", domain.StatusPending, now.Add(time.Second))}))

	orders, err := s.ActiveOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
	assert.Equal(t, "o2", orders[0].ID, "newest first")
}

func TestPutActiveStatusUpdateWins(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().UTC()

	require.NoError(t, s.PutActive(ctx, []domain.KDSOrder{order("o1", domain.StatusPending, now)}))
	require.NoError(t, s.PutActive(ctx, []domain.KDSOrder{order("o1", domain.StatusPreparing, now)}))

	orders, err := s.ActiveOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPreparing, orders[0].Status)
}

func TestRemoveActive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().UTC()

	require.NoError(t, s.PutActive(ctx, []domain.KDSOrder{
		order("o1", domain.StatusPending, now),
		order("o2", domain.StatusServed, now),
	}))

	removed, err := s.RemoveActive(ctx, []string{"o1", "o2"}, "kitchen", "cancelled", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"o1"}, removed, "served orders are not clearable")

	orders, err := s.ActiveOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "o2", orders[0].ID)

	stones, err := s.Tombstones(ctx)
	require.NoError(t, err)
	require.Contains(t, stones, "o1")
	assert.Equal(t, "kitchen", stones["o1"].Actor)
	assert.Equal(t, "cancelled", stones["o1"].Reason)

	// re-cancel is a no-op
	removed, err = s.RemoveActive(ctx, []string{"o1"}, "kitchen", "cancelled", false)
	require.NoError(t, err)
	assert.Empty(t, removed)

	// finalize may remove served orders
	removed, err = s.RemoveActive(ctx, []string{"o2"}, "customer", "finalized", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"o2"}, removed)
}

func TestTombstoneExpiry(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s := NewOrderStore(kv, nil, nil)

	old := map[string]Tombstone{
		"o1": {OrderID: "o1", Actor: "kitchen", Reason: "cancelled", RemovedAt: time.Now().UTC().Add(-2 * TombstoneTTL)},
		"o2": {OrderID: "o2", Actor: "waiter", Reason: "cancelled", RemovedAt: time.Now().UTC()},
	}
	require.NoError(t, s.writeJSON(ctx, keyTombstones, old))

	stones, err := s.Tombstones(ctx)
	require.NoError(t, err)
	assert.NotContains(t, stones, "o1")
	assert.Contains(t, stones, "o2")
}

func TestStagedTable(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().UTC()

	so := StagedOrder{Order: order("o1", domain.StatusStaged, now), SessionID: "sess1"}
	require.NoError(t, s.SetStagedOrder(ctx, so))

	staged, err := s.StagedOrders(ctx)
	require.NoError(t, err)
	require.Contains(t, staged, "o1")
	assert.Equal(t, "sess1", staged["o1"].SessionID)

	require.NoError(t, s.DeleteStagedOrder(ctx, "o1"))
	require.NoError(t, s.DeleteStagedOrder(ctx, "o1")) // idempotent

	staged, err = s.StagedOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, staged)
}

func TestSessionBookkeeping(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.AppendSessionOrder(ctx, "sess1", "o1"))
	require.NoError(t, s.AppendSessionOrder(ctx, "sess1", "o1")) // dedupe
	require.NoError(t, s.AppendSessionOrder(ctx, "sess1", "o2"))

	ids, err := s.SessionOrderIDs(ctx, "sess1")
	require.NoError(t, err)
	assert.Equal(t, []string{"o1", "o2"}, ids)

	require.NoError(t, s.SetTableNumber(ctx, "sess1", "T482"))
	tn, err := s.TableNumber(ctx, "sess1")
	require.NoError(t, err)
	assert.Equal(t, "T482", tn)

	require.NoError(t, s.ClearSession(ctx, "sess1"))
	ids, err = s.SessionOrderIDs(ctx, "sess1")
	require.NoError(t, err)
	assert.Empty(t, ids)
	tn, err = s.TableNumber(ctx, "sess1")
	require.NoError(t, err)
	assert.Empty(t, tn)
}

func TestClientStagedMirror(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().UTC()

	o, err := s.ClientStagedOrder(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, o)

	require.NoError(t, s.SetClientStagedOrder(ctx, "c1", order("o1", domain.StatusStaged, now)))
	o, err = s.ClientStagedOrder(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, "o1", o.ID)

	require.NoError(t, s.DeleteClientStagedOrder(ctx, "c1"))
	o, err = s.ClientStagedOrder(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, o)
}
