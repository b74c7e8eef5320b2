package lifecycle

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"menuquick/internal/domain"
	"menuquick/internal/receipt"
	"menuquick/internal/store"
)

var (
	latte    = domain.MenuItem{ID: "dri2", Name: "Latte", Price: 4.50, Category: "Drinks"}
	espresso = domain.MenuItem{ID: "dri1", Name: "Espresso", Price: 3.00, Category: "Drinks"}
)

func newTestService(t *testing.T) (*Service, *store.OrderStore) {
	t.Helper()
	st := store.NewOrderStore(store.NewMemoryKV(), nil, nil)
	return New(st, nil, nil, "http://kitchen.local:3001"), st
}

func cartWith(items ...domain.MenuItem) *domain.Cart {
	var c domain.Cart
	for _, it := range items {
		c.Add(it)
	}
	return &c
}

func TestCreateRejectsEmptyCart(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), Session{ID: "s1", ClientID: "c1"}, &domain.Cart{})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCreateStagesFirstOrder(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	sess := Session{ID: "s1", ClientID: "c1"}

	cart := cartWith(latte, latte) // Latte x2
	res, err := svc.Create(ctx, sess, cart)
	require.NoError(t, err)

	assert.True(t, res.Staged)
	assert.Equal(t, domain.StatusStaged, res.Order.Status)
	assert.InDelta(t, 9.00, res.Order.TotalCost, 1e-9)
	assert.Contains(t, res.ActivationURL, "http://kitchen.local:3001/activate?order_id=")
	assert.True(t, cart.Empty(), "cart is cleared on submit")

	// not in the active table yet
	active, err := st.ActiveOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	staged, err := st.StagedOrders(ctx)
	require.NoError(t, err)
	assert.Contains(t, staged, res.Order.ID)
}

func TestCreateRejectsSecondStagedOrder(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	sess := Session{ID: "s1", ClientID: "c1"}

	_, err := svc.Create(ctx, sess, cartWith(latte))
	require.NoError(t, err)

	_, err = svc.Create(ctx, sess, cartWith(espresso))
	assert.ErrorIs(t, err, ErrStagedOrderExists)
}

func TestActivateAssignsTableAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	sess := Session{ID: "s1", ClientID: "c1"}

	res, err := svc.Create(ctx, sess, cartWith(latte, latte))
	require.NoError(t, err)
	id := res.Order.ID

	act, err := svc.Activate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, Activated, act.Outcome)
	assert.Regexp(t, regexp.MustCompile(`^T\d{3}$`), act.TableNumber)
	assert.Equal(t, domain.StatusPending, act.Order.Status)

	active, err := st.ActiveOrders(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, id, active[0].ID)

	staged, err := st.StagedOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, staged, "activation consumes the staged copy")

	ids, err := st.SessionOrderIDs(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{id}, ids)

	// second activation reports already-done without duplicating
	again, err := svc.Activate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, AlreadyActive, again.Outcome)
	assert.Equal(t, act.TableNumber, again.TableNumber)

	active, err = st.ActiveOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestActivateUnknownID(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Activate(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSecondCartBypassesStaging(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	sess := Session{ID: "s1", ClientID: "c1"}

	first, err := svc.Create(ctx, sess, cartWith(latte))
	require.NoError(t, err)
	act, err := svc.Activate(ctx, first.Order.ID)
	require.NoError(t, err)

	second, err := svc.Create(ctx, sess, cartWith(espresso))
	require.NoError(t, err)
	assert.False(t, second.Staged)
	assert.Equal(t, domain.StatusPending, second.Order.Status)
	assert.Equal(t, act.TableNumber, second.Order.TableNumber, "inherits the session table")

	orders, err := svc.SessionOrders(ctx, sess)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestAdvanceStepsForwardOnly(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	sess := Session{ID: "s1", ClientID: "c1"}

	res, err := svc.Create(ctx, sess, cartWith(latte))
	require.NoError(t, err)
	_, err = svc.Activate(ctx, res.Order.ID)
	require.NoError(t, err)

	o, err := svc.Advance(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPreparing, o.Status)

	o, err = svc.Advance(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReady, o.Status)

	_, err = svc.Advance(ctx, res.Order.ID)
	assert.ErrorIs(t, err, ErrNotAdvanceable)
}

func TestServeStampsServedAt(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	sess := Session{ID: "s1", ClientID: "c1"}

	res, err := svc.Create(ctx, sess, cartWith(latte))
	require.NoError(t, err)
	_, err = svc.Activate(ctx, res.Order.ID)
	require.NoError(t, err)

	// not ready yet
	_, err = svc.Serve(ctx, res.Order.ID)
	assert.ErrorIs(t, err, ErrNotServable)

	_, err = svc.Advance(ctx, res.Order.ID)
	require.NoError(t, err)
	_, err = svc.Advance(ctx, res.Order.ID)
	require.NoError(t, err)

	o, err := svc.Serve(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusServed, o.Status)
	require.NotNil(t, o.ServedAt)

	// serving again is a no-op
	again, err := svc.Serve(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ServedAt.Unix(), again.ServedAt.Unix())
}

func TestClearRules(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	sess := Session{ID: "s1", ClientID: "c1"}

	res, err := svc.Create(ctx, sess, cartWith(latte))
	require.NoError(t, err)
	_, err = svc.Activate(ctx, res.Order.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, res.Order.ID, "kitchen"))
	active, err := st.ActiveOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	// clearing again is idempotent
	require.NoError(t, svc.Clear(ctx, res.Order.ID, "kitchen"))

	// served orders cannot be cleared
	res2, err := svc.Create(ctx, sess, cartWith(espresso))
	require.NoError(t, err)
	_, err = svc.Advance(ctx, res2.Order.ID)
	require.NoError(t, err)
	_, err = svc.Advance(ctx, res2.Order.ID)
	require.NoError(t, err)
	_, err = svc.Serve(ctx, res2.Order.ID)
	require.NoError(t, err)

	err = svc.Clear(ctx, res2.Order.ID, "waiter")
	assert.ErrorIs(t, err, ErrOrderServed)
}

func TestCancelStaged(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	sess := Session{ID: "s1", ClientID: "c1"}

	res, err := svc.Create(ctx, sess, cartWith(latte))
	require.NoError(t, err)

	id, err := svc.CancelStaged(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, res.Order.ID, id)

	staged, err := st.StagedOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, staged)

	_, err = svc.CancelStaged(ctx, sess)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActivationDropsStaleClientMirror(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	sess := Session{ID: "s1", ClientID: "c1"}

	res, err := svc.Create(ctx, sess, cartWith(latte))
	require.NoError(t, err)
	_, err = svc.Activate(ctx, res.Order.ID)
	require.NoError(t, err)

	// activation happens on the kitchen device; the customer's mirror
	// still points at the now-active order until the next read repairs it
	mirror, err := st.ClientStagedOrder(ctx, sess.ClientID)
	require.NoError(t, err)
	require.NotNil(t, mirror)

	_, _, err = svc.StagedReference(ctx, sess)
	assert.ErrorIs(t, err, ErrNotFound)

	mirror, err = st.ClientStagedOrder(ctx, sess.ClientID)
	require.NoError(t, err)
	assert.Nil(t, mirror, "the stale mirror is deleted on read")

	// a pending order is not billable, and the consumed mirror must not
	// surface as a staged-only receipt
	_, err = svc.SessionReceipt(ctx, sess)
	assert.ErrorIs(t, err, receipt.ErrNothingToReceipt)

	// the next cart is not blocked by the consumed mirror
	second, err := svc.Create(ctx, sess, cartWith(espresso))
	require.NoError(t, err)
	assert.False(t, second.Staged)
}

func TestActivateRepairsLostOwnership(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	sess := Session{ID: "s1", ClientID: "c1"}

	res, err := svc.Create(ctx, sess, cartWith(latte))
	require.NoError(t, err)
	id := res.Order.ID

	// an interrupted activation: the active write landed, the staged
	// delete and the ownership append did not
	o := res.Order
	o.Status = domain.StatusPending
	o.TableNumber = "T123"
	require.NoError(t, st.PutActive(ctx, []domain.KDSOrder{o}))
	require.NoError(t, st.SetTableNumber(ctx, sess.ID, "T123"))

	act, err := svc.Activate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, AlreadyActive, act.Outcome)
	assert.Equal(t, "T123", act.TableNumber)

	staged, err := st.StagedOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, staged, "the stale staged copy is consumed")

	ids, err := st.SessionOrderIDs(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{id}, ids, "ownership is restored")
}

func TestSessionReceiptAndFinalize(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	sess := Session{ID: "s1", ClientID: "c1"}

	// nothing at all yet
	_, err := svc.SessionReceipt(ctx, sess)
	assert.ErrorIs(t, err, receipt.ErrNothingToReceipt)

	res, err := svc.Create(ctx, sess, cartWith(latte, latte))
	require.NoError(t, err)
	act, err := svc.Activate(ctx, res.Order.ID)
	require.NoError(t, err)

	// pending orders are not billable
	_, err = svc.SessionReceipt(ctx, sess)
	assert.ErrorIs(t, err, receipt.ErrNothingToReceipt)

	_, err = svc.Advance(ctx, res.Order.ID)
	require.NoError(t, err)
	_, err = svc.Advance(ctx, res.Order.ID)
	require.NoError(t, err)
	_, err = svc.Serve(ctx, res.Order.ID)
	require.NoError(t, err)

	d, err := svc.SessionReceipt(ctx, sess)
	require.NoError(t, err)
	require.Len(t, d.Items, 1)
	assert.Equal(t, "Latte", d.Items[0].Name)
	assert.Equal(t, 2, d.Items[0].Quantity)
	assert.InDelta(t, 4.50, d.Items[0].UnitPrice, 1e-9)
	assert.InDelta(t, 9.00, d.GrandTotal, 1e-9)
	assert.Equal(t, act.TableNumber, d.TableNumber)

	fin, err := svc.FinalizeSession(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, []string{res.Order.ID}, fin.RemovedOrderIDs)

	active, err := st.ActiveOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	ids, err := st.SessionOrderIDs(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)

	table, err := st.TableNumber(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, table, "next visit starts with a fresh table")
}

func TestStagedReference(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	sess := Session{ID: "s1", ClientID: "c1"}

	_, _, err := svc.StagedReference(ctx, sess)
	assert.ErrorIs(t, err, ErrNotFound)

	res, err := svc.Create(ctx, sess, cartWith(latte))
	require.NoError(t, err)

	id, ref, err := svc.StagedReference(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, res.Order.ID, id)
	assert.Equal(t, res.ActivationURL, ref)
}
