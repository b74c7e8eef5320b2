// Package lifecycle implements the order state machine:
// staged -> pending -> preparing -> ready -> served -> finalized,
// with cancellation reachable from every non-served state.
package lifecycle

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"time"

	"go.uber.org/zap"

	"menuquick/internal/domain"
	"menuquick/internal/metrics"
	"menuquick/internal/store"
)

// Session identifies one customer's ordering context. The client id is a
// random per-process identifier keying the staged-order mirror.
type Session struct {
	ID       string
	ClientID string
}

type Service struct {
	store   *store.OrderStore
	lg      *zap.Logger
	mx      *metrics.Registry
	baseURL string
}

// New wires the state machine over the shared store. baseURL is the
// kitchen entry point the activation reference resolves against.
func New(st *store.OrderStore, lg *zap.Logger, mx *metrics.Registry, baseURL string) *Service {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Service{store: st, lg: lg, mx: mx, baseURL: baseURL}
}

// ActivationReference derives the opaque URL the staff-side scanner
// resolves. It embeds nothing but the order id.
func (s *Service) ActivationReference(orderID string) string {
	return fmt.Sprintf("%s/activate?order_id=%s", s.baseURL, url.QueryEscape(orderID))
}

// CreateResult reports where a submitted cart landed.
type CreateResult struct {
	Order         domain.KDSOrder
	Staged        bool
	ActivationURL string
}

// Create submits a non-empty cart. First order of a session is staged
// behind an activation reference; once a table number is assigned,
// follow-up orders go straight to the kitchen queue as pending,
// inheriting the session's table.
func (s *Service) Create(ctx context.Context, sess Session, cart *domain.Cart) (CreateResult, error) {
	if cart.Empty() {
		return CreateResult{}, ErrEmptyCart
	}

	mirror, err := s.clientMirror(ctx, sess)
	if err != nil {
		return CreateResult{}, err
	}
	if mirror != nil {
		return CreateResult{}, ErrStagedOrderExists
	}

	now := time.Now().UTC()
	o := domain.KDSOrder{
		ID:        domain.NewOrderID(now),
		Lines:     cart.Lines(),
		TotalCost: cart.Total(),
		Timestamp: now,
	}

	table, err := s.store.TableNumber(ctx, sess.ID)
	if err != nil {
		return CreateResult{}, err
	}
	ownedIDs, err := s.store.SessionOrderIDs(ctx, sess.ID)
	if err != nil {
		return CreateResult{}, err
	}

	if len(ownedIDs) == 0 || table == "" {
		o.Status = domain.StatusStaged
		if err := s.store.SetStagedOrder(ctx, store.StagedOrder{Order: o, SessionID: sess.ID}); err != nil {
			return CreateResult{}, err
		}
		if err := s.store.SetClientStagedOrder(ctx, sess.ClientID, o); err != nil {
			return CreateResult{}, err
		}
		cart.Clear()
		if s.mx != nil {
			s.mx.OrdersCreated.Inc()
		}
		s.lg.Info("order_staged",
			zap.String("order_id", o.ID),
			zap.Float64("total", o.TotalCost))
		return CreateResult{Order: o, Staged: true, ActivationURL: s.ActivationReference(o.ID)}, nil
	}

	o.Status = domain.StatusPending
	o.TableNumber = table
	if err := s.store.PutActive(ctx, []domain.KDSOrder{o}); err != nil {
		return CreateResult{}, err
	}
	if err := s.store.AppendSessionOrder(ctx, sess.ID, o.ID); err != nil {
		return CreateResult{}, err
	}
	cart.Clear()
	if s.mx != nil {
		s.mx.OrdersCreated.Inc()
	}
	s.lg.Info("order_submitted_direct",
		zap.String("order_id", o.ID),
		zap.String("table", table),
		zap.Float64("total", o.TotalCost))
	return CreateResult{Order: o, Staged: false}, nil
}

// ActivateOutcome distinguishes success from the idempotent retry.
type ActivateOutcome string

const (
	Activated     ActivateOutcome = "activated"
	AlreadyActive ActivateOutcome = "already_activated"
)

type ActivateResult struct {
	Outcome     ActivateOutcome
	Order       domain.KDSOrder
	TableNumber string
}

// Activate resolves an activation reference: the staged order moves into
// the active table as pending. The first activation of a session assigns
// its table number. Re-activating an active id reports already-active;
// an unknown id reports ErrNotFound. No state is duplicated either way.
func (s *Service) Activate(ctx context.Context, orderID string) (ActivateResult, error) {
	staged, err := s.store.StagedOrders(ctx)
	if err != nil {
		return ActivateResult{}, err
	}

	so, ok := staged[orderID]
	if !ok {
		active, err := s.store.ActiveOrders(ctx)
		if err != nil {
			return ActivateResult{}, err
		}
		for _, o := range active {
			if o.ID == orderID {
				return ActivateResult{Outcome: AlreadyActive, Order: o, TableNumber: o.TableNumber}, nil
			}
		}
		return ActivateResult{}, fmt.Errorf("activate %s: %w", domain.ShortID(orderID), ErrNotFound)
	}

	table, err := s.store.TableNumber(ctx, so.SessionID)
	if err != nil {
		return ActivateResult{}, err
	}
	if table == "" {
		table = newTableNumber()
		if err := s.store.SetTableNumber(ctx, so.SessionID, table); err != nil {
			return ActivateResult{}, err
		}
	}

	o := so.Order
	o.Status = domain.StatusPending
	o.TableNumber = table

	// a stale staged copy of an already-active order is consumed, not duplicated
	active, err := s.store.ActiveOrders(ctx)
	if err != nil {
		return ActivateResult{}, err
	}
	for _, a := range active {
		if a.ID == orderID {
			if err := s.store.DeleteStagedOrder(ctx, orderID); err != nil {
				return ActivateResult{}, err
			}
			// a lost staged-delete can also have lost the ownership append
			if err := s.store.AppendSessionOrder(ctx, so.SessionID, orderID); err != nil {
				return ActivateResult{}, err
			}
			return ActivateResult{Outcome: AlreadyActive, Order: a, TableNumber: a.TableNumber}, nil
		}
	}

	if err := s.store.PutActive(ctx, []domain.KDSOrder{o}); err != nil {
		return ActivateResult{}, err
	}
	if err := s.store.DeleteStagedOrder(ctx, orderID); err != nil {
		return ActivateResult{}, err
	}
	if err := s.store.AppendSessionOrder(ctx, so.SessionID, orderID); err != nil {
		return ActivateResult{}, err
	}

	if s.mx != nil {
		s.mx.OrdersActivated.Inc()
	}
	s.lg.Info("order_activated",
		zap.String("order_id", orderID),
		zap.String("table", table))
	return ActivateResult{Outcome: Activated, Order: o, TableNumber: table}, nil
}

// Advance moves a kitchen order one step forward:
// pending -> preparing -> ready. No skipping.
func (s *Service) Advance(ctx context.Context, orderID string) (domain.KDSOrder, error) {
	active, err := s.store.ActiveOrders(ctx)
	if err != nil {
		return domain.KDSOrder{}, err
	}
	for _, o := range active {
		if o.ID != orderID {
			continue
		}
		next, ok := o.Status.Next()
		if !ok {
			return domain.KDSOrder{}, fmt.Errorf("advance %s from %s: %w", o.ShortID(), o.Status, ErrNotAdvanceable)
		}
		o.Status = next
		if err := s.store.PutActive(ctx, []domain.KDSOrder{o}); err != nil {
			return domain.KDSOrder{}, err
		}
		s.lg.Info("order_advanced",
			zap.String("order_id", orderID),
			zap.String("status", string(next)))
		return o, nil
	}
	return domain.KDSOrder{}, fmt.Errorf("advance %s: %w", domain.ShortID(orderID), ErrNotFound)
}

// Serve marks a ready order as served and stamps servedAt. Serving an
// already-served order is an idempotent no-op.
func (s *Service) Serve(ctx context.Context, orderID string) (domain.KDSOrder, error) {
	active, err := s.store.ActiveOrders(ctx)
	if err != nil {
		return domain.KDSOrder{}, err
	}
	for _, o := range active {
		if o.ID != orderID {
			continue
		}
		if o.Status == domain.StatusServed {
			return o, nil
		}
		if !o.Status.Servable() {
			return domain.KDSOrder{}, fmt.Errorf("serve %s from %s: %w", o.ShortID(), o.Status, ErrNotServable)
		}
		now := time.Now().UTC()
		o.Status = domain.StatusServed
		o.ServedAt = &now
		if err := s.store.PutActive(ctx, []domain.KDSOrder{o}); err != nil {
			return domain.KDSOrder{}, err
		}
		if s.mx != nil {
			s.mx.OrdersServed.Inc()
		}
		s.lg.Info("order_served", zap.String("order_id", orderID))
		return o, nil
	}
	return domain.KDSOrder{}, fmt.Errorf("serve %s: %w", domain.ShortID(orderID), ErrNotFound)
}

// Clear hard-deletes a non-served order from the active table. Clearing
// an id that is already gone succeeds silently.
func (s *Service) Clear(ctx context.Context, orderID, actor string) error {
	active, err := s.store.ActiveOrders(ctx)
	if err != nil {
		return err
	}
	for _, o := range active {
		if o.ID == orderID && o.Status == domain.StatusServed {
			return fmt.Errorf("clear %s: %w", o.ShortID(), ErrOrderServed)
		}
	}
	removed, err := s.store.RemoveActive(ctx, []string{orderID}, actor, "cancelled", false)
	if err != nil {
		return err
	}
	if len(removed) > 0 {
		s.lg.Info("order_cleared",
			zap.String("order_id", orderID),
			zap.String("actor", actor))
	}
	return nil
}

// clientMirror reads the session's staged-order mirror, dropping a
// stale one left behind when the order was activated from another
// device. Ownership of the session's ids is the source of truth: a
// mirror whose id the session already owns is deleted and reported as
// absent.
func (s *Service) clientMirror(ctx context.Context, sess Session) (*domain.KDSOrder, error) {
	mirror, err := s.store.ClientStagedOrder(ctx, sess.ClientID)
	if err != nil || mirror == nil {
		return mirror, err
	}
	ownedIDs, err := s.store.SessionOrderIDs(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	for _, id := range ownedIDs {
		if id != mirror.ID {
			continue
		}
		if err := s.store.DeleteClientStagedOrder(ctx, sess.ClientID); err != nil {
			return nil, err
		}
		s.lg.Info("stale_staged_mirror_dropped", zap.String("order_id", mirror.ID))
		return nil, nil
	}
	return mirror, nil
}

// CancelStaged withdraws the session's staged order before activation.
func (s *Service) CancelStaged(ctx context.Context, sess Session) (string, error) {
	mirror, err := s.clientMirror(ctx, sess)
	if err != nil {
		return "", err
	}
	if mirror == nil {
		return "", fmt.Errorf("cancel staged: %w", ErrNotFound)
	}
	if err := s.store.DeleteStagedOrder(ctx, mirror.ID); err != nil {
		return "", err
	}
	if err := s.store.DeleteClientStagedOrder(ctx, sess.ClientID); err != nil {
		return "", err
	}
	s.lg.Info("staged_order_cancelled", zap.String("order_id", mirror.ID))
	return mirror.ID, nil
}

// StagedReference re-derives the activation URL for the session's
// outstanding staged order.
func (s *Service) StagedReference(ctx context.Context, sess Session) (string, string, error) {
	mirror, err := s.clientMirror(ctx, sess)
	if err != nil {
		return "", "", err
	}
	if mirror == nil {
		return "", "", fmt.Errorf("staged reference: %w", ErrNotFound)
	}
	return mirror.ID, s.ActivationReference(mirror.ID), nil
}

// FinalizeResult lists what the finalize removed.
type FinalizeResult struct {
	RemovedOrderIDs []string
	StagedOrderID   string
}

// FinalizeSession is the payment epilogue: every session-owned order
// leaves the active table (the only path that removes served orders),
// any staged order is dropped, and the session bookkeeping is cleared so
// the next visit starts fresh.
func (s *Service) FinalizeSession(ctx context.Context, sess Session) (FinalizeResult, error) {
	ownedIDs, err := s.store.SessionOrderIDs(ctx, sess.ID)
	if err != nil {
		return FinalizeResult{}, err
	}

	var res FinalizeResult
	if len(ownedIDs) > 0 {
		removed, err := s.store.RemoveActive(ctx, ownedIDs, "customer", "finalized", true)
		if err != nil {
			return FinalizeResult{}, err
		}
		res.RemovedOrderIDs = removed
	}

	mirror, err := s.clientMirror(ctx, sess)
	if err != nil {
		return FinalizeResult{}, err
	}
	if mirror != nil {
		if err := s.store.DeleteStagedOrder(ctx, mirror.ID); err != nil {
			return FinalizeResult{}, err
		}
		if err := s.store.DeleteClientStagedOrder(ctx, sess.ClientID); err != nil {
			return FinalizeResult{}, err
		}
		res.StagedOrderID = mirror.ID
	}

	if err := s.store.ClearSession(ctx, sess.ID); err != nil {
		return FinalizeResult{}, err
	}

	s.lg.Info("session_finalized",
		zap.String("session_id", sess.ID),
		zap.Int("orders_removed", len(res.RemovedOrderIDs)))
	return res, nil
}

// SessionOrders returns the active orders owned by the session, newest
// first, as the customer view sees them.
func (s *Service) SessionOrders(ctx context.Context, sess Session) ([]domain.KDSOrder, error) {
	ownedIDs, err := s.store.SessionOrderIDs(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	owned := make(map[string]bool, len(ownedIDs))
	for _, id := range ownedIDs {
		owned[id] = true
	}
	active, err := s.store.ActiveOrders(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.KDSOrder
	for _, o := range active {
		if owned[o.ID] {
			out = append(out, o)
		}
	}
	return out, nil
}

func newTableNumber() string {
	return fmt.Sprintf("T%d", 100+rand.Intn(900))
}
