package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"menuquick/internal/domain"
	"menuquick/internal/metrics"
)

// Logical table names. Every role process addresses the shared store
// through these keys only.
const (
	keyActiveOrders = "kdsOrders"
	keyStagedOrders = "kdsStagedOrders"
	keyTombstones   = "kdsTombstones"

	prefixSessionOrders = "sessionOrders:"
	prefixSessionTable  = "sessionTable:"
	prefixClientStaged  = "stagedOrderForClient:"
)

// TombstoneTTL bounds how long a deletion record is kept. Long enough
// for every poller to observe it, short enough not to accumulate.
const TombstoneTTL = 15 * time.Minute

// Tombstone records an explicit removal from the active table, so a
// poller can tell "removed" from "never existed".
type Tombstone struct {
	OrderID   string    `json:"orderId"`
	Actor     string    `json:"actor"`
	Reason    string    `json:"reason"` // cancelled | finalized
	RemovedAt time.Time `json:"removedAt"`
}

// StagedOrder is a staged-table entry: the order plus the session that
// owns it, needed at activation time to assign the table number.
type StagedOrder struct {
	Order     domain.KDSOrder `json:"order"`
	SessionID string          `json:"sessionId"`
}

// OrderStore exposes the typed tables over a KV backend. It owns the
// merge-on-write invariant for the active table: a stored `served`
// status can never be overwritten by a stale non-served copy, and
// removal happens only through RemoveActive.
type OrderStore struct {
	kv KV
	lg *zap.Logger
	mx *metrics.Registry
}

func NewOrderStore(kv KV, lg *zap.Logger, mx *metrics.Registry) *OrderStore {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &OrderStore{kv: kv, lg: lg, mx: mx}
}

// readJSON loads and decodes a table. Absent and malformed values both
// come back as the zero value: corruption is logged, never surfaced.
func (s *OrderStore) readJSON(ctx context.Context, key string, out any) error {
	if s.mx != nil {
		s.mx.StoreReads.Inc()
	}
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.lg.Warn("store_corrupt_value", zap.String("key", key), zap.Error(err))
		if s.mx != nil {
			s.mx.StoreCorrupt.Inc()
		}
	}
	return nil
}

func (s *OrderStore) writeJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if s.mx != nil {
		s.mx.StoreWrites.Inc()
	}
	return s.kv.Set(ctx, key, raw)
}

// ActiveOrders returns the kitchen queue, newest first.
func (s *OrderStore) ActiveOrders(ctx context.Context) ([]domain.KDSOrder, error) {
	var orders []domain.KDSOrder
	if err := s.readJSON(ctx, keyActiveOrders, &orders); err != nil {
		return nil, err
	}
	sortNewestFirst(orders)
	return orders, nil
}

// PutActive merges the writer's copy into the stored active table.
// Rules:
//   - a stored order whose status is `served` keeps its stored record
//     when the incoming copy carries any other status;
//   - stored orders missing from the incoming copy are preserved
//     (deletion goes through RemoveActive only);
//   - everything else is last-write-wins.
func (s *OrderStore) PutActive(ctx context.Context, incoming []domain.KDSOrder) error {
	stored, err := s.ActiveOrders(ctx)
	if err != nil {
		return err
	}

	merged := make(map[string]domain.KDSOrder, len(stored)+len(incoming))
	for _, o := range stored {
		merged[o.ID] = o
	}
	for _, in := range incoming {
		cur, ok := merged[in.ID]
		if ok && cur.Status == domain.StatusServed && in.Status != domain.StatusServed {
			continue // the waiter already served it; a stale writer cannot resurrect it
		}
		merged[in.ID] = in
	}

	out := make([]domain.KDSOrder, 0, len(merged))
	for _, o := range merged {
		out = append(out, o)
	}
	sortNewestFirst(out)
	return s.writeJSON(ctx, keyActiveOrders, out)
}

// RemoveActive hard-deletes orders from the active table and records a
// tombstone per removed id. Ids not present are skipped (idempotent
// re-cancel). Served orders are skipped unless includeServed is set;
// only session finalize removes served orders.
func (s *OrderStore) RemoveActive(ctx context.Context, ids []string, actor, reason string, includeServed bool) ([]string, error) {
	stored, err := s.ActiveOrders(ctx)
	if err != nil {
		return nil, err
	}

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	var kept []domain.KDSOrder
	var removed []string
	for _, o := range stored {
		if drop[o.ID] && (includeServed || o.Status != domain.StatusServed) {
			removed = append(removed, o.ID)
			continue
		}
		kept = append(kept, o)
	}
	if len(removed) == 0 {
		return nil, nil
	}
	if err := s.writeJSON(ctx, keyActiveOrders, kept); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	stones, err := s.Tombstones(ctx)
	if err != nil {
		return removed, err
	}
	for _, id := range removed {
		stones[id] = Tombstone{OrderID: id, Actor: actor, Reason: reason, RemovedAt: now}
	}
	return removed, s.writeJSON(ctx, keyTombstones, stones)
}

// Tombstones returns unexpired removal records.
func (s *OrderStore) Tombstones(ctx context.Context) (map[string]Tombstone, error) {
	stones := map[string]Tombstone{}
	if err := s.readJSON(ctx, keyTombstones, &stones); err != nil {
		return nil, err
	}
	cutoff := time.Now().UTC().Add(-TombstoneTTL)
	for id, t := range stones {
		if t.RemovedAt.Before(cutoff) {
			delete(stones, id)
		}
	}
	return stones, nil
}

// StagedOrders returns the staged table keyed by order id.
func (s *OrderStore) StagedOrders(ctx context.Context) (map[string]StagedOrder, error) {
	staged := map[string]StagedOrder{}
	if err := s.readJSON(ctx, keyStagedOrders, &staged); err != nil {
		return nil, err
	}
	return staged, nil
}

func (s *OrderStore) SetStagedOrder(ctx context.Context, so StagedOrder) error {
	staged, err := s.StagedOrders(ctx)
	if err != nil {
		return err
	}
	staged[so.Order.ID] = so
	return s.writeJSON(ctx, keyStagedOrders, staged)
}

func (s *OrderStore) DeleteStagedOrder(ctx context.Context, orderID string) error {
	staged, err := s.StagedOrders(ctx)
	if err != nil {
		return err
	}
	if _, ok := staged[orderID]; !ok {
		return nil
	}
	delete(staged, orderID)
	return s.writeJSON(ctx, keyStagedOrders, staged)
}

// SessionOrderIDs lists the active-table ids owned by a session.
func (s *OrderStore) SessionOrderIDs(ctx context.Context, sessionID string) ([]string, error) {
	var ids []string
	if err := s.readJSON(ctx, prefixSessionOrders+sessionID, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *OrderStore) SetSessionOrderIDs(ctx context.Context, sessionID string, ids []string) error {
	return s.writeJSON(ctx, prefixSessionOrders+sessionID, ids)
}

// AppendSessionOrder adds an id to the owned set, once.
func (s *OrderStore) AppendSessionOrder(ctx context.Context, sessionID, orderID string) error {
	ids, err := s.SessionOrderIDs(ctx, sessionID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == orderID {
			return nil
		}
	}
	return s.SetSessionOrderIDs(ctx, sessionID, append(ids, orderID))
}

// TableNumber returns the session's assigned table, if any.
func (s *OrderStore) TableNumber(ctx context.Context, sessionID string) (string, error) {
	var tn string
	if err := s.readJSON(ctx, prefixSessionTable+sessionID, &tn); err != nil {
		return "", err
	}
	return tn, nil
}

func (s *OrderStore) SetTableNumber(ctx context.Context, sessionID, table string) error {
	return s.writeJSON(ctx, prefixSessionTable+sessionID, table)
}

// ClearSession drops the session's bookkeeping: owned ids and table.
func (s *OrderStore) ClearSession(ctx context.Context, sessionID string) error {
	if err := s.kv.Delete(ctx, prefixSessionOrders+sessionID); err != nil {
		return err
	}
	return s.kv.Delete(ctx, prefixSessionTable+sessionID)
}

// ClientStagedOrder reads the per-client mirror of the staged order.
func (s *OrderStore) ClientStagedOrder(ctx context.Context, clientID string) (*domain.KDSOrder, error) {
	var o domain.KDSOrder
	if err := s.readJSON(ctx, prefixClientStaged+clientID, &o); err != nil {
		return nil, err
	}
	if o.ID == "" {
		return nil, nil
	}
	return &o, nil
}

func (s *OrderStore) SetClientStagedOrder(ctx context.Context, clientID string, o domain.KDSOrder) error {
	return s.writeJSON(ctx, prefixClientStaged+clientID, o)
}

func (s *OrderStore) DeleteClientStagedOrder(ctx context.Context, clientID string) error {
	return s.kv.Delete(ctx, prefixClientStaged+clientID)
}

func sortNewestFirst(orders []domain.KDSOrder) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].Timestamp.After(orders[j].Timestamp)
	})
}
