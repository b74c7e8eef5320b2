package lifecycle

import (
	"context"
	"time"

	"menuquick/internal/domain"
	"menuquick/internal/receipt"
)

// SessionReceipt consolidates the session's billable orders (served or
// ready; a plated-but-unserved order must not block payment) into one
// bill. Returns receipt.ErrNothingToReceipt when the session has nothing
// billable and no staged order.
func (s *Service) SessionReceipt(ctx context.Context, sess Session) (receipt.Data, error) {
	orders, err := s.SessionOrders(ctx, sess)
	if err != nil {
		return receipt.Data{}, err
	}
	var billable []domain.KDSOrder
	for _, o := range orders {
		if o.Status.Billable() {
			billable = append(billable, o)
		}
	}

	table, err := s.store.TableNumber(ctx, sess.ID)
	if err != nil {
		return receipt.Data{}, err
	}

	var stagedShort string
	mirror, err := s.clientMirror(ctx, sess)
	if err != nil {
		return receipt.Data{}, err
	}
	if mirror != nil {
		stagedShort = mirror.ShortID()
	}

	return receipt.Build(billable, table, stagedShort, time.Now().UTC())
}
