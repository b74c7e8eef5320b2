package lifecycle

import "errors"

var (
	// ErrEmptyCart rejects a submit before anything reaches the store.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrStagedOrderExists enforces one outstanding staged order per session.
	ErrStagedOrderExists = errors.New("session already has a staged order awaiting activation")

	// ErrNotFound covers activation or lookup of an unknown or already
	// consumed order id.
	ErrNotFound = errors.New("order not found")

	// ErrNotAdvanceable is returned for an advance on a status with no
	// next kitchen step.
	ErrNotAdvanceable = errors.New("order status cannot advance")

	// ErrNotServable is returned when serving an order that is not ready.
	ErrNotServable = errors.New("order is not ready to serve")

	// ErrOrderServed guards clears: a served order can only leave the
	// active table through session finalize.
	ErrOrderServed = errors.New("order already served; cannot clear")
)
