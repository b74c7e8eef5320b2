package domain

import "fmt"

// Status is the lifecycle state of a KDS order.
type Status string

const (
	StatusStaged    Status = "staged" // generated, not yet accepted by staff
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusServed    Status = "served"
)

// ParseStatus validates a stored status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusStaged, StatusPending, StatusPreparing, StatusReady, StatusServed:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// Next returns the following kitchen state. Only pending and preparing
// can advance; ready moves forward via Serve, not Advance.
func (s Status) Next() (Status, bool) {
	switch s {
	case StatusPending:
		return StatusPreparing, true
	case StatusPreparing:
		return StatusReady, true
	}
	return s, false
}

// Rank orders statuses along the lifecycle. Transitions must never
// decrease the rank.
func (s Status) Rank() int {
	switch s {
	case StatusStaged:
		return 0
	case StatusPending:
		return 1
	case StatusPreparing:
		return 2
	case StatusReady:
		return 3
	case StatusServed:
		return 4
	}
	return -1
}

// Servable reports whether a waiter can mark the order as served.
func (s Status) Servable() bool { return s == StatusReady }

// Billable reports whether the order counts towards a receipt. A ready
// order is billable so the customer is not blocked on the last plate.
func (s Status) Billable() bool { return s == StatusReady || s == StatusServed }
