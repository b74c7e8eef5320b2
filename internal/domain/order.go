package domain

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"time"
)

// OrderLine is one line of a submitted order. Name and unit price are
// snapshots taken at creation time; later menu edits do not touch them.
type OrderLine struct {
	ItemID    string  `json:"id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"price"`
}

func (l OrderLine) Total() float64 { return l.UnitPrice * float64(l.Quantity) }

// KDSOrder is an order as the kitchen display sees it. Once submitted it
// is owned by the order store; views hold read-only projections.
type KDSOrder struct {
	ID          string      `json:"id"`
	Lines       []OrderLine `json:"items"`
	TotalCost   float64     `json:"totalCost"`
	Timestamp   time.Time   `json:"timestamp"`
	Status      Status      `json:"status"`
	ServedAt    *time.Time  `json:"servedAt,omitempty"`
	TableNumber string      `json:"tableNumber,omitempty"`
}

// NewOrderID builds a globally unique id: creation time in epoch millis
// plus a 5-character random base36 suffix.
func NewOrderID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10) + randomBase36(5)
}

// ShortID is the display form used on receipts and notifications.
func ShortID(id string) string {
	const n = 6
	if len(id) <= n {
		return id
	}
	return id[len(id)-n:]
}

func (o KDSOrder) ShortID() string { return ShortID(o.ID) }

// LinesTotal recomputes the sum of line totals. TotalCost must equal it
// at creation time and is never recomputed afterwards.
func (o KDSOrder) LinesTotal() float64 {
	var sum float64
	for _, l := range o.Lines {
		sum += l.Total()
	}
	return sum
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomBase36(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing means the platform is broken; fall back to time
		return fmt.Sprintf("%05d", time.Now().Nanosecond()%100000)[:n]
	}
	for i := range b {
		b[i] = base36[int(b[i])%len(base36)]
	}
	return string(b)
}
