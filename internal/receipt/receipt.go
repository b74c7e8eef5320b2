// Package receipt consolidates a session's billable orders into one
// itemized bill. Nothing here is persisted; the data is derived on demand.
package receipt

import (
	"errors"
	"fmt"
	"math"
	"time"

	"menuquick/internal/domain"
)

// ErrNothingToReceipt means the session has neither billable orders nor
// a staged order.
var ErrNothingToReceipt = errors.New("no orders eligible for a receipt")

// Line is one consolidated receipt row: the same menu item across
// several orders collapses into a single quantity and total.
type Line struct {
	ItemID     string  `json:"id"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unitPrice"`
	TotalPrice float64 `json:"totalPrice"`
}

type Data struct {
	Items       []Line    `json:"items"`
	GrandTotal  float64   `json:"grandTotal"`
	TableNumber string    `json:"tableNumber,omitempty"`
	OrderIDs    []string  `json:"orderIds"` // short display ids of source orders
	GeneratedAt time.Time `json:"generatedAt"`
}

// Build consolidates the billable (served or ready) orders. Line items
// merge by menu item id: quantities and totals add up. The grand total
// is cross-checked against the sum of the source orders' TotalCost,
// which never drifts unless the store was corrupted.
//
// stagedShortID, when non-empty, keeps a bill addressable while the
// session's only order still awaits activation.
func Build(billable []domain.KDSOrder, tableNumber, stagedShortID string, now time.Time) (Data, error) {
	if len(billable) == 0 && stagedShortID == "" {
		return Data{}, ErrNothingToReceipt
	}

	var (
		items      []Line
		index      = map[string]int{}
		grandTotal float64
		costCheck  float64
		orderIDs   []string
	)
	for _, o := range billable {
		orderIDs = append(orderIDs, o.ShortID())
		costCheck += o.TotalCost
		for _, l := range o.Lines {
			grandTotal += l.Total()
			if i, ok := index[l.ItemID]; ok {
				items[i].Quantity += l.Quantity
				items[i].TotalPrice += l.Total()
				continue
			}
			index[l.ItemID] = len(items)
			items = append(items, Line{
				ItemID:     l.ItemID,
				Name:       l.Name,
				Quantity:   l.Quantity,
				UnitPrice:  l.UnitPrice,
				TotalPrice: l.Total(),
			})
		}
	}

	if math.Abs(grandTotal-costCheck) > 1e-6 {
		return Data{}, fmt.Errorf("receipt total %.2f does not match order totals %.2f", grandTotal, costCheck)
	}

	if len(orderIDs) == 0 {
		orderIDs = []string{stagedShortID}
	}
	return Data{
		Items:       items,
		GrandTotal:  grandTotal,
		TableNumber: tableNumber,
		OrderIDs:    orderIDs,
		GeneratedAt: now,
	}, nil
}
