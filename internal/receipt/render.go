package receipt

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// DefaultRowsPerPage matches a narrow thermal-printer page.
const DefaultRowsPerPage = 20

// Render formats the receipt as paginated text tables: one column row
// per consolidated item, the grand total in the footer of the last page.
func Render(d Data, rowsPerPage int) []string {
	if rowsPerPage <= 0 {
		rowsPerPage = DefaultRowsPerPage
	}

	var pages []string
	total := len(d.Items)
	pageCount := (total + rowsPerPage - 1) / rowsPerPage
	if pageCount == 0 {
		pageCount = 1
	}

	for p := 0; p < pageCount; p++ {
		lo := p * rowsPerPage
		hi := lo + rowsPerPage
		if hi > total {
			hi = total
		}

		var b strings.Builder
		fmt.Fprintf(&b, "MenuQuick Restaurant - Sales Receipt\n")
		if d.TableNumber != "" {
			fmt.Fprintf(&b, "Table: %s\n", d.TableNumber)
		}
		fmt.Fprintf(&b, "Orders: %s\n", strings.Join(d.OrderIDs, ", "))
		fmt.Fprintf(&b, "Date: %s\n\n", d.GeneratedAt.Format("2006-01-02 15:04:05"))

		w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Item\tQty\tUnit\tTotal")
		for _, it := range d.Items[lo:hi] {
			fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f\n", it.Name, it.Quantity, it.UnitPrice, it.TotalPrice)
		}
		if p == pageCount-1 {
			fmt.Fprintf(w, "\t\tGrand Total\t%.2f\n", d.GrandTotal)
		}
		w.Flush()

		if pageCount > 1 {
			fmt.Fprintf(&b, "\nPage %d/%d\n", p+1, pageCount)
		}
		pages = append(pages, b.String())
	}
	return pages
}
