package domain

// CartItem is a menu item with a quantity. It exists only inside a cart
// and is consumed when the cart is submitted.
type CartItem struct {
	MenuItem
	Quantity int `json:"quantity"`
}

// Cart is the customer's not-yet-submitted selection.
type Cart struct {
	Items []CartItem `json:"items"`
}

// Add inserts the item or bumps its quantity if already present.
func (c *Cart) Add(item MenuItem) {
	for i := range c.Items {
		if c.Items[i].ID == item.ID {
			c.Items[i].Quantity++
			return
		}
	}
	c.Items = append(c.Items, CartItem{MenuItem: item, Quantity: 1})
}

// SetQuantity updates a line; a quantity of zero or less removes it.
func (c *Cart) SetQuantity(itemID string, quantity int) {
	if quantity <= 0 {
		c.Remove(itemID)
		return
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items[i].Quantity = quantity
			return
		}
	}
}

func (c *Cart) Remove(itemID string) {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return
		}
	}
}

func (c *Cart) Empty() bool { return len(c.Items) == 0 }

func (c *Cart) Clear() { c.Items = nil }

func (c *Cart) Total() float64 {
	var sum float64
	for _, it := range c.Items {
		sum += it.Price * float64(it.Quantity)
	}
	return sum
}

// Lines converts the cart into order lines, snapshotting names and prices.
func (c *Cart) Lines() []OrderLine {
	out := make([]OrderLine, 0, len(c.Items))
	for _, it := range c.Items {
		out = append(out, OrderLine{
			ItemID:    it.ID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.Price,
		})
	}
	return out
}
