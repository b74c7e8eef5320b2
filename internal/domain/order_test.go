package domain

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewOrderID(t *testing.T) {
	now := time.Now()
	id := NewOrderID(now)

	assert.True(t, strings.HasPrefix(id, strconv.FormatInt(now.UnixMilli(), 10)))
	assert.Len(t, id, len(strconv.FormatInt(now.UnixMilli(), 10))+5)

	other := NewOrderID(now)
	assert.NotEqual(t, id, other, "random suffix should differ")
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "f4kx9q", ShortID("1717171717171f4kx9q"))
	assert.Equal(t, "abc", ShortID("abc"))
}

func TestCart(t *testing.T) {
	latte := MenuItem{ID: "dri2", Name: "Latte", Price: 4.50, Category: "Drinks"}
	espresso := MenuItem{ID: "dri1", Name: "Espresso", Price: 3.00, Category: "Drinks"}

	var c Cart
	assert.True(t, c.Empty())

	c.Add(latte)
	c.Add(latte)
	c.Add(espresso)
	assert.Len(t, c.Items, 2)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.InDelta(t, 12.00, c.Total(), 1e-9)

	c.SetQuantity("dri1", 3)
	assert.InDelta(t, 18.00, c.Total(), 1e-9)

	c.SetQuantity("dri1", 0)
	assert.Len(t, c.Items, 1)

	lines := c.Lines()
	assert.Equal(t, []OrderLine{{ItemID: "dri2", Name: "Latte", Quantity: 2, UnitPrice: 4.50}}, lines)

	c.Clear()
	assert.True(t, c.Empty())
}

func TestLinesTotal(t *testing.T) {
	o := KDSOrder{Lines: []OrderLine{
		{ItemID: "a", Quantity: 2, UnitPrice: 4.50},
		{ItemID: "b", Quantity: 1, UnitPrice: 3.00},
	}}
	assert.InDelta(t, 12.00, o.LinesTotal(), 1e-9)
}
