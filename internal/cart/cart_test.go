package cart

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(name string, price int64) Item {
	return Item{
		ProductID:    uuid.New(),
		SKU:          name,
		Name:         name,
		SellingPrice: decimal.NewFromInt(price),
	}
}

func TestCartTotalsWalkthrough(t *testing.T) {
	phoneCase := item("phone case", 10)
	protector := item("screen protector", 5)

	c := New().Add(phoneCase, 2).Add(protector, 1)
	assert.True(t, decimal.NewFromInt(25).Equal(c.Total()), "total %s", c.Total())

	c = c.UpdateQuantity(phoneCase.ProductID, 3)
	assert.True(t, decimal.NewFromInt(35).Equal(c.Total()), "total %s", c.Total())

	c = c.Remove(protector.ProductID)
	assert.True(t, decimal.NewFromInt(30).Equal(c.Total()), "total %s", c.Total())
	assert.Equal(t, 1, c.Len())
}

func TestCartAddMergesSameProduct(t *testing.T) {
	p := item("charger", 12)
	c := New().Add(p, 2).Add(p, 5)

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 7, lines[0].Quantity)
}

func TestCartAddClampsQuantity(t *testing.T) {
	c := New().Add(item("cable", 3), 0)
	require.Equal(t, 1, c.Lines()[0].Quantity)

	c = New().Add(item("cable", 3), -4)
	require.Equal(t, 1, c.Lines()[0].Quantity)
}

func TestCartQuantityIsCapped(t *testing.T) {
	p := item("case", 10)
	c := New().Add(p, math.MaxInt).Add(p, 2)

	line, ok := c.Find(p.ProductID)
	require.True(t, ok)
	assert.Equal(t, MaxQuantity, line.Quantity)
	assert.Equal(t, MaxQuantity, c.Units())
	assert.True(t, decimal.NewFromInt(10*MaxQuantity).Equal(c.Total()))
	assert.True(t, c.Total().IsPositive())

	c = c.UpdateQuantity(p.ProductID, math.MaxInt)
	line, _ = c.Find(p.ProductID)
	assert.Equal(t, MaxQuantity, line.Quantity)

	restored := FromLines([]Line{
		{ProductID: p.ProductID, UnitPrice: decimal.NewFromInt(10), Quantity: math.MaxInt},
		{ProductID: p.ProductID, UnitPrice: decimal.NewFromInt(10), Quantity: math.MaxInt},
	})
	assert.Equal(t, MaxQuantity, restored.Units())
}

func TestCartPreservesInsertionOrder(t *testing.T) {
	a, b, d := item("a", 1), item("b", 2), item("d", 3)
	c := New().Add(a, 1).Add(b, 1).Add(d, 1).Add(a, 1)

	lines := c.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, a.ProductID, lines[0].ProductID)
	assert.Equal(t, b.ProductID, lines[1].ProductID)
	assert.Equal(t, d.ProductID, lines[2].ProductID)
}

func TestCartMutationsDoNotTouchReceiver(t *testing.T) {
	p := item("battery", 40)
	base := New().Add(p, 1)

	_ = base.Add(p, 3)
	_ = base.UpdateQuantity(p.ProductID, 9)
	_ = base.UpdatePrice(p.ProductID, decimal.NewFromInt(1))
	_ = base.Remove(p.ProductID)

	line, ok := base.Find(p.ProductID)
	require.True(t, ok)
	assert.Equal(t, 1, line.Quantity)
	assert.True(t, decimal.NewFromInt(40).Equal(line.UnitPrice))

	lines := base.Lines()
	lines[0].Quantity = 100
	line, _ = base.Find(p.ProductID)
	assert.Equal(t, 1, line.Quantity)
}

func TestCartUnknownProductIsNoop(t *testing.T) {
	c := New().Add(item("a", 1), 1)
	missing := uuid.New()

	assert.Equal(t, c.Lines(), c.UpdateQuantity(missing, 5).Lines())
	assert.Equal(t, c.Lines(), c.UpdatePrice(missing, decimal.NewFromInt(5)).Lines())
	assert.Equal(t, c.Lines(), c.Remove(missing).Lines())
}

func TestCartPriceIsSnapshotAndClamped(t *testing.T) {
	p := item("glass", 8)
	c := New().Add(p, 2)

	p.SellingPrice = decimal.NewFromInt(100)
	c = c.Add(p, 1)
	line, _ := c.Find(p.ProductID)
	assert.True(t, decimal.NewFromInt(8).Equal(line.UnitPrice))

	c = c.UpdatePrice(p.ProductID, decimal.NewFromInt(-3))
	line, _ = c.Find(p.ProductID)
	assert.True(t, line.UnitPrice.IsZero())
	assert.True(t, c.Total().IsZero())
}

func TestCartRandomOperationsKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	catalog := []Item{item("a", 1), item("b", 4), item("c", 9), item("d", 15)}

	c := New()
	for i := 0; i < 500; i++ {
		p := catalog[rng.Intn(len(catalog))]
		switch rng.Intn(4) {
		case 0:
			c = c.Add(p, rng.Intn(5)-1)
		case 1:
			c = c.UpdateQuantity(p.ProductID, rng.Intn(7)-3)
		case 2:
			c = c.UpdatePrice(p.ProductID, decimal.NewFromInt(int64(rng.Intn(30)-10)))
		case 3:
			c = c.Remove(p.ProductID)
		}

		seen := map[uuid.UUID]bool{}
		expected := decimal.Zero
		for _, l := range c.Lines() {
			require.False(t, seen[l.ProductID], "duplicate line")
			seen[l.ProductID] = true
			require.GreaterOrEqual(t, l.Quantity, 1)
			require.False(t, l.UnitPrice.IsNegative())
			expected = expected.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
		}
		require.True(t, expected.Equal(c.Total()))
	}
}

func TestCartJSONRoundTrip(t *testing.T) {
	p := item("case", 10)
	c := New().Add(p, 2).UpdatePrice(p.ProductID, decimal.RequireFromString("9.50"))

	payload, err := json.Marshal(c)
	require.NoError(t, err)

	var decoded Cart
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.True(t, decimal.RequireFromString("19").Equal(decoded.Total()))

	empty, err := json.Marshal(New())
	require.NoError(t, err)
	assert.JSONEq(t, `{"lines":[]}`, string(empty))
}
