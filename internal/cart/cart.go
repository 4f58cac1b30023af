// Package cart models an in-progress counter sale.
package cart

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Line is one product entry in a cart. UnitPrice is a snapshot taken when the
// product was added and is edited independently of the catalog.
type Line struct {
	ProductID   uuid.UUID       `json:"product_id"`
	SKU         string          `json:"sku"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
}

// Subtotal returns UnitPrice × Quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// MaxQuantity caps a single line. Larger requests are clamped rather than
// rejected, matching how the other edits are normalised.
const MaxQuantity = 9999

func clampQuantity(q int) int {
	return min(max(q, 1), MaxQuantity)
}

// Item is the catalog data needed to start a line.
type Item struct {
	ProductID    uuid.UUID
	SKU          string
	Name         string
	SellingPrice decimal.Decimal
}

// Cart is an ordered list of lines, at most one per product. Every mutation
// returns a new Cart; the receiver is never modified.
type Cart struct {
	lines []Line
}

// New returns an empty cart.
func New() Cart {
	return Cart{}
}

// FromLines builds a cart from persisted lines, merging duplicates and
// clamping out-of-range values.
func FromLines(lines []Line) Cart {
	c := New()
	for _, l := range lines {
		l.Quantity = clampQuantity(l.Quantity)
		if l.UnitPrice.IsNegative() {
			l.UnitPrice = decimal.Zero
		}
		if idx := c.indexOf(l.ProductID); idx >= 0 {
			c.lines[idx].Quantity = clampQuantity(c.lines[idx].Quantity + l.Quantity)
			continue
		}
		c.lines = append(c.lines, l)
	}
	return c
}

// Lines returns a copy of the lines in insertion order.
func (c Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c Cart) Len() int { return len(c.lines) }

func (c Cart) IsEmpty() bool { return len(c.lines) == 0 }

// Find returns the line for productID.
func (c Cart) Find(productID uuid.UUID) (Line, bool) {
	if idx := c.indexOf(productID); idx >= 0 {
		return c.lines[idx], true
	}
	return Line{}, false
}

// Add appends item with quantity, or increments the existing line. The
// resulting line quantity is clamped to [1, MaxQuantity].
func (c Cart) Add(item Item, quantity int) Cart {
	quantity = clampQuantity(quantity)
	next := c.clone()
	if idx := next.indexOf(item.ProductID); idx >= 0 {
		// Both operands are within [1, MaxQuantity] so the sum cannot overflow.
		next.lines[idx].Quantity = clampQuantity(next.lines[idx].Quantity + quantity)
		return next
	}
	price := item.SellingPrice
	if price.IsNegative() {
		price = decimal.Zero
	}
	next.lines = append(next.lines, Line{
		ProductID:   item.ProductID,
		SKU:         item.SKU,
		ProductName: item.Name,
		UnitPrice:   price,
		Quantity:    quantity,
	})
	return next
}

// UpdateQuantity sets the quantity of a line, clamped to [1, MaxQuantity].
func (c Cart) UpdateQuantity(productID uuid.UUID, quantity int) Cart {
	idx := c.indexOf(productID)
	if idx < 0 {
		return c
	}
	next := c.clone()
	next.lines[idx].Quantity = clampQuantity(quantity)
	return next
}

// UpdatePrice sets the unit price of a line, clamped to zero.
func (c Cart) UpdatePrice(productID uuid.UUID, price decimal.Decimal) Cart {
	idx := c.indexOf(productID)
	if idx < 0 {
		return c
	}
	if price.IsNegative() {
		price = decimal.Zero
	}
	next := c.clone()
	next.lines[idx].UnitPrice = price
	return next
}

// Remove drops the line for productID if present.
func (c Cart) Remove(productID uuid.UUID) Cart {
	idx := c.indexOf(productID)
	if idx < 0 {
		return c
	}
	next := Cart{lines: make([]Line, 0, len(c.lines)-1)}
	next.lines = append(next.lines, c.lines[:idx]...)
	next.lines = append(next.lines, c.lines[idx+1:]...)
	return next
}

// Total is the sum of every line subtotal.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Units is the number of items across all lines.
func (c Cart) Units() int {
	units := 0
	for _, l := range c.lines {
		units += l.Quantity
	}
	return units
}

func (c Cart) indexOf(productID uuid.UUID) int {
	for i, l := range c.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c Cart) clone() Cart {
	lines := make([]Line, len(c.lines), len(c.lines)+1)
	copy(lines, c.lines)
	return Cart{lines: lines}
}

type snapshot struct {
	Lines []Line `json:"lines"`
}

func (c Cart) MarshalJSON() ([]byte, error) {
	lines := c.lines
	if lines == nil {
		lines = []Line{}
	}
	return json.Marshal(snapshot{Lines: lines})
}

func (c *Cart) UnmarshalJSON(data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	*c = FromLines(snap.Lines)
	return nil
}
