package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartDTO is the API view of a cart session.
type CartDTO struct {
	SessionID string          `json:"session_id"`
	Lines     []LineDTO       `json:"lines"`
	Units     int             `json:"units"`
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency,omitempty"`
}

type LineDTO struct {
	ProductID   uuid.UUID       `json:"product_id"`
	SKU         string          `json:"sku"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

func toDTO(sessionID string, c Cart, currency string) *CartDTO {
	lines := c.Lines()
	out := make([]LineDTO, 0, len(lines))
	for _, l := range lines {
		out = append(out, LineDTO{
			ProductID:   l.ProductID,
			SKU:         l.SKU,
			ProductName: l.ProductName,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
			Subtotal:    l.Subtotal(),
		})
	}
	return &CartDTO{
		SessionID: sessionID,
		Lines:     out,
		Units:     c.Units(),
		Total:     c.Total(),
		Currency:  currency,
	}
}
