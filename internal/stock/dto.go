package stock

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
)

// ProductDTO is the API shape of a product.
type ProductDTO struct {
	ID                uuid.UUID       `json:"id"`
	SKU               string          `json:"sku"`
	Name              string          `json:"name"`
	Category          string          `json:"category"`
	Brand             string          `json:"brand"`
	CostPrice         decimal.Decimal `json:"cost_price"`
	SellingPrice      decimal.Decimal `json:"selling_price"`
	Quantity          int             `json:"quantity"`
	LowStockThreshold int             `json:"low_stock_threshold"`
	LowStock          bool            `json:"low_stock"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func toDTO(p *models.Product) *ProductDTO {
	return &ProductDTO{
		ID:                p.ID,
		SKU:               p.SKU,
		Name:              p.Name,
		Category:          p.Category,
		Brand:             p.Brand,
		CostPrice:         p.CostPrice,
		SellingPrice:      p.SellingPrice,
		Quantity:          p.Quantity,
		LowStockThreshold: p.LowStockThreshold,
		LowStock:          p.IsLowStock(),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func toDTOs(products []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(products))
	for i := range products {
		out = append(out, *toDTO(&products[i]))
	}
	return out
}
