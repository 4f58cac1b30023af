package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a stock-keeping item sold over the counter or used in repairs.
type Product struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	SKU               string          `gorm:"column:sku;not null;uniqueIndex"`
	Name              string          `gorm:"column:name;not null"`
	Category          string          `gorm:"column:category;not null;default:''"`
	Brand             string          `gorm:"column:brand;not null;default:''"`
	CostPrice         decimal.Decimal `gorm:"column:cost_price;type:numeric(12,2);not null"`
	SellingPrice      decimal.Decimal `gorm:"column:selling_price;type:numeric(12,2);not null"`
	Quantity          int             `gorm:"column:quantity;not null;default:0"`
	LowStockThreshold int             `gorm:"column:low_stock_threshold;not null;default:0"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsLowStock reports whether quantity is at or under the alert threshold.
func (p Product) IsLowStock() bool {
	return p.Quantity <= p.LowStockThreshold
}
