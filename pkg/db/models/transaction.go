package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairshop-backend/pkg/enums"
)

// Transaction is a completed point-of-sale sale.
type Transaction struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	InvoiceNumber string            `gorm:"column:invoice_number;not null;uniqueIndex"`
	CustomerName  string            `gorm:"column:customer_name;not null"`
	CustomerPhone string            `gorm:"column:customer_phone;not null"`
	CustomerEmail *string           `gorm:"column:customer_email"`
	PaymentType   enums.PaymentType `gorm:"column:payment_type;not null"`
	Total         decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	StaffUserID   *uuid.UUID        `gorm:"column:staff_user_id;type:uuid"`
	Lines         []TransactionLine `gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (t *Transaction) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TransactionLine snapshots one cart line at the moment of sale.
type TransactionLine struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	TransactionID uuid.UUID       `gorm:"column:transaction_id;type:uuid;not null;index"`
	ProductID     uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductName   string          `gorm:"column:product_name;not null"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity      int             `gorm:"column:quantity;not null"`
	LineTotal     decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	Position      int             `gorm:"column:position;not null;default:0"`
}

func (l *TransactionLine) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
