package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/repairshop-backend/pkg/enums"
)

// SaleCompletedEvent is emitted once a checkout commits.
type SaleCompletedEvent struct {
	TransactionID uuid.UUID         `json:"transaction_id"`
	InvoiceNumber string            `json:"invoice_number"`
	CustomerName  string            `json:"customer_name"`
	CustomerPhone string            `json:"customer_phone"`
	CustomerEmail string            `json:"customer_email,omitempty"`
	PaymentType   enums.PaymentType `json:"payment_type"`
	Total         decimal.Decimal   `json:"total"`
	Currency      string            `json:"currency"`
	Lines         []SaleLine        `json:"lines"`
	StaffID       *uuid.UUID        `json:"staff_id,omitempty"`
	CompletedAt   time.Time         `json:"completed_at"`
}

// SaleLine mirrors one persisted transaction line.
type SaleLine struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// CustomerDeviceReadyEvent tells the customer their repaired device can be collected.
type CustomerDeviceReadyEvent struct {
	CustomerID    uuid.UUID       `json:"customer_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone"`
	Email         string          `json:"email,omitempty"`
	DeviceModel   string          `json:"device_model"`
	BalanceDue    decimal.Decimal `json:"balance_due"`
}

// LowStockDetectedEvent lists products at or under their threshold.
type LowStockDetectedEvent struct {
	Products   []LowStockItem `json:"products"`
	DetectedAt time.Time      `json:"detected_at"`
}

type LowStockItem struct {
	ProductID uuid.UUID `json:"product_id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	Threshold int       `json:"threshold"`
}
