package transactions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
	"github.com/angelmondragon/repairshop-backend/pkg/enums"
)

type TransactionDTO struct {
	ID            uuid.UUID         `json:"id"`
	InvoiceNumber string            `json:"invoice_number"`
	CustomerName  string            `json:"customer_name"`
	CustomerPhone string            `json:"customer_phone"`
	CustomerEmail *string           `json:"customer_email,omitempty"`
	PaymentType   enums.PaymentType `json:"payment_type"`
	Total         decimal.Decimal   `json:"total"`
	StaffUserID   *uuid.UUID        `json:"staff_user_id,omitempty"`
	Lines         []LineDTO         `json:"lines"`
	CreatedAt     time.Time         `json:"created_at"`
}

type LineDTO struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// SummaryDTO reports sales totals for a window.
type SummaryDTO struct {
	From      *time.Time          `json:"from,omitempty"`
	To        *time.Time          `json:"to,omitempty"`
	Count     int64               `json:"count"`
	Total     decimal.Decimal     `json:"total"`
	ByPayment []PaymentSummaryDTO `json:"by_payment"`
}

type PaymentSummaryDTO struct {
	PaymentType enums.PaymentType `json:"payment_type"`
	Label       string            `json:"label"`
	Count       int64             `json:"count"`
	Total       decimal.Decimal   `json:"total"`
}

func ToDTO(t *models.Transaction) *TransactionDTO {
	lines := make([]LineDTO, 0, len(t.Lines))
	for _, l := range t.Lines {
		lines = append(lines, LineDTO{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
			LineTotal:   l.LineTotal,
		})
	}
	return &TransactionDTO{
		ID:            t.ID,
		InvoiceNumber: t.InvoiceNumber,
		CustomerName:  t.CustomerName,
		CustomerPhone: t.CustomerPhone,
		CustomerEmail: t.CustomerEmail,
		PaymentType:   t.PaymentType,
		Total:         t.Total,
		StaffUserID:   t.StaffUserID,
		Lines:         lines,
		CreatedAt:     t.CreatedAt,
	}
}
