package customers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
	"github.com/angelmondragon/repairshop-backend/pkg/enums"
)

// CustomerDTO is the API view of an intake ticket.
type CustomerDTO struct {
	ID                 uuid.UUID          `json:"id"`
	InvoiceNumber      string             `json:"invoice_number"`
	Name               string             `json:"name"`
	Phone              string             `json:"phone"`
	Email              *string            `json:"email,omitempty"`
	DeviceBrand        string             `json:"device_brand"`
	DeviceModel        string             `json:"device_model"`
	IMEI               *string            `json:"imei,omitempty"`
	IssueDescription   string             `json:"issue_description"`
	PatternLock        *string            `json:"pattern_lock,omitempty"`
	Passcode           *string            `json:"passcode,omitempty"`
	EstimatedCost      decimal.Decimal    `json:"estimated_cost"`
	AdvancePaid        decimal.Decimal    `json:"advance_paid"`
	BalanceDue         decimal.Decimal    `json:"balance_due"`
	Status             enums.RepairStatus `json:"status"`
	ExpectedDeliveryAt *time.Time         `json:"expected_delivery_at,omitempty"`
	CreatedBy          *uuid.UUID         `json:"created_by,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

func ToDTO(c *models.Customer) *CustomerDTO {
	return &CustomerDTO{
		ID:                 c.ID,
		InvoiceNumber:      c.InvoiceNumber,
		Name:               c.Name,
		Phone:              c.Phone,
		Email:              c.Email,
		DeviceBrand:        c.DeviceBrand,
		DeviceModel:        c.DeviceModel,
		IMEI:               c.IMEI,
		IssueDescription:   c.IssueDescription,
		PatternLock:        c.PatternLock,
		Passcode:           c.Passcode,
		EstimatedCost:      c.EstimatedCost,
		AdvancePaid:        c.AdvancePaid,
		BalanceDue:         c.BalanceDue(),
		Status:             c.Status,
		ExpectedDeliveryAt: c.ExpectedDeliveryAt,
		CreatedBy:          c.CreatedBy,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}
