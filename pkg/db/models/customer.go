package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairshop-backend/pkg/enums"
)

// Customer is a repair intake ticket: who brought which device and why.
type Customer struct {
	ID                 uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	InvoiceNumber      string             `gorm:"column:invoice_number;not null;uniqueIndex"`
	Name               string             `gorm:"column:name;not null"`
	Phone              string             `gorm:"column:phone;not null"`
	Email              *string            `gorm:"column:email"`
	DeviceBrand        string             `gorm:"column:device_brand;not null;default:''"`
	DeviceModel        string             `gorm:"column:device_model;not null"`
	IMEI               *string            `gorm:"column:imei"`
	IssueDescription   string             `gorm:"column:issue_description;not null;default:''"`
	PatternLock        *string            `gorm:"column:pattern_lock"`
	Passcode           *string            `gorm:"column:passcode"`
	EstimatedCost      decimal.Decimal    `gorm:"column:estimated_cost;type:numeric(12,2);not null"`
	AdvancePaid        decimal.Decimal    `gorm:"column:advance_paid;type:numeric(12,2);not null"`
	Status             enums.RepairStatus `gorm:"column:status;not null"`
	ExpectedDeliveryAt *time.Time         `gorm:"column:expected_delivery_at"`
	CreatedBy          *uuid.UUID         `gorm:"column:created_by;type:uuid"`
	CreatedAt          time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Customer) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// BalanceDue is the estimate minus the advance, never negative.
func (c Customer) BalanceDue() decimal.Decimal {
	due := c.EstimatedCost.Sub(c.AdvancePaid)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}
