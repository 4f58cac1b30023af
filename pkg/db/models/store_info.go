package models

import "time"

// StoreInfoID is the primary key of the single store_info row.
const StoreInfoID = 1

// StoreInfo is the shop header printed on receipts.
type StoreInfo struct {
	ID            int       `gorm:"column:id;primaryKey;autoIncrement:false"`
	Name          string    `gorm:"column:name;not null"`
	Address       string    `gorm:"column:address;not null;default:''"`
	Phone         string    `gorm:"column:phone;not null;default:''"`
	Email         string    `gorm:"column:email;not null;default:''"`
	TaxID         string    `gorm:"column:tax_id;not null;default:''"`
	ReceiptFooter string    `gorm:"column:receipt_footer;not null;default:''"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (StoreInfo) TableName() string {
	return "store_info"
}
