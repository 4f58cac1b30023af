package models

// InvoiceCounter holds the last issued invoice sequence per series.
type InvoiceCounter struct {
	Series    string `gorm:"column:series;primaryKey"`
	LastValue int64  `gorm:"column:last_value;not null;default:0"`
}
