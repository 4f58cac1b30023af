package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Note is a free-form shop note, e.g. a parts order reminder.
type Note struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Title     string     `gorm:"column:title;not null"`
	Body      string     `gorm:"column:body;not null;default:''"`
	Pinned    bool       `gorm:"column:pinned;not null;default:false"`
	CreatedBy *uuid.UUID `gorm:"column:created_by;type:uuid"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (n *Note) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
