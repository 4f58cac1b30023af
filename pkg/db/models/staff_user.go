package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairshop-backend/pkg/enums"
)

// StaffUser is an employee who can sign in to the counter app.
type StaffUser struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Email        string          `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash string          `gorm:"column:password_hash;not null"`
	Name         string          `gorm:"column:name;not null"`
	Role         enums.StaffRole `gorm:"column:role;not null"`
	IsActive     bool            `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time      `gorm:"column:last_login_at"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *StaffUser) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
