package staff

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
	"github.com/angelmondragon/repairshop-backend/pkg/enums"
)

// StaffDTO never carries the password hash.
type StaffDTO struct {
	ID          uuid.UUID       `json:"id"`
	Email       string          `json:"email"`
	Name        string          `json:"name"`
	Role        enums.StaffRole `json:"role"`
	IsActive    bool            `json:"is_active"`
	LastLoginAt *time.Time      `json:"last_login_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func FromModel(u *models.StaffUser) *StaffDTO {
	if u == nil {
		return nil
	}
	return &StaffDTO{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}
