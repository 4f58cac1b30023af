package staff

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
)

// Repository exposes staff persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a staff repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, user *models.StaffUser) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByEmail retrieves the staff member matching the lowercased email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.StaffUser, error) {
	var user models.StaffUser
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.StaffUser, error) {
	var user models.StaffUser
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) List(ctx context.Context) ([]models.StaffUser, error) {
	var users []models.StaffUser
	err := r.db.WithContext(ctx).Order("name ASC").Order("id ASC").Find(&users).Error
	return users, err
}

// UpdateLastLogin refreshes the last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.StaffUser{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.StaffUser{}).
		Where("id = ?", id).
		UpdateColumn("is_active", active)
	return res.RowsAffected, res.Error
}
