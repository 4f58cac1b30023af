package storeinfo

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/repairshop-backend/pkg/db"
	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
)

// SingletonID is the only row the store_info table ever holds.
const SingletonID = 1

type Repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{db: conn}
}

// Get returns nil, nil when the shop has not been configured yet.
func (r *Repository) Get(ctx context.Context) (*models.StoreInfo, error) {
	var info models.StoreInfo
	if err := r.db.WithContext(ctx).First(&info, "id = ?", SingletonID).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &info, nil
}

// Upsert writes every column of the singleton row, inserting it on first use.
func (r *Repository) Upsert(ctx context.Context, info *models.StoreInfo) error {
	info.ID = SingletonID
	return r.db.WithContext(ctx).Save(info).Error
}
