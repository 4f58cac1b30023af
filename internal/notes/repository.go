package notes

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairshop-backend/pkg/db"
	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
)

var ErrNoteNotFound = errors.New("note not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{db: conn}
}

func (r *Repository) Create(ctx context.Context, note *models.Note) error {
	return r.db.WithContext(ctx).Create(note).Error
}

func (r *Repository) Save(ctx context.Context, note *models.Note) error {
	return r.db.WithContext(ctx).Save(note).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Note{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoteNotFound
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Note, error) {
	var note models.Note
	if err := r.db.WithContext(ctx).First(&note, "id = ?", id).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNoteNotFound
		}
		return nil, err
	}
	return &note, nil
}

// List returns pinned notes first, then the most recently edited.
func (r *Repository) List(ctx context.Context, search string, limit int) ([]models.Note, error) {
	query := r.db.WithContext(ctx).Model(&models.Note{})
	if search = strings.ToLower(strings.TrimSpace(search)); search != "" {
		like := "%" + search + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(body) LIKE ?", like, like)
	}
	var rows []models.Note
	err := query.
		Order("pinned DESC").
		Order("updated_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
