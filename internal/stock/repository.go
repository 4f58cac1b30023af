package stock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairshop-backend/pkg/db"
	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
	"github.com/angelmondragon/repairshop-backend/pkg/pagination"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ListParams filters the product list.
type ListParams struct {
	Search string
	pagination.Params
}

// Repository persists products and their on-hand quantity.
type Repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{db: conn}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// Save writes every column of an existing product.
func (r *Repository) Save(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// List returns products newest first, fetching one extra row for paging.
func (r *Repository) List(ctx context.Context, params ListParams) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})

	if search := strings.ToLower(strings.TrimSpace(params.Search)); search != "" {
		like := "%" + search + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", like, like)
	}

	var products []models.Product
	err := query.
		Scopes(pagination.Keyset(params.Params)).
		Find(&products).Error
	return products, err
}

// ListLowStock returns products at or below their alert threshold.
func (r *Repository) ListLowStock(ctx context.Context, limit int) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("quantity <= low_stock_threshold").
		Order("quantity ASC").
		Order("name ASC").
		Limit(pagination.NormalizeLimit(limit)).
		Find(&products).Error
	return products, err
}

// AdjustQuantity applies delta atomically. The row is never driven below zero.
func (r *Repository) AdjustQuantity(ctx context.Context, id uuid.UUID, delta int) error {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND quantity + ? >= 0", id, delta).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity + ?", delta),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		if db.IsCheckViolation(res.Error) {
			return ErrInsufficientStock
		}
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrProductNotFound
	}
	return ErrInsufficientStock
}

// Decrement removes qty sold units.
func (r *Repository) Decrement(ctx context.Context, id uuid.UUID, qty int) error {
	return r.AdjustQuantity(ctx, id, -qty)
}

// DecrementTx removes qty sold units on tx.
func (r *Repository) DecrementTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) error {
	return r.WithTx(tx).Decrement(ctx, id, qty)
}
