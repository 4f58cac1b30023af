package customers

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairshop-backend/pkg/db"
	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
	"github.com/angelmondragon/repairshop-backend/pkg/enums"
	"github.com/angelmondragon/repairshop-backend/pkg/pagination"
)

var ErrCustomerNotFound = errors.New("customer not found")

// ListParams filters intake tickets.
type ListParams struct {
	Search string
	Status *enums.RepairStatus
	pagination.Params
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{db: conn}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

// CreateTx inserts on the caller's transaction so the invoice number and the
// ticket commit together.
func (r *Repository) CreateTx(ctx context.Context, tx *gorm.DB, customer *models.Customer) error {
	return r.WithTx(tx).Create(ctx, customer)
}

func (r *Repository) Save(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Save(customer).Error
}

func (r *Repository) SaveTx(ctx context.Context, tx *gorm.DB, customer *models.Customer) error {
	return r.WithTx(tx).Save(ctx, customer)
}

func (r *Repository) FindByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Customer, error) {
	return r.WithTx(tx).FindByID(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Customer{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return &customer, nil
}

// List returns tickets newest first. Search matches name, phone, invoice
// number, device model and IMEI.
func (r *Repository) List(ctx context.Context, params ListParams) ([]models.Customer, error) {
	query := r.db.WithContext(ctx).Model(&models.Customer{})

	if search := strings.ToLower(strings.TrimSpace(params.Search)); search != "" {
		like := "%" + search + "%"
		query = query.Where(
			"LOWER(name) LIKE ? OR phone LIKE ? OR LOWER(invoice_number) LIKE ? OR LOWER(device_model) LIKE ? OR imei LIKE ?",
			like, like, like, like, like,
		)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	var rows []models.Customer
	err := query.
		Scopes(pagination.Keyset(params.Params)).
		Find(&rows).Error
	return rows, err
}
