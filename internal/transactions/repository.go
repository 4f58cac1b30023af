package transactions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairshop-backend/pkg/db"
	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
	"github.com/angelmondragon/repairshop-backend/pkg/enums"
	"github.com/angelmondragon/repairshop-backend/pkg/pagination"
)

var ErrTransactionNotFound = errors.New("transaction not found")

// ListParams narrows the sales history.
type ListParams struct {
	From        *time.Time
	To          *time.Time
	PaymentType *enums.PaymentType
	Search      string
	pagination.Params
}

// PaymentTotal aggregates sales of one payment type.
type PaymentTotal struct {
	PaymentType enums.PaymentType
	Count       int64
	Total       decimal.Decimal
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

// CreateTx inserts the sale and its lines on tx.
func (r *Repository) CreateTx(ctx context.Context, tx *gorm.DB, record *models.Transaction) error {
	return r.WithTx(tx).Create(ctx, record)
}

func (r *Repository) Create(ctx context.Context, record *models.Transaction) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *Repository) FindByInvoiceNumber(ctx context.Context, number string) (*models.Transaction, error) {
	return r.findOne(ctx, "invoice_number = ?", number)
}

func (r *Repository) findOne(ctx context.Context, query string, arg any) (*models.Transaction, error) {
	var record models.Transaction
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where(query, arg).
		First(&record).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &record, nil
}

// List returns sales newest first with lines preloaded.
func (r *Repository) List(ctx context.Context, params ListParams) ([]models.Transaction, error) {
	query := r.filtered(ctx, params.From, params.To, params.PaymentType)
	if params.Search != "" {
		like := "%" + params.Search + "%"
		query = query.Where("invoice_number LIKE ? OR customer_name LIKE ? OR customer_phone LIKE ?", like, like, like)
	}

	var rows []models.Transaction
	err := query.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Scopes(pagination.Keyset(params.Params)).
		Find(&rows).Error
	return rows, err
}

// SummaryByPaymentType totals sales in the window per payment type.
func (r *Repository) SummaryByPaymentType(ctx context.Context, from, to *time.Time) ([]PaymentTotal, error) {
	var rows []PaymentTotal
	err := r.filtered(ctx, from, to, nil).
		Select("payment_type, COUNT(*) AS count, COALESCE(SUM(total), 0) AS total").
		Group("payment_type").
		Order("payment_type ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *Repository) filtered(ctx context.Context, from, to *time.Time, paymentType *enums.PaymentType) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Transaction{})
	if from != nil {
		query = query.Where("created_at >= ?", from.UTC())
	}
	if to != nil {
		query = query.Where("created_at < ?", to.UTC())
	}
	if paymentType != nil {
		query = query.Where("payment_type = ?", *paymentType)
	}
	return query
}
