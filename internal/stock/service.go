package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/repairshop-backend/pkg/db"
	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/repairshop-backend/pkg/errors"
	"github.com/angelmondragon/repairshop-backend/pkg/pagination"
)

// Service manages the shop inventory.
type Service interface {
	Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	List(ctx context.Context, params ListParams) (*pagination.Page[ProductDTO], error)
	Adjust(ctx context.Context, id uuid.UUID, delta int) (*ProductDTO, error)
	LowStock(ctx context.Context, limit int) ([]ProductDTO, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	SKU               string
	Name              string
	Category          string
	Brand             string
	CostPrice         decimal.Decimal
	SellingPrice      decimal.Decimal
	Quantity          int
	LowStockThreshold int
}

// UpdateProductInput holds optional mutations; nil fields are left untouched.
type UpdateProductInput struct {
	SKU               *string
	Name              *string
	Category          *string
	Brand             *string
	CostPrice         *decimal.Decimal
	SellingPrice      *decimal.Decimal
	LowStockThreshold *int
}

type repository interface {
	Create(ctx context.Context, product *models.Product) error
	Save(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, params ListParams) ([]models.Product, error)
	ListLowStock(ctx context.Context, limit int) ([]models.Product, error)
	AdjustQuantity(ctx context.Context, id uuid.UUID, delta int) error
}

type service struct {
	repo repository
}

func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	product := &models.Product{
		SKU:               strings.TrimSpace(input.SKU),
		Name:              strings.TrimSpace(input.Name),
		Category:          strings.TrimSpace(input.Category),
		Brand:             strings.TrimSpace(input.Brand),
		CostPrice:         input.CostPrice,
		SellingPrice:      input.SellingPrice,
		Quantity:          input.Quantity,
		LowStockThreshold: input.LowStockThreshold,
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, mapWriteError(err, "create product")
	}
	return toDTO(product), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.SKU != nil {
		product.SKU = strings.TrimSpace(*input.SKU)
	}
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Category != nil {
		product.Category = strings.TrimSpace(*input.Category)
	}
	if input.Brand != nil {
		product.Brand = strings.TrimSpace(*input.Brand)
	}
	if input.CostPrice != nil {
		product.CostPrice = *input.CostPrice
	}
	if input.SellingPrice != nil {
		product.SellingPrice = *input.SellingPrice
	}
	if input.LowStockThreshold != nil {
		product.LowStockThreshold = *input.LowStockThreshold
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, product); err != nil {
		return nil, mapWriteError(err, "update product")
	}
	return toDTO(product), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "product is referenced by past sales")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDTO(product), nil
}

func (s *service) List(ctx context.Context, params ListParams) (*pagination.Page[ProductDTO], error) {
	rows, err := s.repo.List(ctx, params)
	switch {
	case errors.Is(err, pagination.ErrInvalidCursor):
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	page := pagination.BuildPage(toDTOs(rows), params.Limit, func(p ProductDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return &page, nil
}

// Adjust applies a manual stock correction such as a delivery or a breakage.
func (s *service) Adjust(ctx context.Context, id uuid.UUID, delta int) (*ProductDTO, error) {
	if delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta must not be zero")
	}
	if err := s.repo.AdjustQuantity(ctx, id, delta); err != nil {
		return nil, MapStockError(err, id)
	}
	return s.Get(ctx, id)
}

func (s *service) LowStock(ctx context.Context, limit int) ([]ProductDTO, error) {
	rows, err := s.repo.ListLowStock(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list low stock")
	}
	return toDTOs(rows), nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return product, nil
}

// MapStockError converts repository stock errors into coded errors.
func MapStockError(err error, productID uuid.UUID) error {
	switch {
	case errors.Is(err, ErrProductNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]string{"product_id": productID.String()})
	case errors.Is(err, ErrInsufficientStock):
		return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
			WithDetails(map[string]string{"product_id": productID.String()})
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adjust stock")
	}
}

func validateProduct(p *models.Product) error {
	details := map[string]string{}
	if p.SKU == "" {
		details["sku"] = "required"
	}
	if p.Name == "" {
		details["name"] = "required"
	}
	if p.CostPrice.IsNegative() {
		details["cost_price"] = "must be >= 0"
	}
	if p.SellingPrice.IsNegative() {
		details["selling_price"] = "must be >= 0"
	}
	if p.Quantity < 0 {
		details["quantity"] = "must be >= 0"
	}
	if p.LowStockThreshold < 0 {
		details["low_stock_threshold"] = "must be >= 0"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid product").WithDetails(details)
	}
	return nil
}

func mapWriteError(err error, action string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "sku already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action)
}
