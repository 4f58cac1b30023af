package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/repairshop-backend/internal/stock"
	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/repairshop-backend/pkg/errors"
)

// Service drives the session cart used at the counter.
type Service interface {
	Open(ctx context.Context, staffID uuid.UUID) (*CartDTO, error)
	Get(ctx context.Context, staffID uuid.UUID, sessionID string) (*CartDTO, error)
	AddLine(ctx context.Context, staffID uuid.UUID, sessionID string, input AddLineInput) (*CartDTO, error)
	UpdateLine(ctx context.Context, staffID uuid.UUID, sessionID string, productID uuid.UUID, input UpdateLineInput) (*CartDTO, error)
	RemoveLine(ctx context.Context, staffID uuid.UUID, sessionID string, productID uuid.UUID) (*CartDTO, error)
	Discard(ctx context.Context, staffID uuid.UUID, sessionID string) error
}

// AddLineInput selects a product from the catalog.
type AddLineInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// UpdateLineInput edits a line; nil fields are left untouched.
type UpdateLineInput struct {
	Quantity  *int
	UnitPrice *decimal.Decimal
}

type sessionStore interface {
	Load(ctx context.Context, staffID, sessionID string) (Cart, error)
	Save(ctx context.Context, staffID, sessionID string, c Cart) error
	Delete(ctx context.Context, staffID, sessionID string) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	store    sessionStore
	products productLoader
	currency string
	newID    func() string
}

func NewService(store sessionStore, products productLoader, currency string) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{
		store:    store,
		products: products,
		currency: currency,
		newID:    uuid.NewString,
	}, nil
}

func (s *service) Open(ctx context.Context, staffID uuid.UUID) (*CartDTO, error) {
	sessionID := s.newID()
	empty := New()
	if err := s.store.Save(ctx, staffID.String(), sessionID, empty); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open cart session")
	}
	return toDTO(sessionID, empty, s.currency), nil
}

func (s *service) Get(ctx context.Context, staffID uuid.UUID, sessionID string) (*CartDTO, error) {
	c, err := s.load(ctx, staffID, sessionID)
	if err != nil {
		return nil, err
	}
	return toDTO(sessionID, c, s.currency), nil
}

func (s *service) AddLine(ctx context.Context, staffID uuid.UUID, sessionID string, input AddLineInput) (*CartDTO, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	c, err := s.load(ctx, staffID, sessionID)
	if err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, stock.ErrProductNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}

	c = c.Add(Item{
		ProductID:    product.ID,
		SKU:          product.SKU,
		Name:         product.Name,
		SellingPrice: product.SellingPrice,
	}, input.Quantity)
	return s.save(ctx, staffID, sessionID, c)
}

func (s *service) UpdateLine(ctx context.Context, staffID uuid.UUID, sessionID string, productID uuid.UUID, input UpdateLineInput) (*CartDTO, error) {
	c, err := s.load(ctx, staffID, sessionID)
	if err != nil {
		return nil, err
	}
	if _, ok := c.Find(productID); !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product is not in the cart")
	}
	if input.Quantity != nil {
		c = c.UpdateQuantity(productID, *input.Quantity)
	}
	if input.UnitPrice != nil {
		c = c.UpdatePrice(productID, *input.UnitPrice)
	}
	return s.save(ctx, staffID, sessionID, c)
}

func (s *service) RemoveLine(ctx context.Context, staffID uuid.UUID, sessionID string, productID uuid.UUID) (*CartDTO, error) {
	c, err := s.load(ctx, staffID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, staffID, sessionID, c.Remove(productID))
}

func (s *service) Discard(ctx context.Context, staffID uuid.UUID, sessionID string) error {
	if err := s.store.Delete(ctx, staffID.String(), sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "discard cart session")
	}
	return nil
}

func (s *service) load(ctx context.Context, staffID uuid.UUID, sessionID string) (Cart, error) {
	if sessionID == "" {
		return Cart{}, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	c, err := s.store.Load(ctx, staffID.String(), sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return Cart{}, pkgerrors.New(pkgerrors.CodeNotFound, "cart session not found or expired")
		}
		return Cart{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart session")
	}
	return c, nil
}

func (s *service) save(ctx context.Context, staffID uuid.UUID, sessionID string, c Cart) (*CartDTO, error) {
	if err := s.store.Save(ctx, staffID.String(), sessionID, c); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart session")
	}
	return toDTO(sessionID, c, s.currency), nil
}
