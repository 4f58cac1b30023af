package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/repairshop-backend/api/responses"
	"github.com/angelmondragon/repairshop-backend/api/validators"
	"github.com/angelmondragon/repairshop-backend/internal/stock"
	pkgerrors "github.com/angelmondragon/repairshop-backend/pkg/errors"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
)

const productIDParam = "productId"

type createProductRequest struct {
	SKU               string          `json:"sku" validate:"required,max=64"`
	Name              string          `json:"name" validate:"required,max=160"`
	Category          string          `json:"category" validate:"max=60"`
	Brand             string          `json:"brand" validate:"max=60"`
	CostPrice         decimal.Decimal `json:"cost_price" validate:"gte=0"`
	SellingPrice      decimal.Decimal `json:"selling_price" validate:"gte=0"`
	Quantity          int             `json:"quantity" validate:"gte=0"`
	LowStockThreshold int             `json:"low_stock_threshold" validate:"gte=0"`
}

func (r createProductRequest) toCreateInput() stock.CreateProductInput {
	return stock.CreateProductInput{
		SKU:               strings.TrimSpace(r.SKU),
		Name:              validators.SanitizeString(r.Name, 160),
		Category:          validators.SanitizeString(r.Category, 60),
		Brand:             validators.SanitizeString(r.Brand, 60),
		CostPrice:         r.CostPrice,
		SellingPrice:      r.SellingPrice,
		Quantity:          r.Quantity,
		LowStockThreshold: r.LowStockThreshold,
	}
}

type updateProductRequest struct {
	SKU               *string          `json:"sku,omitempty" validate:"omitempty,min=1,max=64"`
	Name              *string          `json:"name,omitempty" validate:"omitempty,min=1,max=160"`
	Category          *string          `json:"category,omitempty" validate:"omitempty,max=60"`
	Brand             *string          `json:"brand,omitempty" validate:"omitempty,max=60"`
	CostPrice         *decimal.Decimal `json:"cost_price,omitempty"`
	SellingPrice      *decimal.Decimal `json:"selling_price,omitempty"`
	LowStockThreshold *int             `json:"low_stock_threshold,omitempty" validate:"omitempty,gte=0"`
}

func (r updateProductRequest) toUpdateInput() (stock.UpdateProductInput, error) {
	for field, value := range map[string]*decimal.Decimal{"cost_price": r.CostPrice, "selling_price": r.SellingPrice} {
		if value != nil && value.IsNegative() {
			return stock.UpdateProductInput{}, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{field: "must be greater than or equal to 0"})
		}
	}
	return stock.UpdateProductInput{
		SKU:               r.SKU,
		Name:              r.Name,
		Category:          r.Category,
		Brand:             r.Brand,
		CostPrice:         r.CostPrice,
		SellingPrice:      r.SellingPrice,
		LowStockThreshold: r.LowStockThreshold,
	}, nil
}

type adjustStockRequest struct {
	Delta int `json:"delta" validate:"required"`
}

func ProductCreate(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}
		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Create(r.Context(), payload.toCreateInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, product)
	}
}

// ProductList supports ?q= over name, SKU and brand.
func ProductList(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}
		page, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), stock.ListParams{
			Search: validators.SanitizeString(r.URL.Query().Get("q"), 80),
			Params: page,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func ProductGet(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}
		id, err := validators.ParseUUIDParam(r, productIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ProductUpdate edits catalog fields. Quantity only moves through adjust.
func ProductUpdate(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}
		id, err := validators.ParseUUIDParam(r, productIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toUpdateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func ProductDelete(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}
		id, err := validators.ParseUUIDParam(r, productIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// ProductAdjust applies a signed stock correction (restock, breakage, count).
func ProductAdjust(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}
		id, err := validators.ParseUUIDParam(r, productIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload adjustStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Adjust(r.Context(), id, payload.Delta)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func ProductLowStock(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.LowStock(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}
