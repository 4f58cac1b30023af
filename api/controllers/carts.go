package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/repairshop-backend/api/responses"
	"github.com/angelmondragon/repairshop-backend/api/validators"
	"github.com/angelmondragon/repairshop-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/repairshop-backend/pkg/errors"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
)

type addCartLineRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gte=1,lte=9999"`
}

type updateCartLineRequest struct {
	Quantity  *int             `json:"quantity,omitempty" validate:"omitempty,gte=1,lte=9999"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

func cartSession(r *http.Request) (string, error) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionId"))
	if sessionID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	return sessionID, nil
}

// cartScope resolves the staff member and cart session for a request.
func cartScope(r *http.Request) (uuid.UUID, string, error) {
	staffID, err := staffFromRequest(r)
	if err != nil {
		return uuid.Nil, "", err
	}
	sessionID, err := cartSession(r)
	if err != nil {
		return uuid.Nil, "", err
	}
	return staffID, sessionID, nil
}

// CartOpen starts a new point-of-sale session.
func CartOpen(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cart"))
			return
		}
		staffID, err := staffFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.Open(r.Context(), staffID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, c)
	}
}

func CartGet(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cart"))
			return
		}
		staffID, sessionID, err := cartScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.Get(r.Context(), staffID, sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, c)
	}
}

// CartAddLine adds a product; repeated adds merge into one line.
func CartAddLine(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cart"))
			return
		}
		staffID, sessionID, err := cartScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload addCartLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.AddLine(r.Context(), staffID, sessionID, cart.AddLineInput{
			ProductID: payload.ProductID,
			Quantity:  payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, c)
	}
}

func CartUpdateLine(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cart"))
			return
		}
		staffID, sessionID, err := cartScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.ParseUUIDParam(r, productIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateCartLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.UnitPrice != nil && payload.UnitPrice.IsNegative() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{"unit_price": "must be greater than or equal to 0"}))
			return
		}
		c, err := svc.UpdateLine(r.Context(), staffID, sessionID, productID, cart.UpdateLineInput{
			Quantity:  payload.Quantity,
			UnitPrice: payload.UnitPrice,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, c)
	}
}

func CartRemoveLine(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cart"))
			return
		}
		staffID, sessionID, err := cartScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.ParseUUIDParam(r, productIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.RemoveLine(r.Context(), staffID, sessionID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, c)
	}
}

func CartDiscard(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cart"))
			return
		}
		staffID, sessionID, err := cartScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Discard(r.Context(), staffID, sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
