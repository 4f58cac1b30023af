package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/repairshop-backend/api/responses"
	"github.com/angelmondragon/repairshop-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/repairshop-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/repairshop-backend/pkg/errors"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
)

type checkoutRequest struct {
	SessionID     string  `json:"session_id" validate:"required,max=64"`
	CustomerName  string  `json:"customer_name" validate:"max=120"`
	CustomerPhone string  `json:"customer_phone" validate:"max=32"`
	CustomerEmail *string `json:"customer_email,omitempty" validate:"omitempty,email"`
	PaymentType   string  `json:"payment_type" validate:"required"`
}

// Checkout commits the staff member's cart as a sale.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("checkout"))
			return
		}
		staffID, err := staffFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Checkout(r.Context(), staffID, checkoutsvc.CheckoutInput{
			SessionID:     strings.TrimSpace(payload.SessionID),
			CustomerName:  validators.SanitizeString(payload.CustomerName, 120),
			CustomerPhone: strings.TrimSpace(payload.CustomerPhone),
			CustomerEmail: payload.CustomerEmail,
			PaymentType:   payload.PaymentType,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteCreated(w, result)
	}
}

// CheckoutStatus reports the last submission state for one of the caller's
// cart sessions.
func CheckoutStatus(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("checkout"))
			return
		}
		staffID, err := staffFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sessionID := strings.TrimSpace(chi.URLParam(r, "sessionId"))
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session id required"))
			return
		}
		status, err := svc.Status(r.Context(), staffID, sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}
