package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/repairshop-backend/api/responses"
	"github.com/angelmondragon/repairshop-backend/api/validators"
	"github.com/angelmondragon/repairshop-backend/internal/storeinfo"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
)

// InvoicePeeker previews the next invoice number without consuming it.
type InvoicePeeker interface {
	Peek(ctx context.Context) (string, error)
}

// InvoiceNext shows the counter value the next sale or intake would take.
// Two clients may see the same preview; only allocation is authoritative.
func InvoiceNext(peeker InvoicePeeker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if peeker == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("invoice"))
			return
		}
		next, err := peeker.Peek(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"invoice_number": next})
	}
}

type upsertStoreInfoRequest struct {
	Name          string `json:"name" validate:"required,max=120"`
	Address       string `json:"address" validate:"max=300"`
	Phone         string `json:"phone" validate:"max=32"`
	Email         string `json:"email" validate:"omitempty,email"`
	TaxID         string `json:"tax_id" validate:"max=40"`
	ReceiptFooter string `json:"receipt_footer" validate:"max=300"`
}

func StoreInfoGet(svc storeinfo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("store info"))
			return
		}
		info, err := svc.Get(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, info)
	}
}

func StoreInfoUpsert(svc storeinfo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("store info"))
			return
		}
		var payload upsertStoreInfoRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		info, err := svc.Upsert(r.Context(), storeinfo.UpsertInput{
			Name:          validators.SanitizeString(payload.Name, 120),
			Address:       validators.SanitizeString(payload.Address, 300),
			Phone:         validators.SanitizeString(payload.Phone, 32),
			Email:         validators.SanitizeString(payload.Email, 254),
			TaxID:         validators.SanitizeString(payload.TaxID, 40),
			ReceiptFooter: validators.SanitizeString(payload.ReceiptFooter, 300),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, info)
	}
}
