package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/repairshop-backend/api/responses"
	"github.com/angelmondragon/repairshop-backend/api/validators"
	"github.com/angelmondragon/repairshop-backend/internal/receipts"
	"github.com/angelmondragon/repairshop-backend/internal/transactions"
	"github.com/angelmondragon/repairshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/repairshop-backend/pkg/errors"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
)

const transactionIDParam = "transactionId"

// TransactionList supports ?from=&to= (YYYY-MM-DD or RFC3339), ?payment_type=
// and ?q= over invoice number, customer name and phone.
func TransactionList(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("transaction"))
			return
		}
		page, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		from, err := validators.ParseQueryTime(r, "from", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryTime(r, "to", true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := transactions.ListParams{
			From:   from,
			To:     to,
			Search: validators.SanitizeString(r.URL.Query().Get("q"), 80),
			Params: page,
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("payment_type")); raw != "" {
			pt, err := enums.ParsePaymentType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_type"))
				return
			}
			params.PaymentType = &pt
		}

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// TransactionSummary totals sales per payment type over a window.
func TransactionSummary(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("transaction"))
			return
		}
		from, err := validators.ParseQueryTime(r, "from", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryTime(r, "to", true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.Summary(r.Context(), from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func TransactionGet(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("transaction"))
			return
		}
		id, err := validators.ParseUUIDParam(r, transactionIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txn, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, txn)
	}
}

func TransactionByInvoice(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("transaction"))
			return
		}
		number := strings.TrimSpace(chi.URLParam(r, "invoiceNumber"))
		if number == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invoice number required"))
			return
		}
		txn, err := svc.GetByInvoiceNumber(r.Context(), number)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, txn)
	}
}

func TransactionReceipt(svc receipts.Service, logg *logger.Logger) http.HandlerFunc {
	return saleReceipt(svc, logg, func(ctx context.Context, s receipts.Service, r *http.Request) (*receipts.Rendered, error) {
		id, err := validators.ParseUUIDParam(r, transactionIDParam)
		if err != nil {
			return nil, err
		}
		return s.Sale(ctx, id)
	}, true)
}

func TransactionReceiptPrint(svc receipts.Service, logg *logger.Logger) http.HandlerFunc {
	return saleReceipt(svc, logg, func(ctx context.Context, s receipts.Service, r *http.Request) (*receipts.Rendered, error) {
		id, err := validators.ParseUUIDParam(r, transactionIDParam)
		if err != nil {
			return nil, err
		}
		return s.PrintSale(ctx, id)
	}, false)
}

type renderFunc func(ctx context.Context, svc receipts.Service, r *http.Request) (*receipts.Rendered, error)

func saleReceipt(svc receipts.Service, logg *logger.Logger, render renderFunc, negotiate bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("receipt"))
			return
		}
		rendered, err := render(r.Context(), svc, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if negotiate {
			writeReceipt(w, r, rendered)
			return
		}
		responses.WriteSuccess(w, rendered)
	}
}
