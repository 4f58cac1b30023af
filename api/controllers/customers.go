package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/repairshop-backend/api/responses"
	"github.com/angelmondragon/repairshop-backend/api/validators"
	"github.com/angelmondragon/repairshop-backend/internal/customers"
	"github.com/angelmondragon/repairshop-backend/internal/notifications"
	"github.com/angelmondragon/repairshop-backend/internal/receipts"
	"github.com/angelmondragon/repairshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/repairshop-backend/pkg/errors"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
)

const customerIDParam = "customerId"

type createCustomerRequest struct {
	Name               string          `json:"name" validate:"required,max=120"`
	Phone              string          `json:"phone" validate:"required,max=32"`
	Email              *string         `json:"email,omitempty" validate:"omitempty,email"`
	DeviceBrand        string          `json:"device_brand" validate:"max=60"`
	DeviceModel        string          `json:"device_model" validate:"required,max=80"`
	IMEI               *string         `json:"imei,omitempty" validate:"omitempty,max=20"`
	IssueDescription   string          `json:"issue_description" validate:"required,max=2000"`
	PatternLock        *string         `json:"pattern_lock,omitempty" validate:"omitempty,min=4,max=9,numeric"`
	Passcode           *string         `json:"passcode,omitempty" validate:"omitempty,max=32"`
	EstimatedCost      decimal.Decimal `json:"estimated_cost" validate:"gte=0"`
	AdvancePaid        decimal.Decimal `json:"advance_paid" validate:"gte=0"`
	ExpectedDeliveryAt *time.Time      `json:"expected_delivery_at,omitempty"`
}

func (r createCustomerRequest) toInput() customers.CreateInput {
	return customers.CreateInput{
		Name:               validators.SanitizeString(r.Name, 120),
		Phone:              strings.TrimSpace(r.Phone),
		Email:              r.Email,
		DeviceBrand:        validators.SanitizeString(r.DeviceBrand, 60),
		DeviceModel:        validators.SanitizeString(r.DeviceModel, 80),
		IMEI:               r.IMEI,
		IssueDescription:   strings.TrimSpace(r.IssueDescription),
		PatternLock:        r.PatternLock,
		Passcode:           r.Passcode,
		EstimatedCost:      r.EstimatedCost,
		AdvancePaid:        r.AdvancePaid,
		ExpectedDeliveryAt: r.ExpectedDeliveryAt,
	}
}

type updateCustomerRequest struct {
	Name               *string          `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Phone              *string          `json:"phone,omitempty" validate:"omitempty,min=1,max=32"`
	Email              *string          `json:"email,omitempty" validate:"omitempty,email"`
	DeviceBrand        *string          `json:"device_brand,omitempty" validate:"omitempty,max=60"`
	DeviceModel        *string          `json:"device_model,omitempty" validate:"omitempty,min=1,max=80"`
	IMEI               *string          `json:"imei,omitempty" validate:"omitempty,max=20"`
	IssueDescription   *string          `json:"issue_description,omitempty" validate:"omitempty,max=2000"`
	PatternLock        *string          `json:"pattern_lock,omitempty"`
	Passcode           *string          `json:"passcode,omitempty" validate:"omitempty,max=32"`
	EstimatedCost      *decimal.Decimal `json:"estimated_cost,omitempty"`
	AdvancePaid        *decimal.Decimal `json:"advance_paid,omitempty"`
	ExpectedDeliveryAt *time.Time       `json:"expected_delivery_at,omitempty"`
}

func (r updateCustomerRequest) toInput() customers.UpdateInput {
	return customers.UpdateInput{
		Name:               r.Name,
		Phone:              r.Phone,
		Email:              r.Email,
		DeviceBrand:        r.DeviceBrand,
		DeviceModel:        r.DeviceModel,
		IMEI:               r.IMEI,
		IssueDescription:   r.IssueDescription,
		PatternLock:        r.PatternLock,
		Passcode:           r.Passcode,
		EstimatedCost:      r.EstimatedCost,
		AdvancePaid:        r.AdvancePaid,
		ExpectedDeliveryAt: r.ExpectedDeliveryAt,
	}
}

type customerStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type verifyPatternRequest struct {
	Pattern string `json:"pattern" validate:"required"`
}

// CustomerCreate records a device intake and allocates its invoice number.
func CustomerCreate(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("customer"))
			return
		}
		staffID, err := staffFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createCustomerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customer, err := svc.Create(r.Context(), staffID, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, customer)
	}
}

// CustomerList supports ?q= (name, phone, invoice or IMEI) and ?status=.
func CustomerList(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("customer"))
			return
		}
		page, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := customers.ListParams{
			Search: validators.SanitizeString(r.URL.Query().Get("q"), 80),
			Params: page,
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseRepairStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			params.Status = &status
		}

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CustomerGet(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("customer"))
			return
		}
		id, err := validators.ParseUUIDParam(r, customerIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customer, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}

func CustomerUpdate(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("customer"))
			return
		}
		id, err := validators.ParseUUIDParam(r, customerIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateCustomerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customer, err := svc.Update(r.Context(), id, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}

func CustomerDelete(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("customer"))
			return
		}
		id, err := validators.ParseUUIDParam(r, customerIDParam)
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

// CustomerUpdateStatus moves a repair through its workflow.
func CustomerUpdateStatus(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("customer"))
			return
		}
		staffID, err := staffFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, customerIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body customerStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customer, err := svc.UpdateStatus(r.Context(), staffID, id, body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}

// CustomerPatternReplay returns the whole animation timeline at once for
// clients that drive their own clock.
func CustomerPatternReplay(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("customer"))
			return
		}
		id, err := validators.ParseUUIDParam(r, customerIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		replay, err := svc.ReplayTimeline(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, replay)
	}
}

// CustomerPatternReplayStream plays the stored pattern as server-sent events,
// one "frame" event per revealed node followed by a single "done" event.
// Closing the connection stops playback.
func CustomerPatternReplayStream(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("customer"))
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}
		id, err := validators.ParseUUIDParam(r, customerIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		replayer, err := svc.Replayer(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		frames, err := replayer.Play(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "replay unavailable"))
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		step := 0
		for frame := range frames {
			step++
			payload, err := json.Marshal(frame)
			if err != nil {
				logg.Error(r.Context(), "encode replay frame", err)
				return
			}
			fmt.Fprintf(w, "id: %d\nevent: frame\ndata: %s\n\n", step, payload)
			flusher.Flush()
		}
		if r.Context().Err() != nil {
			return
		}
		fmt.Fprintf(w, "event: done\ndata: {\"frames\":%d}\n\n", step)
		flusher.Flush()
	}
}

// CustomerPatternVerify checks an unlock attempt at pickup.
func CustomerPatternVerify(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("customer"))
			return
		}
		id, err := validators.ParseUUIDParam(r, customerIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body verifyPatternRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		match, err := svc.VerifyPattern(r.Context(), id, body.Pattern)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"match": match})
	}
}

// CustomerContact builds SMS and WhatsApp links with the status message
// prefilled.
func CustomerContact(svc notifications.ContactService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("contact"))
			return
		}
		id, err := validators.ParseUUIDParam(r, customerIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		links, err := svc.Contact(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, links)
	}
}

func CustomerReceipt(svc receipts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("receipt"))
			return
		}
		id, err := validators.ParseUUIDParam(r, customerIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rendered, err := svc.Intake(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeReceipt(w, r, rendered)
	}
}

func CustomerReceiptPrint(svc receipts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("receipt"))
			return
		}
		id, err := validators.ParseUUIDParam(r, customerIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rendered, err := svc.PrintIntake(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rendered)
	}
}

// writeReceipt answers text/plain when the client asks for it, otherwise the
// JSON envelope.
func writeReceipt(w http.ResponseWriter, r *http.Request, rendered *receipts.Rendered) {
	if strings.Contains(r.Header.Get("Accept"), "text/plain") {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(rendered.Text))
		return
	}
	responses.WriteSuccess(w, rendered)
}
