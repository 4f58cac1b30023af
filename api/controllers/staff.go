package controllers

import (
	"net/http"

	"github.com/angelmondragon/repairshop-backend/api/middleware"
	"github.com/angelmondragon/repairshop-backend/api/responses"
	"github.com/angelmondragon/repairshop-backend/api/validators"
	"github.com/angelmondragon/repairshop-backend/internal/staff"
	pkgerrors "github.com/angelmondragon/repairshop-backend/pkg/errors"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
)

type createStaffRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=120"`
	Role     string `json:"role" validate:"required,oneof=owner technician cashier"`
	Password string `json:"password" validate:"required"`
}

type staffActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func StaffCreate(svc staff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("staff"))
			return
		}
		var payload createStaffRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.Create(r.Context(), staff.CreateInput{
			Email:    payload.Email,
			Name:     payload.Name,
			Role:     payload.Role,
			Password: payload.Password,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, user)
	}
}

func StaffList(svc staff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("staff"))
			return
		}
		users, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, users)
	}
}

// StaffSetActive enables or disables a login. Owners cannot disable themselves.
func StaffSetActive(svc staff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("staff"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "staffId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload staffActiveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !*payload.Active && middleware.StaffIDFromContext(r.Context()) == id.String() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot deactivate your own account"))
			return
		}
		if err := svc.SetActive(r.Context(), id, *payload.Active); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
