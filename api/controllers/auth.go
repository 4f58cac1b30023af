package controllers

import (
	"net/http"

	"github.com/angelmondragon/repairshop-backend/api/middleware"
	"github.com/angelmondragon/repairshop-backend/api/responses"
	"github.com/angelmondragon/repairshop-backend/api/validators"
	"github.com/angelmondragon/repairshop-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/repairshop-backend/pkg/errors"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
)

const accessTokenHeader = "X-Access-Token"

// AuthLogin wires the login endpoint into the HTTP layer.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth"))
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set(accessTokenHeader, result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}

// AuthRefresh rotates the refresh session. The previous access token may be
// expired and travels in the Authorization header.
func AuthRefresh(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth"))
			return
		}

		var body auth.RefreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.AccessToken = middleware.BearerToken(r)
		if body.AccessToken == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		result, err := svc.Refresh(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set(accessTokenHeader, result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}

func AuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth"))
			return
		}
		token := middleware.BearerToken(r)
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		if err := svc.Logout(r.Context(), token); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
