package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/repairshop-backend/api/middleware"
	"github.com/angelmondragon/repairshop-backend/api/validators"
	pkgerrors "github.com/angelmondragon/repairshop-backend/pkg/errors"
	"github.com/angelmondragon/repairshop-backend/pkg/pagination"
)

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}

func staffFromRequest(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.StaffUUIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "staff context missing")
	}
	return id, nil
}

// pageParams reads ?limit and ?cursor.
func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")}, nil
}
