package controllers

import (
	"net/http"

	"github.com/angelmondragon/repairshop-backend/api/responses"
	"github.com/angelmondragon/repairshop-backend/api/validators"
	"github.com/angelmondragon/repairshop-backend/internal/notes"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
)

const noteIDParam = "noteId"

type createNoteRequest struct {
	Title  string `json:"title" validate:"required,max=160"`
	Body   string `json:"body" validate:"max=10000"`
	Pinned bool   `json:"pinned"`
}

type updateNoteRequest struct {
	Title  *string `json:"title,omitempty" validate:"omitempty,min=1,max=160"`
	Body   *string `json:"body,omitempty" validate:"omitempty,max=10000"`
	Pinned *bool   `json:"pinned,omitempty"`
}

func NoteCreate(svc notes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("note"))
			return
		}
		staffID, err := staffFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload createNoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		note, err := svc.Create(r.Context(), staffID, notes.CreateInput{
			Title:  validators.SanitizeString(payload.Title, 160),
			Body:   payload.Body,
			Pinned: payload.Pinned,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, note)
	}
}

// NoteList returns pinned notes first, then newest.
func NoteList(svc notes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("note"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.List(r.Context(), validators.SanitizeString(r.URL.Query().Get("q"), 80), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func NoteGet(svc notes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("note"))
			return
		}
		id, err := validators.ParseUUIDParam(r, noteIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		note, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, note)
	}
}

func NoteUpdate(svc notes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("note"))
			return
		}
		id, err := validators.ParseUUIDParam(r, noteIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateNoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		note, err := svc.Update(r.Context(), id, notes.UpdateInput{
			Title:  payload.Title,
			Body:   payload.Body,
			Pinned: payload.Pinned,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, note)
	}
}

func NoteDelete(svc notes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("note"))
			return
		}
		id, err := validators.ParseUUIDParam(r, noteIDParam)
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
