package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/angelmondragon/repairshop-backend/pkg/errors"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
	"github.com/angelmondragon/repairshop-backend/pkg/types"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteCreated(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusCreated, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError renders err as the public error envelope. Untyped errors become
// INTERNAL_ERROR with a generic message. Client errors are logged as warnings
// and server errors with the full pg dump.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	payload := types.ErrorEnvelope{
		Error: types.APIError{
			Code:      string(typed.Code()),
			Message:   publicMessage(typed, meta),
			RequestID: types.RequestIDFromContext(ctx),
		},
	}
	if meta.DetailsAllowed {
		payload.Error.Details = typed.Details()
	}

	if logg != nil {
		logError(ctx, logg, err, meta)
	}
	writeJSON(w, meta.HTTPStatus, payload)
}

func publicMessage(typed *pkgerrors.Error, meta pkgerrors.Metadata) string {
	if meta.HTTPStatus >= http.StatusInternalServerError && typed.Code() != pkgerrors.CodeDependency {
		return meta.PublicMessage
	}
	if m := typed.Message(); m != "" {
		return m
	}
	return meta.PublicMessage
}

func logError(ctx context.Context, logg *logger.Logger, err error, meta pkgerrors.Metadata) {
	dump := pkgerrors.Dump(err)
	fields := map[string]any{
		"error":       dump.TopMessage,
		"error_code":  dump.Code,
		"error_chain": dump.Chain,
	}
	if dump.PG != nil {
		fields["pg_code"] = dump.PG.Code
		fields["pg_constraint"] = dump.PG.Constraint
		fields["pg_table"] = dump.PG.Table
		fields["pg_detail"] = dump.PG.Detail
	}
	ctx = logg.WithFields(ctx, fields)
	if meta.HTTPStatus < http.StatusInternalServerError {
		logg.Warn(ctx, "request.rejected")
		return
	}
	logg.Error(ctx, "request.error", err)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
