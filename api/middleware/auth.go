package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/repairshop-backend/api/responses"
	pkgAuth "github.com/angelmondragon/repairshop-backend/pkg/auth"
	"github.com/angelmondragon/repairshop-backend/pkg/auth/session"
	"github.com/angelmondragon/repairshop-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/repairshop-backend/pkg/errors"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
)

// BearerToken extracts the raw token from an Authorization header. The
// "Bearer " prefix is optional.
func BearerToken(r *http.Request) string {
	token := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}

// Auth validates a bearer token, checks its refresh session is still live and
// seeds the request context with the staff identity.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := authenticate(r, cfg, verifier)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if logg != nil {
				ctx = logg.WithStaff(ctx, StaffIDFromContext(ctx), RoleFromContext(ctx))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, cfg config.JWTConfig, verifier session.AccessSessionChecker) (context.Context, error) {
	raw := BearerToken(r)
	if raw == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, raw)
	switch {
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	case claims.ID == "":
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}

	if verifier != nil {
		live, err := verifier.HasSession(r.Context(), claims.ID)
		switch {
		case err != nil:
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		case !live:
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
		}
	}

	ctx := WithStaff(r.Context(), claims.StaffID.String(), string(claims.Role))
	return context.WithValue(ctx, ctxAccessID, claims.ID), nil
}
