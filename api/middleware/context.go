package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ctxStaffID  contextKey = "staff_id"
	ctxRole     contextKey = "staff_role"
	ctxAccessID contextKey = "access_id"
)

func StaffIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxStaffID).(string); ok {
		return v
	}
	return ""
}

// StaffUUIDFromContext parses the authenticated staff id; ok is false when the
// request is anonymous or the value is malformed.
func StaffUUIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(StaffIDFromContext(ctx))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// AccessIDFromContext returns the jti of the bearer token, which also keys the
// refresh session.
func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

// WithStaff injects the authenticated staff member into the context.
func WithStaff(ctx context.Context, staffID, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxStaffID, staffID)
	return context.WithValue(ctx, ctxRole, role)
}
