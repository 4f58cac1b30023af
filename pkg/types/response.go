// Package types holds the JSON envelopes the shop API answers with.
package types

import "context"

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public error body. RequestID echoes X-Request-Id so the
// counter can quote it when a sale or repair ticket fails to save.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

type requestIDKey struct{}

// WithRequestID stores the id echoed in error envelopes.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
