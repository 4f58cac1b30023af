package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/repairshop-backend/pkg/types"
)

func TestRequestIDPropagatesCallerValue(t *testing.T) {
	var seen string
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = types.RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, " till-3-0042 ")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "till-3-0042", seen)
	assert.Equal(t, "till-3-0042", rec.Header().Get(requestIDHeader))
}

func TestRequestIDMintsWhenMissingOrOversized(t *testing.T) {
	var seen string
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = types.RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("x", maxRequestIDLength+1))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get(requestIDHeader))
}
