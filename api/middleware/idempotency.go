package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/repairshop-backend/api/responses"
	pkgerrors "github.com/angelmondragon/repairshop-backend/pkg/errors"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/repairshop-backend/pkg/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"

	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
)

// idempotentRoutes maps "METHOD pattern" to how long a replay stays valid.
// Patterns are chi route patterns, not concrete paths.
var idempotentRoutes = map[string]time.Duration{
	"POST /api/v1/checkout":                                   criticalIdempotencyTTL,
	"POST /api/v1/customers":                                  defaultIdempotencyTTL,
	"POST /api/v1/customers/{customerId}/receipt/print":       defaultIdempotencyTTL,
	"POST /api/v1/products":                                   defaultIdempotencyTTL,
	"POST /api/v1/products/{productId}/adjust":                defaultIdempotencyTTL,
	"POST /api/v1/transactions/{transactionId}/receipt/print": defaultIdempotencyTTL,
	"POST /api/v1/notes":                                      defaultIdempotencyTTL,
}

// storedResponse is what a replay writes back. Body is raw bytes, which
// encoding/json stores as base64.
type storedResponse struct {
	Status      int    `json:"status"`
	Body        []byte `json:"body"`
	ContentType string `json:"content_type,omitempty"`
	Fingerprint string `json:"request_hash"`
}

type replayGuard struct {
	store pkgredis.IdempotencyStore
	logg  *logger.Logger
}

// Idempotency replays the stored response for a repeated Idempotency-Key on
// the routes above. 5xx responses are not stored so the client can retry.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	g := replayGuard{store: store, logg: logg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, guarded := routeTTL(r.Method, routePattern(r))
			if !guarded || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			if err := g.serve(w, r, next, ttl); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
			}
		})
	}
}

// serve returns an error only when nothing has been written yet.
func (g replayGuard) serve(w http.ResponseWriter, r *http.Request, next http.Handler, ttl time.Duration) error {
	ctx := r.Context()
	clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if clientKey == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	key := g.store.IdempotencyKey(requestScope(r), clientKey)
	fingerprint := fingerprintOf(body)

	prior, err := g.lookup(ctx, key)
	if err != nil {
		return err
	}
	if prior != nil {
		if prior.Fingerprint != fingerprint {
			return pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body")
		}
		prior.writeTo(w)
		return nil
	}

	capture := &responseCapture{ResponseWriter: w}
	next.ServeHTTP(capture, r)
	if capture.status() >= http.StatusInternalServerError {
		return nil
	}
	g.remember(ctx, key, ttl, storedResponse{
		Status:      capture.status(),
		Body:        capture.body.Bytes(),
		ContentType: capture.Header().Get("Content-Type"),
		Fingerprint: fingerprint,
	})
	return nil
}

func (g replayGuard) lookup(ctx context.Context, key string) (*storedResponse, error) {
	raw, err := g.store.Get(ctx, key)
	switch {
	case errors.Is(err, redis.Nil) || (err == nil && raw == ""):
		return nil, nil
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}
	var prior storedResponse
	if err := json.Unmarshal([]byte(raw), &prior); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	return &prior, nil
}

// remember is best effort: the response is already on the wire.
func (g replayGuard) remember(ctx context.Context, key string, ttl time.Duration, resp storedResponse) {
	raw, err := json.Marshal(resp)
	if err == nil {
		_, err = g.store.SetNX(ctx, key, string(raw), ttl)
	}
	if err != nil && g.logg != nil {
		g.logg.Error(ctx, "persist idempotency record", err)
	}
}

func (s *storedResponse) writeTo(w http.ResponseWriter) {
	if s.ContentType != "" {
		w.Header().Set("Content-Type", s.ContentType)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(s.Status)
	_, _ = w.Write(s.Body)
}

// requestScope isolates keys per staff member and concrete path, so the same
// key reused on another customer does not collide.
func requestScope(r *http.Request) string {
	return StaffIDFromContext(r.Context()) + "|" + r.Method + "|" + r.URL.Path
}

func fingerprintOf(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
		return rc.RoutePattern()
	}
	return r.URL.Path
}

func routeTTL(method, pattern string) (time.Duration, bool) {
	if pattern == "" {
		return 0, false
	}
	ttl, ok := idempotentRoutes[method+" "+strings.TrimSuffix(pattern, "/")]
	return ttl, ok
}

// responseCapture tees the body so it can be stored after the handler ran.
type responseCapture struct {
	http.ResponseWriter
	body bytes.Buffer
	code int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.code == 0 {
		c.code = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.code == 0 {
		c.code = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) status() int {
	if c.code == 0 {
		return http.StatusOK
	}
	return c.code
}
