package middleware

import (
	"net/http"
	"time"

	"github.com/angelmondragon/repairshop-backend/pkg/logger"
	"github.com/angelmondragon/repairshop-backend/pkg/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// Flush lets streaming handlers (pattern replay) push frames through the
// recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Logging writes one completion line per request and feeds the HTTP metrics.
// Health probes are logged at debug level.
func Logging(logg *logger.Logger, httpMetrics *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"method": r.Method,
					"path":   r.URL.Path,
				})
			}

			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(rec, r.WithContext(ctx))
			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			took := time.Since(start)

			route := routePattern(r)
			httpMetrics.Observe(r.Method, route, rec.status, took)

			if logg == nil {
				return
			}
			ctx = logg.WithFields(ctx, map[string]any{
				"route":       route,
				"status":      rec.status,
				"bytes":       rec.bytes,
				"duration_ms": took.Milliseconds(),
			})
			if isProbe(r.URL.Path) {
				logg.Debug(ctx, "request.complete")
				return
			}
			logg.Info(ctx, "request.complete")
		})
	}
}

func isProbe(path string) bool {
	switch path {
	case "/health/live", "/health/ready", "/metrics":
		return true
	}
	return false
}
