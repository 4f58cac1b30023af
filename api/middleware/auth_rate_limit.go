package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/repairshop-backend/api/responses"
	pkgerrors "github.com/angelmondragon/repairshop-backend/pkg/errors"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
)

type windowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// LoginRateLimitPolicy throttles credential attempts per client IP and per
// e-mail address within a fixed window.
type LoginRateLimitPolicy struct {
	Name       string
	Window     time.Duration
	IPLimit    int
	EmailLimit int
}

func (p LoginRateLimitPolicy) enabled() bool {
	return p.Window > 0 && (p.IPLimit > 0 || p.EmailLimit > 0)
}

func (p LoginRateLimitPolicy) scope(kind, value string) string {
	name := strings.ToLower(strings.TrimSpace(p.Name))
	if name == "" {
		name = "login"
	}
	return kind + ":" + name + ":" + value
}

// LoginRateLimit rejects requests over either limit with RATE_LIMITED. The
// e-mail is hashed before it reaches Redis.
func LoginRateLimit(policy LoginRateLimitPolicy, limiter windowLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if policy.IPLimit > 0 {
				if ip := clientIP(r); ip != "" {
					if !checkWindow(ctx, w, logg, limiter, policy, "ip", ip, policy.IPLimit) {
						return
					}
				}
			}

			if policy.EmailLimit > 0 {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))

				if email := emailFromBody(body); email != "" {
					if !checkWindow(ctx, w, logg, limiter, policy, "email", hashValue(email), policy.EmailLimit) {
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// checkWindow writes the error response itself and reports whether the
// request may continue.
func checkWindow(ctx context.Context, w http.ResponseWriter, logg *logger.Logger, limiter windowLimiter, policy LoginRateLimitPolicy, kind, value string, limit int) bool {
	allowed, count, err := limiter.FixedWindowAllow(ctx, policy.scope(kind, value), int64(limit), policy.Window)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
		return false
	}
	if allowed {
		return true
	}
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"scope":          kind,
			"policy":         policy.Name,
			"attempts":       count,
			"limit":          limit,
			"window_seconds": int(policy.Window.Seconds()),
		}), "auth.rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(policy.Window.Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many login attempts"))
	return false
}

func clientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func emailFromBody(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(body.Email))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
