package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS applies the counter app origin allow list. A "*" entry disables
// credentials, as browsers reject the combination.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	credentials := true
	for _, o := range origins {
		if o == "*" {
			credentials = false
		}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "Idempotent-Replayed", "Retry-After"},
		AllowCredentials: credentials,
		MaxAge:           300,
	}).Handler
}
