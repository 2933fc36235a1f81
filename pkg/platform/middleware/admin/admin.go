package admin

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	request "eventgate/pkg/platform/middleware/request"
)

// RequireAdminToken guards administrative endpoints. The expected token is
// configured as a bcrypt hash so the plaintext never sits in the environment;
// bcrypt comparison is constant-time, preventing timing probes.
func RequireAdminToken(expectedHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Admin-Token")
			if expectedHash == "" || token == "" ||
				bcrypt.CompareHashAndPassword([]byte(expectedHash), []byte(token)) != nil {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", request.GetRequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
