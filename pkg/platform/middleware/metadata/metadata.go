// Package metadata extracts client metadata (IP, User-Agent) into the
// request context so the access gate and rate limiter can key on it without
// touching *http.Request.
package metadata

import (
	"context"
	"net/http"
	"strings"

	"eventgate/pkg/requestcontext"
)

// ClientMetadata extracts client IP address and User-Agent from the request
// and adds them to the context for use by handlers and services.
// This middleware should be applied early in the chain. trustProxy must only
// be set when a proxy in front of the server strips client-supplied
// forwarding headers; otherwise a direct client chooses its own identity.
func ClientMetadata(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = requestcontext.WithClientIP(ctx, ClientIPFromRequest(r, trustProxy))
			ctx = requestcontext.WithUserAgent(ctx, r.Header.Get("User-Agent"))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClientIP retrieves the client IP address from the context.
func GetClientIP(ctx context.Context) string {
	return requestcontext.ClientIP(ctx)
}

// GetUserAgent retrieves the User-Agent from the context.
func GetUserAgent(ctx context.Context) string {
	return requestcontext.UserAgent(ctx)
}

// ClientIPFromRequest extracts the client IP from the request. Forwarding
// headers are only consulted when trustProxy is set.
func ClientIPFromRequest(r *http.Request, trustProxy bool) string {
	if trustProxy {
		// X-Forwarded-For can contain multiple IPs (client, proxy1,
		// proxy2, ...); the first is the original client.
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			if idx := strings.Index(xff, ","); idx != -1 {
				return strings.TrimSpace(xff[:idx])
			}
			return strings.TrimSpace(xff)
		}

		// X-Real-IP is used by nginx and other proxies.
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	// RemoteAddr is "ip:port" (IPv6: "[::1]:port"), strip the port.
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return strings.Trim(addr[:idx], "[]")
		}
		return addr
	}

	return "unknown"
}
