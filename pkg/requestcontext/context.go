// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets these values; services and the access gate consume them.
// Keeping this package free of net/http lets services import only what they
// need without pulling in HTTP-related code.
//
// Usage in services (read values):
//
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithClientIP(ctx, "203.0.113.7")
package requestcontext

import (
	"context"
	"time"
)

// Context key types (unexported for encapsulation).
type (
	requestIDKey   struct{}
	requestTimeKey struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
)

// RequestID retrieves the request correlation ID from the context.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithRequestID injects a request correlation ID into a context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// Now retrieves the request-scoped time from the context, falling back to
// time.Now when no middleware captured one (e.g. in unit tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Tests use this to pin "now".
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

// WithClientIP injects a client IP into a context.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// UserAgent retrieves the User-Agent from the context.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(userAgentKey{}).(string); ok {
		return ua
	}
	return ""
}

// WithUserAgent injects a User-Agent into a context.
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, userAgentKey{}, ua)
}
