// Package request provides request correlation ID middleware.
// Every inbound request gets a unique ID used to tie together log lines,
// audit events, and denial responses.
package request

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"eventgate/pkg/requestcontext"
)

// HeaderRequestID is the inbound/outbound correlation header.
const HeaderRequestID = "X-Request-Id"

// RequestID assigns a correlation ID to the request context. An inbound
// X-Request-Id is trusted for traceability; otherwise a fresh UUID is used.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		ctx := requestcontext.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request correlation ID from the context.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
