// Package ports defines shared interfaces for the ratelimit module.
// Interfaces are placed here when consumed by multiple services to avoid duplication.
package ports

import (
	"context"
	"log/slog"
	"time"

	"eventgate/internal/ratelimit/models"
	audit "eventgate/pkg/platform/audit"
	request "eventgate/pkg/platform/middleware/request"
)

// CounterStore manages sliding window rate limit counters. Allow must run
// expire-insert-count as one atomic unit against the backing store so
// concurrent requests cannot all observe a stale under-threshold count.
type CounterStore interface {
	// Allow records one request against key and reports whether it fits the limit.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)

	// Reset clears the rate limit counter for a key.
	Reset(ctx context.Context, key string) error

	// Count returns the current request count in the window.
	Count(ctx context.Context, key string) (int, error)
}

// AuditPublisher emits audit events for security-relevant operations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// LogAudit logs an audit-worthy event to the structured logger and, when a
// publisher is configured, to the audit pipeline.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher AuditPublisher, event string, attrs ...any) {
	if requestID := request.GetRequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}

	args := append(attrs, "event", event, "log_type", "audit")

	if logger != nil {
		logger.InfoContext(ctx, event, args...)
	}

	if publisher == nil {
		return
	}
	if err := publisher.Emit(ctx, audit.Event{
		Category:  audit.CategorySecurity,
		Action:    event,
		RequestID: request.GetRequestID(ctx),
	}); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", event, "error", err)
	}
}
