// Package service implements the sliding window rate limiter over a shared
// counter store. The service decides nothing about HTTP; the access gate maps
// results onto responses and owns the fail-open policy for store outages.
package service

import (
	"context"
	"errors"
	"log/slog"

	"eventgate/internal/ratelimit/metrics"
	"eventgate/internal/ratelimit/models"
	"eventgate/internal/ratelimit/ports"
	dErrors "eventgate/pkg/domain-errors"
	"eventgate/pkg/requestcontext"
)

// Type alias so external packages don't import ports directly.
type CounterStore = ports.CounterStore

type Service struct {
	counters       CounterStore
	config         *Config
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher ports.AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithConfig(cfg *Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func New(counters CounterStore, opts ...Option) (*Service, error) {
	if counters == nil {
		return nil, errors.New("counter store is required")
	}

	svc := &Service{
		counters: counters,
		config:   DefaultConfig(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CheckLimit records one request for (identity, site) under the class profile
// and reports whether it fits the window. siteID may be empty when the caller
// has not resolved a site yet (e.g. pre-auth endpoints keyed by IP alone).
func (s *Service) CheckLimit(ctx context.Context, identity, siteID string, class models.EndpointClass) (*models.RateLimitResult, error) {
	limit, window, ok := s.config.GetLimit(class)
	if !ok {
		// Default-deny: a class without a profile is a configuration bug.
		ports.LogAudit(ctx, s.logger, s.auditPublisher, "rate_limit_config_missing",
			"identity", identity,
			"endpoint_class", class,
		)
		return &models.RateLimitResult{
			Allowed:    false,
			Limit:      0,
			Remaining:  0,
			ResetAt:    requestcontext.Now(ctx),
			RetryAfter: 60,
		}, nil
	}

	key := models.RateLimitKey{Class: class, Identity: identity, SiteID: siteID}
	result, err := s.counters.Allow(ctx, key.String(), limit, window)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordStoreDegraded()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to check rate limit")
	}

	if !result.Allowed {
		if s.metrics != nil {
			s.metrics.RecordExceeded(string(class))
		}
		ports.LogAudit(ctx, s.logger, s.auditPublisher, "rate_limit_exceeded",
			"identity", identity,
			"site_id", siteID,
			"endpoint_class", class,
			"limit", limit,
			"window_seconds", int(window.Seconds()),
		)
	}

	return result, nil
}

// ResetLimit clears the counter for a key. Administrative/testing operation.
func (s *Service) ResetLimit(ctx context.Context, identity, siteID string, class models.EndpointClass) error {
	key := models.RateLimitKey{Class: class, Identity: identity, SiteID: siteID}
	if err := s.counters.Reset(ctx, key.String()); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset rate limit")
	}
	ports.LogAudit(ctx, s.logger, s.auditPublisher, "rate_limit_reset",
		"identity", identity,
		"site_id", siteID,
		"endpoint_class", class,
	)
	return nil
}
