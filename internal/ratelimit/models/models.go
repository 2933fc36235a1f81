package models

import "time"

// EndpointClass categorizes endpoints for differentiated rate limiting.
type EndpointClass string

const (
	// ClassAPI: general API traffic (100 req/min).
	ClassAPI EndpointClass = "api"
	// ClassTracking: high-volume event ingestion (300 req/min).
	ClassTracking EndpointClass = "tracking"
	// ClassAuth: strict authentication endpoints (10 req/min).
	ClassAuth EndpointClass = "auth"
	// ClassWebhook: outbound webhook delivery callbacks (60 req/min).
	ClassWebhook EndpointClass = "webhook"
)

// IsValid checks if the endpoint class is one of the supported enum values.
func (c EndpointClass) IsValid() bool {
	switch c {
	case ClassAPI, ClassTracking, ClassAuth, ClassWebhook:
		return true
	}
	return false
}

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool      `json:"allowed"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
	// TotalHits counts entries in the current window, this request included.
	TotalHits int `json:"total_hits"`
	// RetryAfter in seconds, only set when not allowed.
	RetryAfter int `json:"retry_after,omitempty"`
}
