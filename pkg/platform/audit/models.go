// Package audit defines the security audit event model for the ingress gate.
// Events are emitted from domain logic and fanned out to stores and sinks;
// keep the model transport-agnostic.
package audit

import "time"

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategorySecurity covers events relevant to security monitoring and forensics.
	// These feed into SIEM systems and alerting pipelines.
	// Examples: auth failures, replay attempts, cross-site access violations.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational visibility.
	// These can be sampled or aggregated with shorter retention.
	// Examples: admissions, rate limit degradations, routine access patterns.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted when the access gate makes a security-relevant decision.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	SiteID    string        `json:"site_id,omitempty"`
	TenantID  string        `json:"tenant_id,omitempty"`
	Action    string        `json:"action"`
	Decision  string        `json:"decision,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	// RequestID correlates the event with HTTP request logs.
	RequestID string `json:"request_id,omitempty"`
	// ClientIP is stored anonymized; callers must not pass raw addresses.
	ClientIP string `json:"client_ip,omitempty"`
}

// GateEvent names the actions emitted by the access gate.
type GateEvent string

const (
	EventAuthFailed         GateEvent = "auth_failed"
	EventReplayDetected     GateEvent = "replay_detected"
	EventSignatureRejected  GateEvent = "signature_rejected"
	EventSiteScopeViolation GateEvent = "site_scope_violation"
	EventPermissionDenied   GateEvent = "permission_denied"
	EventRateLimitExceeded  GateEvent = "rate_limit_exceeded"
	EventRateLimitDegraded  GateEvent = "rate_limit_degraded"
	EventRequestAdmitted    GateEvent = "request_admitted"
)
