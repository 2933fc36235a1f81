// Package events defines the tracked event model and the sink boundary. The
// analytics pipeline behind the sink is a separate system; the gate's job
// ends once a verified event is handed over.
package events

import (
	"encoding/json"
	"time"
)

// TrackedEvent is one admitted analytics event. The payload is opaque here:
// its schema belongs to the analytics pipeline, not the ingress boundary.
type TrackedEvent struct {
	ID       string          `json:"id"`
	SiteID   string          `json:"site_id"`
	TenantID string          `json:"tenant_id"`
	Payload  json.RawMessage `json:"payload"`
	// ClientIP is anonymized before the event reaches the sink.
	ClientIP   string    `json:"client_ip,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}
