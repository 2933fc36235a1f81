// Package principal defines the authenticated identity attached to a request
// and the store that resolves API keys and site records.
package principal

import (
	"time"

	"eventgate/internal/token"
)

// Route permission markers evaluated against a principal's permission set.
const (
	PermissionRead  = "read"
	PermissionWrite = "write"
)

// SiteStatus is the lifecycle state of a site record.
type SiteStatus string

const (
	StatusActive    SiteStatus = "active"
	StatusInactive  SiteStatus = "inactive"
	StatusSuspended SiteStatus = "suspended"
)

// Site is the per-site record backing scoping and integrity checks. The salt
// feeds per-site signing key derivation; status gates admission.
type Site struct {
	ID       string
	TenantID string
	Salt     string
	Status   SiteStatus
}

// Active reports whether the site may receive traffic.
func (s *Site) Active() bool {
	return s != nil && s.Status == StatusActive
}

// Principal is the authenticated identity for one request. Immutable once
// constructed and never persisted.
type Principal struct {
	SiteID      string
	TenantID    string
	UserID      string
	Permissions []string
	SessionID   string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// FromClaims builds a principal from verified token claims.
func FromClaims(c *token.Claims) *Principal {
	if c == nil {
		return nil
	}
	p := &Principal{
		SiteID:      c.SiteID,
		TenantID:    c.TenantID,
		UserID:      c.UserID,
		Permissions: c.Permissions,
		SessionID:   c.SessionID,
	}
	if c.IssuedAt != nil {
		p.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		p.ExpiresAt = c.ExpiresAt.Time
	}
	return p
}

// FromSite builds a machine principal for a site-bound API key. Key-based
// callers only ingest events, so the permission set is write-only.
func FromSite(site *Site, now time.Time) *Principal {
	if site == nil {
		return nil
	}
	return &Principal{
		SiteID:      site.ID,
		TenantID:    site.TenantID,
		Permissions: []string{PermissionWrite},
		IssuedAt:    now,
	}
}

// HasPermission reports whether the principal's set grants perm, either
// directly or through the wildcard marker.
func (p *Principal) HasPermission(perm string) bool {
	if p == nil {
		return false
	}
	for _, granted := range p.Permissions {
		if granted == perm || granted == token.PermissionAll {
			return true
		}
	}
	return false
}

// CanAccessSite reports whether the principal may act on the requested site.
// Exact match only.
func (p *Principal) CanAccessSite(siteID string) bool {
	return p != nil && siteID != "" && p.SiteID == siteID
}
