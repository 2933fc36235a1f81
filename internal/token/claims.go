package token

import (
	"github.com/golang-jwt/jwt/v5"
)

// PermissionAll is the wildcard marker granting every permission.
const PermissionAll = "*"

// TypeRefresh is the discriminator claim value for refresh tokens, preventing
// a refresh token from being accepted on the access-token path and vice versa.
const TypeRefresh = "refresh"

// Claims is the wire shape of session tokens:
// {sub, iat, exp, iss, site_id, tenant_id, user_id?, permissions[], session_id?}.
type Claims struct {
	SiteID      string   `json:"site_id"`
	TenantID    string   `json:"tenant_id"`
	UserID      string   `json:"user_id,omitempty"`
	Permissions []string `json:"permissions"`
	SessionID   string   `json:"session_id,omitempty"`
	TokenType   string   `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// HasPermission reports whether the claim set grants perm. A set containing
// the wildcard marker grants everything. Pure function over the claims.
func HasPermission(c *Claims, perm string) bool {
	if c == nil {
		return false
	}
	for _, p := range c.Permissions {
		if p == perm || p == PermissionAll {
			return true
		}
	}
	return false
}

// CanAccessSite reports whether the principal may act on the requested site.
// Exact match only: there is no hierarchical or partial site access.
func CanAccessSite(c *Claims, siteID string) bool {
	return c != nil && siteID != "" && c.SiteID == siteID
}
