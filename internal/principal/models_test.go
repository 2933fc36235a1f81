package principal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventgate/internal/token"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		name        string
		permissions []string
		perm        string
		want        bool
	}{
		{"direct grant", []string{"read", "write"}, "write", true},
		{"missing", []string{"read"}, "write", false},
		{"wildcard grants everything", []string{token.PermissionAll}, "admin", true},
		{"empty set", nil, "read", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Principal{Permissions: tt.permissions}
			assert.Equal(t, tt.want, p.HasPermission(tt.perm))
		})
	}

	var nilPrincipal *Principal
	assert.False(t, nilPrincipal.HasPermission("read"))
}

func TestCanAccessSite(t *testing.T) {
	p := &Principal{SiteID: "site-1"}

	assert.True(t, p.CanAccessSite("site-1"))
	assert.False(t, p.CanAccessSite("site-2"))
	assert.False(t, p.CanAccessSite(""), "empty target never matches")

	var nilPrincipal *Principal
	assert.False(t, nilPrincipal.CanAccessSite("site-1"))
}

func TestFromClaims(t *testing.T) {
	svc := token.NewService("base-secret", "eventgate")

	signed, err := svc.IssueAccessToken(token.Claims{
		SiteID:      "site-1",
		TenantID:    "tenant-1",
		UserID:      "user-1",
		Permissions: []string{"read"},
	})
	require.NoError(t, err)

	claims, err := svc.VerifyAccessToken(signed)
	require.NoError(t, err)

	p := FromClaims(claims)
	require.NotNil(t, p)
	assert.Equal(t, "site-1", p.SiteID)
	assert.Equal(t, "tenant-1", p.TenantID)
	assert.Equal(t, "user-1", p.UserID)
	assert.False(t, p.IssuedAt.IsZero())
	assert.True(t, p.ExpiresAt.After(p.IssuedAt))

	assert.Nil(t, FromClaims(nil))
}

func TestFromSite(t *testing.T) {
	now := time.Now()
	site := &Site{ID: "site-1", TenantID: "tenant-1", Salt: "salt", Status: StatusActive}

	p := FromSite(site, now)
	require.NotNil(t, p)
	assert.Equal(t, "site-1", p.SiteID)
	assert.Equal(t, "tenant-1", p.TenantID)
	assert.True(t, p.HasPermission(PermissionWrite))
	assert.False(t, p.HasPermission(PermissionRead), "api keys are write-only")
	assert.Equal(t, now, p.IssuedAt)

	assert.Nil(t, FromSite(nil, now))
}
