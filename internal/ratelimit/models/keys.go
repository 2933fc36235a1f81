package models

import "strings"

// RateLimitKey identifies one sliding window counter: an identity (IP or
// user/API-key ID) optionally scoped to a site.
type RateLimitKey struct {
	Class    EndpointClass
	Identity string
	SiteID   string
}

// String renders the store key: rl:<class>:<identity>[:<site>].
func (k RateLimitKey) String() string {
	parts := []string{"rl", string(k.Class), SanitizeKeySegment(k.Identity)}
	if k.SiteID != "" {
		parts = append(parts, SanitizeKeySegment(k.SiteID))
	}
	return strings.Join(parts, ":")
}

// SanitizeKeySegment escapes delimiter characters in rate limit key segments
// to prevent key collision attacks where user-controlled identifiers containing
// ':' could manipulate adjacent rate limit buckets.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}
