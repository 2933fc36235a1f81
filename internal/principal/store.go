package principal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	dErrors "eventgate/pkg/domain-errors"
)

// Resolution failures are part of the store contract. The store is a hard
// dependency: an unknown key or an unreachable backend denies the request,
// there is no permissive fallback.
var (
	ErrKeyUnknown   = dErrors.New(dErrors.CodeUnauthorized, "API key not recognized")
	ErrSiteUnknown  = dErrors.New(dErrors.CodeNotFound, "site not found")
	ErrSiteInactive = dErrors.New(dErrors.CodeForbidden, "site is not active")
)

// Store resolves API keys and site records.
type Store interface {
	// ResolveAPIKey maps an opaque API key to its bound site. Unknown keys
	// return ErrKeyUnknown; keys bound to a non-active site return
	// ErrSiteInactive.
	ResolveAPIKey(ctx context.Context, key string) (*Site, error)

	// GetSite fetches a site record by ID, regardless of status. Callers
	// decide whether a non-active site is acceptable for their operation.
	GetSite(ctx context.Context, siteID string) (*Site, error)
}

// Fingerprint returns the hex SHA-256 digest of an API key. Stores persist
// and look up fingerprints so the plaintext key never touches storage.
func Fingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
