package integrity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SignedEnvelope carries the per-request message authentication data.
// Clients send it as the X-Signature, X-Timestamp and X-Nonce headers plus
// the request body; each envelope is consumed at most once.
type SignedEnvelope struct {
	Signature string
	Timestamp int64 // unix seconds
	Nonce     string
	Payload   []byte
}

// CanonicalMessage builds the exact byte sequence both sides sign:
// site_id:timestamp:nonce:payload. Field order and delimiter are part of the
// wire contract; changing either breaks interoperability with signing clients.
func CanonicalMessage(siteID string, timestamp int64, nonce string, payload []byte) []byte {
	prefix := fmt.Sprintf("%s:%d:%s:", siteID, timestamp, nonce)
	msg := make([]byte, 0, len(prefix)+len(payload))
	msg = append(msg, prefix...)
	return append(msg, payload...)
}

// NewNonce generates a single-use token: a nanosecond prefix keeps values
// roughly ordered for store eviction, the UUID suffix makes collisions within
// the replay window negligible.
func NewNonce() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), uuid.NewString())
}
