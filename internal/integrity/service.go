// Package integrity proves request authenticity and non-replay for the
// write path: per-request HMAC signatures over a canonical message, bound to
// a per-site derived secret, with a shared nonce store closing the replay window.
package integrity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"

	dErrors "eventgate/pkg/domain-errors"
	"eventgate/pkg/requestcontext"
)

// Verification failures, ordered by the checks that produce them.
var (
	ErrHeadersMissing    = dErrors.New(dErrors.CodeBadRequest, "signature, timestamp and nonce headers are required")
	ErrEnvelopeTooOld    = dErrors.New(dErrors.CodeUnauthorized, "Timestamp outside allowed window")
	ErrNonceReused       = dErrors.New(dErrors.CodeUnauthorized, "Nonce already used")
	ErrSignatureMismatch = dErrors.New(dErrors.CodeUnauthorized, "Signature verification failed")
)

const defaultMaxAge = 5 * time.Minute

// NonceStore is the shared check-then-record primitive. AddIfAbsent returns
// true when the key was newly recorded, false when it already existed.
// Implementations must be atomic: two concurrent calls for the same key must
// not both return true. Production uses a distributed store so the guarantee
// holds across instances.
type NonceStore interface {
	AddIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Service signs and verifies request envelopes.
type Service struct {
	baseSecret []byte
	maxAge     time.Duration
	nonces     NonceStore
}

type Option func(*Service)

// WithMaxAge bounds the replay window (and therefore nonce retention).
func WithMaxAge(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

func NewService(baseSecret string, nonces NonceStore, opts ...Option) *Service {
	s := &Service{
		baseSecret: []byte(baseSecret),
		maxAge:     defaultMaxAge,
		nonces:     nonces,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxAge returns the configured replay window.
func (s *Service) MaxAge() time.Duration {
	return s.maxAge
}

// siteKey derives the per-site signing key: HMAC-SHA256(baseSecret, salt).
// A signature minted for one site can never validate for another, even
// though all sites share the base secret.
func (s *Service) siteKey(siteSalt string) []byte {
	mac := hmac.New(sha256.New, s.baseSecret)
	mac.Write([]byte(siteSalt))
	return mac.Sum(nil)
}

func (s *Service) computeSignature(siteID, siteSalt string, timestamp int64, nonce string, payload []byte) string {
	mac := hmac.New(sha256.New, s.siteKey(siteSalt))
	mac.Write(CanonicalMessage(siteID, timestamp, nonce, payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Sign produces a fresh envelope for payload. Used by signing clients, test
// fixtures, and tooling; the server side only verifies.
func (s *Service) Sign(payload []byte, siteID, siteSalt string) *SignedEnvelope {
	now := time.Now().Unix()
	nonce := NewNonce()
	return &SignedEnvelope{
		Signature: s.computeSignature(siteID, siteSalt, now, nonce, payload),
		Timestamp: now,
		Nonce:     nonce,
		Payload:   payload,
	}
}

// Verify checks an envelope end to end: age bound, signature over the
// canonical message, then atomic nonce registration. The nonce is recorded
// only after the signature validates so forged requests cannot poison the
// store; registration and the replay check are one atomic operation, so two
// concurrent verifications of an identical envelope cannot both succeed.
func (s *Service) Verify(ctx context.Context, env *SignedEnvelope, siteID, siteSalt string) error {
	if env == nil || env.Signature == "" || env.Nonce == "" {
		return ErrHeadersMissing
	}

	now := requestcontext.Now(ctx)
	age := now.Sub(time.Unix(env.Timestamp, 0))
	if age > s.maxAge {
		return ErrEnvelopeTooOld
	}

	expected := s.computeSignature(siteID, siteSalt, env.Timestamp, env.Nonce, env.Payload)
	if !constantTimeEqual(env.Signature, expected) {
		return ErrSignatureMismatch
	}

	added, err := s.nonces.AddIfAbsent(ctx, nonceKey(siteID, env.Nonce), s.maxAge)
	if err != nil {
		// Fail closed: an unverifiable replay check must deny the write.
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "nonce store unavailable")
	}
	if !added {
		return ErrNonceReused
	}
	return nil
}

func nonceKey(siteID, nonce string) string {
	return "nonce:" + siteID + ":" + nonce
}

// constantTimeEqual compares two signature strings without leaking where the
// first mismatched byte occurs. Both operands are hashed first so the
// comparison length is fixed regardless of attacker-controlled input length.
func constantTimeEqual(provided, expected string) bool {
	p := sha256.Sum256([]byte(provided))
	e := sha256.Sum256([]byte(expected))
	return hmac.Equal(p[:], e[:])
}
