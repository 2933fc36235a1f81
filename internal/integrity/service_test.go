package integrity

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventgate/internal/integrity/store/nonce"
	"eventgate/pkg/requestcontext"
)

const (
	testSecret = "test-base-secret"
	testSite   = "site-1"
	testSalt   = "salt-1"
)

func newTestService(opts ...Option) *Service {
	return NewService(testSecret, nonce.NewInMemoryStore(), opts...)
}

func TestSignAndVerify(t *testing.T) {
	svc := newTestService()
	payload := []byte(`{"test":"data"}`)

	env := svc.Sign(payload, testSite, testSalt)
	require.NotEmpty(t, env.Signature)
	require.NotEmpty(t, env.Nonce)

	err := svc.Verify(context.Background(), env, testSite, testSalt)
	assert.NoError(t, err)
}

func TestVerify_ReplayFailsWithNonceReused(t *testing.T) {
	svc := newTestService()
	env := svc.Sign([]byte(`{"test":"data"}`), testSite, testSalt)

	require.NoError(t, svc.Verify(context.Background(), env, testSite, testSalt))

	// Identical envelope, correct signature: the nonce store must reject it.
	err := svc.Verify(context.Background(), env, testSite, testSalt)
	assert.ErrorIs(t, err, ErrNonceReused)
}

func TestVerify_TooOld(t *testing.T) {
	svc := newTestService()
	env := svc.Sign([]byte("payload"), testSite, testSalt)

	// Pin "now" past the replay window; the signature itself is still valid.
	ctx := requestcontext.WithTime(context.Background(),
		time.Unix(env.Timestamp, 0).Add(svc.MaxAge()+time.Second))

	err := svc.Verify(ctx, env, testSite, testSalt)
	assert.ErrorIs(t, err, ErrEnvelopeTooOld)
}

func TestVerify_SignatureMismatch(t *testing.T) {
	svc := newTestService()

	t.Run("tampered payload", func(t *testing.T) {
		env := svc.Sign([]byte("original"), testSite, testSalt)
		env.Payload = []byte("tampered")
		err := svc.Verify(context.Background(), env, testSite, testSalt)
		assert.ErrorIs(t, err, ErrSignatureMismatch)
	})

	t.Run("wrong length signature does not panic", func(t *testing.T) {
		env := svc.Sign([]byte("payload"), testSite, testSalt)
		env.Signature = "deadbeef"
		err := svc.Verify(context.Background(), env, testSite, testSalt)
		assert.ErrorIs(t, err, ErrSignatureMismatch)
	})

	t.Run("signature from another site rejected", func(t *testing.T) {
		env := svc.Sign([]byte("payload"), "site-2", "salt-2")
		err := svc.Verify(context.Background(), env, testSite, testSalt)
		assert.ErrorIs(t, err, ErrSignatureMismatch)
	})
}

func TestVerify_CrossSiteSaltDerivation(t *testing.T) {
	svc := newTestService()
	env := svc.Sign([]byte("payload"), testSite, testSalt)

	// Same site ID but the wrong salt: per-site key derivation must reject.
	err := svc.Verify(context.Background(), env, testSite, "other-salt")
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestVerify_MissingFields(t *testing.T) {
	svc := newTestService()

	assert.ErrorIs(t, svc.Verify(context.Background(), nil, testSite, testSalt), ErrHeadersMissing)
	assert.ErrorIs(t, svc.Verify(context.Background(),
		&SignedEnvelope{Timestamp: time.Now().Unix()}, testSite, testSalt), ErrHeadersMissing)
}

func TestVerify_RejectedSignatureDoesNotConsumeNonce(t *testing.T) {
	svc := newTestService()
	env := svc.Sign([]byte("payload"), testSite, testSalt)

	forged := *env
	forged.Signature = "0000"
	require.ErrorIs(t, svc.Verify(context.Background(), &forged, testSite, testSalt), ErrSignatureMismatch)

	// The forged attempt must not have burned the nonce for the real client.
	assert.NoError(t, svc.Verify(context.Background(), env, testSite, testSalt))
}

// TestVerify_ConcurrentIdenticalEnvelopes is the check-then-record atomicity
// property: two concurrent verifications of one envelope must not both succeed.
func TestVerify_ConcurrentIdenticalEnvelopes(t *testing.T) {
	svc := newTestService()
	env := svc.Sign([]byte("payload"), testSite, testSalt)

	const goroutines = 16
	var successes atomic.Int32
	var wg sync.WaitGroup

	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.Verify(context.Background(), env, testSite, testSalt); err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load(), "exactly one concurrent verification may succeed")
}

func TestCanonicalMessage(t *testing.T) {
	msg := CanonicalMessage("s1", 1700000000, "n1", []byte("body"))
	assert.Equal(t, "s1:1700000000:n1:body", string(msg))
}

func TestNewNonce_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for range 1000 {
		n := NewNonce()
		_, dup := seen[n]
		require.False(t, dup, "nonce collision: %s", n)
		seen[n] = struct{}{}
	}
}
