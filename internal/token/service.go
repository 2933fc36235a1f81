// Package token issues and verifies the signed session tokens that carry
// tenant and site claims through the access gate.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "eventgate/pkg/domain-errors"
)

// Verification failures. Callers branch on these to produce the right
// response code without parsing error strings.
var (
	ErrTokenExpired    = dErrors.New(dErrors.CodeUnauthorized, "token has expired")
	ErrTokenMalformed  = dErrors.New(dErrors.CodeUnauthorized, "token is malformed or has an invalid signature")
	ErrClaimIncomplete = dErrors.New(dErrors.CodeUnauthorized, "token is missing site or tenant claims")
	ErrWrongTokenType  = dErrors.New(dErrors.CodeUnauthorized, "token type is not valid for this operation")
)

const (
	defaultAccessLifetime  = 15 * time.Minute
	defaultRefreshLifetime = 7 * 24 * time.Hour
)

// Service handles session token creation and validation. Stateless: signing
// keys and lifetimes are fixed at construction.
type Service struct {
	signingKey      []byte
	refreshKey      []byte
	issuer          string
	accessLifetime  time.Duration
	refreshLifetime time.Duration
}

type Option func(*Service)

func WithAccessLifetime(d time.Duration) Option {
	return func(s *Service) {
		s.accessLifetime = d
	}
}

func WithRefreshLifetime(d time.Duration) Option {
	return func(s *Service) {
		s.refreshLifetime = d
	}
}

// NewService constructs a token service. The refresh signing key is derived
// from the access key so the two token kinds never validate against each
// other even though operators configure a single secret.
func NewService(signingKey, issuer string, opts ...Option) *Service {
	s := &Service{
		signingKey:      []byte(signingKey),
		refreshKey:      deriveKey([]byte(signingKey), "refresh-token"),
		issuer:          issuer,
		accessLifetime:  defaultAccessLifetime,
		refreshLifetime: defaultRefreshLifetime,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// deriveKey produces a purpose-bound secondary key via HMAC-SHA256.
func deriveKey(base []byte, purpose string) []byte {
	mac := hmac.New(sha256.New, base)
	mac.Write([]byte(purpose))
	return mac.Sum(nil)
}

// IssueAccessToken mints a short-lived access token from the given claims.
// SiteID and TenantID are mandatory; registered claims are filled here.
func (s *Service) IssueAccessToken(claims Claims) (string, error) {
	if claims.SiteID == "" || claims.TenantID == "" {
		return "", ErrClaimIncomplete
	}

	now := time.Now()
	claims.TokenType = ""
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		ExpiresAt: jwt.NewNumericDate(now.Add(s.accessLifetime)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    s.issuer,
		ID:        uuid.NewString(),
	}
	if claims.SessionID == "" {
		claims.SessionID = uuid.NewString()
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

// IssueRefreshToken mints a long-lived refresh token bound to one
// user/site/tenant. Permissions are carried so a refresh exchange can mint an
// access token with the same grants.
func (s *Service) IssueRefreshToken(userID, siteID, tenantID string, permissions ...string) (string, error) {
	if siteID == "" || tenantID == "" {
		return "", ErrClaimIncomplete
	}
	if permissions == nil {
		permissions = []string{}
	}

	now := time.Now()
	claims := Claims{
		SiteID:      siteID,
		TenantID:    tenantID,
		UserID:      userID,
		Permissions: permissions,
		TokenType:   TypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshLifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.refreshKey)
}

// VerifyAccessToken validates signature, expiry, and claim completeness.
func (s *Service) VerifyAccessToken(tokenString string) (*Claims, error) {
	claims, err := s.parse(tokenString, s.signingKey)
	if err != nil {
		return nil, err
	}
	if claims.TokenType == TypeRefresh {
		return nil, ErrWrongTokenType
	}
	if claims.SiteID == "" || claims.TenantID == "" {
		return nil, ErrClaimIncomplete
	}
	return claims, nil
}

// VerifyRefreshToken validates a refresh token, including its type discriminator.
func (s *Service) VerifyRefreshToken(tokenString string) (*Claims, error) {
	claims, err := s.parse(tokenString, s.refreshKey)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TypeRefresh {
		return nil, ErrWrongTokenType
	}
	if claims.SiteID == "" || claims.TenantID == "" {
		return nil, ErrClaimIncomplete
	}
	return claims, nil
}

func (s *Service) parse(tokenString string, key []byte) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return key, nil
	}, jwt.WithIssuer(s.issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}
	if !parsed.Valid {
		return nil, ErrTokenMalformed
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
