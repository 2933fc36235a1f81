package gate

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"eventgate/internal/integrity"
	"eventgate/internal/principal"
	"eventgate/internal/ratelimit/models"
	dErrors "eventgate/pkg/domain-errors"
	"eventgate/pkg/platform/audit"
	"eventgate/pkg/requestcontext"
)

// authenticate resolves a principal from the bearer token or the API key.
// Token failures never reveal which check rejected the credential beyond the
// coded reason; a request with neither credential is told only that one is
// required.
func (g *Gate) authenticate(ctx context.Context, req *Request) *Denial {
	switch {
	case req.BearerToken != "":
		claims, err := g.tokens.VerifyAccessToken(req.BearerToken)
		if err != nil {
			g.emit(ctx, audit.CategorySecurity, audit.EventAuthFailed, req, "denied", dErrors.MessageOf(err))
			return deny(http.StatusUnauthorized, CodeAuthInvalid, dErrors.MessageOf(err))
		}
		req.Principal = principal.FromClaims(claims)
		return nil

	case req.APIKey != "":
		site, err := g.principals.ResolveAPIKey(ctx, req.APIKey)
		if err != nil {
			return g.denyAPIKey(ctx, req, err)
		}
		req.Site = site
		req.Principal = principal.FromSite(site, requestcontext.Now(ctx))
		return nil

	default:
		return deny(http.StatusUnauthorized, CodeAuthRequired, "authentication is required")
	}
}

func (g *Gate) denyAPIKey(ctx context.Context, req *Request, err error) *Denial {
	switch {
	case errors.Is(err, principal.ErrKeyUnknown):
		g.emit(ctx, audit.CategorySecurity, audit.EventAuthFailed, req, "denied", "api key not recognized")
		return deny(http.StatusUnauthorized, CodeAuthInvalid, "API key not recognized")
	case errors.Is(err, principal.ErrSiteInactive):
		g.emit(ctx, audit.CategorySecurity, audit.EventAuthFailed, req, "denied", "site not active")
		return deny(http.StatusForbidden, CodeSiteAccessDenied, "Access to this site is not allowed")
	default:
		// Store outage. Admitting an unauthenticated caller is worse than
		// unavailability, so this path fails closed.
		g.logger.ErrorContext(ctx, "principal store unavailable", "error", err)
		return denyUnavailable("authentication is temporarily unavailable")
	}
}

// siteScope rejects principals acting outside their own site. The response
// is identical whether the target site exists or not.
func (g *Gate) siteScope(ctx context.Context, req *Request) *Denial {
	if req.TargetSiteID == "" {
		return nil
	}
	if !req.Principal.CanAccessSite(req.TargetSiteID) {
		g.emit(ctx, audit.CategorySecurity, audit.EventSiteScopeViolation, req, "denied",
			"principal site does not match target site")
		return deny(http.StatusForbidden, CodeSiteAccessDenied, "Access to this site is not allowed")
	}
	return nil
}

// checkPermissions requires every permission the route declares. The required
// set is disclosed in the denial; it describes the route, not the caller.
func (g *Gate) checkPermissions(ctx context.Context, req *Request) *Denial {
	for _, perm := range req.RequiredPermissions {
		if !req.Principal.HasPermission(perm) {
			g.emit(ctx, audit.CategorySecurity, audit.EventPermissionDenied, req, "denied", "missing permission "+perm)
			denial := deny(http.StatusForbidden, CodePermissionDenied, "insufficient permissions")
			denial.RequiredPermissions = req.RequiredPermissions
			return denial
		}
	}
	return nil
}

// checkRate enforces the class profile for (identity, site). A store outage
// degrades to admit-and-log: rate limiting is protection, not correctness.
func (g *Gate) checkRate(ctx context.Context, req *Request) *Denial {
	identity := req.Principal.UserID
	if identity == "" {
		identity = requestcontext.ClientIP(ctx)
	}

	result, err := g.limiter.CheckLimit(ctx, identity, req.Principal.SiteID, req.Class)
	if err != nil {
		g.metrics.RecordFailOpen()
		g.logger.WarnContext(ctx, "rate limit check degraded, admitting request",
			"error", err,
			"site_id", req.Principal.SiteID,
			"request_id", requestcontext.RequestID(ctx),
		)
		g.emit(ctx, audit.CategoryOperations, audit.EventRateLimitDegraded, req, "admitted", "counter store unreachable")
		return nil
	}

	if !result.Allowed {
		g.emit(ctx, audit.CategorySecurity, audit.EventRateLimitExceeded, req, "denied", "quota exceeded")
		return rateLimitDenial(result)
	}
	return nil
}

func rateLimitDenial(result *models.RateLimitResult) *Denial {
	denial := deny(http.StatusTooManyRequests, CodeRateLimitExceeded, "Rate limit exceeded")
	denial.Headers = map[string]string{
		"Retry-After":           strconv.Itoa(result.RetryAfter),
		"X-RateLimit-Limit":     strconv.Itoa(result.Limit),
		"X-RateLimit-Remaining": strconv.Itoa(result.Remaining),
		"X-RateLimit-Reset":     strconv.FormatInt(result.ResetAt.Unix(), 10),
	}
	return denial
}

// verifyIntegrity checks the signed envelope against the site's salt. Runs
// last so nonces are only burned for otherwise-admissible requests. All
// failures here are terminal; the write path never degrades.
func (g *Gate) verifyIntegrity(ctx context.Context, req *Request) *Denial {
	if req.Envelope == nil {
		return deny(http.StatusBadRequest, CodeHMACHeadersMissing, "signature, timestamp and nonce headers are required")
	}

	site := req.Site
	if site == nil {
		resolved, err := g.principals.GetSite(ctx, req.Principal.SiteID)
		if err != nil {
			if errors.Is(err, principal.ErrSiteUnknown) {
				return deny(http.StatusForbidden, CodeSiteAccessDenied, "Access to this site is not allowed")
			}
			g.logger.ErrorContext(ctx, "site lookup unavailable", "error", err)
			return denyUnavailable("integrity verification is temporarily unavailable")
		}
		site = resolved
		req.Site = site
	}
	if !site.Active() {
		return deny(http.StatusForbidden, CodeSiteAccessDenied, "Access to this site is not allowed")
	}

	err := g.integrity.Verify(ctx, req.Envelope, site.ID, site.Salt)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, integrity.ErrHeadersMissing):
		return deny(http.StatusBadRequest, CodeHMACHeadersMissing, dErrors.MessageOf(err))
	case errors.Is(err, integrity.ErrNonceReused):
		g.emit(ctx, audit.CategorySecurity, audit.EventReplayDetected, req, "denied", dErrors.MessageOf(err))
		return deny(http.StatusUnauthorized, CodeHMACInvalid, dErrors.MessageOf(err))
	case errors.Is(err, integrity.ErrEnvelopeTooOld):
		return deny(http.StatusUnauthorized, CodeHMACInvalid, dErrors.MessageOf(err))
	case errors.Is(err, integrity.ErrSignatureMismatch):
		g.emit(ctx, audit.CategorySecurity, audit.EventSignatureRejected, req, "denied", dErrors.MessageOf(err))
		return deny(http.StatusUnauthorized, CodeHMACInvalid, dErrors.MessageOf(err))
	default:
		// Nonce store outage. Fail closed: an unverifiable write is denied.
		g.logger.ErrorContext(ctx, "integrity verification unavailable", "error", err)
		return denyUnavailable("integrity verification is temporarily unavailable")
	}
}
