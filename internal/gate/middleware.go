package gate

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"eventgate/internal/integrity"
	"eventgate/internal/ratelimit/models"
	"eventgate/pkg/platform/httputil"
	"eventgate/pkg/requestcontext"
)

// Headers carrying the integrity envelope on write/tracking routes.
const (
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"
	HeaderNonce     = "X-Nonce"
	HeaderAPIKey    = "X-Api-Key"
)

// Policy declares what a route group demands from the gate.
type Policy struct {
	Class               models.EndpointClass
	RequiredPermissions []string
	// VerifyIntegrity enables the envelope check; the request body is read
	// here and restored for the downstream handler.
	VerifyIntegrity bool
	// SiteParam names the chi URL parameter carrying the target site ID.
	// Empty means the route is not site-scoped.
	SiteParam string
}

type denialBody struct {
	Success  bool     `json:"success"`
	Error    string   `json:"error,omitempty"`
	Code     string   `json:"code,omitempty"`
	Required []string `json:"required,omitempty"`
}

// Middleware adapts the gate to chi. It extracts credentials and the
// integrity envelope from the request, runs the pipeline, and either writes
// the denial or forwards the request with the principal on its context.
func (g *Gate) Middleware(policy Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := &Request{
				BearerToken:         bearerToken(r),
				APIKey:              r.Header.Get(HeaderAPIKey),
				RequiredPermissions: policy.RequiredPermissions,
				Class:               policy.Class,
				VerifyIntegrity:     policy.VerifyIntegrity,
			}
			if policy.SiteParam != "" {
				req.TargetSiteID = chi.URLParam(r, policy.SiteParam)
			}

			if policy.VerifyIntegrity {
				envelope, denial := envelopeFromRequest(r)
				if denial != nil {
					writeDenial(w, denial)
					return
				}
				req.Envelope = envelope
			}

			if denial := g.Admit(r.Context(), req); denial != nil {
				writeDenial(w, denial)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), req.Principal)))
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// envelopeFromRequest builds the integrity envelope from headers and body.
// The body is restored so the downstream handler can read it again. A nil
// envelope with a nil denial means the headers were absent or unusable; the
// pipeline turns that into the missing-headers response only after the
// earlier stages ran, so an unauthenticated caller sees the same denial for
// every integrity defect.
func envelopeFromRequest(r *http.Request) (*integrity.SignedEnvelope, *Denial) {
	signature := r.Header.Get(HeaderSignature)
	timestamp := r.Header.Get(HeaderTimestamp)
	nonce := r.Header.Get(HeaderNonce)
	if signature == "" || timestamp == "" || nonce == "" {
		return nil, nil
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return nil, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, deny(http.StatusBadRequest, CodeHMACHeadersMissing, "request body could not be read")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	return &integrity.SignedEnvelope{
		Signature: signature,
		Timestamp: ts,
		Nonce:     nonce,
		Payload:   body,
	}, nil
}

// RateLimitOnly guards pre-authentication endpoints such as token issuance.
// The window is keyed by client IP alone since no principal exists yet; the
// fail-open policy matches the authenticated path.
func (g *Gate) RateLimitOnly(class models.EndpointClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if g.rateDisabled {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			result, err := g.limiter.CheckLimit(ctx, requestcontext.ClientIP(ctx), "", class)
			if err != nil {
				g.metrics.RecordFailOpen()
				g.logger.WarnContext(ctx, "rate limit check degraded, admitting request",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}
			if !result.Allowed {
				writeDenial(w, rateLimitDenial(result))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeDenial(w http.ResponseWriter, d *Denial) {
	for name, value := range d.Headers {
		w.Header().Set(name, value)
	}
	httputil.WriteJSON(w, d.Status, denialBody{
		Error:    d.Reason,
		Code:     d.Code,
		Required: d.RequiredPermissions,
	})
}
