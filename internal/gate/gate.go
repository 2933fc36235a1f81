// Package gate composes authentication, site scoping, permission checks,
// rate limiting and integrity verification into one admission decision.
// Each stage is an independent function; the pipeline short-circuits on the
// first denial, and nothing past the gate sees an unverified request.
package gate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"eventgate/internal/gate/metrics"
	"eventgate/internal/integrity"
	"eventgate/internal/principal"
	"eventgate/internal/ratelimit/models"
	ratelimit "eventgate/internal/ratelimit/service"
	"eventgate/internal/token"
	"eventgate/pkg/platform/audit"
	"eventgate/pkg/platform/privacy"
	"eventgate/pkg/requestcontext"
)

// Denial codes returned to clients. Stable wire contract.
const (
	CodeAuthRequired       = "AUTH_REQUIRED"
	CodeAuthInvalid        = "AUTH_INVALID"
	CodeHMACHeadersMissing = "HMAC_HEADERS_MISSING"
	CodeHMACInvalid        = "HMAC_INVALID"
	CodeSiteAccessDenied   = "SITE_ACCESS_DENIED"
	CodePermissionDenied   = "PERMISSION_DENIED"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeUnavailable        = "SERVICE_UNAVAILABLE"
)

// Pipeline stage names, used in metrics and traces.
const (
	StageAuthenticated     = "authenticated"
	StageSiteScoped        = "site_scoped"
	StagePermissionChecked = "permission_checked"
	StageRateChecked       = "rate_checked"
	StageIntegrityVerified = "integrity_verified"
)

var tracer = otel.Tracer("eventgate/internal/gate")

// Request carries everything the pipeline needs for one admission decision.
// The transport adapter fills the inputs; stages fill Principal and Site as
// they resolve them.
type Request struct {
	// TargetSiteID is the site the request claims to act on, from the route.
	// Empty when the route is not site-scoped.
	TargetSiteID string

	BearerToken string
	APIKey      string

	// RequiredPermissions must all be granted for the request to pass.
	RequiredPermissions []string

	// Class selects the rate limit profile.
	Class models.EndpointClass

	// VerifyIntegrity enables the envelope check for write/tracking routes.
	VerifyIntegrity bool
	// Envelope is nil when any integrity header was absent.
	Envelope *integrity.SignedEnvelope

	Principal *principal.Principal
	Site      *principal.Site
}

// Denial is the terminal result of a rejected request. The zero value is not
// meaningful; stages construct denials with a status, code and reason.
type Denial struct {
	Status int
	Code   string
	Reason string
	// RequiredPermissions is disclosed on permission denials only.
	RequiredPermissions []string
	// Headers carries response headers such as Retry-After.
	Headers map[string]string
}

// Stage inspects the request and either passes it on (nil) or rejects it.
type Stage func(ctx context.Context, req *Request) *Denial

// AuditPublisher receives security and operational audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Gate runs the admission pipeline.
type Gate struct {
	tokens     *token.Service
	principals principal.Store
	integrity  *integrity.Service
	limiter    *ratelimit.Service

	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   AuditPublisher

	rateDisabled bool
}

type Option func(*Gate)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) {
		g.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(g *Gate) {
		g.audit = publisher
	}
}

// WithRateLimitDisabled skips the rate stage entirely. Operational escape
// hatch; every other stage still runs.
func WithRateLimitDisabled(disabled bool) Option {
	return func(g *Gate) {
		g.rateDisabled = disabled
	}
}

func New(tokens *token.Service, principals principal.Store, integritySvc *integrity.Service, limiter *ratelimit.Service, opts ...Option) (*Gate, error) {
	if tokens == nil || principals == nil || integritySvc == nil || limiter == nil {
		return nil, errors.New("token service, principal store, integrity service and rate limiter are required")
	}

	g := &Gate{
		tokens:     tokens,
		principals: principals,
		integrity:  integritySvc,
		limiter:    limiter,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// pipeline returns the ordered stages for this request. The order is part of
// the contract: an unauthenticated caller must never learn whether a site
// exists, and integrity runs last so nonces are only burned for requests that
// passed every other check.
func (g *Gate) pipeline(req *Request) []namedStage {
	stages := []namedStage{
		{StageAuthenticated, g.authenticate},
		{StageSiteScoped, g.siteScope},
		{StagePermissionChecked, g.checkPermissions},
	}
	if !g.rateDisabled {
		stages = append(stages, namedStage{StageRateChecked, g.checkRate})
	}
	if req.VerifyIntegrity {
		stages = append(stages, namedStage{StageIntegrityVerified, g.verifyIntegrity})
	}
	return stages
}

type namedStage struct {
	name string
	run  Stage
}

// Admit runs the pipeline. A nil return means the request is admitted and
// req.Principal is populated.
func (g *Gate) Admit(ctx context.Context, req *Request) *Denial {
	ctx, span := tracer.Start(ctx, "gate.Admit", trace.WithAttributes(
		attribute.String("gate.target_site", req.TargetSiteID),
		attribute.String("gate.class", string(req.Class)),
	))
	defer span.End()

	for _, stage := range g.pipeline(req) {
		if denial := stage.run(ctx, req); denial != nil {
			span.SetAttributes(
				attribute.String("gate.denied_stage", stage.name),
				attribute.String("gate.denial_code", denial.Code),
			)
			g.metrics.RecordDecision(stage.name, "denied")
			g.logger.InfoContext(ctx, "request denied",
				"stage", stage.name,
				"code", denial.Code,
				"reason", denial.Reason,
				"site_id", req.TargetSiteID,
				"request_id", requestcontext.RequestID(ctx),
			)
			return denial
		}
		g.metrics.RecordDecision(stage.name, "passed")
	}

	span.SetAttributes(attribute.Bool("gate.admitted", true))
	g.emit(ctx, audit.CategoryOperations, audit.EventRequestAdmitted, req, "admitted", "")
	return nil
}

// emit publishes an audit event, filling request correlation fields. Client
// addresses are anonymized before they leave the gate.
func (g *Gate) emit(ctx context.Context, category audit.EventCategory, action audit.GateEvent, req *Request, decision, reason string) {
	if g.audit == nil {
		return
	}

	event := audit.Event{
		Category:  category,
		Action:    string(action),
		Decision:  decision,
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	}
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		event.ClientIP = privacy.AnonymizeIP(ip)
	}
	if req.Principal != nil {
		event.SiteID = req.Principal.SiteID
		event.TenantID = req.Principal.TenantID
	} else {
		event.SiteID = req.TargetSiteID
	}

	if err := g.audit.Emit(ctx, event); err != nil {
		g.logger.WarnContext(ctx, "failed to emit audit event", "action", action, "error", err)
	}
}

func deny(status int, code, reason string) *Denial {
	return &Denial{Status: status, Code: code, Reason: reason}
}

func denyUnavailable(reason string) *Denial {
	return deny(http.StatusServiceUnavailable, CodeUnavailable, reason)
}
