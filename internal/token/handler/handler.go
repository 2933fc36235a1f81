// Package handler exposes token issuance and refresh over HTTP.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"eventgate/internal/principal"
	"eventgate/internal/token"
	dErrors "eventgate/pkg/domain-errors"
	"eventgate/pkg/platform/httputil"
	"eventgate/pkg/requestcontext"
)

const (
	GrantAPIKey       = "api_key"
	GrantRefreshToken = "refresh_token"
)

type Handler struct {
	tokens     *token.Service
	principals principal.Store
	logger     *slog.Logger
}

func New(tokens *token.Service, principals principal.Store, logger *slog.Logger) *Handler {
	return &Handler{tokens: tokens, principals: principals, logger: logger}
}

// TokenRequest selects a grant. The api_key grant authenticates with the
// X-Api-Key header and mints a pair scoped to the key's site, capped at the
// key's own permission set; the refresh_token grant exchanges a refresh token
// for a fresh pair carrying the same permissions.
type TokenRequest struct {
	GrantType    string   `json:"grant_type"`
	UserID       string   `json:"user_id,omitempty"`
	Permissions  []string `json:"permissions,omitempty"`
	RefreshToken string   `json:"refresh_token,omitempty"`
}

type tokenResponse struct {
	Success      bool   `json:"success"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// HandleIssue serves POST /auth/token.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}

	switch req.GrantType {
	case GrantAPIKey:
		h.issueForAPIKey(w, r, req)
	case GrantRefreshToken:
		h.refresh(w, r, req)
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "unsupported grant_type"))
	}
}

func (h *Handler) issueForAPIKey(w http.ResponseWriter, r *http.Request, req TokenRequest) {
	ctx := r.Context()

	site, err := h.principals.ResolveAPIKey(ctx, r.Header.Get("X-Api-Key"))
	if err != nil {
		h.logger.WarnContext(ctx, "token issuance rejected",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	// A key holder can never mint a token broader than the key itself: the
	// grantable set is exactly what the gate grants the raw key. Tracking
	// keys ship in client-side code, so read access must not be reachable
	// from key possession alone.
	granted := principal.FromSite(site, requestcontext.Now(ctx)).Permissions
	permissions := req.Permissions
	if len(permissions) == 0 {
		permissions = granted
	}
	for _, perm := range permissions {
		if !slices.Contains(granted, perm) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden,
				"api_key grant cannot mint permission "+strconv.Quote(perm)))
			return
		}
	}

	access, err := h.tokens.IssueAccessToken(token.Claims{
		SiteID:      site.ID,
		TenantID:    site.TenantID,
		UserID:      req.UserID,
		Permissions: permissions,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	refresh, err := h.tokens.IssueRefreshToken(req.UserID, site.ID, site.TenantID, permissions...)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, tokenResponse{
		Success:      true,
		AccessToken:  access,
		RefreshToken: refresh,
	})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request, req TokenRequest) {
	ctx := r.Context()

	claims, err := h.tokens.VerifyRefreshToken(req.RefreshToken)
	if err != nil {
		h.logger.WarnContext(ctx, "refresh rejected",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	// The site must still be active at refresh time; revoked or suspended
	// sites keep their outstanding refresh tokens but cannot use them.
	site, err := h.principals.GetSite(ctx, claims.SiteID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !site.Active() {
		httputil.WriteError(w, principal.ErrSiteInactive)
		return
	}

	access, err := h.tokens.IssueAccessToken(token.Claims{
		SiteID:      claims.SiteID,
		TenantID:    claims.TenantID,
		UserID:      claims.UserID,
		Permissions: claims.Permissions,
		SessionID:   claims.SessionID,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	refresh, err := h.tokens.IssueRefreshToken(claims.UserID, claims.SiteID, claims.TenantID, claims.Permissions...)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, tokenResponse{
		Success:      true,
		AccessToken:  access,
		RefreshToken: refresh,
	})
}
