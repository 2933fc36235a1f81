// Package handler exposes administrative rate limit operations over HTTP.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"eventgate/internal/ratelimit/models"
	"eventgate/internal/ratelimit/service"
	dErrors "eventgate/pkg/domain-errors"
	"eventgate/pkg/platform/httputil"
)

type Handler struct {
	limiter *service.Service
	logger  *slog.Logger
}

func New(limiter *service.Service, logger *slog.Logger) *Handler {
	return &Handler{limiter: limiter, logger: logger}
}

// RegisterAdmin mounts the admin routes. Callers wrap the router with the
// admin token middleware; the handler itself only does HTTP concerns.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/rate-limit/reset", h.HandleReset)
}

// ResetRequest identifies the counter to clear.
type ResetRequest struct {
	Identity string `json:"identity"`
	SiteID   string `json:"site_id,omitempty"`
	Class    string `json:"class"`
}

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}
	if req.Identity == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "identity is required"))
		return
	}
	class := models.EndpointClass(req.Class)
	if !class.IsValid() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid endpoint class"))
		return
	}

	if err := h.limiter.ResetLimit(r.Context(), req.Identity, req.SiteID, class); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to reset rate limit", "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
