// Package handler exposes the event ingestion and listing endpoints behind
// the access gate.
package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"eventgate/internal/events"
	"eventgate/internal/gate"
	dErrors "eventgate/pkg/domain-errors"
	"eventgate/pkg/platform/httputil"
	"eventgate/pkg/platform/privacy"
	"eventgate/pkg/requestcontext"
)

type Handler struct {
	sink   events.Sink
	logger *slog.Logger
}

func New(sink events.Sink, logger *slog.Logger) *Handler {
	return &Handler{sink: sink, logger: logger}
}

// HandleIngest accepts one event for the site in the path. The gate has
// already authenticated, scoped, rate-checked and integrity-verified the
// request; this handler records and acknowledges.
func (h *Handler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body could not be read"))
		return
	}
	if len(body) == 0 || !json.Valid(body) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body must be a JSON document"))
		return
	}

	p := gate.PrincipalFromContext(ctx)
	if p == nil {
		h.logger.ErrorContext(ctx, "principal missing despite gate middleware",
			"request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	event := events.TrackedEvent{
		ID:         uuid.NewString(),
		SiteID:     chi.URLParam(r, "siteID"),
		TenantID:   p.TenantID,
		Payload:    body,
		UserAgent:  requestcontext.UserAgent(ctx),
		ReceivedAt: requestcontext.Now(ctx),
	}
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		event.ClientIP = privacy.AnonymizeIP(ip)
	}

	if err := h.sink.Record(ctx, event); err != nil {
		h.logger.ErrorContext(ctx, "failed to record event",
			"error", err,
			"site_id", event.SiteID,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "event could not be recorded"))
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"id":      event.ID,
	})
}

// HandleList returns the events recorded for the site in the path.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	siteID := chi.URLParam(r, "siteID")

	list, err := h.sink.ListBySite(ctx, siteID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list events",
			"error", err,
			"site_id", siteID,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "events could not be listed"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"events":  list,
	})
}
