package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"eventgate/internal/events"
	"eventgate/internal/gate"
	"eventgate/internal/principal"
	"eventgate/pkg/requestcontext"
)

type HandlerSuite struct {
	suite.Suite
	sink   *events.MemorySink
	router chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.sink = events.NewMemorySink()
	h := New(s.sink, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	// The gate normally attaches the principal; tests inject it directly.
	s.router = chi.NewRouter()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := gate.WithPrincipal(r.Context(), &principal.Principal{
				SiteID:      "site-1",
				TenantID:    "tenant-1",
				Permissions: []string{principal.PermissionWrite},
			})
			ctx = requestcontext.WithClientIP(ctx, "203.0.113.42")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	s.router.Post("/sites/{siteID}/events", h.HandleIngest)
	s.router.Get("/sites/{siteID}/events", h.HandleList)
}

func (s *HandlerSuite) TestIngest() {
	req := httptest.NewRequest(http.MethodPost, "/sites/site-1/events",
		bytes.NewReader([]byte(`{"name":"pageview","path":"/pricing"}`)))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Require().Equal(http.StatusCreated, rec.Code)

	var body map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal(true, body["success"])
	s.NotEmpty(body["id"])

	recorded, err := s.sink.ListBySite(context.Background(), "site-1")
	s.Require().NoError(err)
	s.Require().Len(recorded, 1)
	s.Equal("tenant-1", recorded[0].TenantID)
	s.Equal("203.0.x.x", recorded[0].ClientIP, "sink must only see anonymized addresses")
	s.JSONEq(`{"name":"pageview","path":"/pricing"}`, string(recorded[0].Payload))
}

func (s *HandlerSuite) TestIngest_RejectsNonJSON() {
	req := httptest.NewRequest(http.MethodPost, "/sites/site-1/events",
		bytes.NewReader([]byte("name=pageview")))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestIngest_RejectsEmptyBody() {
	req := httptest.NewRequest(http.MethodPost, "/sites/site-1/events", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestList() {
	s.Require().NoError(s.sink.Record(context.Background(), events.TrackedEvent{
		ID: "evt-1", SiteID: "site-1", TenantID: "tenant-1", Payload: []byte(`{}`),
	}))

	req := httptest.NewRequest(http.MethodGet, "/sites/site-1/events", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Require().Equal(http.StatusOK, rec.Code)

	var body struct {
		Success bool                  `json:"success"`
		Events  []events.TrackedEvent `json:"events"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.True(body.Success)
	s.Require().Len(body.Events, 1)
	s.Equal("evt-1", body.Events[0].ID)
}

func (s *HandlerSuite) TestList_EmptySite() {
	req := httptest.NewRequest(http.MethodGet, "/sites/site-404/events", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Require().Equal(http.StatusOK, rec.Code)

	var body struct {
		Events []events.TrackedEvent `json:"events"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Empty(body.Events)
}
