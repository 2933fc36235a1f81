package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"eventgate/internal/ratelimit/models"
	"eventgate/internal/ratelimit/service"
	"eventgate/internal/ratelimit/store/counter"
)

// HandlerSuite uses real in-memory stores, not mocks.
type HandlerSuite struct {
	suite.Suite
	router  http.Handler
	limiter *service.Service
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	cfg := &service.Config{Profiles: map[models.EndpointClass]service.Profile{
		models.ClassAPI: {MaxRequests: 2, Window: time.Minute},
	}}
	limiter, err := service.New(counter.NewInMemoryCounterStore(), service.WithConfig(cfg))
	s.Require().NoError(err)
	s.limiter = limiter

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := New(limiter, logger)

	r := chi.NewRouter()
	h.RegisterAdmin(r)
	s.router = r
}

func (s *HandlerSuite) post(body any) *httptest.ResponseRecorder {
	raw, err := json.Marshal(body)
	s.Require().NoError(err)
	req := httptest.NewRequest(http.MethodPost, "/admin/rate-limit/reset", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestReset_InvalidJSON() {
	req := httptest.NewRequest(http.MethodPost, "/admin/rate-limit/reset",
		bytes.NewReader([]byte("not valid json")))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestReset_MissingIdentity() {
	rec := s.post(ResetRequest{Class: "api"})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestReset_InvalidClass() {
	rec := s.post(ResetRequest{Identity: "203.0.113.1", Class: "bogus"})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestReset_ClearsWindow() {
	ctx := context.Background()

	// Exhaust the window first.
	for range 3 {
		_, err := s.limiter.CheckLimit(ctx, "203.0.113.1", "site-1", models.ClassAPI)
		s.Require().NoError(err)
	}
	result, err := s.limiter.CheckLimit(ctx, "203.0.113.1", "site-1", models.ClassAPI)
	s.Require().NoError(err)
	s.Require().False(result.Allowed)

	rec := s.post(ResetRequest{Identity: "203.0.113.1", SiteID: "site-1", Class: "api"})
	s.Require().Equal(http.StatusOK, rec.Code)

	result, err = s.limiter.CheckLimit(ctx, "203.0.113.1", "site-1", models.ClassAPI)
	s.Require().NoError(err)
	s.True(result.Allowed, "reset must clear the counter")
}
