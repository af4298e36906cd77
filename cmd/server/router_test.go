package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certverify/internal/certificate"
	jwttoken "certverify/internal/jwt_token"
	"certverify/internal/platform/metrics"
	"certverify/internal/ratelimit"
	"certverify/internal/verification"
	"certverify/internal/verification/handler"
	"certverify/internal/verification/ports"
	authmw "certverify/pkg/platform/middleware/auth"
	"certverify/pkg/testutil"
)

type stubCache struct{ err error }

func (s stubCache) Health(context.Context) error { return s.err }

const textBody = `{"lines":[{"content":"الاسم: أحمد محمد علي"},{"content":"الجامعة: جامعة القاهرة"}],` +
	`"submitted":{"full_name":"أحمد محمد علي","university":"جامعة القاهرة"}}`

func newTestRouter(t *testing.T, validator authmw.JWTValidator, cache healthChecker) http.Handler {
	t.Helper()
	return newLimitedRouter(t, validator, cache, nil)
}

func newLimitedRouter(t *testing.T, validator authmw.JWTValidator, cache healthChecker, limiter *ratelimit.Middleware) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	svc := verification.NewService(nil, ports.StaticPolicy(certificate.DefaultPolicy()),
		verification.WithLogger(logger))
	return newRouter(routerDeps{
		verification: handler.New(svc, logger, handler.WithUploadDir(t.TempDir())),
		httpMetrics:  metrics.NewWith(reg),
		gatherer:     reg,
		validator:    validator,
		limiter:      limiter,
		cache:        cache,
		logger:       logger,
	})
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name  string
		cache healthChecker
		want  string
	}{
		{"no cache", nil, `"cache":"disabled"`},
		{"cache up", stubCache{}, `"cache":"ok"`},
		{"cache down", stubCache{err: errors.New("connection refused")}, `"cache":"unavailable"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(newTestRouter(t, nil, tt.cache), httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.want)
			assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
		})
	}
}

func TestVerifyTextThroughRouter(t *testing.T) {
	router := newTestRouter(t, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/verify/text", strings.NewReader(textBody))
	req.Header.Set("Content-Type", "application/json")

	rr := serve(router, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"request_id"`)
	assert.Contains(t, rr.Body.String(), `"comparison_details"`)

	metricsBody := serve(router, httptest.NewRequest(http.MethodGet, "/metrics", nil)).Body.String()
	assert.Contains(t, metricsBody, `certverify_http_requests_total{code="200",method="POST",route="/verify/text"} 1`)
}

func TestVerificationRoutesRequireToken(t *testing.T) {
	jwtService := jwttoken.NewJWTService("test-key", jwttoken.Issuer, jwttoken.Audience)
	router := newTestRouter(t, jwttoken.NewJWTServiceAdapter(jwtService), nil)

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/verify/text", strings.NewReader(textBody))
		assert.Equal(t, http.StatusUnauthorized, serve(router, req).Code)
	})

	t.Run("wrong scope", func(t *testing.T) {
		token, err := jwtService.GenerateAccessToken("registrar", "other", time.Minute)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/verify/text", strings.NewReader(textBody))
		req.Header.Set("Authorization", "Bearer "+token)
		assert.Equal(t, http.StatusForbidden, serve(router, req).Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := jwtService.GenerateAccessToken("registrar", authmw.ScopeVerify, time.Minute)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/verify/text", strings.NewReader(textBody))
		req.Header.Set("Authorization", "Bearer "+token)
		assert.Equal(t, http.StatusOK, serve(router, req).Code)
	})

	t.Run("health stays open", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
	})
}

func TestVerificationRoutesAreRateLimited(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limiter := ratelimit.New(ratelimit.NewInMemoryStore(), 1, time.Minute, logger)
	router := newLimitedRouter(t, nil, nil, limiter)

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/verify/text", strings.NewReader(textBody))
		req.RemoteAddr = "192.0.2.10:51000"
		return serve(router, req)
	}

	assert.Equal(t, http.StatusOK, post().Code)
	limited := post()
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))

	for range 3 {
		assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
	}
}

func TestUnknownRoutes(t *testing.T) {
	router := newTestRouter(t, nil, nil)
	status := func(method, path string, want int) func(t *testing.T) func(t *testing.T) {
		return func(t *testing.T) func(t *testing.T) {
			rec := serve(router, httptest.NewRequest(method, path, nil))
			return func(t *testing.T) {
				assert.Equal(t, want, rec.Code)
			}
		}
	}

	testutil.Scenarios(t, "the HTTP router", []testutil.Scenario{
		{
			When: "calling GET /verify",
			Then: "it should respond with method not allowed",
			Act:  status(http.MethodGet, "/verify", http.StatusMethodNotAllowed),
		},
		{
			When: "calling GET /verify/text",
			Then: "it should respond with method not allowed",
			Act:  status(http.MethodGet, "/verify/text", http.StatusMethodNotAllowed),
		},
		{
			When: "calling an unregistered path",
			Then: "it should respond with not found",
			Act:  status(http.MethodPost, "/auth/token", http.StatusNotFound),
		},
	})
}
