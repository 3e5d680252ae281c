package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fct/fct/backend/go-services/internal/config"
	"github.com/fct/fct/backend/go-services/internal/house"
	"github.com/fct/fct/backend/go-services/internal/store"
	"github.com/fct/fct/backend/go-services/internal/tokens"
	"github.com/fct/fct/backend/go-services/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App = config.AppConfig{Title: "fct", Version: "0.0.1", APIPrefix: "/api", DocsURL: "/docs", OpenAPIURL: "/openapi.json", AllowedHosts: []string{"*"}}
	cfg.Pagination = config.PaginationConfig{Page: 1, PageSize: 20, MaxPageSize: 100}
	cfg.Auth = config.AuthConfig{SecretKey: "app-test-secret", AccessTokenTTL: time.Minute}
	return cfg
}

func testDeps(checks ...Check) Deps {
	reg := prometheus.NewRegistry()
	metrics.RegisterCollectors(reg)
	return Deps{
		Houses:   house.NewService(store.NewMemoryStore(house.Collection, house.Indexes...)),
		Checks:   checks,
		Gatherer: reg,
		Storage:  "memory",
	}
}

func serve(r *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRouterSurface(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r, err := NewRouter(testConfig(), testDeps())
	require.NoError(t, err)

	w := serve(r, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"message":"api is working"}`, w.Body.String())
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))

	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health", "", "").Code)
	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/docs", "", "").Code)
	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/openapi.json", "", "").Code)

	w = serve(r, http.MethodPost, "/api/v2/house/create", `{"name":"A","width":1,"height":2,"volume":2}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = serve(r, http.MethodGet, "/api/v2/house/", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var page map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Equal(t, 1.0, page["total"])

	w = serve(r, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "fct_http_requests_total")
}

func TestReadiness(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ok := Check{Name: "mongo", Fn: func(context.Context) error { return nil }}
	r, err := NewRouter(testConfig(), testDeps(ok))
	require.NoError(t, err)
	w := serve(r, http.MethodGet, "/ready", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"mongo":"ok"`)

	down := Check{Name: "mongo", Fn: func(context.Context) error { return errors.New("no reachable servers") }}
	r, err = NewRouter(testConfig(), testDeps(down))
	require.NoError(t, err)
	w = serve(r, http.MethodGet, "/ready", "", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Contains(t, w.Body.String(), "no reachable servers")
}

func TestAuthRequired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	cfg.Auth.Required = true

	_, err := NewRouter(cfg, testDeps())
	require.ErrorIs(t, err, ErrNoVerifier)

	ver, err := tokens.NewVerifier(cfg.Auth.SecretKey)
	require.NoError(t, err)
	deps := testDeps()
	deps.Verifier = ver
	r, err := NewRouter(cfg, deps)
	require.NoError(t, err)

	body := `{"name":"A","width":1,"height":2,"volume":2}`
	require.Equal(t, http.StatusForbidden, serve(r, http.MethodPost, "/api/v2/house/create", body, "").Code)

	tok, _, err := tokens.GenerateAccessToken(cfg.Auth, map[string]interface{}{"sub": "tester"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/api/v2/house/create", body, tok).Code)
	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/v2/house/", "", "").Code, "reads stay open")
}

func TestRateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 0.1, Burst: 1}
	r, err := NewRouter(cfg, testDeps())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health", "", "").Code)
	require.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/health", "", "").Code)
}

func TestNewRouterRequiresService(t *testing.T) {
	_, err := NewRouter(testConfig(), Deps{})
	require.Error(t, err)
}
