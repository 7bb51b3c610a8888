package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/property-portfolio/internal/config"
	"github.com/property-portfolio/internal/logging"
	"github.com/property-portfolio/internal/service"
	"github.com/property-portfolio/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

// testConfig returns settings for handler tests.
func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         "0",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			IdleTimeout:  5 * time.Second,
		},
		Security: config.SecurityConfig{
			AllowedHosts:       []string{"*"},
			CORSAllowedOrigins: []string{"http://localhost:3000"},
		},
		Pagination: config.PaginationConfig{PageSize: 10, MaxPageSize: 100},
	}
}

type testServer struct {
	*Server
	store *testutil.MemoryStore
}

// createTestServer wires the real router to in-memory repositories.
func createTestServer(t *testing.T, cfg *config.Config, throttle Throttle) *testServer {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}

	logger := logging.NewLogger(logging.LevelError, logging.FormatJSON)
	logger.SetOutput(io.Discard)

	store := testutil.NewMemoryStore()
	server := NewServer(
		cfg,
		service.NewPortfolioService(store.Portfolios()),
		service.NewPropertyService(store.Properties(), store.Portfolios()),
		stubPinger{},
		throttle,
		logger,
	)
	return &testServer{Server: server, store: store}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	envelope, ok := decodeBody(t, w)["error"].(map[string]interface{})
	require.True(t, ok, "no error envelope in %s", w.Body.String())
	code, _ := envelope["code"].(string)
	return code
}

func TestHealth(t *testing.T) {
	server := createTestServer(t, nil, nil)

	w := server.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decodeBody(t, w)["status"])

	server.health = stubPinger{err: errors.New("connection refused")}
	w = server.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unreachable", decodeBody(t, w)["database"])
}

func TestRouting_TrailingSlashOptional(t *testing.T) {
	server := createTestServer(t, nil, nil)

	for _, path := range []string{"/api/portfolios", "/api/portfolios/", "/api/properties", "/api/properties/"} {
		w := server.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestRouting_UnknownRouteAndMethod(t *testing.T) {
	server := createTestServer(t, nil, nil)

	w := server.do(t, http.MethodGet, "/api/buildings/", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, w))

	w = server.do(t, http.MethodGet, "/api/properties/abc/", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = server.do(t, http.MethodDelete, "/api/properties/", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "METHOD_NOT_ALLOWED", errorCode(t, w))
}

func TestAllowedHosts(t *testing.T) {
	cfg := testConfig()
	cfg.Security.AllowedHosts = []string{"api.example.org", ".internal.test"}
	server := createTestServer(t, cfg, nil)

	tests := []struct {
		host     string
		expected int
	}{
		{host: "api.example.org", expected: http.StatusOK},
		{host: "api.example.org:8000", expected: http.StatusOK},
		{host: "internal.test", expected: http.StatusOK},
		{host: "svc.internal.test", expected: http.StatusOK},
		{host: "evil.example.org", expected: http.StatusBadRequest},
		{host: "notinternal.test", expected: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/portfolios/", nil)
			req.Host = tt.host
			w := httptest.NewRecorder()
			server.router.ServeHTTP(w, req)

			assert.Equal(t, tt.expected, w.Code)
			if tt.expected == http.StatusBadRequest {
				assert.Equal(t, "DISALLOWED_HOST", errorCode(t, w))
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	server := createTestServer(t, nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/properties/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	assert.Less(t, w.Code, 300)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/properties/", nil)
	req.Header.Set("Origin", "http://evil.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	w = httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDHeader(t *testing.T) {
	server := createTestServer(t, nil, nil)

	w := server.do(t, http.MethodGet, "/api/portfolios/", "")
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/api/portfolios/", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w = httptest.NewRecorder()
	server.router.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestClientIP(t *testing.T) {
	direct, err := NewClientIPResolver(nil)
	require.NoError(t, err)
	proxied, err := NewClientIPResolver([]string{"10.0.0.0/8", "192.168.1.10"})
	require.NoError(t, err)

	tests := []struct {
		name      string
		resolver  *ClientIPResolver
		remote    string
		forwarded string
		expected  string
	}{
		{name: "remote addr", resolver: direct, remote: "10.0.0.7:5123", expected: "10.0.0.7"},
		{name: "forwarded ignored without trusted proxies", resolver: direct, remote: "198.51.100.4:5123", forwarded: "203.0.113.9", expected: "198.51.100.4"},
		{name: "forwarded ignored from untrusted peer", resolver: proxied, remote: "198.51.100.4:5123", forwarded: "203.0.113.9", expected: "198.51.100.4"},
		{name: "trusted proxy", resolver: proxied, remote: "10.0.0.7:5123", forwarded: "203.0.113.9", expected: "203.0.113.9"},
		{name: "spoofed hop before real client", resolver: proxied, remote: "10.0.0.7:5123", forwarded: "1.2.3.4, 203.0.113.9, 192.168.1.10", expected: "203.0.113.9"},
		{name: "all hops trusted", resolver: proxied, remote: "10.0.0.7:5123", forwarded: "10.1.1.1, 192.168.1.10", expected: "10.1.1.1"},
		{name: "garbage hop", resolver: proxied, remote: "10.0.0.7:5123", forwarded: "not-an-ip", expected: "10.0.0.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.expected, tt.resolver.ClientIP(req))
		})
	}
}

func TestNewClientIPResolver_Invalid(t *testing.T) {
	_, err := NewClientIPResolver([]string{"10.0.0.0/33"})
	assert.Error(t, err)
	_, err = NewClientIPResolver([]string{"proxy.local"})
	assert.Error(t, err)
}
