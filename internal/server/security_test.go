package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddlewareRejectsMissingKey(t *testing.T) {
	mw := AuthMiddleware("secret", nil, NewSuspiciousActivityDetector())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/batch", nil)
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareRejectsWrongKey(t *testing.T) {
	mw := AuthMiddleware("secret", nil, NewSuspiciousActivityDetector())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/batch", nil)
	req.Header.Set(HeaderAPIKey, "guess")
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareAcceptsValidKey(t *testing.T) {
	mw := AuthMiddleware("secret", nil, NewSuspiciousActivityDetector())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/batch", nil)
	req.Header.Set(HeaderAPIKey, "secret")
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddlewareAllowsPublicPaths(t *testing.T) {
	mw := AuthMiddleware("secret", nil, NewSuspiciousActivityDetector())

	for _, path := range PublicPaths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		mw(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, "path %s must be public", path)
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	mw := SecurityHeadersMiddleware()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, HeaderValueNoSniff, rec.Header().Get(HeaderContentType))
	assert.Equal(t, HeaderValueSameOrigin, rec.Header().Get(HeaderFrameOptions))
	assert.Equal(t, HeaderValueReferrerStrictOrigin, rec.Header().Get(HeaderReferrerPolicy))
}

func TestRateLimitBlocksFloodingIP(t *testing.T) {
	detector := NewSuspiciousActivityDetector()
	mw := SecurityLoggingMiddleware(nil, detector)

	var lastCode int
	for i := 0; i < 1005; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/queue/stats", nil)
		req.RemoteAddr = "203.0.113.9:4312"
		rec := httptest.NewRecorder()
		mw(okHandler()).ServeHTTP(rec, req)
		lastCode = rec.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, lastCode)
}

func TestExtractIPIgnoresForwardedForFromUntrustedProxy(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:4312"
	req.Header.Set(HeaderForwardedFor, "198.51.100.1")

	assert.Equal(t, "203.0.113.9", extractIP(req, nil))
	assert.Equal(t, "198.51.100.1", extractIP(req, []string{"203.0.113.9"}))
}
