// ABOUTME: Tests for HTTP authentication middleware
// ABOUTME: Covers token extraction, rejection challenges and the optional-auth mode

package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureIdentity returns a handler recording the Identity it was called with.
func captureIdentity(got **Identity, called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		*got = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestHTTPAuthMiddleware_ValidToken(t *testing.T) {
	verifier := newTestVerifier(t)
	token, err := verifier.Generate("user-123", []string{"mcp.access"}, time.Hour)
	require.NoError(t, err)

	var got *Identity
	var called bool
	handler := HTTPAuthMiddleware(MiddlewareConfig{Verifier: verifier, Required: true})(captureIdentity(&got, &called))

	req := httptest.NewRequest(http.MethodPost, "/api/mcp", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, called)
	require.NotNil(t, got)
	assert.Equal(t, "user-123", got.Subject)
}

func TestHTTPAuthMiddleware_Rejections(t *testing.T) {
	verifier := newTestVerifier(t)
	expired, err := verifier.Generate("user-123", nil, -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name      string
		header    string
		wantError string
		wantCode  string
	}{
		{"missing header", "", "missing authorization header", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "invalid authorization header format", ""},
		{"empty token", "Bearer ", "empty token", ""},
		{"garbage token", "Bearer not-a-token", "invalid token", "invalid_token"},
		{"expired token", "Bearer " + expired, "token expired", "invalid_token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *Identity
			var called bool
			handler := HTTPAuthMiddleware(MiddlewareConfig{
				Verifier:            verifier,
				Required:            true,
				ResourceMetadataURL: "https://nutrition.test/.well-known/oauth-protected-resource",
			})(captureIdentity(&got, &called))

			req := httptest.NewRequest(http.MethodPost, "/api/mcp", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.False(t, called, "handler must not run")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Header().Get("WWW-Authenticate"),
				`resource_metadata="https://nutrition.test/.well-known/oauth-protected-resource"`)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantError, body["error"])
			assert.Equal(t, tt.wantCode, body["code"])
		})
	}
}

func TestHTTPAuthMiddleware_DerivesMetadataURL(t *testing.T) {
	handler := HTTPAuthMiddleware(MiddlewareConfig{Verifier: newTestVerifier(t), Required: true})(http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "http://internal:3000/api/mcp", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set("X-Forwarded-Host", "nutrition.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, `Bearer resource_metadata="https://nutrition.example.com/.well-known/oauth-protected-resource"`,
		rec.Header().Get("WWW-Authenticate"))
}

func TestHTTPAuthMiddleware_Optional(t *testing.T) {
	verifier := newTestVerifier(t)

	t.Run("anonymous passes through", func(t *testing.T) {
		var got *Identity
		var called bool
		handler := HTTPAuthMiddleware(MiddlewareConfig{Verifier: verifier})(captureIdentity(&got, &called))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.True(t, called)
		assert.Nil(t, got)
	})

	t.Run("dev subject is attached", func(t *testing.T) {
		var got *Identity
		var called bool
		handler := HTTPAuthMiddleware(MiddlewareConfig{Verifier: verifier, DevSubject: "dev"})(captureIdentity(&got, &called))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.NotNil(t, got)
		assert.Equal(t, "dev", got.Subject)
	})

	t.Run("bad token still rejected", func(t *testing.T) {
		var got *Identity
		var called bool
		handler := HTTPAuthMiddleware(MiddlewareConfig{Verifier: verifier, DevSubject: "dev"})(captureIdentity(&got, &called))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireIdentityHTTP(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	handler := RequireIdentityHTTP("https://x.test/meta")(ok)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard/meals", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Missing user identity"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/meals", nil)
	req = req.WithContext(WithIdentity(req.Context(), &Identity{Subject: "alice"}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
