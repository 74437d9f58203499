// ABOUTME: HTTP middleware for bearer token authentication
// ABOUTME: Verifies the Authorization header and attaches the caller's Identity to the context

package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// ProtectedResourcePath is where the protected resource metadata is served.
const ProtectedResourcePath = "/.well-known/oauth-protected-resource"

// MiddlewareConfig configures HTTPAuthMiddleware.
type MiddlewareConfig struct {
	Verifier TokenVerifier
	// Required rejects requests without a bearer token. When false such
	// requests continue, as DevSubject if set, otherwise anonymously.
	Required   bool
	DevSubject string
	// ResourceMetadataURL is advertised in WWW-Authenticate on 401. When
	// empty it is derived from the request host.
	ResourceMetadataURL string
	Logger              *slog.Logger
}

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", "invalid authorization header format"
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// HTTPAuthMiddleware creates an HTTP middleware that extracts and validates
// bearer tokens. A presented token that fails verification is always rejected.
func HTTPAuthMiddleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
			if errMsg != "" {
				if r.Header.Get("Authorization") == "" && !cfg.Required {
					if cfg.DevSubject != "" {
						r = r.WithContext(WithIdentity(r.Context(), &Identity{Subject: cfg.DevSubject}))
					}
					next.ServeHTTP(w, r)
					return
				}
				writeUnauthorized(w, r, cfg.ResourceMetadataURL, "", errMsg)
				return
			}

			id, err := cfg.Verifier.Verify(token)
			if err != nil {
				logger.Debug("bearer token rejected", "path", r.URL.Path, "error", err)
				msg := "invalid token"
				if errors.Is(err, ErrExpiredToken) {
					msg = "token expired"
				}
				writeUnauthorized(w, r, cfg.ResourceMetadataURL, "invalid_token", msg)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireIdentityHTTP rejects requests that reached it without an Identity.
// Must be used after HTTPAuthMiddleware.
func RequireIdentityHTTP(resourceMetadataURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if FromContext(r.Context()) == nil {
				writeUnauthorized(w, r, resourceMetadataURL, "", "Missing user identity")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, metadataURL, code, msg string) {
	if metadataURL == "" {
		metadataURL = requestBaseURL(r) + ProtectedResourcePath
	}
	challenge := fmt.Sprintf(`Bearer resource_metadata=%q`, metadataURL)
	if code != "" {
		challenge = fmt.Sprintf(`Bearer error=%q, error_description=%q, resource_metadata=%q`, code, msg, metadataURL)
	}
	w.Header().Set("WWW-Authenticate", challenge)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)

	body := map[string]string{"error": msg}
	if code != "" {
		body["code"] = code
	}
	_ = json.NewEncoder(w).Encode(body)
}

// requestBaseURL reconstructs the externally visible origin of r, honouring
// X-Forwarded-Proto and X-Forwarded-Host from a fronting proxy.
func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = fwd
	}
	return scheme + "://" + host
}
