// ABOUTME: OAuth discovery documents for MCP clients
// ABOUTME: Serves protected resource metadata and authorization server metadata

package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

// AuthorizationServerPath is where the authorization server metadata is served.
const AuthorizationServerPath = "/.well-known/oauth-authorization-server"

// DiscoveryConfig describes the externally visible OAuth surface.
type DiscoveryConfig struct {
	// Resource is the protected resource identifier, e.g. api://nutrition.
	Resource string
	// ProxyBaseURL is the OAuth proxy acting as authorization server.
	ProxyBaseURL string
	Scopes       []string
}

// ProtectedResourceMetadata is the RFC 9728 document.
type ProtectedResourceMetadata struct {
	Resource               string   `json:"resource"`
	AuthorizationServers   []string `json:"authorization_servers"`
	BearerMethodsSupported []string `json:"bearer_methods_supported"`
	ScopesSupported        []string `json:"scopes_supported"`
}

// AuthorizationServerMetadata is the RFC 8414 document.
type AuthorizationServerMetadata struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	RegistrationEndpoint              string   `json:"registration_endpoint"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
	ScopesSupported                   []string `json:"scopes_supported"`
}

// ProtectedResource builds the protected resource document.
func (c DiscoveryConfig) ProtectedResource() ProtectedResourceMetadata {
	return ProtectedResourceMetadata{
		Resource:               c.Resource,
		AuthorizationServers:   []string{c.proxy()},
		BearerMethodsSupported: []string{"header"},
		ScopesSupported:        c.scopes(),
	}
}

// AuthorizationServer builds the authorization server document.
func (c DiscoveryConfig) AuthorizationServer() AuthorizationServerMetadata {
	proxy := c.proxy()
	return AuthorizationServerMetadata{
		Issuer:                            proxy,
		AuthorizationEndpoint:             proxy + "/authorize",
		TokenEndpoint:                     proxy + "/oauth/token",
		RegistrationEndpoint:              proxy + "/oidc/register",
		ResponseTypesSupported:            []string{"code"},
		GrantTypesSupported:               []string{"authorization_code"},
		TokenEndpointAuthMethodsSupported: []string{"client_secret_post"},
		CodeChallengeMethodsSupported:     []string{"S256"},
		ScopesSupported:                   c.scopes(),
	}
}

func (c DiscoveryConfig) proxy() string {
	return strings.TrimRight(c.ProxyBaseURL, "/")
}

// scopes defaults to openid, profile and {resource}/mcp.access.
func (c DiscoveryConfig) scopes() []string {
	if len(c.Scopes) > 0 {
		return c.Scopes
	}
	return []string{"openid", "profile", c.Resource + "/mcp.access"}
}

// ProtectedResourceHandler serves the protected resource document.
func ProtectedResourceHandler(cfg DiscoveryConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, cfg.ProtectedResource())
	}
}

// AuthorizationServerHandler serves the authorization server document.
func AuthorizationServerHandler(cfg DiscoveryConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, cfg.AuthorizationServer())
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
