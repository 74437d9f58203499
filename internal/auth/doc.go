// Package auth provides bearer token authentication for nutrition-gateway.
//
// # Tokens
//
// Callers present HS256 JWTs signed with the configured jwt_secret. The "sub"
// claim becomes the Identity subject that owns every food, template, log
// entry and metric. Scopes are read from "scp" (string or array) or "scope".
// Issuer and audience are checked when configured.
//
//	verifier, err := auth.NewJWTVerifier(secret, auth.WithIssuer(iss))
//	token, err := verifier.Generate("alice", nil, 24*time.Hour)
//	id, err := verifier.Verify(token)
//
// # HTTP Middleware
//
// HTTPAuthMiddleware verifies the Authorization header and stores the Identity
// with WithIdentity. Handlers read it back with FromContext. Failed requests
// get 401 with a WWW-Authenticate challenge pointing at the protected
// resource metadata, so MCP clients can discover the authorization server.
//
// With require_auth disabled, requests without a token pass through,
// optionally as a fixed development subject.
//
// # Discovery
//
// ProtectedResourceHandler and AuthorizationServerHandler serve the
// .well-known documents that advertise the OAuth proxy.
package auth
