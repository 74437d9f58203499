// Package gateway assembles the nutrition-gateway server.
//
// # Overview
//
// The gateway owns the SQLite store, the nutrition service, the builtin tool
// packs and the MCP transport, and serves them over a single HTTP server.
//
// # HTTP Surface
//
//   - POST|GET|DELETE {mcp.path} - MCP Streamable HTTP endpoint (bearer auth)
//   - GET /api/dashboard/meals?date= - one day of meals with rounded totals
//   - GET /api/dashboard/metrics?days= - every metric with recent entries
//   - GET /api/dashboard/nutrition-history?days= - daily macro series (max 90 days)
//   - GET /.well-known/oauth-protected-resource - RFC 9728 metadata
//   - GET /.well-known/oauth-authorization-server - RFC 8414 metadata
//   - GET /api - service name and version
//   - GET /health - liveness check
//   - GET /health/ready - readiness check (database reachable)
//
// # Lifecycle
//
//	gw, err := gateway.New(cfg, logger)
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//	err = gw.Run(ctx)
//
// Run binds the listener, then runs the HTTP server and the MCP session
// janitor in an errgroup. When ctx is cancelled or either fails, every MCP
// session is terminated, the HTTP server drains for up to five seconds and
// the store is closed.
package gateway
