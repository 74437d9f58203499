// Package mcp implements the Model Context Protocol server for the nutrition tools.
//
// # Protocol
//
// The server speaks JSON-RPC 2.0 over the Streamable HTTP transport on a
// single endpoint:
//
//   - POST: one JSON-RPC request or notification per body (max 1 MiB)
//   - GET: opens the session's Server-Sent Events push stream
//   - DELETE: terminates the session
//
// Supported methods are initialize, ping, tools/list, tools/call and
// logging/setLevel. Notifications are accepted with HTTP 202.
//
// # Sessions
//
// In stateful mode initialize creates a session whose id is returned in the
// Mcp-Session-Id header and must accompany every later request. A session is
// bound to the subject that created it. Requests on one session run one at a
// time in arrival order; different sessions run in parallel. Each tool result
// is also pushed to the session's stream as a notifications/message.
//
// A session ends on DELETE, when its push stream closes, when it has been idle
// longer than the configured timeout without a push stream open, or on
// shutdown. Teardown happens once.
//
// In stateless mode every POST gets a fresh dispatcher, no session id is
// issued, and GET and DELETE answer 405.
//
// # Authentication
//
// The handler expects an upstream middleware to place the caller's identity
// in the request context (see package auth). Tool calls without an identity
// fail with an internal error.
package mcp
