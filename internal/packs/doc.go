// Package packs provides the tool dispatch layer behind the MCP endpoint.
//
// # Overview
//
// Tools are grouped into built-in packs that execute in the gateway process.
// Each tool carries a typed argument Schema, rendered as JSON Schema by
// tools/list and enforced before the handler runs.
//
// # Architecture
//
//   - Registry: Tracks registered packs and their tools, in registration order
//   - Router: Validates, resolves the caller and invokes the handler
//   - Built-in packs: Nutrition tools (see internal/builtins)
//
// # Tool Routing
//
// When a client calls a tool, the router:
//
//  1. Looks up the tool by name in the registry
//  2. Validates the arguments against the tool's Schema
//  3. Reads the caller's identity from the context (see internal/auth)
//  4. Runs the handler with a timeout
//  5. Wraps the text output in a CallResult
//
// # Errors
//
// Handlers return a *ToolError for failures the caller can fix:
//
//	KindValidation - malformed or inconsistent arguments
//	KindNotFound   - a named entity does not exist
//	KindConflict   - a uniqueness rule would be violated
//
// These become results with isError set. ErrNoIdentity and every other error
// abort the call and surface as a JSON-RPC internal error.
//
// # Usage
//
//	registry := packs.NewRegistry(logger)
//	builtins.RegisterAll(registry, svc, logger)
//	router := packs.NewRouter(packs.RouterConfig{Registry: registry, Logger: logger})
//	result, err := router.CallTool(ctx, "list_foods", json.RawMessage(`{}`))
package packs
