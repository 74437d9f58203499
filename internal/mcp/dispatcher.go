// ABOUTME: Per-session JSON-RPC dispatcher for the MCP protocol methods.
// ABOUTME: Handles initialize, ping, tools/list, tools/call, logging/setLevel and notifications.

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"github.com/2389/nutrition-gateway/internal/packs"
)

// Server identity reported by initialize.
const (
	ServerName    = "nutrition-tracking-mcp"
	ServerVersion = "1.0.0"
)

// supportedProtocolVersions lists negotiable versions, oldest first.
var supportedProtocolVersions = []string{"2025-03-26", "2025-06-18", "2025-11-25"}

// LatestProtocolVersion is offered when the client asks for an unknown version.
const LatestProtocolVersion = "2025-11-25"

// DefaultProtocolVersion is assumed when a request carries no version header.
const DefaultProtocolVersion = "2025-03-26"

func isSupportedVersion(v string) bool {
	return slices.Contains(supportedProtocolVersions, v)
}

// logLevels in increasing severity, as used by notifications/message.
var logLevels = []string{"debug", "info", "notice", "warning", "error", "critical", "alert", "emergency"}

func levelRank(level string) int {
	return slices.Index(logLevels, level)
}

type toolInfo struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	InputSchema *packs.Schema `json:"inputSchema"`
}

type callToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type initializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ClientInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"clientInfo"`
}

// dispatcher handles the JSON-RPC messages of one session. It is not safe for
// concurrent use; the owning session serializes calls.
type dispatcher struct {
	router *packs.Router
	logger *slog.Logger
	// push delivers server notifications; nil when there is no push channel.
	push func(any)

	protocolVersion string
	clientName      string
	minLevel        string
}

func newDispatcher(router *packs.Router, logger *slog.Logger, push func(any)) *dispatcher {
	return &dispatcher{
		router:          router,
		logger:          logger,
		push:            push,
		protocolVersion: DefaultProtocolVersion,
		minLevel:        "info",
	}
}

// handle processes one message and returns the response with its HTTP status.
// Notifications return a nil response and 202.
func (d *dispatcher) handle(ctx context.Context, req *Request) (*Response, int) {
	if req.IsNotification() {
		if req.Method == "notifications/initialized" {
			d.logger.Debug("client initialized", "client", d.clientName)
		} else {
			d.logger.Debug("accepted MCP notification", "method", req.Method)
		}
		return nil, http.StatusAccepted
	}

	switch req.Method {
	case "initialize":
		return d.initialize(req)
	case "ping":
		return result(req.ID, struct{}{}), http.StatusOK
	case "tools/list":
		return d.listTools(req)
	case "tools/call":
		return d.callTool(ctx, req)
	case "logging/setLevel":
		return d.setLevel(req)
	default:
		return errorResponse(req.ID, CodeMethodNotFound, "Method not found: "+req.Method), http.StatusOK
	}
}

// negotiateVersion echoes the client's version when supported, else offers the latest.
func negotiateVersion(requested string) string {
	if isSupportedVersion(requested) {
		return requested
	}
	return LatestProtocolVersion
}

func (d *dispatcher) initialize(req *Request) (*Response, int) {
	var params initializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, CodeInvalidParams, "invalid initialize params"), http.StatusOK
		}
	}

	d.protocolVersion = negotiateVersion(params.ProtocolVersion)
	d.clientName = params.ClientInfo.Name
	d.logger.Info("MCP client initializing",
		"client", params.ClientInfo.Name,
		"client_version", params.ClientInfo.Version,
		"requested_version", params.ProtocolVersion,
		"protocol_version", d.protocolVersion,
	)

	return result(req.ID, map[string]any{
		"protocolVersion": d.protocolVersion,
		"capabilities": map[string]any{
			"tools":   map[string]any{"listChanged": false},
			"logging": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    ServerName,
			"version": ServerVersion,
		},
	}), http.StatusOK
}

func (d *dispatcher) listTools(req *Request) (*Response, int) {
	defs := d.router.ListTools()
	tools := make([]toolInfo, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, toolInfo{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.Schema,
		})
	}
	d.logger.Debug("tools/list", "count", len(tools))
	return result(req.ID, map[string]any{"tools": tools}), http.StatusOK
}

func (d *dispatcher) callTool(ctx context.Context, req *Request) (*Response, int) {
	var params callToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, CodeInvalidParams, "invalid params"), http.StatusOK
		}
	}
	if params.Name == "" {
		return errorResponse(req.ID, CodeInvalidParams, "tool name is required"), http.StatusOK
	}

	res, err := d.router.CallTool(ctx, params.Name, params.Arguments)
	if err != nil {
		switch {
		case errors.Is(err, packs.ErrToolNotFound):
			return errorResponse(req.ID, CodeInvalidParams, "Unknown tool: "+params.Name), http.StatusOK
		case errors.Is(err, packs.ErrNoIdentity):
			d.logger.Error("tool call rejected", "tool_name", params.Name, "error", err)
			return errorResponse(req.ID, CodeInternalError, packs.ErrNoIdentity.Error()), http.StatusInternalServerError
		default:
			d.logger.Error("tool execution failed", "tool_name", params.Name, "error", err)
			return errorResponse(req.ID, CodeInternalError, "internal error"), http.StatusInternalServerError
		}
	}

	level := "info"
	if res.IsError {
		level = "warning"
	}
	d.notify(level, map[string]any{
		"tool":    params.Name,
		"isError": res.IsError,
		"content": res.Content,
	})
	return result(req.ID, res), http.StatusOK
}

func (d *dispatcher) setLevel(req *Request) (*Response, int) {
	var params struct {
		Level string `json:"level"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil || levelRank(params.Level) < 0 {
		return errorResponse(req.ID, CodeInvalidParams, "invalid log level"), http.StatusOK
	}
	d.minLevel = params.Level
	return result(req.ID, struct{}{}), http.StatusOK
}

// notify pushes a notifications/message when the push channel exists and
// level passes the client's threshold.
func (d *dispatcher) notify(level string, data any) {
	if d.push == nil || levelRank(level) < levelRank(d.minLevel) {
		return
	}
	d.push(Notification{
		JSONRPC: "2.0",
		Method:  "notifications/message",
		Params: map[string]any{
			"level":  level,
			"logger": "tools",
			"data":   data,
		},
	})
}
