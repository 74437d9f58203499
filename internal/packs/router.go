// ABOUTME: Routes tool calls to built-in handlers for the authenticated subject.
// ABOUTME: Validates arguments, resolves identity, bounds execution time and maps error kinds.

package packs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/nutrition-gateway/internal/auth"
)

// ErrToolNotFound indicates the requested tool is not registered.
var ErrToolNotFound = errors.New("tool not found")

// DefaultTimeout is the default timeout for tool execution.
const DefaultTimeout = 30 * time.Second

// Content is one block of a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallResult is the outcome of a tool call as returned to the client.
type CallResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// TextResult wraps text in a single-block result.
func TextResult(text string, isError bool) *CallResult {
	return &CallResult{
		Content: []Content{{Type: "text", Text: text}},
		IsError: isError,
	}
}

// Router routes tool calls to registered builtin tools.
type Router struct {
	registry *Registry
	logger   *slog.Logger
	timeout  time.Duration
}

// RouterConfig contains configuration options for the Router.
type RouterConfig struct {
	Registry *Registry
	Logger   *slog.Logger
	Timeout  time.Duration
}

// NewRouter creates a new Router with the given configuration.
func NewRouter(cfg RouterConfig) *Router {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Router{
		registry: cfg.Registry,
		logger:   logger,
		timeout:  timeout,
	}
}

// CallTool runs a tool for the identity carried by ctx.
//
// Validation, not-found and conflict failures are returned as an isError
// result with a nil error. ErrToolNotFound, ErrNoIdentity and any other
// handler error are returned as errors; the caller must not expose the
// latter's details.
func (r *Router) CallTool(ctx context.Context, toolName string, args json.RawMessage) (*CallResult, error) {
	builtin := r.registry.GetBuiltinTool(toolName)
	if builtin == nil {
		r.logger.Debug("tool not found in registry", "tool_name", toolName)
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, toolName)
	}

	if err := builtin.Definition.Schema.Validate(args); err != nil {
		te, _ := AsToolError(err)
		r.logger.Debug("tool arguments rejected", "tool_name", toolName, "reason", te.Message)
		return TextResult(fmt.Sprintf("Invalid arguments for tool %s: %s", toolName, te.Message), true), nil
	}

	id := auth.FromContext(ctx)
	if id == nil || id.Subject == "" {
		r.logger.Error("tool call without identity", "tool_name", toolName)
		return nil, ErrNoIdentity
	}

	r.logger.Info("→ dispatching to builtin",
		"tool_name", toolName,
		"subject", id.Subject,
	)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	text, err := builtin.Handler(ctx, id.Subject, args)
	if err != nil {
		if te, ok := AsToolError(err); ok {
			r.logger.Info("← builtin rejected call",
				"tool_name", toolName,
				"kind", te.Kind.String(),
				"duration", time.Since(start),
			)
			return TextResult(te.Message, true), nil
		}
		if errors.Is(err, ErrNoIdentity) {
			return nil, err
		}
		r.logger.Error("builtin tool error",
			"tool_name", toolName,
			"subject", id.Subject,
			"error", err,
		)
		return nil, fmt.Errorf("tool %s: %w", toolName, err)
	}

	r.logger.Info("← builtin responded",
		"tool_name", toolName,
		"duration", time.Since(start),
	)
	return TextResult(text, false), nil
}

// HasTool returns true if the tool is registered.
func (r *Router) HasTool(toolName string) bool {
	return r.registry.IsBuiltin(toolName)
}

// ListTools returns the definitions of all registered tools.
func (r *Router) ListTools() []*ToolDefinition {
	return r.registry.ListTools()
}
