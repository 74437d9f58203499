// ABOUTME: Built-in tool support for tools that execute in-process.
// ABOUTME: A tool pairs its argument schema with a handler bound to the caller's subject.

package packs

import (
	"context"
	"encoding/json"
)

// ToolHandler executes a built-in tool for the authenticated subject.
// input has already passed schema validation. The returned text becomes the
// single content block of the result.
type ToolHandler func(ctx context.Context, subject string, input json.RawMessage) (string, error)

// ToolDefinition describes a tool as advertised by tools/list.
type ToolDefinition struct {
	Name        string
	Description string
	Schema      *Schema
}

// BuiltinTool represents a tool that executes in the gateway process.
type BuiltinTool struct {
	Definition *ToolDefinition
	Handler    ToolHandler
}

// BuiltinPack is a collection of built-in tools with a pack ID.
type BuiltinPack struct {
	ID    string
	Tools []*BuiltinTool
}

// builtinEntry stores a builtin tool with its pack ID for registry lookup.
type builtinEntry struct {
	Tool   *BuiltinTool
	PackID string
}

// Typed adapts a handler taking a decoded argument struct. Fields of type
// Nullable[T] observe whether a key was omitted or explicitly null.
func Typed[T any](fn func(ctx context.Context, subject string, in T) (string, error)) ToolHandler {
	return func(ctx context.Context, subject string, input json.RawMessage) (string, error) {
		var in T
		if len(input) > 0 && string(input) != "null" {
			if err := json.Unmarshal(input, &in); err != nil {
				return "", Invalid("invalid arguments: %v", err)
			}
		}
		return fn(ctx, subject, in)
	}
}

// Tool is a convenience constructor for a BuiltinTool.
func Tool(name, description string, schema *Schema, handler ToolHandler) *BuiltinTool {
	if schema == nil {
		schema = Object()
	}
	return &BuiltinTool{
		Definition: &ToolDefinition{Name: name, Description: description, Schema: schema},
		Handler:    handler,
	}
}
