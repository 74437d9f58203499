// ABOUTME: Thread-safe registry of built-in tool packs for the gateway.
// ABOUTME: Rejects tool name collisions and lists tools in registration order.

package packs

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrToolCollision indicates a tool name already exists from another pack.
var ErrToolCollision = errors.New("tool name collision")

// ErrPackAlreadyRegistered indicates a pack with the same ID is already registered.
var ErrPackAlreadyRegistered = errors.New("pack already registered")

// Registry maintains the registered builtin packs and their tools.
type Registry struct {
	mu       sync.RWMutex
	packs    map[string]int           // pack ID -> tool count
	builtins map[string]*builtinEntry // builtin tool name -> builtin entry
	order    []string                 // tool names in registration order
	logger   *slog.Logger
}

// NewRegistry creates a new Registry instance.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		packs:    make(map[string]int),
		builtins: make(map[string]*builtinEntry),
		logger:   logger,
	}
}

// RegisterBuiltinPack registers a pack of built-in tools that execute in-process.
// Returns error if the pack ID is taken or any tool name collides with an
// existing tool, in which case nothing is registered.
func (r *Registry) RegisterBuiltinPack(pack *BuiltinPack) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.packs[pack.ID]; exists {
		return fmt.Errorf("%w: %s", ErrPackAlreadyRegistered, pack.ID)
	}

	seen := make(map[string]bool, len(pack.Tools))
	for _, tool := range pack.Tools {
		name := tool.Definition.Name
		if entry, exists := r.builtins[name]; exists {
			return fmt.Errorf("%w: tool '%s' already registered by pack '%s'", ErrToolCollision, name, entry.PackID)
		}
		if seen[name] {
			return fmt.Errorf("%w: tool '%s' appears twice in pack '%s'", ErrToolCollision, name, pack.ID)
		}
		seen[name] = true
	}

	for _, tool := range pack.Tools {
		r.builtins[tool.Definition.Name] = &builtinEntry{
			Tool:   tool,
			PackID: pack.ID,
		}
		r.order = append(r.order, tool.Definition.Name)
	}
	r.packs[pack.ID] = len(pack.Tools)

	r.logger.Info("=== BUILTIN PACK REGISTERED ===",
		"pack_id", pack.ID,
		"tool_count", len(pack.Tools),
		"total_tools", len(r.builtins),
	)

	return nil
}

// GetBuiltinTool returns a builtin tool by name, or nil if not found.
func (r *Registry) GetBuiltinTool(name string) *BuiltinTool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry, ok := r.builtins[name]; ok {
		return entry.Tool
	}
	return nil
}

// IsBuiltin returns true if the tool name is a builtin tool.
func (r *Registry) IsBuiltin(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.builtins[name]
	return ok
}

// ListTools returns every tool definition in registration order.
func (r *Registry) ListTools() []*ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]*ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.builtins[name].Tool.Definition)
	}
	return defs
}

// BuiltinPackInfo contains information about a registered builtin pack for display.
type BuiltinPackInfo struct {
	ID        string
	ToolNames []string
}

// ListBuiltinPacks returns the registered packs in registration order.
func (r *Registry) ListBuiltinPacks() []BuiltinPackInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []BuiltinPackInfo
	index := make(map[string]int)
	for _, name := range r.order {
		packID := r.builtins[name].PackID
		i, ok := index[packID]
		if !ok {
			i = len(result)
			index[packID] = i
			result = append(result, BuiltinPackInfo{ID: packID})
		}
		result[i].ToolNames = append(result[i].ToolNames, name)
	}
	return result
}

// Close clears the registry.
// This should be called during graceful shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	builtinCount := len(r.builtins)
	r.packs = make(map[string]int)
	r.builtins = make(map[string]*builtinEntry)
	r.order = nil

	r.logger.Info("registry closed", "builtins_cleared", builtinCount)
}
