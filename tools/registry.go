// Package tools holds the tool registry and the dispatcher that turns
// model-requested tool calls into observation text for the conversation.
package tools

import (
	"context"
	"strings"
	"sync"

	"github.com/gaitloop/gait/llm"
)

// Executor is the function signature for tool execution. Arguments arrive
// already parsed from the call's JSON payload.
type Executor func(ctx context.Context, args map[string]interface{}) (string, error)

// Tool pairs the schema shown to the model with its executor. A terminal
// tool finishes the run when it executes successfully.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
	Terminal    bool
	Execute     Executor
}

// Definition returns the schema form handed to the model service.
func (t *Tool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  t.Parameters,
	}
}

// Registry manages tool registration and lookup. Schema queries are safe
// for concurrent readers; runs sharing a registry serialize execution
// through their own loops.
type Registry struct {
	tools map[string]*Tool
	mu    sync.RWMutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*Tool),
	}
}

// Register adds or replaces a tool in the registry.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name] = &tool
}

// Unregister removes a tool from the registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Resolve returns the tool registered under name.
func (r *Registry) Resolve(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// IsTerminal reports whether name refers to a terminal tool. The check is
// case-insensitive so configured terminal names survive model casing.
func (r *Registry) IsTerminal(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, tool := range r.tools {
		if tool.Terminal && strings.EqualFold(tool.Name, name) {
			return true
		}
	}
	return false
}

// Definitions returns all tool schemas for the model request.
func (r *Registry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]llm.ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, tool.Definition())
	}
	return defs
}

// Names returns the names of all registered tools.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
