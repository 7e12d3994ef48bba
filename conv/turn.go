package conv

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role identifies who produced a turn in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Valid reports whether the role is one of the four supported values.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// UnsupportedRoleError is returned when a turn is constructed with a role
// outside the fixed enumeration.
type UnsupportedRoleError struct {
	Role Role
}

func (e *UnsupportedRoleError) Error() string {
	return fmt.Sprintf("unsupported message role: %q", string(e.Role))
}

// ToolCall is a model-requested tool invocation carried on an assistant turn.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Default importance per role. Tool turns are promoted by one when their
// payload is long, so verbose observations survive eviction a little longer.
const (
	importanceSystem    = 10
	importanceUser      = 8
	importanceAssistant = 5
	importanceTool      = 6
	importanceToolLong  = 7

	longToolPayload = 500
)

// Turn is a single entry in the conversation history.
type Turn struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Importance int        `json:"importance"`
	Timestamp  time.Time  `json:"timestamp"`
}

// SystemTurn creates a system-role turn.
func SystemTurn(content string) Turn {
	return Turn{
		Role:       RoleSystem,
		Content:    content,
		Importance: importanceSystem,
		Timestamp:  time.Now(),
	}
}

// UserTurn creates a user-role turn.
func UserTurn(content string) Turn {
	return Turn{
		Role:       RoleUser,
		Content:    content,
		Importance: importanceUser,
		Timestamp:  time.Now(),
	}
}

// AssistantTurn creates an assistant-role turn with text content only.
func AssistantTurn(content string) Turn {
	return Turn{
		Role:       RoleAssistant,
		Content:    content,
		Importance: importanceAssistant,
		Timestamp:  time.Now(),
	}
}

// AssistantToolCallTurn creates an assistant-role turn carrying tool calls.
func AssistantToolCallTurn(content string, calls []ToolCall) Turn {
	t := AssistantTurn(content)
	t.ToolCalls = calls
	return t
}

// ToolTurn creates a tool-result turn linked to the originating call.
func ToolTurn(content, toolCallID, toolName string) Turn {
	return Turn{
		Role:       RoleTool,
		Content:    content,
		ToolName:   toolName,
		ToolCallID: toolCallID,
		Importance: toolImportance(content),
		Timestamp:  time.Now(),
	}
}

func toolImportance(content string) int {
	if len(content) > longToolPayload {
		return importanceToolLong
	}
	return importanceTool
}

// NewTurn is the role-keyed factory used when the role arrives as data.
// Tool turns built this way carry no call linkage; callers that have the
// originating call should use ToolTurn instead.
func NewTurn(role Role, content string) (Turn, error) {
	switch role {
	case RoleSystem:
		return SystemTurn(content), nil
	case RoleUser:
		return UserTurn(content), nil
	case RoleAssistant:
		return AssistantTurn(content), nil
	case RoleTool:
		return ToolTurn(content, "", ""), nil
	default:
		return Turn{}, &UnsupportedRoleError{Role: role}
	}
}

// DefaultImportance returns the default importance for a role given its
// payload, per the same table the constructors apply.
func DefaultImportance(role Role, content string) int {
	switch role {
	case RoleSystem:
		return importanceSystem
	case RoleUser:
		return importanceUser
	case RoleTool:
		return toolImportance(content)
	default:
		return importanceAssistant
	}
}

// ClampImportance bounds an importance score to the 1-10 scale.
func ClampImportance(n int) int {
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}

// Per-turn metadata overhead used by ApproxLength: roles, names, and
// serialization framing that accompany the content on the wire.
const (
	turnOverhead     = 20
	toolCallOverhead = 50
)

// ApproxLength estimates the turn's contribution to context size in
// characters: content plus tool-call payloads plus metadata overhead.
func (t Turn) ApproxLength() int {
	total := len(t.Content) + turnOverhead
	for _, call := range t.ToolCalls {
		total += len(call.Name) + len(call.Arguments) + toolCallOverhead
	}
	return total
}

// HasToolCalls reports whether the turn requests tool execution.
func (t Turn) HasToolCalls() bool {
	return len(t.ToolCalls) > 0
}
