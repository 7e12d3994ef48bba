// Package llm is the client SDK for the model service the engine consumes:
// request/response types over conversation turns, a gollm-backed client,
// an error taxonomy with retry support, and token estimation.
package llm

import (
	"github.com/gaitloop/gait/conv"
)

// ToolChoice is the tool-calling policy handed to the model per exchange.
type ToolChoice string

const (
	// ToolChoiceNone forbids tool calls; the response is text only.
	ToolChoiceNone ToolChoice = "none"
	// ToolChoiceAuto lets the model decide between text and tool calls.
	ToolChoiceAuto ToolChoice = "auto"
	// ToolChoiceRequired demands at least one tool call per response.
	ToolChoiceRequired ToolChoice = "required"
)

// Valid reports whether the choice is one of the three supported policies.
func (c ToolChoice) Valid() bool {
	switch c {
	case ToolChoiceNone, ToolChoiceAuto, ToolChoiceRequired:
		return true
	}
	return false
}

// ToolDefinition describes one callable tool to the model. Parameters is a
// JSON-schema object.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// AskRequest is one model exchange: the transcript so far plus the tool
// catalogue and the calling policy.
type AskRequest struct {
	Turns      []conv.Turn
	System     string
	Tools      []ToolDefinition
	ToolChoice ToolChoice
}

// AskResponse is the model's reply: text, requested tool calls, or both.
type AskResponse struct {
	ID        string
	Model     string
	Content   string
	ToolCalls []conv.ToolCall
	Usage     Usage
}

// Usage reports token consumption for one exchange. Providers reached
// through gollm do not surface counts, so these are estimates.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
