// Package conv holds the conversation turn model and the bounded buffer
// that forms an agent run's working context. The buffer coalesces adjacent
// same-role turns, drops the oldest turns past a hard count cap, and
// shrinks low-importance payloads in place when the aggregate text length
// crosses a soft character budget.
package conv

import (
	"log/slog"
)

// Config bounds a Buffer. Zero fields fall back to the defaults.
type Config struct {
	// MaxTurns is the hard cap on turn count; the oldest turns are
	// silently dropped past it.
	MaxTurns int
	// ContextCharBudget is the soft cap on aggregate text length that
	// triggers content-shrinking eviction.
	ContextCharBudget int
	// SafetyMargin is the extra headroom eviction reclaims below the
	// budget so one eviction pass covers several inserts.
	SafetyMargin int
}

// DefaultConfig returns the default buffer bounds.
func DefaultConfig() Config {
	return Config{
		MaxTurns:          100,
		ContextCharBudget: 32768,
		SafetyMargin:      500,
	}
}

// Buffer is the ordered store of turns for one agent run. It is owned by
// that run's loop and is not safe for concurrent use; runs that share a
// tool registry still get their own Buffer.
type Buffer struct {
	cfg    Config
	logger *slog.Logger
	turns  []Turn
}

// NewBuffer creates a Buffer with the given bounds. A nil logger falls
// back to slog.Default.
func NewBuffer(cfg Config, logger *slog.Logger) *Buffer {
	def := DefaultConfig()
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = def.MaxTurns
	}
	if cfg.ContextCharBudget <= 0 {
		cfg.ContextCharBudget = def.ContextCharBudget
	}
	if cfg.SafetyMargin <= 0 {
		cfg.SafetyMargin = def.SafetyMargin
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Buffer{cfg: cfg, logger: logger}
}

// Add inserts a turn, coalescing it into the previous turn when the roles
// match, then enforces the turn cap and the character budget.
func (b *Buffer) Add(turn Turn) {
	if turn.Importance == 0 {
		turn.Importance = DefaultImportance(turn.Role, turn.Content)
	}
	turn.Importance = ClampImportance(turn.Importance)

	if turn.Role == RoleTool {
		b.checkLinkage(turn)
	}

	if n := len(b.turns); n > 0 && b.turns[n-1].Role == turn.Role {
		b.coalesce(&b.turns[n-1], turn)
	} else {
		b.turns = append(b.turns, turn)
	}

	if len(b.turns) > b.cfg.MaxTurns {
		b.turns = b.turns[len(b.turns)-b.cfg.MaxTurns:]
	}

	if b.ContextLength() > b.cfg.ContextCharBudget {
		b.evict()
	}
}

// AddAll inserts turns one at a time so role alternation is preserved.
func (b *Buffer) AddAll(turns ...Turn) {
	for _, t := range turns {
		b.Add(t)
	}
}

// coalesce folds src into dst: content joined with a newline, tool-call
// lists concatenated, importance raised to the max of the two.
func (b *Buffer) coalesce(dst *Turn, src Turn) {
	if src.Content != "" {
		if dst.Content != "" {
			dst.Content += "\n" + src.Content
		} else {
			dst.Content = src.Content
		}
	}
	if len(src.ToolCalls) > 0 {
		if len(dst.ToolCalls) > 0 {
			// Merging two tool-call batches can blur call/result pairing;
			// surface it rather than reject it.
			b.logger.Warn("coalescing turns that both carry tool calls",
				"role", string(dst.Role),
				"existing_calls", len(dst.ToolCalls),
				"incoming_calls", len(src.ToolCalls))
		}
		dst.ToolCalls = append(dst.ToolCalls, src.ToolCalls...)
	}
	if src.Importance > dst.Importance {
		dst.Importance = src.Importance
	}
}

// checkLinkage enforces the soft invariant that a tool turn references a
// tool call emitted by an assistant turn still present in the buffer.
// Violations are logged, never rejected.
func (b *Buffer) checkLinkage(turn Turn) {
	if turn.ToolCallID == "" {
		b.logger.Warn("tool turn carries no tool call id", "tool", turn.ToolName)
		return
	}
	for _, t := range b.turns {
		if t.Role != RoleAssistant {
			continue
		}
		for _, call := range t.ToolCalls {
			if call.ID == turn.ToolCallID {
				return
			}
		}
	}
	b.logger.Warn("tool turn references a tool call not present in the buffer",
		"tool_call_id", turn.ToolCallID,
		"tool", turn.ToolName)
}

// Turns returns a copy of the buffer contents in conversation order.
func (b *Buffer) Turns() []Turn {
	out := make([]Turn, len(b.turns))
	copy(out, b.turns)
	return out
}

// SetTurns replaces the buffer contents outright. It is the seeding path
// for callers restoring an external transcript; no coalescing, capping, or
// eviction is applied.
func (b *Buffer) SetTurns(turns []Turn) {
	b.turns = make([]Turn, len(turns))
	copy(b.turns, turns)
}

// Recent returns a copy of the n most recent turns.
func (b *Buffer) Recent(n int) []Turn {
	if n <= 0 {
		return nil
	}
	if n > len(b.turns) {
		n = len(b.turns)
	}
	out := make([]Turn, n)
	copy(out, b.turns[len(b.turns)-n:])
	return out
}

// Len returns the number of turns in the buffer.
func (b *Buffer) Len() int {
	return len(b.turns)
}

// Clear removes all turns.
func (b *Buffer) Clear() {
	b.turns = nil
}

// ContextLength estimates the aggregate context size of the buffer in
// characters, including tool-call payloads and per-turn overhead.
func (b *Buffer) ContextLength() int {
	total := 0
	for _, t := range b.turns {
		total += t.ApproxLength()
	}
	return total
}

// ContentLength sums the raw text payloads only, without overhead. The
// accuracy monitor keys off this figure.
func (b *Buffer) ContentLength() int {
	total := 0
	for _, t := range b.turns {
		total += len(t.Content)
	}
	return total
}
