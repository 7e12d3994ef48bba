package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/gaitloop/gait/conv"
	"github.com/gaitloop/gait/llm"
)

// ToolCallRequiredError reports that the required tool-choice policy was in
// force but the model produced no tool calls.
type ToolCallRequiredError struct{}

func (e *ToolCallRequiredError) Error() string {
	return "Tool calls required but none provided"
}

// step runs one think/act cycle: consult the model, then execute whatever
// tool calls it asked for.
func (e *Engine) step(ctx context.Context) (string, error) {
	if !e.think(ctx) {
		return "Thinking complete - no action needed", nil
	}
	return e.act(ctx)
}

// think consults the model with the buffer and the tool catalogue and
// decides whether act should run. Model failures are downgraded to an
// assistant error turn so the outer loop survives transient outages.
func (e *Engine) think(ctx context.Context) bool {
	step := e.CurrentStep()

	// Periodic self-review keeps long runs anchored to the original goal.
	if e.cfg.AdaptivePlanning && step > 0 && e.cfg.StepReviewInterval > 0 && step%e.cfg.StepReviewInterval == 0 {
		e.reviewProgress()
	}

	if e.nextStepPrompt != "" {
		prompt := e.nextStepPrompt
		if len(prompt) > promptCompactionThreshold {
			// Compacted per exchange; the stored prompt keeps accumulating.
			prompt = optimizeNextStepPrompt(prompt)
		}
		e.buffer.Add(conv.UserTurn(prompt))
	}

	e.logger.Debug("thinking", "agent", e.name, "step", step, "context_chars", e.buffer.ContextLength())

	resp, err := e.model.Ask(ctx, llm.AskRequest{
		Turns:      e.buffer.Turns(),
		System:     e.systemPrompt,
		Tools:      e.registry.Definitions(),
		ToolChoice: e.cfg.ToolChoice,
	})
	if err != nil {
		e.logger.Error("model consultation failed", "agent", e.name, "step", step, "error", err)
		e.buffer.Add(conv.AssistantTurn(fmt.Sprintf("Error encountered while processing: %v", err)))
		e.pendingCalls = nil
		return false
	}

	e.pendingCalls = resp.ToolCalls
	e.logger.Info("model responded", "agent", e.name, "step", step,
		"content_chars", len(resp.Content), "tool_calls", len(resp.ToolCalls))

	if e.cfg.ToolChoice == llm.ToolChoiceNone {
		if len(resp.ToolCalls) > 0 {
			e.logger.Warn("model requested tools under the none policy", "agent", e.name, "tool_calls", len(resp.ToolCalls))
			e.pendingCalls = nil
		}
		if resp.Content != "" {
			e.buffer.Add(conv.AssistantTurn(resp.Content))
			return true
		}
		return false
	}

	if len(e.pendingCalls) > 0 {
		e.buffer.Add(conv.AssistantToolCallTurn(resp.Content, e.pendingCalls))
	} else {
		e.buffer.Add(conv.AssistantTurn(resp.Content))
	}

	if e.cfg.ToolChoice == llm.ToolChoiceRequired && len(e.pendingCalls) == 0 {
		return true // act surfaces the missing calls as ToolCallRequiredError
	}
	if e.cfg.ToolChoice == llm.ToolChoiceAuto && len(e.pendingCalls) == 0 {
		return resp.Content != ""
	}
	return len(e.pendingCalls) > 0
}

// act executes the pending tool calls sequentially, in request order,
// recording one tool turn per observation. A terminal tool moves the engine
// to StateFinished; calls queued behind it in the same batch still run.
func (e *Engine) act(ctx context.Context) (string, error) {
	if len(e.pendingCalls) == 0 {
		if e.cfg.ToolChoice == llm.ToolChoiceRequired {
			return "", &ToolCallRequiredError{}
		}
		if turns := e.buffer.Turns(); len(turns) > 0 && turns[len(turns)-1].Content != "" {
			return turns[len(turns)-1].Content, nil
		}
		return "No content or commands to execute", nil
	}

	observations := make([]string, 0, len(e.pendingCalls))
	for _, call := range e.pendingCalls {
		observation, terminal := e.dispatcher.Dispatch(ctx, call)
		e.logger.Info("tool completed", "agent", e.name, "tool", call.Name, "result_chars", len(observation))

		e.buffer.Add(conv.ToolTurn(observation, call.ID, call.Name))
		observations = append(observations, observation)

		if terminal {
			e.logger.Info("terminal tool fired", "agent", e.name, "tool", call.Name)
			e.setFinished()
		}
	}

	return strings.Join(observations, "\n\n"), nil
}

// reviewProgress appends a progress note to the next-step prompt so the
// model periodically re-grounds itself instead of drifting.
func (e *Engine) reviewProgress() {
	step := e.CurrentStep()
	e.logger.Debug("reviewing progress", "agent", e.name, "step", step)

	summary := fmt.Sprintf("Currently executing step %d/%d.", step, e.cfg.MaxSteps)
	note := fmt.Sprintf("\n\n# Progress check (step %d)\n%s\n%s\n\n", step, summary, e.analyzeMemory())
	focus := "Given the progress so far, focus on resolving the root of the problem."

	e.nextStepPrompt += note + focus
}

// analyzeMemory reports buffer size, per-tool usage counts, and the latest
// user instruction for the periodic self-review.
func (e *Engine) analyzeMemory() string {
	turns := e.buffer.Turns()

	var lastUser string
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == conv.RoleUser {
			lastUser = turns[i].Content
			break
		}
	}

	// Usage counts keyed by tool name, reported in first-use order.
	usage := make(map[string]int)
	var order []string
	for _, turn := range turns {
		if turn.Role == conv.RoleTool && turn.ToolName != "" {
			if usage[turn.ToolName] == 0 {
				order = append(order, turn.ToolName)
			}
			usage[turn.ToolName]++
		}
	}

	lines := []string{
		fmt.Sprintf("- Conversation history: %d turns", len(turns)),
		fmt.Sprintf("- Estimated context length: about %d characters", e.buffer.ContextLength()),
	}
	if len(order) > 0 {
		parts := make([]string, len(order))
		for i, name := range order {
			parts[i] = fmt.Sprintf("%s(%d)", name, usage[name])
		}
		lines = append(lines, "- Tools used: "+strings.Join(parts, ", "))
	}
	if lastUser != "" {
		lines = append(lines, "- Latest instruction: "+excerpt(lastUser, 100))
	}
	return strings.Join(lines, "\n")
}

// excerpt truncates s to max bytes, marking the cut with an ellipsis.
func excerpt(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
