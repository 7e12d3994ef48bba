package agent

import (
	"fmt"
	"strings"

	"github.com/gaitloop/gait/conv"
)

const (
	// monitorMinTurns is the buffer size below which monitoring is skipped.
	monitorMinTurns = 5
	// monitorContentThreshold is the aggregate text length past which the
	// transcript counts as long enough to summarize.
	monitorContentThreshold = 5000
	// monitorMinStep is the step count a run must pass before summaries
	// are considered.
	monitorMinStep = 20
	// monitorRecentTurns is how far back the summary looks for tool
	// results.
	monitorRecentTurns = 15
)

// monitorAccuracy watches for context bloat on long runs and injects a
// progress summary into the next prompt once the transcript has grown past
// the point where models start losing the thread. Summaries come more
// often the more stuck detections have accumulated.
func (e *Engine) monitorAccuracy() {
	if e.buffer.Len() < monitorMinTurns {
		return
	}

	totalLength := e.buffer.ContentLength()
	step := e.CurrentStep()
	e.logger.Info("accuracy monitor", "agent", e.name, "turns", e.buffer.Len(), "content_chars", totalLength)

	if totalLength <= monitorContentThreshold || step <= monitorMinStep {
		return
	}

	cadence := 20 - e.detections*3
	if cadence < 5 {
		cadence = 5
	}
	if e.detections == 0 || step%cadence == 0 {
		e.createProgressSummary()
	}
}

// createProgressSummary condenses the run so far (initial request, step
// counter, recent tools, last tool results) and appends it to the
// next-step prompt.
func (e *Engine) createProgressSummary() {
	turns := e.buffer.Turns()

	var initial string
	for _, turn := range turns {
		if turn.Role == conv.RoleUser {
			initial = turn.Content
			break
		}
	}
	if initial == "" {
		return
	}

	recent := turns
	if len(recent) > monitorRecentTurns {
		recent = recent[len(recent)-monitorRecentTurns:]
	}

	var b strings.Builder
	b.WriteString("## Progress summary\n")
	fmt.Fprintf(&b, "- Initial request: %s\n", excerpt(initial, 100))
	fmt.Fprintf(&b, "- Current step: %d/%d\n", e.CurrentStep(), e.cfg.MaxSteps)
	if len(e.recentTools) > 0 {
		tail := e.recentTools
		if len(tail) > 3 {
			tail = tail[len(tail)-3:]
		}
		fmt.Fprintf(&b, "- Recently used tools: %s\n", strings.Join(tail, ", "))
	}

	var toolResults []string
	for _, turn := range recent {
		if turn.Role == conv.RoleTool && turn.Content != "" {
			name := turn.ToolName
			if name == "" {
				name = "unknown"
			}
			toolResults = append(toolResults, fmt.Sprintf("- %s: %s", name, excerpt(turn.Content, 100)))
		}
	}
	if len(toolResults) > 0 {
		if len(toolResults) > 3 {
			toolResults = toolResults[len(toolResults)-3:]
		}
		b.WriteString("## Key tool results\n")
		b.WriteString(strings.Join(toolResults, "\n"))
	}

	e.nextStepPrompt += fmt.Sprintf("\n\n%s\n\nUse this context for the next step. "+
		"Focus on what matters most and work efficiently toward the goal.", b.String())

	e.recoveries++
	e.logger.Info("progress summary injected", "agent", e.name, "recoveries", e.recoveries)
}
