package agent

import (
	"fmt"
	"strings"

	"github.com/gaitloop/gait/conv"
)

const (
	// recentToolWindow bounds the rolling tool-name history.
	recentToolWindow = 5
	// repeatedToolRun is how many identical trailing tool names count as a
	// loop.
	repeatedToolRun = 3
)

// isStuck reports whether the run is repeating itself: the latest turn's
// text already appeared in DuplicateThreshold earlier assistant turns, or
// the last three recorded tool names are identical.
func (e *Engine) isStuck() bool {
	turns := e.buffer.Turns()
	if len(turns) < 2 {
		return false
	}
	last := turns[len(turns)-1]
	if last.Content == "" {
		return false
	}

	if len(e.recentTools) >= repeatedToolRun {
		window := e.recentTools[len(e.recentTools)-repeatedToolRun:]
		if window[0] == window[1] && window[1] == window[2] {
			e.logger.Warn("same tool used repeatedly", "agent", e.name, "tool", window[2])
			return true
		}
	}

	duplicates := 0
	for _, turn := range turns[:len(turns)-1] {
		if turn.Role == conv.RoleAssistant && turn.Content == last.Content {
			duplicates++
		}
	}
	return duplicates >= e.cfg.DuplicateThreshold
}

// handleStuck prepends an escalating strategy-change instruction to the
// next-step prompt. The first two detections get a mild nudge; later ones
// get a forceful reframe that names the detection count.
func (e *Engine) handleStuck() {
	e.detections++

	var prompt string
	if e.detections <= 2 {
		prompt = "The same approach is being tried repeatedly. Consider a new approach and avoid methods that have already been tried without success."
	} else {
		prompt = fmt.Sprintf("IMPORTANT: The current approach is not working. This is detection number %d. "+
			"Re-evaluate the problem from a completely different perspective, use tools and methods "+
			"different from those tried so far, and reframe the task from first principles.", e.detections)
	}

	e.nextStepPrompt = prompt + "\n" + e.nextStepPrompt
	e.logger.Warn("stuck state detected", "agent", e.name, "detections", e.detections)
}

// trackRecentTool extracts the tool name from a step result and records it
// in the rolling window the stuck detector inspects.
func (e *Engine) trackRecentTool(stepResult string) {
	const marker = "cmd `"
	idx := strings.Index(stepResult, marker)
	if idx < 0 {
		return
	}

	name := stepResult[idx+len(marker):]
	if end := strings.Index(name, "`"); end >= 0 {
		name = name[:end]
	}
	if name == "" {
		return
	}

	e.recentTools = append(e.recentTools, name)
	if len(e.recentTools) > recentToolWindow {
		e.recentTools = e.recentTools[1:]
	}
}
