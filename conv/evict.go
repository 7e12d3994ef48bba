package conv

import (
	"fmt"
	"sort"
	"strings"
)

// ObservationPrefix is the header-line prefix of a structured tool
// observation as formatted by the dispatcher. Eviction keys on it to pick
// the line-aware summarizer over the generic head/tail shrink.
const ObservationPrefix = "Observed output of cmd"

const (
	// recentPreserveMax caps how many trailing turns are always preserved.
	recentPreserveMax = 5
	// preserveImportance is the importance at or above which a turn is
	// never shrunk.
	preserveImportance = 8
	// shrinkThreshold is the minimum content length eligible for the
	// ratio shrink.
	shrinkThreshold = 200
	// shrinkFloor is the minimum kept length after a ratio shrink.
	shrinkFloor = 150
	// observationBodyLines is how many body lines survive observation
	// summarization, after the header line.
	observationBodyLines = 2
	// genericKeepHead/genericKeepTail split the allowance for generic
	// long tool text.
	genericKeepHead = 300
	genericKeepTail = 125
)

// evict shrinks low-importance turn payloads until the buffer fits the
// character budget with SafetyMargin headroom, or candidates run out.
// Turns are never removed: tool-call linkage and role alternation stay
// intact.
func (b *Buffer) evict() {
	needed := b.ContextLength() - b.cfg.ContextCharBudget + b.cfg.SafetyMargin
	if needed <= 0 {
		return
	}

	preserved := b.preservedSet()

	candidates := make([]int, 0, len(b.turns))
	for i, t := range b.turns {
		if preserved[i] {
			continue
		}
		if t.Role != RoleTool && t.Role != RoleAssistant {
			continue
		}
		candidates = append(candidates, i)
	}
	// Lowest importance shrinks first; stable so equal-importance turns
	// shrink oldest-first.
	sort.SliceStable(candidates, func(i, j int) bool {
		return b.turns[candidates[i]].Importance < b.turns[candidates[j]].Importance
	})

	removed := 0
	for _, idx := range candidates {
		if removed >= needed {
			break
		}
		turn := &b.turns[idx]
		shrunk := shrinkContent(turn.Role, turn.Content)
		if len(shrunk) < len(turn.Content) {
			removed += len(turn.Content) - len(shrunk)
			turn.Content = shrunk
		}
	}

	b.logger.Debug("buffer eviction pass",
		"chars_removed", removed,
		"reduction_needed", needed,
		"turns", len(b.turns))
}

// preservedSet returns the indices eviction must not touch: the opening
// user request, the most recent min(5, total/3) turns, and every turn at
// or above the preservation importance.
func (b *Buffer) preservedSet() map[int]bool {
	preserved := make(map[int]bool)
	n := len(b.turns)
	if n == 0 {
		return preserved
	}
	if b.turns[0].Role == RoleUser {
		preserved[0] = true
	}
	recent := n / 3
	if recent > recentPreserveMax {
		recent = recentPreserveMax
	}
	for i := n - recent; i < n; i++ {
		preserved[i] = true
	}
	for i, t := range b.turns {
		if t.Importance >= preserveImportance {
			preserved[i] = true
		}
	}
	return preserved
}

// shrinkContent returns a shorter rendition of content for the given role,
// or the content unchanged when no rule gains anything.
func shrinkContent(role Role, content string) string {
	switch role {
	case RoleTool:
		if strings.HasPrefix(content, ObservationPrefix) {
			content = summarizeObservation(content)
		}
		if len(content) > genericKeepHead+genericKeepTail {
			content = shrinkHeadTail(content)
		}
		return content
	case RoleAssistant:
		if len(content) > shrinkThreshold {
			return shrinkRatio(content)
		}
	}
	return content
}

// summarizeObservation keeps the observation header plus the first couple
// of body lines and notes the original line count.
func summarizeObservation(content string) string {
	lines := strings.Split(content, "\n")
	keep := 1 + observationBodyLines
	if len(lines) <= keep {
		return content
	}
	return strings.Join(lines[:keep], "\n") +
		fmt.Sprintf("\n[... output truncated, %d lines total ...]", len(lines))
}

// shrinkHeadTail keeps head and tail fragments of long generic text and
// notes the original character count.
func shrinkHeadTail(content string) string {
	if len(content) <= genericKeepHead+genericKeepTail {
		return content
	}
	return content[:genericKeepHead] +
		fmt.Sprintf("\n[... truncated, %d characters total ...]\n", len(content)) +
		content[len(content)-genericKeepTail:]
}

// shrinkRatio truncates to 30% of the original length (no shorter than the
// floor) and notes the original character count.
func shrinkRatio(content string) string {
	keep := len(content) * 3 / 10
	if keep < shrinkFloor {
		keep = shrinkFloor
	}
	if keep >= len(content) {
		return content
	}
	return content[:keep] +
		fmt.Sprintf("\n[... truncated, %d characters total ...]", len(content))
}
