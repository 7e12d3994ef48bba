package agent

import "strings"

// promptCompactionThreshold is the next-step prompt length past which
// compaction kicks in. Corrective instructions and progress summaries
// accumulate on the prompt; compaction bounds what each exchange carries.
const promptCompactionThreshold = 500

// directivePrefixes mark lines that survive prompt compaction.
var directivePrefixes = []string{"#", "*", "-", "1.", "2.", "3.", ">"}

// emphasisKeywords keep a line through compaction regardless of prefix.
var emphasisKeywords = []string{"IMPORTANT", "NOTE", "REQUIRED"}

// optimizeNextStepPrompt compacts an overgrown next-step prompt down to
// its leading lines, directive lines, and trailing lines, joined with an
// elision marker. The prompt is returned unchanged when compaction would
// not at least halve the line count.
func optimizeNextStepPrompt(prompt string) string {
	if len(prompt) <= promptCompactionThreshold {
		return prompt
	}

	lines := strings.Split(prompt, "\n")

	headerCount := len(lines) / 4
	if headerCount > 3 {
		headerCount = 3
	}

	kept := make([]string, 0, len(lines))
	kept = append(kept, lines[:headerCount]...)

	for _, line := range lines[headerCount:] {
		if isDirectiveLine(line) {
			kept = append(kept, line)
		}
	}

	// Trailing lines usually carry the operative instruction.
	if len(lines) > headerCount+len(kept) {
		footerCount := len(lines) / 5
		if footerCount > 3 {
			footerCount = 3
		}
		if footerCount == 0 {
			return prompt
		}
		kept = append(kept, lines[len(lines)-footerCount:]...)
	}

	if len(kept) >= len(lines)/2 {
		return prompt
	}

	optimized := strings.Join(kept, "\n")
	if headerCount > 0 && len(kept) > headerCount {
		header := strings.Join(kept[:headerCount], "\n")
		rest := strings.Join(kept[headerCount:], "\n")
		optimized = header + "\n...(omitted)...\n" + rest
	}
	return optimized
}

// isDirectiveLine reports whether a line looks like an instruction worth
// keeping: a heading, bullet, numbered item, quote, or emphasized note.
func isDirectiveLine(line string) bool {
	stripped := strings.TrimSpace(line)
	for _, prefix := range directivePrefixes {
		if strings.HasPrefix(stripped, prefix) {
			return true
		}
	}
	for _, kw := range emphasisKeywords {
		if strings.Contains(line, kw) {
			return true
		}
	}
	return false
}
