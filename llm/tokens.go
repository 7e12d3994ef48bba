package llm

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encoderOnce sync.Once
	encoder     *tiktoken.Tiktoken
)

// EstimateTokens counts tokens with the cl100k_base encoding, falling back
// to a runes/4 heuristic when the encoding is unavailable (offline hosts).
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	encoderOnce.Do(func() {
		if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
			encoder = enc
		}
	})
	if encoder != nil {
		return len(encoder.Encode(text, nil, nil))
	}
	runes := utf8.RuneCountInString(text)
	return (runes + 3) / 4
}

// estimateUsage fills a Usage from the request transcript and the response
// text.
func estimateUsage(req AskRequest, responseText string) Usage {
	input := EstimateTokens(req.System)
	for _, turn := range req.Turns {
		input += EstimateTokens(turn.Content)
		for _, call := range turn.ToolCalls {
			input += EstimateTokens(call.Name) + EstimateTokens(string(call.Arguments))
		}
	}
	output := EstimateTokens(responseText)
	return Usage{
		InputTokens:  input,
		OutputTokens: output,
		TotalTokens:  input + output,
	}
}
