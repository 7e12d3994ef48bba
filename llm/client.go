package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"

	"github.com/gaitloop/gait/conv"
)

// Client talks to a model provider through gollm, normalizing transport
// failures into the package taxonomy and retrying per policy. Safe for
// concurrent use as long as the wrapped gollm instance is.
type Client struct {
	provider string
	model    string
	llm      gollm.LLM
	retry    RetryPolicy
	logger   *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	retry       RetryPolicy
	logger      *slog.Logger
	extraOpts   []gollm.ConfigOption
}

// WithAPIKey sets the provider API key. When empty, gollm reads it from
// the provider's environment variable.
func WithAPIKey(key string) ClientOption {
	return func(c *clientConfig) {
		c.apiKey = key
	}
}

// WithModel overrides the provider's default model.
func WithModel(model string) ClientOption {
	return func(c *clientConfig) {
		c.model = model
	}
}

// WithMaxTokens caps the response length.
func WithMaxTokens(n int) ClientOption {
	return func(c *clientConfig) {
		c.maxTokens = n
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) ClientOption {
	return func(c *clientConfig) {
		c.temperature = t
	}
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p RetryPolicy) ClientOption {
	return func(c *clientConfig) {
		c.retry = p
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// WithGollmOptions appends extra gollm configuration options.
func WithGollmOptions(opts ...gollm.ConfigOption) ClientOption {
	return func(c *clientConfig) {
		c.extraOpts = append(c.extraOpts, opts...)
	}
}

// NewClient builds a Client for the given provider ("openai", "anthropic",
// "ollama", ...).
func NewClient(provider string, opts ...ClientOption) (*Client, error) {
	cfg := &clientConfig{
		maxTokens:   4096,
		temperature: 0.7,
		retry:       DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	model := cfg.model
	if model == "" {
		switch provider {
		case "anthropic":
			model = "claude-sonnet-4-5-20250514"
		default:
			model = "gpt-4o-mini"
		}
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetMaxTokens(cfg.maxTokens),
		gollm.SetTemperature(cfg.temperature),
		gollm.SetMaxRetries(0), // retries handled here, taxonomy-aware
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if cfg.apiKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(cfg.apiKey))
	}
	gollmOpts = append(gollmOpts, cfg.extraOpts...)

	instance, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, fmt.Errorf("create model client for provider %s: %w", provider, err)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		provider: provider,
		model:    model,
		llm:      instance,
		retry:    cfg.retry,
		logger:   logger,
	}, nil
}

// NewClientFromLLM wraps an already-configured gollm instance.
func NewClientFromLLM(provider string, instance gollm.LLM) *Client {
	return &Client{
		provider: provider,
		llm:      instance,
		retry:    DefaultRetryPolicy(),
		logger:   slog.Default(),
	}
}

// Ask sends one exchange and returns the parsed response.
func (c *Client) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	prompt := c.buildPrompt(req)

	text, err := Retry(ctx, c.retry, func(ctx context.Context) (string, error) {
		out, genErr := c.llm.Generate(ctx, prompt)
		if genErr != nil {
			return "", classify(c.provider, genErr)
		}
		return out, nil
	})
	if err != nil {
		c.logger.Error("model exchange failed",
			"provider", c.provider,
			"model", c.model,
			"error", err)
		return nil, err
	}

	return c.buildResponse(req, text), nil
}

// buildPrompt flattens the transcript into gollm's single-prompt form.
func (c *Client) buildPrompt(req AskRequest) *gollm.Prompt {
	var opts []gollm.PromptOption

	if system := systemText(req); system != "" {
		opts = append(opts, gollm.WithSystemPrompt(system, gollm.CacheTypeEphemeral))
	}

	if len(req.Tools) > 0 {
		tools := make([]gollm.Tool, 0, len(req.Tools))
		for _, t := range req.Tools {
			tools = append(tools, gollm.Tool{
				Type: "function",
				Function: gollm.Function{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
		opts = append(opts, gollm.WithTools(tools))
	}

	if req.ToolChoice != "" {
		opts = append(opts, gollm.WithToolChoice(string(req.ToolChoice)))
	}

	return gollm.NewPrompt(promptText(req.Turns), opts...)
}

// systemText joins the request-level system text with system-role turns.
func systemText(req AskRequest) string {
	var parts []string
	if req.System != "" {
		parts = append(parts, req.System)
	}
	for _, turn := range req.Turns {
		if turn.Role == conv.RoleSystem && turn.Content != "" {
			parts = append(parts, turn.Content)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// promptText renders the non-system transcript as one prompt, with role
// prefixes so multi-turn context survives the flattening.
func promptText(turns []conv.Turn) string {
	var parts []string
	for _, turn := range turns {
		switch turn.Role {
		case conv.RoleUser:
			if turn.Content != "" {
				parts = append(parts, turn.Content)
			}
		case conv.RoleAssistant:
			if turn.Content != "" {
				parts = append(parts, "[Assistant]: "+turn.Content)
			}
			for _, call := range turn.ToolCalls {
				parts = append(parts, fmt.Sprintf("[Assistant tool call]: %s(%s)", call.Name, string(call.Arguments)))
			}
		case conv.RoleTool:
			if turn.Content != "" {
				parts = append(parts, "[Tool Result]: "+turn.Content)
			}
		}
	}
	text := strings.Join(parts, "\n")
	if text == "" {
		// gollm rejects empty prompts.
		text = "Hello"
	}
	return text
}

// buildResponse parses the generated text into content plus tool calls.
func (c *Client) buildResponse(req AskRequest, text string) *AskResponse {
	calls := parseToolCalls(text)
	content := text
	if len(calls) > 0 {
		content = stripToolCallJSON(text)
	}

	return &AskResponse{
		ID:        "resp_" + uuid.New().String()[:8],
		Model:     c.model,
		Content:   content,
		ToolCalls: calls,
		Usage:     estimateUsage(req, text),
	}
}

type rawToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// parseToolCalls extracts tool calls gollm returns embedded in the
// response text: a {"tool_calls": [...]} envelope or a bare
// [{"name": ..., "arguments": ...}] array, possibly with surrounding prose.
func parseToolCalls(text string) []conv.ToolCall {
	var raw []rawToolCall

	if idx := strings.Index(text, `{"tool_calls"`); idx != -1 {
		var envelope struct {
			ToolCalls []rawToolCall `json:"tool_calls"`
		}
		dec := json.NewDecoder(strings.NewReader(text[idx:]))
		if err := dec.Decode(&envelope); err == nil {
			raw = envelope.ToolCalls
		}
	}
	if raw == nil {
		if idx := strings.Index(text, `[{"name"`); idx != -1 {
			var arr []rawToolCall
			dec := json.NewDecoder(strings.NewReader(text[idx:]))
			if err := dec.Decode(&arr); err == nil {
				raw = arr
			}
		}
	}
	if len(raw) == 0 {
		return nil
	}

	calls := make([]conv.ToolCall, 0, len(raw))
	for _, rc := range raw {
		if rc.Name == "" {
			continue
		}
		calls = append(calls, conv.ToolCall{
			ID:        "call_" + uuid.New().String()[:8],
			Name:      rc.Name,
			Arguments: rc.Arguments,
		})
	}
	return calls
}

// stripToolCallJSON drops the parsed tool-call JSON from the visible text.
func stripToolCallJSON(text string) string {
	for _, marker := range []string{`{"tool_calls"`, `[{"name"`} {
		if idx := strings.Index(text, marker); idx != -1 {
			text = strings.TrimSpace(text[:idx])
		}
	}
	return text
}
