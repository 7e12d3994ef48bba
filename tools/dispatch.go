package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gaitloop/gait/conv"
)

// ResolutionError reports a call to a tool that is not registered.
type ResolutionError struct {
	Name string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// ArgumentError reports a call whose arguments payload is not valid JSON.
type ArgumentError struct {
	Name  string
	Cause error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("parse arguments for %s: %v", e.Name, e.Cause)
}

func (e *ArgumentError) Unwrap() error {
	return e.Cause
}

// ExecutionError reports a tool that returned an error or panicked.
type ExecutionError struct {
	Name  string
	Cause error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Name, e.Cause)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Dispatcher resolves, validates, and executes tool calls against a
// Registry. Every failure mode is downgraded to an "Error: ..."
// observation string; dispatch errors never propagate to the caller.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher over the given registry. A nil
// logger falls back to slog.Default.
func NewDispatcher(registry *Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{registry: registry, logger: logger}
}

// Dispatch executes one tool call and formats the outcome as the
// observation the model will see. terminal reports whether the call
// successfully executed a terminal tool.
func (d *Dispatcher) Dispatch(ctx context.Context, call conv.ToolCall) (observation string, terminal bool) {
	if call.Name == "" {
		return "Error: Invalid command format", false
	}

	result, err := d.execute(ctx, call)
	if err != nil {
		d.logger.Warn("tool call downgraded to error observation",
			"tool", call.Name,
			"error", err)
		return downgrade(call.Name, err), false
	}

	d.logger.Debug("tool executed",
		"tool", call.Name,
		"result_chars", len(result))

	terminal = d.registry.IsTerminal(call.Name)
	if result == "" {
		return fmt.Sprintf("Cmd `%s` completed with no output", call.Name), terminal
	}
	return fmt.Sprintf("%s `%s` executed:\n%s", conv.ObservationPrefix, call.Name, result), terminal
}

// execute runs the resolution/validation/execution pipeline, returning
// one of the typed dispatch errors on failure.
func (d *Dispatcher) execute(ctx context.Context, call conv.ToolCall) (result string, err error) {
	tool, ok := d.registry.Resolve(call.Name)
	if !ok {
		return "", &ResolutionError{Name: call.Name}
	}

	args := map[string]interface{}{}
	if len(call.Arguments) > 0 {
		if jsonErr := json.Unmarshal(call.Arguments, &args); jsonErr != nil {
			return "", &ArgumentError{Name: call.Name, Cause: jsonErr}
		}
	}

	// A panicking tool must not take the run down with it.
	defer func() {
		if r := recover(); r != nil {
			result = ""
			err = &ExecutionError{Name: call.Name, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	out, execErr := tool.Execute(ctx, args)
	if execErr != nil {
		return "", &ExecutionError{Name: call.Name, Cause: execErr}
	}
	return out, nil
}

// downgrade renders a dispatch failure as the observation the model sees.
func downgrade(name string, err error) string {
	switch e := err.(type) {
	case *ResolutionError:
		return fmt.Sprintf("Error: Unknown tool '%s'", e.Name)
	case *ArgumentError:
		return fmt.Sprintf("Error: Error parsing arguments for %s: Invalid JSON format", e.Name)
	case *ExecutionError:
		return fmt.Sprintf("Error: Tool '%s' encountered a problem: %v", e.Name, e.Cause)
	default:
		return fmt.Sprintf("Error: Tool '%s' encountered a problem: %v", name, err)
	}
}
