package tools

import (
	"context"
	"fmt"
)

// Terminate statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Terminate returns the builtin terminal tool the model calls to end the
// run, reporting whether the request was met.
func Terminate() Tool {
	return Tool{
		Name:        "terminate",
		Description: "Terminate the interaction when the request is met OR if the assistant cannot proceed further with the task.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"status": map[string]interface{}{
					"type":        "string",
					"description": "The finish status of the interaction.",
					"enum":        []string{StatusSuccess, StatusFailure},
				},
			},
			"required": []string{"status"},
		},
		Terminal: true,
		Execute: func(ctx context.Context, args map[string]interface{}) (string, error) {
			status, _ := args["status"].(string)
			switch status {
			case StatusSuccess, StatusFailure:
				return fmt.Sprintf("The interaction has been completed with status: %s", status), nil
			default:
				return "", fmt.Errorf("status must be %q or %q", StatusSuccess, StatusFailure)
			}
		},
	}
}

// RegisterBuiltins adds the builtin tools to the registry.
func RegisterBuiltins(reg *Registry) {
	reg.Register(Terminate())
}
