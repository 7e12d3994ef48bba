package tools

import (
	"context"
	"sort"
	"testing"
)

func echoTool(name string) Tool {
	return Tool{
		Name:        name,
		Description: "echoes its input",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"text": map[string]interface{}{"type": "string"},
			},
		},
		Execute: func(ctx context.Context, args map[string]interface{}) (string, error) {
			text, _ := args["text"].(string)
			return text, nil
		},
	}
}

func TestRegistryRegisterAndResolve(t *testing.T) {
	reg := NewRegistry()
	reg.Register(echoTool("echo"))

	tool, ok := reg.Resolve("echo")
	if !ok {
		t.Fatal("expected tool to resolve")
	}
	if tool.Name != "echo" {
		t.Errorf("expected name %q, got %q", "echo", tool.Name)
	}

	if _, ok := reg.Resolve("Echo"); ok {
		t.Error("resolution is exact-match; differently-cased name must not resolve")
	}
	if _, ok := reg.Resolve("missing"); ok {
		t.Error("expected missing tool to not resolve")
	}
}

func TestRegistryRegisterReplaces(t *testing.T) {
	reg := NewRegistry()
	first := echoTool("echo")
	first.Description = "first"
	second := echoTool("echo")
	second.Description = "second"

	reg.Register(first)
	reg.Register(second)

	if reg.Count() != 1 {
		t.Fatalf("expected 1 tool, got %d", reg.Count())
	}
	tool, _ := reg.Resolve("echo")
	if tool.Description != "second" {
		t.Errorf("expected replacement to win, got %q", tool.Description)
	}
}

func TestRegistryUnregister(t *testing.T) {
	reg := NewRegistry()
	reg.Register(echoTool("echo"))
	reg.Unregister("echo")

	if reg.Count() != 0 {
		t.Errorf("expected empty registry, got %d tools", reg.Count())
	}
}

func TestRegistryIsTerminal(t *testing.T) {
	reg := NewRegistry()
	reg.Register(echoTool("echo"))
	reg.Register(Terminate())

	tests := []struct {
		name     string
		terminal bool
	}{
		{"terminate", true},
		{"Terminate", true},
		{"TERMINATE", true},
		{"echo", false},
		{"missing", false},
	}
	for _, tt := range tests {
		if got := reg.IsTerminal(tt.name); got != tt.terminal {
			t.Errorf("IsTerminal(%q) = %v, want %v", tt.name, got, tt.terminal)
		}
	}
}

func TestRegistryDefinitions(t *testing.T) {
	reg := NewRegistry()
	reg.Register(echoTool("echo"))
	reg.Register(Terminate())

	defs := reg.Definitions()
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}
	byName := map[string]bool{}
	for _, d := range defs {
		byName[d.Name] = true
		if d.Parameters == nil {
			t.Errorf("definition %q missing parameters schema", d.Name)
		}
	}
	if !byName["echo"] || !byName["terminate"] {
		t.Errorf("unexpected definition set: %v", byName)
	}
}

func TestRegistryNamesAndCount(t *testing.T) {
	reg := NewRegistry()
	reg.Register(echoTool("alpha"))
	reg.Register(echoTool("beta"))

	names := reg.Names()
	sort.Strings(names)
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("unexpected names: %v", names)
	}
	if reg.Count() != 2 {
		t.Errorf("expected count 2, got %d", reg.Count())
	}
}
