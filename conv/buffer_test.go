package conv

import (
	"encoding/json"
	"fmt"
	"testing"
)

func TestBufferCoalescesConsecutiveToolTurns(t *testing.T) {
	b := NewBuffer(DefaultConfig(), nil)
	b.Add(UserTurn("run both"))
	b.Add(AssistantToolCallTurn("", []ToolCall{
		{ID: "call_1", Name: "search", Arguments: json.RawMessage(`{}`)},
		{ID: "call_2", Name: "search", Arguments: json.RawMessage(`{}`)},
	}))
	b.Add(ToolTurn("first result", "call_1", "search"))
	b.Add(ToolTurn("second result", "call_2", "search"))

	if b.Len() != 3 {
		t.Fatalf("expected 3 turns after coalescing, got %d", b.Len())
	}
	last := b.Turns()[2]
	if last.Role != RoleTool {
		t.Errorf("expected last role %q, got %q", RoleTool, last.Role)
	}
	if last.Content != "first result\nsecond result" {
		t.Errorf("expected concatenated content, got %q", last.Content)
	}
}

func TestBufferAdjacentRolesNeverMatch(t *testing.T) {
	b := NewBuffer(DefaultConfig(), nil)
	seq := []Turn{
		SystemTurn("rules"),
		UserTurn("a"),
		UserTurn("b"),
		AssistantTurn("x"),
		AssistantTurn("y"),
		ToolTurn("r1", "call_1", "shell"),
		ToolTurn("r2", "call_2", "shell"),
		UserTurn("c"),
	}
	b.AddAll(seq...)

	turns := b.Turns()
	for i := 1; i < len(turns); i++ {
		if turns[i].Role == turns[i-1].Role {
			t.Fatalf("adjacent turns %d and %d share role %q", i-1, i, turns[i].Role)
		}
	}
	if b.Len() != 5 {
		t.Errorf("expected 5 turns after coalescing, got %d", b.Len())
	}
}

func TestBufferMaxTurnsDropsOldest(t *testing.T) {
	b := NewBuffer(Config{MaxTurns: 100, ContextCharBudget: 1 << 20}, nil)
	for i := 0; i < 101; i++ {
		if i%2 == 0 {
			b.Add(UserTurn(fmt.Sprintf("user %d", i)))
		} else {
			b.Add(AssistantTurn(fmt.Sprintf("assistant %d", i)))
		}
	}

	if b.Len() != 100 {
		t.Fatalf("expected 100 turns, got %d", b.Len())
	}
	turns := b.Turns()
	if turns[0].Content != "assistant 1" {
		t.Errorf("expected oldest turn dropped and buffer to start at the second insert, got %q", turns[0].Content)
	}
	if turns[len(turns)-1].Content != "user 100" {
		t.Errorf("expected newest turn last, got %q", turns[len(turns)-1].Content)
	}
	for i := 1; i < len(turns); i++ {
		if turns[i].Role == turns[i-1].Role {
			t.Fatalf("order not preserved: adjacent turns %d and %d share role", i-1, i)
		}
	}
}

func TestBufferCoalesceMergesToolCalls(t *testing.T) {
	b := NewBuffer(DefaultConfig(), nil)
	b.Add(AssistantToolCallTurn("step one", []ToolCall{{ID: "call_1", Name: "read"}}))
	b.Add(AssistantToolCallTurn("step two", []ToolCall{{ID: "call_2", Name: "write"}}))

	if b.Len() != 1 {
		t.Fatalf("expected 1 turn, got %d", b.Len())
	}
	turn := b.Turns()[0]
	if len(turn.ToolCalls) != 2 {
		t.Fatalf("expected 2 merged tool calls, got %d", len(turn.ToolCalls))
	}
	if turn.ToolCalls[0].ID != "call_1" || turn.ToolCalls[1].ID != "call_2" {
		t.Errorf("tool call order not preserved: %v", turn.ToolCalls)
	}
	if turn.Content != "step one\nstep two" {
		t.Errorf("expected concatenated content, got %q", turn.Content)
	}
}

func TestBufferCoalesceKeepsMaxImportance(t *testing.T) {
	b := NewBuffer(DefaultConfig(), nil)
	low := AssistantTurn("low")
	low.Importance = 3
	high := AssistantTurn("high")
	high.Importance = 9
	b.Add(low)
	b.Add(high)

	if b.Len() != 1 {
		t.Fatalf("expected 1 turn, got %d", b.Len())
	}
	if got := b.Turns()[0].Importance; got != 9 {
		t.Errorf("expected merged importance 9, got %d", got)
	}
}

func TestBufferCoalesceSkipsEmptyContent(t *testing.T) {
	b := NewBuffer(DefaultConfig(), nil)
	b.Add(AssistantTurn("only text"))
	b.Add(AssistantToolCallTurn("", []ToolCall{{ID: "call_1", Name: "shell"}}))

	turn := b.Turns()[0]
	if turn.Content != "only text" {
		t.Errorf("expected content unchanged, got %q", turn.Content)
	}
	if len(turn.ToolCalls) != 1 {
		t.Errorf("expected 1 tool call, got %d", len(turn.ToolCalls))
	}
}

func TestBufferAddDefaultsAndClampsImportance(t *testing.T) {
	b := NewBuffer(DefaultConfig(), nil)
	b.Add(Turn{Role: RoleUser, Content: "raw"})
	if got := b.Turns()[0].Importance; got != 8 {
		t.Errorf("expected defaulted importance 8, got %d", got)
	}

	b.Add(Turn{Role: RoleAssistant, Content: "big", Importance: 42})
	if got := b.Turns()[1].Importance; got != 10 {
		t.Errorf("expected clamped importance 10, got %d", got)
	}
}

func TestBufferUnlinkedToolTurnStillAdded(t *testing.T) {
	b := NewBuffer(DefaultConfig(), nil)
	b.Add(UserTurn("go"))
	b.Add(ToolTurn("orphan result", "call_missing", "shell"))

	if b.Len() != 2 {
		t.Fatalf("expected unlinked tool turn to be kept, got %d turns", b.Len())
	}
}

func TestBufferTurnsReturnsCopy(t *testing.T) {
	b := NewBuffer(DefaultConfig(), nil)
	b.Add(UserTurn("original"))

	turns := b.Turns()
	turns[0].Content = "mutated"
	if got := b.Turns()[0].Content; got != "original" {
		t.Errorf("buffer content changed through returned slice: %q", got)
	}
}

func TestBufferRecent(t *testing.T) {
	b := NewBuffer(DefaultConfig(), nil)
	b.Add(UserTurn("one"))
	b.Add(AssistantTurn("two"))
	b.Add(UserTurn("three"))

	recent := b.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(recent))
	}
	if recent[0].Content != "two" || recent[1].Content != "three" {
		t.Errorf("expected the two newest turns, got %q and %q", recent[0].Content, recent[1].Content)
	}

	if got := b.Recent(10); len(got) != 3 {
		t.Errorf("expected all 3 turns when n exceeds length, got %d", len(got))
	}
	if got := b.Recent(0); got != nil {
		t.Errorf("expected nil for n=0, got %v", got)
	}
}

func TestBufferSetTurnsReplacesContent(t *testing.T) {
	b := NewBuffer(DefaultConfig(), nil)
	b.Add(UserTurn("old"))

	b.SetTurns([]Turn{SystemTurn("seeded"), UserTurn("request")})
	if b.Len() != 2 {
		t.Fatalf("expected 2 turns, got %d", b.Len())
	}
	if b.Turns()[0].Role != RoleSystem {
		t.Errorf("expected seeded system turn first, got %q", b.Turns()[0].Role)
	}
}

func TestBufferClear(t *testing.T) {
	b := NewBuffer(DefaultConfig(), nil)
	b.Add(UserTurn("x"))
	b.Clear()
	if b.Len() != 0 {
		t.Errorf("expected empty buffer, got %d turns", b.Len())
	}
}

func TestBufferContextLength(t *testing.T) {
	b := NewBuffer(DefaultConfig(), nil)
	b.Add(UserTurn("12345"))
	b.Add(AssistantTurn("1234567890"))

	want := (5 + 20) + (10 + 20)
	if got := b.ContextLength(); got != want {
		t.Errorf("expected context length %d, got %d", want, got)
	}
	if got := b.ContentLength(); got != 15 {
		t.Errorf("expected content length 15, got %d", got)
	}
}
