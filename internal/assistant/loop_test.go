package assistant

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/murmur-assistant/murmur/internal/llm"
	"github.com/murmur-assistant/murmur/internal/tools"
)

type chatCall struct {
	model    string
	messages []llm.Message
	tools    []map[string]any
}

// scriptedLLM replays canned responses and records every request.
type scriptedLLM struct {
	responses []*llm.ChatResponse
	calls     []chatCall
}

func (s *scriptedLLM) Chat(ctx context.Context, model string, messages []llm.Message, defs []map[string]any) (*llm.ChatResponse, error) {
	msgs := make([]llm.Message, len(messages))
	copy(msgs, messages)
	s.calls = append(s.calls, chatCall{model: model, messages: msgs, tools: defs})

	if len(s.responses) == 0 {
		return nil, fmt.Errorf("scripted llm: no responses left")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func textResponse(content string) *llm.ChatResponse {
	return &llm.ChatResponse{
		Message:      llm.Message{Role: llm.RoleAssistant, Content: content},
		FinishReason: "stop",
	}
}

func toolResponse(calls ...llm.ToolCall) *llm.ChatResponse {
	return &llm.ChatResponse{
		Message:      llm.Message{Role: llm.RoleAssistant, ToolCalls: calls},
		FinishReason: "tool_calls",
	}
}

func testRegistry(t *testing.T, executed *[]string) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
	for _, name := range []string{"get_weather_report", "get_news_report"} {
		name := name
		err := reg.Register(&tools.Tool{
			Name:        name,
			Description: "test tool",
			Schema:      tools.Schema{{Name: "topic", Type: tools.TypeString, Required: true}},
			Handler: func(_ context.Context, args map[string]any) (string, error) {
				*executed = append(*executed, name)
				return "result of " + name, nil
			},
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	return reg
}

func newTestLoop(t *testing.T, client llm.Client, reg *tools.Registry, maxIter int) *Loop {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(client, reg, "test-model", maxIter, logger)
}

func TestRunTerminalTextResponse(t *testing.T) {
	var executed []string
	reg := testRegistry(t, &executed)
	fake := &scriptedLLM{responses: []*llm.ChatResponse{textResponse("It is sunny.")}}

	loop := newTestLoop(t, fake, reg, 0)
	result, err := loop.Run(context.Background(), "what's the weather")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.FinalResponse != "It is sunny." {
		t.Errorf("FinalResponse = %q", result.FinalResponse)
	}
	if result.UserInput != "what's the weather" {
		t.Errorf("UserInput = %q", result.UserInput)
	}
	if result.ID == "" {
		t.Error("empty interaction ID")
	}
	if len(result.ToolCalls) != 0 || len(executed) != 0 {
		t.Errorf("tools executed on a terminal response: %v", executed)
	}

	// First request carries the system prompt and the tool schemas.
	call := fake.calls[0]
	if call.messages[0].Role != llm.RoleSystem {
		t.Errorf("first message role = %q", call.messages[0].Role)
	}
	if len(call.tools) != 2 {
		t.Errorf("tool definitions sent = %d, want 2", len(call.tools))
	}
}

func TestRunToolResultsPreserveInvocationOrder(t *testing.T) {
	var executed []string
	reg := testRegistry(t, &executed)
	fake := &scriptedLLM{responses: []*llm.ChatResponse{
		toolResponse(
			llm.ToolCall{ID: "call_a", Name: "get_weather_report", Arguments: map[string]any{"topic": "local"}},
			llm.ToolCall{ID: "call_b", Name: "get_news_report", Arguments: map[string]any{"topic": "world"}},
		),
		textResponse("Here's your briefing."),
	}}

	loop := newTestLoop(t, fake, reg, 0)
	result, err := loop.Run(context.Background(), "morning briefing")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if want := []string{"get_weather_report", "get_news_report"}; !equalStrings(executed, want) {
		t.Errorf("execution order = %v, want %v", executed, want)
	}
	if len(result.ToolCalls) != 2 || result.ToolCalls[0].Name != "get_weather_report" || result.ToolCalls[1].Name != "get_news_report" {
		t.Errorf("tracked calls = %+v", result.ToolCalls)
	}

	// Second request: system, user, assistant tool-call turn, then the
	// two tool results in invocation order with matching IDs.
	msgs := fake.calls[1].messages
	if len(msgs) != 5 {
		t.Fatalf("second request has %d messages, want 5", len(msgs))
	}
	if msgs[2].Role != llm.RoleAssistant || len(msgs[2].ToolCalls) != 2 {
		t.Errorf("assistant turn = %+v", msgs[2])
	}
	if msgs[3].ToolCallID != "call_a" || msgs[3].Content != "result of get_weather_report" {
		t.Errorf("first tool turn = %+v", msgs[3])
	}
	if msgs[4].ToolCallID != "call_b" || msgs[4].Content != "result of get_news_report" {
		t.Errorf("second tool turn = %+v", msgs[4])
	}
}

func TestRunToolErrorFedBackToModel(t *testing.T) {
	var executed []string
	reg := testRegistry(t, &executed)
	fake := &scriptedLLM{responses: []*llm.ChatResponse{
		toolResponse(llm.ToolCall{ID: "call_x", Name: "launch_rocket", Arguments: map[string]any{}}),
		textResponse("Sorry, I can't do that."),
	}}

	loop := newTestLoop(t, fake, reg, 0)
	result, err := loop.Run(context.Background(), "launch the rocket")
	if err != nil {
		t.Fatalf("Run must survive tool errors: %v", err)
	}
	if result.FinalResponse != "Sorry, I can't do that." {
		t.Errorf("FinalResponse = %q", result.FinalResponse)
	}

	msgs := fake.calls[1].messages
	errTurn := msgs[len(msgs)-1]
	if errTurn.Role != llm.RoleTool || !strings.HasPrefix(errTurn.Content, "Error: ") {
		t.Errorf("error turn = %+v", errTurn)
	}
	if !strings.Contains(errTurn.Content, "launch_rocket") {
		t.Errorf("error turn does not name the tool: %q", errTurn.Content)
	}
}

func TestRunInvalidParamsFedBackToModel(t *testing.T) {
	var executed []string
	reg := testRegistry(t, &executed)
	fake := &scriptedLLM{responses: []*llm.ChatResponse{
		toolResponse(llm.ToolCall{ID: "call_x", Name: "get_weather_report", Arguments: map[string]any{}}),
		textResponse("Which topic?"),
	}}

	loop := newTestLoop(t, fake, reg, 0)
	if _, err := loop.Run(context.Background(), "weather"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	msgs := fake.calls[1].messages
	errTurn := msgs[len(msgs)-1]
	if !strings.Contains(errTurn.Content, "topic") {
		t.Errorf("validation feedback = %q, should name the field", errTurn.Content)
	}
	if len(executed) != 0 {
		t.Errorf("handler ran despite invalid params: %v", executed)
	}
}

func TestRunIterationBoundForcesTextResponse(t *testing.T) {
	var executed []string
	reg := testRegistry(t, &executed)

	// The model keeps asking for tools; only the final forced call,
	// issued without tool schemas, yields text.
	fake := &scriptedLLM{responses: []*llm.ChatResponse{
		toolResponse(llm.ToolCall{ID: "c1", Name: "get_weather_report", Arguments: map[string]any{"topic": "a"}}),
		toolResponse(llm.ToolCall{ID: "c2", Name: "get_weather_report", Arguments: map[string]any{"topic": "b"}}),
		toolResponse(llm.ToolCall{ID: "c3", Name: "get_weather_report", Arguments: map[string]any{"topic": "c"}}),
		textResponse("I checked the weather several times."),
	}}

	loop := newTestLoop(t, fake, reg, 3)
	result, err := loop.Run(context.Background(), "weather loop")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.FinalResponse != "I checked the weather several times." {
		t.Errorf("FinalResponse = %q", result.FinalResponse)
	}
	if len(fake.calls) != 4 {
		t.Fatalf("llm calls = %d, want 4 (3 bounded + 1 forced)", len(fake.calls))
	}
	for i := 0; i < 3; i++ {
		if len(fake.calls[i].tools) == 0 {
			t.Errorf("call %d sent no tool schemas", i)
		}
	}
	if fake.calls[3].tools != nil {
		t.Error("forced final call still offered tools")
	}
	if len(executed) != 3 {
		t.Errorf("tools executed = %d, want 3", len(executed))
	}
}

func TestSystemPromptCarriesTimestamp(t *testing.T) {
	var executed []string
	loop := newTestLoop(t, &scriptedLLM{}, testRegistry(t, &executed), 0)
	loop.now = func() time.Time {
		return time.Date(2026, time.March, 14, 15, 9, 0, 0, time.UTC)
	}

	prompt := loop.SystemPrompt()
	if !strings.Contains(prompt, "Saturday, March 14, 2026 at 3:09 PM") {
		t.Errorf("prompt missing timestamp:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Murmur") {
		t.Error("prompt missing assistant name")
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
