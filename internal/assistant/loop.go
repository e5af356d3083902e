// Package assistant runs the tool-call conversation loop: one user
// utterance in, one terminal text response out, with any number of
// model-requested tool invocations in between.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/murmur-assistant/murmur/internal/llm"
	"github.com/murmur-assistant/murmur/internal/tools"
)

const systemPromptTemplate = `You are Murmur, a helpful voice assistant.

## Response Style
- Keep responses concise and conversational
- Responses will be spoken aloud, so avoid markdown, bullet points, or text-only formatting

## Input Context
You receive transcribed speech from a speech-to-text system. Transcriptions may contain:
- Phonetic errors (words that sound similar to what was said)
- Missing or extra words
- Misheard proper nouns or technical terms

Be tolerant of these errors and focus on understanding the user's intent. If a request
is unclear but you can reasonably infer the meaning, proceed with your best interpretation.
If you genuinely cannot understand what the user is asking, briefly explain that you didn't
catch that and ask them to rephrase.

## Current Time
%s

## History
If the user asks about previous conversations, references something discussed before,
or asks "what did I ask earlier", use the get_history tool to look up past interactions.`

const defaultMaxToolIterations = 10

// Loop drives a single conversation: model turns alternate with tool
// execution until the model produces a plain text reply.
type Loop struct {
	client   llm.Client
	registry *tools.Registry
	logger   *slog.Logger
	model    string

	// maxToolIterations bounds the model/tool exchange so a model that
	// keeps requesting tools cannot spin forever.
	maxToolIterations int

	now func() time.Time
}

// ToolCallRecord is one executed tool invocation, kept for history.
type ToolCallRecord struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Result    string         `json:"result"`
}

// Result is the outcome of one user interaction.
type Result struct {
	// ID correlates log lines and history rows for this interaction.
	ID            string
	UserInput     string
	FinalResponse string
	ToolCalls     []ToolCallRecord
}

// New creates a conversation loop. maxToolIterations <= 0 selects the
// default bound.
func New(client llm.Client, registry *tools.Registry, model string, maxToolIterations int, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	if maxToolIterations <= 0 {
		maxToolIterations = defaultMaxToolIterations
	}
	return &Loop{
		client:            client,
		registry:          registry,
		logger:            logger,
		model:             model,
		maxToolIterations: maxToolIterations,
		now:               time.Now,
	}
}

// SystemPrompt renders the system prompt with the current timestamp so
// the model can answer time-relative questions.
func (l *Loop) SystemPrompt() string {
	ts := l.now().Format("Monday, January 2, 2006 at 3:04 PM")
	return fmt.Sprintf(systemPromptTemplate, ts)
}

// Run processes one user utterance. Tool invocations within a model
// turn are executed sequentially and their results appended in
// invocation order, since the model may correlate results by position.
func (l *Loop) Run(ctx context.Context, userText string) (*Result, error) {
	id := uuid.NewString()
	logger := l.logger.With("interaction", id)

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: l.SystemPrompt()},
		{Role: llm.RoleUser, Content: userText},
	}
	var tracked []ToolCallRecord

	for iter := 0; iter < l.maxToolIterations; iter++ {
		resp, err := l.client.Chat(ctx, l.model, messages, l.registry.Definitions())
		if err != nil {
			return nil, fmt.Errorf("chat completion: %w", err)
		}

		if len(resp.Message.ToolCalls) == 0 {
			return &Result{
				ID:            id,
				UserInput:     userText,
				FinalResponse: resp.Message.Content,
				ToolCalls:     tracked,
			}, nil
		}

		messages = append(messages, resp.Message)

		for _, call := range resp.Message.ToolCalls {
			logger.Info("tool call", "tool", call.Name)

			result, err := l.registry.Execute(ctx, call.Name, call.Arguments)
			if err != nil {
				// Fed back to the model so it can correct itself.
				result = "Error: " + err.Error()
				logger.Warn("tool error returned to model", "tool", call.Name, "error", err)
			}

			tracked = append(tracked, ToolCallRecord{
				Name:      call.Name,
				Arguments: call.Arguments,
				Result:    result,
			})
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}

	// Bound hit: one last call without tools forces a text answer.
	logger.Warn("tool iteration bound reached, forcing text response", "bound", l.maxToolIterations)
	resp, err := l.client.Chat(ctx, l.model, messages, nil)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	return &Result{
		ID:            id,
		UserInput:     userText,
		FinalResponse: resp.Message.Content,
		ToolCalls:     tracked,
	}, nil
}
