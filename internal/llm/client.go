package llm

import "context"

// Client is the interface the assistant uses to talk to a model.
type Client interface {
	// Chat sends a chat completion request and returns the response.
	// tools carries the JSON Schema tool definitions, or nil to force
	// a plain text reply.
	Chat(ctx context.Context, model string, messages []Message, tools []map[string]any) (*ChatResponse, error)
}
