// Package tools provides the tool registry and dispatch framework.
//
// A Tool pairs a typed parameter schema with a handler. The same schema
// serves the model (as a JSON Schema tool definition) and the command
// line (required fields positional, optional fields flagged), so every
// tool has exactly one implementation no matter where the call came from.
package tools

import (
	"context"
	"errors"
	"log/slog"
)

// Entitlement names an account capability a tool needs before it can
// perform its action.
type Entitlement string

const (
	// EntitlementNone marks tools available to every account.
	EntitlementNone Entitlement = ""

	// EntitlementPremium marks tools that mutate Spotify playback,
	// which the remote service gates behind a Premium subscription.
	EntitlementPremium Entitlement = "premium"
)

// Tool is a callable tool descriptor. Descriptors are registered once
// at process start and are immutable afterwards.
type Tool struct {
	Name        string
	Description string
	Schema      Schema

	// Mutating marks tools with side effects on the outside world.
	// Read-only tools never trigger device discovery or launches.
	Mutating bool

	// Entitlement is the account capability the tool requires.
	Entitlement Entitlement

	Handler func(ctx context.Context, args map[string]any) (string, error)
}

// Registry holds the available tools. Construct one at startup and
// pass it by reference; there is no package-level registration.
type Registry struct {
	logger *slog.Logger
	tools  map[string]*Tool
	order  []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger: logger,
		tools:  make(map[string]*Tool),
	}
}

// Register adds a tool. Registering a name twice fails with
// *DuplicateToolError; callers treat that as fatal at startup.
func (r *Registry) Register(t *Tool) error {
	if _, exists := r.tools[t.Name]; exists {
		return &DuplicateToolError{Name: t.Name}
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
	return nil
}

// Get retrieves a tool by name, or nil if absent.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// Names returns all tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Definitions returns the tool definitions for the model, in
// registration order so the schema sent upstream is stable.
func (r *Registry) Definitions() []map[string]any {
	defs := make([]map[string]any, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Schema.JSONSchema(),
			},
		})
	}
	return defs
}

// Execute dispatches a tool call: look up the descriptor, validate the
// arguments against its schema, and run the handler.
//
// Handler errors that implement [UserFacing] are converted into plain
// result strings — a failed Spotify call becomes something the
// assistant can say, not a crash. All other errors are returned to the
// caller, which feeds them back to the model as a tool-error turn.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	tool := r.tools[name]
	if tool == nil {
		return "", &UnknownToolError{Name: name}
	}

	if args == nil {
		args = make(map[string]any)
	}
	if err := tool.Schema.Validate(args); err != nil {
		return "", err
	}

	r.logger.Debug("tool dispatch", "tool", name, "mutating", tool.Mutating)

	result, err := tool.Handler(ctx, args)
	if err != nil {
		var uf UserFacing
		if errors.As(err, &uf) {
			r.logger.Warn("tool failed", "tool", name, "error", err)
			return uf.UserMessage(), nil
		}
		return "", err
	}
	return result, nil
}

// ExecuteCLI dispatches a tool call whose arguments come from the
// command line, using the schema's positional/flag adapter.
func (r *Registry) ExecuteCLI(ctx context.Context, name string, argv []string) (string, error) {
	tool := r.tools[name]
	if tool == nil {
		return "", &UnknownToolError{Name: name}
	}

	args, err := tool.Schema.ParseCLI(argv)
	if err != nil {
		return "", err
	}
	return r.Execute(ctx, name, args)
}
