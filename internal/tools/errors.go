package tools

import "fmt"

// DuplicateToolError is returned when a tool name is registered twice.
// Registration happens once at process start, so this is a programming
// error and callers should treat it as fatal.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q is already registered", e.Name)
}

// UnknownToolError is returned when a dispatch targets a tool that is
// not in the registry. The registry and the schemas sent to the model
// are built from the same descriptors, so this indicates a model
// hallucination and is handled defensively rather than crashing.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// InvalidParamsError reports a schema validation failure for one field.
// It is fed back into the conversation as a tool-error turn so the
// model can retry with corrected arguments.
type InvalidParamsError struct {
	Field  string
	Reason string
}

func (e *InvalidParamsError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Field, e.Reason)
}

// UserFacing is implemented by handler errors that carry a message safe
// to speak to the user. The dispatcher converts these into plain result
// strings instead of propagating them, so a failed tool never crashes
// the conversation loop.
type UserFacing interface {
	error
	UserMessage() string
}
