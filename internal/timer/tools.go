package timer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/murmur-assistant/murmur/internal/tools"
)

// RegisterTools adds the timer management tools backed by the store.
func RegisterTools(reg *tools.Registry, store *Store) error {
	specs := []*tools.Tool{
		{
			Name:        "set_timer",
			Description: "Set a timer (duration like 5m, 1h30m) or alarm (time like 7:00am, 14:30).",
			Schema: tools.Schema{
				{Name: "time", Type: tools.TypeString, Required: true, Description: "Duration (5m, 1h30m, 90s) or time (7:00am, 14:30)"},
				{Name: "label", Type: tools.TypeString, Description: "Optional label for the timer"},
			},
			Mutating: true,
			Handler:  store.handleSet,
		},
		{
			Name:        "list_timers",
			Description: "List all active timers and alarms.",
			Handler:     store.handleList,
		},
		{
			Name:        "cancel_timer",
			Description: "Cancel a timer or alarm by its label or ID.",
			Schema: tools.Schema{
				{Name: "identifier", Type: tools.TypeString, Required: true, Description: "Timer label or ID to cancel"},
			},
			Mutating: true,
			Handler:  store.handleCancel,
		},
		{
			Name:        "edit_timer",
			Description: "Change the time of an existing timer or alarm.",
			Schema: tools.Schema{
				{Name: "identifier", Type: tools.TypeString, Required: true, Description: "Timer label or ID to edit"},
				{Name: "new_time", Type: tools.TypeString, Required: true, Description: "New duration (5m, 1h30m) or time (7:00am, 14:30)"},
			},
			Mutating: true,
			Handler:  store.handleEdit,
		},
	}

	for _, spec := range specs {
		if err := reg.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) handleSet(ctx context.Context, args map[string]any) (string, error) {
	timeInput := args["time"].(string)
	label, _ := args["label"].(string)

	t, err := s.Create(timeInput, label)
	var pe *ParseError
	if errors.As(err, &pe) {
		// Goes back as plain text so the model can ask the user to
		// rephrase.
		return pe.Error(), nil
	}
	if err != nil {
		return "", err
	}

	labelPart := ""
	if t.Label != "" {
		labelPart = fmt.Sprintf(" '%s'", t.Label)
	}
	return fmt.Sprintf("Timer%s set for %s (fires at %s)",
		labelPart, FormatRemaining(t.FireAt, s.now()), formatClock(t.FireAt)), nil
}

func (s *Store) handleList(ctx context.Context, args map[string]any) (string, error) {
	timers, err := s.List()
	if err != nil {
		return "", err
	}
	if len(timers) == 0 {
		return "No active timers", nil
	}

	now := s.now()
	lines := make([]string, 0, len(timers))
	for _, t := range timers {
		remaining := FormatRemaining(t.FireAt, now)
		if t.Label != "" {
			lines = append(lines, fmt.Sprintf("• %s - %s (at %s) [%s]", t.Label, remaining, formatClock(t.FireAt), t.ID))
		} else {
			lines = append(lines, fmt.Sprintf("• %s (at %s) [%s]", remaining, formatClock(t.FireAt), t.ID))
		}
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Store) handleCancel(ctx context.Context, args map[string]any) (string, error) {
	identifier := args["identifier"].(string)

	t, err := s.Cancel(identifier)
	if err != nil {
		return "", err
	}
	if t == nil {
		return fmt.Sprintf("No timer found matching '%s'", identifier), nil
	}
	return "Cancelled timer " + describeTimer(t), nil
}

func (s *Store) handleEdit(ctx context.Context, args map[string]any) (string, error) {
	identifier := args["identifier"].(string)
	newTime := args["new_time"].(string)

	t, err := s.Edit(identifier, newTime)
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Error(), nil
	}
	if err != nil {
		return "", err
	}
	if t == nil {
		return fmt.Sprintf("No timer found matching '%s'", identifier), nil
	}
	return fmt.Sprintf("Updated timer %s to %s (fires at %s)",
		describeTimer(t), FormatRemaining(t.FireAt, s.now()), formatClock(t.FireAt)), nil
}

func describeTimer(t *Timer) string {
	if t.Label != "" {
		return "'" + t.Label + "'"
	}
	return t.ID
}
