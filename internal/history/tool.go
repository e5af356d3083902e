package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/murmur-assistant/murmur/internal/tools"
)

// RegisterTool adds the history lookup tool backed by the store.
func RegisterTool(reg *tools.Registry, store *Store) error {
	return reg.Register(&tools.Tool{
		Name:        "get_history",
		Description: "Look up past conversations with the user. Use when the user references previous interactions or asks about something discussed before.",
		Schema: tools.Schema{
			{Name: "query", Type: tools.TypeString, Description: "Search term to find specific conversations, or omit for recent history"},
			{Name: "limit", Type: tools.TypeInteger, Description: "Number of conversations to return (max 20)"},
		},
		Handler: store.handleGetHistory,
	})
}

func (s *Store) handleGetHistory(ctx context.Context, args map[string]any) (string, error) {
	limit := 5
	if v, ok := args["limit"].(float64); ok {
		limit = int(v)
	}
	if limit > MaxRecords {
		limit = MaxRecords
	}
	if limit < 1 {
		limit = 1
	}

	query, _ := args["query"].(string)

	var (
		records []Record
		err     error
	)
	if query != "" {
		records, err = s.Search(query, limit)
		if err != nil {
			return "", err
		}
		if len(records) == 0 {
			return fmt.Sprintf("No past conversations found matching '%s'.", query), nil
		}
	} else {
		records, err = s.Recent(limit)
		if err != nil {
			return "", err
		}
		if len(records) == 0 {
			return "No conversation history available yet.", nil
		}
	}

	var b strings.Builder
	for i, r := range records {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, r.Timestamp.Format("2006-01-02 15:04"))
		fmt.Fprintf(&b, "User: %s\n", r.UserInput)
		fmt.Fprintf(&b, "Assistant: %s\n", r.FinalResponse)
		if len(r.ToolCalls) > 0 {
			names := make([]string, len(r.ToolCalls))
			for j, tc := range r.ToolCalls {
				names[j] = tc.Name
			}
			fmt.Fprintf(&b, "Tools used: %s\n", strings.Join(names, ", "))
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), nil
}
