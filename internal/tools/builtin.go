package tools

import (
	"context"
	"fmt"
	"time"
)

// RegisterBuiltins adds the tools that need no external service:
// current time and the placeholder weather report.
func RegisterBuiltins(r *Registry) error {
	if err := r.Register(&Tool{
		Name:        "get_current_time",
		Description: "Get the current date and time.",
		Handler:     handleCurrentTime,
	}); err != nil {
		return err
	}

	return r.Register(&Tool{
		Name:        "get_weather",
		Description: "Get the current weather for a location.",
		Schema: Schema{
			{Name: "location", Type: TypeString, Required: true, Description: "City name or location"},
		},
		Handler: handleWeather,
	})
}

func handleCurrentTime(ctx context.Context, args map[string]any) (string, error) {
	now := time.Now()
	return now.Format("It is 3:04 PM on Monday, January 2, 2006"), nil
}

// TODO: wire a real weather provider; the feed we want needs an API key
// decision first.
func handleWeather(ctx context.Context, args map[string]any) (string, error) {
	location, _ := args["location"].(string)
	return fmt.Sprintf("The weather in %s is currently sunny and 72 degrees Fahrenheit.", location), nil
}
