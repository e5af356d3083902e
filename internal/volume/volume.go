// Package volume controls the machine's speaker volume through
// AppleScript, as distinct from the music playback volume.
package volume

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/murmur-assistant/murmur/internal/tools"
)

const scriptTimeout = 5 * time.Second

// Runner executes an AppleScript snippet and returns its output.
// Injected so tests run without osascript.
type Runner func(ctx context.Context, script string) (string, error)

func osascript(ctx context.Context, script string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, scriptTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "osascript", "-e", script).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("osascript: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("osascript: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Controller reads and sets the device volume.
type Controller struct {
	run    Runner
	logger *slog.Logger
}

// NewController creates a controller. A nil runner uses osascript.
func NewController(run Runner, logger *slog.Logger) *Controller {
	if run == nil {
		run = osascript
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{run: run, logger: logger}
}

// State is the current speaker state.
type State struct {
	OutputVolume int
	Muted        bool
}

// Get reads the current volume settings.
func (c *Controller) Get(ctx context.Context) (*State, error) {
	out, err := c.run(ctx, "get volume settings")
	if err != nil {
		return nil, err
	}
	return parseVolumeSettings(out)
}

// Set changes the output volume (0-100).
func (c *Controller) Set(ctx context.Context, volume int) error {
	_, err := c.run(ctx, fmt.Sprintf("set volume output volume %d", volume))
	return err
}

// parseVolumeSettings decodes AppleScript output of the form
// "output volume:50, input volume:75, alert volume:100, output muted:false".
func parseVolumeSettings(out string) (*State, error) {
	state := &State{}
	found := false
	for _, part := range strings.Split(out, ", ") {
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "output volume":
			v, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("parse volume settings: %q", out)
			}
			state.OutputVolume = v
			found = true
		case "output muted":
			state.Muted = strings.TrimSpace(value) == "true"
		}
	}
	if !found {
		return nil, fmt.Errorf("parse volume settings: %q", out)
	}
	return state, nil
}

// RegisterTools adds the device volume tools.
func RegisterTools(reg *tools.Registry, c *Controller) error {
	if err := reg.Register(&tools.Tool{
		Name:        "get_device_volume",
		Description: "Get the current device speaker volume and mute status.",
		Handler:     c.handleGet,
	}); err != nil {
		return err
	}
	return reg.Register(&tools.Tool{
		Name:        "set_device_volume",
		Description: "Set the device speaker volume. Use this for system/device volume, not music volume.",
		Schema: tools.Schema{
			{Name: "volume", Type: tools.TypeInteger, Required: true, Description: "Volume level from 0 to 100", Minimum: intPtr(0), Maximum: intPtr(100)},
		},
		Mutating: true,
		Handler:  c.handleSet,
	})
}

func intPtr(n int) *int { return &n }

func (c *Controller) handleGet(ctx context.Context, args map[string]any) (string, error) {
	state, err := c.Get(ctx)
	if err != nil {
		c.logger.Warn("get device volume failed", "error", err)
		return "Error getting device volume: " + err.Error(), nil
	}
	if state.Muted {
		return fmt.Sprintf("Device volume is muted (level set to %d%%)", state.OutputVolume), nil
	}
	return fmt.Sprintf("Device volume is at %d%%", state.OutputVolume), nil
}

func (c *Controller) handleSet(ctx context.Context, args map[string]any) (string, error) {
	volume := int(args["volume"].(float64))
	if err := c.Set(ctx, volume); err != nil {
		c.logger.Warn("set device volume failed", "error", err)
		return "Error setting device volume: " + err.Error(), nil
	}
	if volume == 0 {
		return "Device volume set to 0% (silent)", nil
	}
	return fmt.Sprintf("Device volume set to %d%%", volume), nil
}
