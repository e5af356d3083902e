package spotify

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"time"
)

const launchTimeout = 5 * time.Second

// launchDesktopApp starts the local Spotify desktop application so a
// playback device becomes available. The app takes a few seconds to
// register with the service; callers poll the device list afterwards.
func launchDesktopApp(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, launchTimeout)
	defer cancel()

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", "-a", "Spotify")
	case "windows":
		cmd = exec.CommandContext(ctx, "cmd", "/c", "start", "spotify:")
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", "spotify:")
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("launch spotify app: %w", err)
	}
	return nil
}
