package spotify

import (
	"context"
	"net/http"
	"time"
)

// Device is one playback endpoint known to the service. Presence is
// volatile, so the list is re-queried per command and never cached.
type Device struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	IsActive      bool   `json:"is_active"`
	VolumePercent int    `json:"volume_percent"`
}

// Local reports whether the device runs on this machine. The API has no
// locality flag, so the desktop app's "Computer" type stands in for it;
// phones, speakers, and other-room devices are never targeted.
func (d Device) Local() bool {
	return d.Type == "Computer"
}

// Devices returns the currently known playback devices.
func (s *Session) Devices(ctx context.Context) ([]Device, error) {
	var result struct {
		Devices []Device `json:"devices"`
	}
	if err := s.do(ctx, http.MethodGet, "/me/player/devices", nil, nil, &result); err != nil {
		return nil, err
	}
	return result.Devices, nil
}

func findLocalDevice(devices []Device) (Device, bool) {
	for _, d := range devices {
		if d.Local() {
			return d, true
		}
	}
	return Device{}, false
}

// ensureDevice guarantees a local playback device exists before a
// mutating command, launching the desktop app and polling for it when
// none is present. The poll is bounded: fixed interval, fixed total
// wait, then *NoDeviceError. Read-only queries never call this.
func (s *Session) ensureDevice(ctx context.Context) (string, error) {
	devices, err := s.Devices(ctx)
	if err != nil {
		return "", err
	}
	if d, ok := findLocalDevice(devices); ok {
		return d.ID, nil
	}

	s.logger.Info("no local spotify device, launching desktop app")
	if err := s.launch(ctx); err != nil {
		return "", &NoDeviceError{Reason: "could not launch the desktop app"}
	}

	deadline := time.Now().Add(s.deviceWait)
	ticker := time.NewTicker(s.devicePoll)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		devices, err := s.Devices(ctx)
		if err != nil {
			return "", err
		}
		if d, ok := findLocalDevice(devices); ok {
			return d.ID, nil
		}
	}

	return "", &NoDeviceError{Reason: "desktop app launched but no device appeared"}
}
