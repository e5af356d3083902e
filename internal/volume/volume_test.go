package volume

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/murmur-assistant/murmur/internal/tools"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fakeRunner(t *testing.T, scripts *[]string, output string, err error) Runner {
	t.Helper()
	return func(ctx context.Context, script string) (string, error) {
		*scripts = append(*scripts, script)
		return output, err
	}
}

func TestParseVolumeSettings(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   State
		ok     bool
	}{
		{
			name:   "normal",
			output: "output volume:50, input volume:75, alert volume:100, output muted:false",
			want:   State{OutputVolume: 50, Muted: false},
			ok:     true,
		},
		{
			name:   "muted",
			output: "output volume:30, input volume:75, alert volume:100, output muted:true",
			want:   State{OutputVolume: 30, Muted: true},
			ok:     true,
		},
		{
			name:   "missing output volume",
			output: "input volume:75, alert volume:100",
			ok:     false,
		},
		{
			name:   "garbage",
			output: "execution error: something",
			ok:     false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVolumeSettings(tt.output)
			if !tt.ok {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if *got != tt.want {
				t.Errorf("got %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestGetVolumeTool(t *testing.T) {
	var scripts []string
	c := NewController(fakeRunner(t, &scripts, "output volume:64, input volume:75, alert volume:100, output muted:false", nil), testLogger())
	reg := tools.NewRegistry(testLogger())
	if err := RegisterTools(reg, c); err != nil {
		t.Fatalf("register: %v", err)
	}

	result, err := reg.Execute(context.Background(), "get_device_volume", nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result != "Device volume is at 64%" {
		t.Errorf("result = %q", result)
	}
	if len(scripts) != 1 || scripts[0] != "get volume settings" {
		t.Errorf("scripts = %v", scripts)
	}
}

func TestGetVolumeToolMuted(t *testing.T) {
	var scripts []string
	c := NewController(fakeRunner(t, &scripts, "output volume:40, output muted:true", nil), testLogger())
	reg := tools.NewRegistry(testLogger())
	if err := RegisterTools(reg, c); err != nil {
		t.Fatalf("register: %v", err)
	}

	result, err := reg.Execute(context.Background(), "get_device_volume", nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result != "Device volume is muted (level set to 40%)" {
		t.Errorf("result = %q", result)
	}
}

func TestSetVolumeTool(t *testing.T) {
	var scripts []string
	c := NewController(fakeRunner(t, &scripts, "", nil), testLogger())
	reg := tools.NewRegistry(testLogger())
	if err := RegisterTools(reg, c); err != nil {
		t.Fatalf("register: %v", err)
	}

	result, err := reg.Execute(context.Background(), "set_device_volume", map[string]any{"volume": 72})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result != "Device volume set to 72%" {
		t.Errorf("result = %q", result)
	}
	if len(scripts) != 1 || scripts[0] != "set volume output volume 72" {
		t.Errorf("scripts = %v", scripts)
	}
}

func TestSetVolumeToolZero(t *testing.T) {
	var scripts []string
	c := NewController(fakeRunner(t, &scripts, "", nil), testLogger())
	reg := tools.NewRegistry(testLogger())
	if err := RegisterTools(reg, c); err != nil {
		t.Fatalf("register: %v", err)
	}

	result, err := reg.Execute(context.Background(), "set_device_volume", map[string]any{"volume": 0})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result != "Device volume set to 0% (silent)" {
		t.Errorf("result = %q", result)
	}
}

func TestSetVolumeToolOutOfRange(t *testing.T) {
	var scripts []string
	c := NewController(fakeRunner(t, &scripts, "", nil), testLogger())
	reg := tools.NewRegistry(testLogger())
	if err := RegisterTools(reg, c); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := reg.Execute(context.Background(), "set_device_volume", map[string]any{"volume": 150})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "volume") {
		t.Errorf("error should name the field: %v", err)
	}
	if len(scripts) != 0 {
		t.Errorf("runner should not be called, got %v", scripts)
	}
}

func TestVolumeToolRunnerFailure(t *testing.T) {
	var scripts []string
	c := NewController(fakeRunner(t, &scripts, "", fmt.Errorf("osascript: not found")), testLogger())
	reg := tools.NewRegistry(testLogger())
	if err := RegisterTools(reg, c); err != nil {
		t.Fatalf("register: %v", err)
	}

	result, err := reg.Execute(context.Background(), "get_device_volume", nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.HasPrefix(result, "Error getting device volume:") {
		t.Errorf("result = %q", result)
	}
}
