package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/murmur-assistant/murmur/internal/config"
)

func TestInitCreatesWorkspace(t *testing.T) {
	dir := t.TempDir()

	var out strings.Builder
	if err := run(context.Background(), strings.NewReader(""), &out, &out, []string{"init", dir}); err != nil {
		t.Fatalf("init: %v", err)
	}

	cfgPath := filepath.Join(dir, "murmur.yaml")
	if _, err := os.Stat(cfgPath); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "data")); err != nil {
		t.Fatalf("data dir not created: %v", err)
	}

	// The example config must parse with defaults intact.
	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("load example config: %v", err)
	}
	if cfg.LLM.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("base_url = %q", cfg.LLM.BaseURL)
	}
	if cfg.Assistant.MaxToolIterations != 10 {
		t.Errorf("max_tool_iterations = %d", cfg.Assistant.MaxToolIterations)
	}
}

func TestInitNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "murmur.yaml")
	if err := os.WriteFile(cfgPath, []byte("data_dir: custom\n"), 0o644); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	var out strings.Builder
	if err := runInit(&out, dir); err != nil {
		t.Fatalf("init: %v", err)
	}

	content, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if string(content) != "data_dir: custom\n" {
		t.Errorf("init overwrote existing config:\n%s", content)
	}
}
