// Package config handles Murmur configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./murmur.yaml, ~/.config/murmur/murmur.yaml, /etc/murmur/murmur.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"murmur.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "murmur", "murmur.yaml"))
	}

	paths = append(paths, "/etc/murmur/murmur.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Murmur configuration.
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Spotify   SpotifyConfig   `yaml:"spotify"`
	Search    SearchConfig    `yaml:"search"`
	News      NewsConfig      `yaml:"news"`
	Assistant AssistantConfig `yaml:"assistant"`
	DataDir   string          `yaml:"data_dir"`
	LogLevel  string          `yaml:"log_level"`
}

// LLMConfig defines the chat completion endpoint settings.
type LLMConfig struct {
	// BaseURL is an OpenAI-compatible API root. Defaults to the OpenAI API.
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// SpotifyConfig defines Spotify application credentials and tunables.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	// RedirectURI must match the URI registered on the Spotify app.
	// Default: http://localhost:8888/callback.
	RedirectURI string `yaml:"redirect_uri"`
	// TokenFile is where the OAuth token record is persisted.
	// Default: <data_dir>/spotify_token.json.
	TokenFile string `yaml:"token_file"`
	// RefreshSkewSec is subtracted from the token expiry when deciding
	// whether to refresh, so a token never expires mid-call. Default 60.
	RefreshSkewSec int `yaml:"refresh_skew_sec"`
	// DevicePollSec is the interval between device list polls after
	// launching the desktop app. Default 1.
	DevicePollSec int `yaml:"device_poll_sec"`
	// DeviceWaitSec is the total time to wait for a local device to
	// appear before giving up. Default 10.
	DeviceWaitSec int `yaml:"device_wait_sec"`
}

// Configured reports whether Spotify application credentials are set.
func (c SpotifyConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// RefreshSkew returns the refresh skew as a duration.
func (c SpotifyConfig) RefreshSkew() time.Duration {
	if c.RefreshSkewSec <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.RefreshSkewSec) * time.Second
}

// DevicePollInterval returns the device poll interval as a duration.
func (c SpotifyConfig) DevicePollInterval() time.Duration {
	if c.DevicePollSec <= 0 {
		return time.Second
	}
	return time.Duration(c.DevicePollSec) * time.Second
}

// DeviceWait returns the total device wait bound as a duration.
func (c SpotifyConfig) DeviceWait() time.Duration {
	if c.DeviceWaitSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.DeviceWaitSec) * time.Second
}

// SearchConfig defines the internet search provider settings.
type SearchConfig struct {
	PerplexityAPIKey string `yaml:"perplexity_api_key"`
}

// NewsConfig defines the news feed settings.
type NewsConfig struct {
	// FeedURL overrides the default BBC news feed endpoint.
	FeedURL string `yaml:"feed_url"`
}

// AssistantConfig defines conversation loop settings.
type AssistantConfig struct {
	// MaxToolIterations bounds the model/tool exchange for a single
	// interaction. Default 10.
	MaxToolIterations int `yaml:"max_tool_iterations"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables so secrets can live outside the file.
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.Spotify.TokenFile == "" {
		cfg.Spotify.TokenFile = filepath.Join(cfg.DataDir, "spotify_token.json")
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o",
		},
		Spotify: SpotifyConfig{
			RedirectURI: "http://localhost:8888/callback",
		},
		Assistant: AssistantConfig{
			MaxToolIterations: 10,
		},
		DataDir: "data",
	}
}
