// Package config loads CLI configuration: built-in defaults, then an
// optional YAML file, then CONTEXTMESH_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/contextmesh/format"
	"github.com/hupe1980/contextmesh/relevance"
	"github.com/hupe1980/contextmesh/router"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CONTEXTMESH_"

const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	DefaultProvider  = "mock"
)

// Config is the CLI configuration.
type Config struct {
	// Session is the host session file (JSON or YAML).
	Session string `yaml:"session" env:"SESSION"`
	// Store is an optional story-state file.
	Store string `yaml:"store" env:"STORE"`
	// Profiles is an optional consumer profile file. Built-in profiles are
	// used when empty.
	Profiles string `yaml:"profiles" env:"PROFILES"`

	Log       LogConfig       `yaml:"log" envPrefix:"LOG_"`
	Chat      ChatConfig      `yaml:"chat" envPrefix:"CHAT_"`
	Lore      LoreConfig      `yaml:"lore" envPrefix:"LORE_"`
	Relevance RelevanceConfig `yaml:"relevance" envPrefix:"RELEVANCE_"`
	Router    RouterConfig    `yaml:"router" envPrefix:"ROUTER_"`
	Provider  ProviderConfig  `yaml:"provider" envPrefix:"PROVIDER_"`
	Tracing   TracingConfig   `yaml:"tracing" envPrefix:"TRACING_"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

type ChatConfig struct {
	MaxMessages   int    `yaml:"max_messages" env:"MAX_MESSAGES"`
	IncludeSystem bool   `yaml:"include_system" env:"INCLUDE_SYSTEM"`
	Mode          string `yaml:"mode" env:"MODE"`
}

type LoreConfig struct {
	IncludeDisabled bool `yaml:"include_disabled" env:"INCLUDE_DISABLED"`
}

type RelevanceConfig struct {
	Exact      float64 `yaml:"exact" env:"EXACT"`
	Partial    float64 `yaml:"partial" env:"PARTIAL"`
	Keyword    float64 `yaml:"keyword" env:"KEYWORD"`
	Proximity  float64 `yaml:"proximity" env:"PROXIMITY"`
	MaxResults int     `yaml:"max_results" env:"MAX_RESULTS"`
	MinScore   float64 `yaml:"min_score" env:"MIN_SCORE"`
}

type RouterConfig struct {
	MaxLength int `yaml:"max_length" env:"MAX_LENGTH"`
}

type ProviderConfig struct {
	// Type is "mock", "anthropic" or "openai".
	Type        string  `yaml:"type" env:"TYPE"`
	Model       string  `yaml:"model" env:"MODEL"`
	APIKey      string  `yaml:"api_key" env:"API_KEY"`
	MaxTokens   int64   `yaml:"max_tokens" env:"MAX_TOKENS"`
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
}

// TracingConfig enables OTLP/HTTP span export when Endpoint is set.
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint" env:"ENDPOINT"`
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
}

// Default returns the built-in configuration.
func Default() *Config {
	w := relevance.DefaultWeights()
	return &Config{
		Log: LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Chat: ChatConfig{
			MaxMessages: format.DefaultMaxMessages,
			Mode:        string(format.ChatModeStandard),
		},
		Relevance: RelevanceConfig{
			Exact:      w.Exact,
			Partial:    w.Partial,
			Keyword:    w.Keyword,
			Proximity:  w.Proximity,
			MaxResults: relevance.DefaultMaxResults,
			MinScore:   relevance.DefaultMinScore,
		},
		Router: RouterConfig{MaxLength: router.DefaultMaxLength},
		Provider: ProviderConfig{
			Type:        DefaultProvider,
			MaxTokens:   4096,
			Temperature: 0.7,
		},
		Tracing: TracingConfig{ServiceName: "contextmesh"},
	}
}

// Dir returns the per-user configuration directory.
func Dir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".contextmesh")
}

// Path returns the default configuration file path.
func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load builds the configuration. An empty path reads the default file when
// it exists; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = Path()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseEnv applies CONTEXTMESH_* environment overrides to target.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	switch format.ChatMode(c.Chat.Mode) {
	case format.ChatModeStandard, format.ChatModeCompact, format.ChatModeDetailed:
	default:
		return fmt.Errorf("config: unknown chat mode %q", c.Chat.Mode)
	}
	switch c.Provider.Type {
	case "mock", "anthropic", "openai":
	default:
		return fmt.Errorf("config: unknown provider %q", c.Provider.Type)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

// ChatOptions converts the chat section.
func (c *Config) ChatOptions() format.ChatOptions {
	return format.ChatOptions{
		MaxMessages:   c.Chat.MaxMessages,
		IncludeSystem: c.Chat.IncludeSystem,
		Mode:          format.ChatMode(c.Chat.Mode),
	}
}

// LoreOptions converts the lore section.
func (c *Config) LoreOptions() format.LoreOptions {
	return format.LoreOptions{IncludeDisabled: c.Lore.IncludeDisabled}
}

// Weights converts the relevance section.
func (c *Config) Weights() relevance.Weights {
	return relevance.Weights{
		Exact:     c.Relevance.Exact,
		Partial:   c.Relevance.Partial,
		Keyword:   c.Relevance.Keyword,
		Proximity: c.Relevance.Proximity,
	}
}
