// Package config loads and validates the service configuration from
// YAML, with environment overrides for secrets.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration with YAML support for strings like
// "5s" or "2m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("config: duration must be a string like \"5s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full service configuration.
type Config struct {
	Version string `yaml:"version"`

	Server    ServerConfig    `yaml:"server"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Voice     VoiceConfig     `yaml:"voice"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Session   SessionConfig   `yaml:"session"`
	Agents    AgentsConfig    `yaml:"agents"`
	Store     StoreConfig     `yaml:"store"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Profile   ProfileConfig   `yaml:"profile"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type AnthropicConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

type OpenAIConfig struct {
	APIKey         string `yaml:"api_key"`
	EmbeddingModel string `yaml:"embedding_model"`
	Dimensions     int    `yaml:"dimensions"`
}

type VoiceConfig struct {
	APIKey  string `yaml:"api_key"`
	VoiceID string `yaml:"voice_id"`
}

type RetrievalConfig struct {
	TopK            int      `yaml:"top_k"`
	Timeout         Duration `yaml:"timeout"`
	MaxContextChars int      `yaml:"max_context_chars"`
}

type SessionConfig struct {
	Window int `yaml:"window"`
}

type AgentsConfig struct {
	Timeout Duration `yaml:"timeout"`
}

type StoreConfig struct {
	Root                string `yaml:"root"`
	SessionCollection   string `yaml:"session_collection"`
	KnowledgeCollection string `yaml:"knowledge_collection"`
	ProfileCollection   string `yaml:"profile_collection"`
}

type TelemetryConfig struct {
	Endpoint string `yaml:"endpoint"`
}

// ProfileConfig seeds the default profile served before a user saves
// their own.
type ProfileConfig struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Timezone string `yaml:"timezone"`
}

// Default returns a Config with every tunable at its baseline value.
func Default() Config {
	return Config{
		Version: "1.0.0",
		Server:  ServerConfig{Host: "0.0.0.0", Port: 8000},
		Anthropic: AnthropicConfig{
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 1024,
		},
		OpenAI: OpenAIConfig{
			EmbeddingModel: "text-embedding-3-small",
			Dimensions:     1536,
		},
		Retrieval: RetrievalConfig{
			TopK:            5,
			Timeout:         Duration(5 * time.Second),
			MaxContextChars: 2000,
		},
		Session: SessionConfig{Window: 50},
		Agents:  AgentsConfig{Timeout: Duration(30 * time.Second)},
		Store: StoreConfig{
			Root:                "data",
			SessionCollection:   "sessions",
			KnowledgeCollection: "knowledge",
			ProfileCollection:   "profiles",
		},
		Profile: ProfileConfig{
			Name:     "there",
			Timezone: "America/Los_Angeles",
		},
	}
}

// Normalize trims whitespace and fills zero values from Default.
func (c *Config) Normalize() {
	def := Default()
	c.Version = strings.TrimSpace(c.Version)
	if c.Version == "" {
		c.Version = def.Version
	}
	if c.Server.Host == "" {
		c.Server.Host = def.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Anthropic.Model == "" {
		c.Anthropic.Model = def.Anthropic.Model
	}
	if c.Anthropic.MaxTokens == 0 {
		c.Anthropic.MaxTokens = def.Anthropic.MaxTokens
	}
	if c.OpenAI.EmbeddingModel == "" {
		c.OpenAI.EmbeddingModel = def.OpenAI.EmbeddingModel
	}
	if c.OpenAI.Dimensions == 0 {
		c.OpenAI.Dimensions = def.OpenAI.Dimensions
	}
	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = def.Retrieval.TopK
	}
	if c.Retrieval.Timeout == 0 {
		c.Retrieval.Timeout = def.Retrieval.Timeout
	}
	if c.Retrieval.MaxContextChars == 0 {
		c.Retrieval.MaxContextChars = def.Retrieval.MaxContextChars
	}
	if c.Session.Window == 0 {
		c.Session.Window = def.Session.Window
	}
	if c.Agents.Timeout == 0 {
		c.Agents.Timeout = def.Agents.Timeout
	}
	if c.Store.Root == "" {
		c.Store.Root = def.Store.Root
	}
	if c.Store.SessionCollection == "" {
		c.Store.SessionCollection = def.Store.SessionCollection
	}
	if c.Store.KnowledgeCollection == "" {
		c.Store.KnowledgeCollection = def.Store.KnowledgeCollection
	}
	if c.Store.ProfileCollection == "" {
		c.Store.ProfileCollection = def.Store.ProfileCollection
	}
	if c.Profile.Name == "" {
		c.Profile.Name = def.Profile.Name
	}
	if c.Profile.Timezone == "" {
		c.Profile.Timezone = def.Profile.Timezone
	}
}

// applyEnv copies secrets from the environment, overriding file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.Anthropic.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("ELEVENLABS_API_KEY"); v != "" {
		c.Voice.APIKey = v
	}
	if v := os.Getenv("ELEVENLABS_VOICE_ID"); v != "" {
		c.Voice.VoiceID = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
	}
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	if !semver.IsValid(canonicalVersion(c.Version)) {
		return fmt.Errorf("config: version %q is not semver", c.Version)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Server.Port)
	}
	if c.OpenAI.Dimensions < 1 {
		return errors.New("config: embedding dimensions must be positive")
	}
	if c.Retrieval.TopK < 1 {
		return errors.New("config: retrieval top_k must be positive")
	}
	if c.Retrieval.Timeout <= 0 {
		return errors.New("config: retrieval timeout must be positive")
	}
	if c.Session.Window < 1 {
		return errors.New("config: session window must be positive")
	}
	if c.Agents.Timeout <= 0 {
		return errors.New("config: agent timeout must be positive")
	}
	return nil
}

// Parse decodes, normalizes, applies env overrides, and validates.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	cfg.Normalize()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func canonicalVersion(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}
