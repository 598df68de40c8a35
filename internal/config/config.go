// Package config loads billchat configuration from a YAML file with
// BILLCHAT_* environment overrides layered on top.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (BILLCHAT_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: BILLCHAT_PORT -> port, and
	// BILLCHAT_INGEST__SINCE_DATE -> ingest.since_date.
	if err := k.Load(env.Provider("BILLCHAT_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "BILLCHAT_"))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized provider values.
var validProviders = map[ProviderType]bool{
	ProviderXAI:    true,
	ProviderOpenAI: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q: must be one of xai, openai", c.Provider)
	}

	if c.Model == "" {
		return fmt.Errorf("model is required")
	}

	if c.EmbeddingProvider != "" && c.EmbeddingProvider != ProviderOpenAI {
		return fmt.Errorf("invalid embedding_provider %q: only openai is supported", c.EmbeddingProvider)
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap must be non-negative and smaller than chunk_size")
	}

	if c.Chat.TopK <= 0 {
		return fmt.Errorf("chat.top_k must be positive")
	}

	if c.Ingest.PollIntervalMinutes <= 0 {
		return fmt.Errorf("ingest.poll_interval_minutes must be positive")
	}
	if _, err := c.Since(); err != nil {
		return fmt.Errorf("invalid ingest.since_date: %w", err)
	}

	if c.MaxConcurrentIndexRuns < 0 {
		return fmt.Errorf("max_concurrent_index_runs must be non-negative")
	}

	return nil
}

// Since parses the ingestion start date.
func (c *Config) Since() (time.Time, error) {
	return time.Parse("2006-01-02", c.Ingest.SinceDate)
}

// PollInterval returns the ingestion polling interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Ingest.PollIntervalMinutes) * time.Minute
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderXAI:
		return "XAI_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}
