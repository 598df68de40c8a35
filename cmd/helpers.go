package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/openlegis/billchat/internal/config"
	"github.com/openlegis/billchat/internal/congress"
	"github.com/openlegis/billchat/internal/db"
	"github.com/openlegis/billchat/internal/embeddings"
	"github.com/openlegis/billchat/internal/llm"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `billchat init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openDatabase opens the SQLite database inside the data directory.
func openDatabase(cfg *config.Config) (*db.DB, error) {
	return db.Open(filepath.Join(cfg.DataDir, "billchat.db"))
}

// createCongressClient builds the Congress.gov API client from the
// CONGRESS_API_KEY environment variable.
func createCongressClient(cfg *config.Config) (*congress.Client, error) {
	apiKey := os.Getenv("CONGRESS_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("CONGRESS_API_KEY environment variable is required")
	}
	return congress.New(apiKey,
		congress.WithRequestsPerSecond(cfg.Ingest.UpstreamRPS)), nil
}

// createEmbedderFromConfig creates an embeddings.Embedder based on config.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for embeddings")
	}
	return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(cfg.EmbeddingModel)), nil
}

// createLLMProviderFromConfig creates the chat provider and wraps it
// with the configured requests-per-minute limit.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, err
	}
	if cfg.RequestsPerMinute > 0 {
		provider = llm.NewRateLimitedProvider(provider, cfg.RequestsPerMinute)
	}
	return provider, nil
}
