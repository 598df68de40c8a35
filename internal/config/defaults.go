package config

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:          ProviderXAI,
		Model:             "grok-2-1212",
		EmbeddingProvider: ProviderOpenAI,
		EmbeddingModel:    "text-embedding-3-large",
		DataDir:           "data",
		Port:              8000,
		AllowAllOrigins:   false,
		Ingest: IngestConfig{
			PollIntervalMinutes: 30,
			SinceDate:           "2024-01-01",
			UpstreamRPS:         1,
		},
		Chat: ChatConfig{
			TopK:             25,
			MaxContextTokens: 8000,
		},
		ChunkSize:              500,
		ChunkOverlap:           50,
		MaxConcurrentIndexRuns: 4,
		RequestsPerMinute:      60,
	}
}
