package config

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderXAI    ProviderType = "xai"
	ProviderOpenAI ProviderType = "openai"
)

// Config is the top-level billchat configuration, corresponding to
// billchat.yml.
type Config struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	EmbeddingProvider ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string       `yaml:"embedding_model" koanf:"embedding_model"`

	DataDir         string `yaml:"data_dir" koanf:"data_dir"`
	Port            int    `yaml:"port" koanf:"port"`
	AllowAllOrigins bool   `yaml:"allow_all_origins" koanf:"allow_all_origins"`

	Ingest IngestConfig `yaml:"ingest" koanf:"ingest"`
	Chat   ChatConfig   `yaml:"chat" koanf:"chat"`

	ChunkSize    int `yaml:"chunk_size" koanf:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap" koanf:"chunk_overlap"`

	MaxConcurrentIndexRuns int `yaml:"max_concurrent_index_runs" koanf:"max_concurrent_index_runs"`
	RequestsPerMinute      int `yaml:"requests_per_minute" koanf:"requests_per_minute"`
}

// IngestConfig holds the polling loop settings.
type IngestConfig struct {
	PollIntervalMinutes int     `yaml:"poll_interval_minutes" koanf:"poll_interval_minutes"`
	SinceDate           string  `yaml:"since_date" koanf:"since_date"`
	UpstreamRPS         float64 `yaml:"upstream_rps" koanf:"upstream_rps"`
}

// ChatConfig holds retrieval and generation settings.
type ChatConfig struct {
	TopK             int `yaml:"top_k" koanf:"top_k"`
	MaxContextTokens int `yaml:"max_context_tokens" koanf:"max_context_tokens"`
}
