package config

// ProviderType identifies a model provider.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
	ProviderMock   ProviderType = "mock"
)

// EmbeddingProviderType identifies an embedding backend.
type EmbeddingProviderType string

const (
	EmbeddingOpenAI EmbeddingProviderType = "openai"
	EmbeddingOllama EmbeddingProviderType = "ollama"
	EmbeddingLocal  EmbeddingProviderType = "local"
)

// Config is the top-level claro configuration, corresponding to .claro.yml.
type Config struct {
	Provider          ProviderType          `yaml:"provider" koanf:"provider"`
	Model             string                `yaml:"model" koanf:"model"`
	EmbeddingProvider EmbeddingProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string                `yaml:"embedding_model" koanf:"embedding_model"`

	DataDir string `yaml:"data_dir" koanf:"data_dir"`
	Port    int    `yaml:"port" koanf:"port"`

	ChunkSize       int `yaml:"chunk_size" koanf:"chunk_size"`
	ChunkOverlap    int `yaml:"chunk_overlap" koanf:"chunk_overlap"`
	TopK            int `yaml:"top_k" koanf:"top_k"`
	ResidentIndexes int `yaml:"resident_indexes" koanf:"resident_indexes"`
	HistoryWindow   int `yaml:"history_window" koanf:"history_window"`

	// StageTimeoutSeconds bounds each blocking pipeline stage
	// (extraction, embedding, index build, generation). 0 disables.
	StageTimeoutSeconds int `yaml:"stage_timeout_seconds" koanf:"stage_timeout_seconds"`

	// Offline selects the in-memory store and deterministic mock
	// backends; no network calls are made.
	Offline bool `yaml:"offline" koanf:"offline"`
}
