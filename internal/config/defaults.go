package config

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:            ProviderOpenAI,
		Model:               "gpt-4o-mini",
		EmbeddingProvider:   EmbeddingOpenAI,
		EmbeddingModel:      "text-embedding-3-small",
		DataDir:             ".claro",
		Port:                8000,
		ChunkSize:           1000,
		ChunkOverlap:        200,
		TopK:                3,
		ResidentIndexes:     8,
		HistoryWindow:       6,
		StageTimeoutSeconds: 120,
	}
}
