package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/claro-ai/claro/internal/answer"
	"github.com/claro-ai/claro/internal/config"
	"github.com/claro-ai/claro/internal/embeddings"
	"github.com/claro-ai/claro/internal/index"
	"github.com/claro-ai/claro/internal/llm"
	"github.com/claro-ai/claro/internal/pipeline"
	"github.com/claro-ai/claro/internal/store"
	"github.com/claro-ai/claro/internal/summarizer"
	"github.com/claro-ai/claro/internal/textcache"
)

// app bundles the wired dependencies shared by the serve, mcp, ingest
// and ask commands.
type app struct {
	cfg        *config.Config
	store      store.Store
	texts      *textcache.Cache
	pipe       *pipeline.Pipeline
	summarizer *summarizer.Summarizer
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w\nRun `claro init` to create a config file", err)
	}
	return cfg, nil
}

// createEmbedderFromConfig creates an embeddings.Embedder based on
// config, wrapped with the retry policy for transient backend errors.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	var embedder embeddings.Embedder

	switch cfg.EmbeddingProvider {
	case config.EmbeddingOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		embedder = embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(cfg.EmbeddingModel))
	case config.EmbeddingOllama:
		embedder = embeddings.NewOllamaEmbedder(cfg.EmbeddingModel, 768, "")
	case config.EmbeddingLocal:
		embedder = embeddings.NewLocalEmbedder(256)
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.EmbeddingProvider)
	}

	return embeddings.WithRetry(embedder, 3, time.Second), nil
}

// buildApp wires the full pipeline from config. Offline mode swaps in
// the in-memory store, the local embedder and the mock model so no
// network or database is touched.
func buildApp(cfg *config.Config) (*app, error) {
	var (
		st       store.Store
		embedder embeddings.Embedder
		provider llm.Provider
		err      error
	)

	if cfg.Offline {
		st = store.NewMemoryStore()
		embedder = embeddings.NewLocalEmbedder(256)
		provider = llm.NewMockProvider("")
	} else {
		st, err = store.Open(filepath.Join(cfg.DataDir, "claro.db"))
		if err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
		embedder, err = createEmbedderFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		provider, err = llm.NewProvider(string(cfg.Provider), cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("creating model provider: %w", err)
		}
	}

	texts, err := textcache.New(filepath.Join(cfg.DataDir, "texts"))
	if err != nil {
		return nil, err
	}
	indexes, err := index.NewManager(filepath.Join(cfg.DataDir, "indexes"), embedder, cfg.ResidentIndexes)
	if err != nil {
		return nil, err
	}
	composer := answer.NewComposer(provider, cfg.Model, cfg.HistoryWindow)

	pipe := pipeline.New(st, texts, embedder, indexes, composer, pipeline.Options{
		ChunkSize:    cfg.ChunkSize,
		Overlap:      cfg.ChunkOverlap,
		TopK:         cfg.TopK,
		StageTimeout: time.Duration(cfg.StageTimeoutSeconds) * time.Second,
	})

	return &app{
		cfg:        cfg,
		store:      st,
		texts:      texts,
		pipe:       pipe,
		summarizer: summarizer.New(provider, cfg.Model),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "closing store: %v\n", err)
	}
}
