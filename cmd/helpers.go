package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Afuraka666/Ungana-Medical-sub000/internal/config"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/db"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/embeddings"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/llm"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/storage"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `ungana init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// createProviderFromConfig creates the streaming LLM provider stack:
// the configured provider behind the token-bucket rate limiter.
func createProviderFromConfig(cfg *config.Config) (llm.StreamProvider, error) {
	base, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, err
	}
	if cfg.RequestsPerMinute > 0 {
		return llm.NewRateLimitedProvider(base, cfg.RequestsPerMinute), nil
	}
	return base, nil
}

// createEmbedderFromConfig creates an embeddings.Embedder based on config.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	provider := cfg.EmbeddingProvider
	if provider == "" {
		provider = cfg.Provider
	}
	model := cfg.EmbeddingModel
	if model == "" {
		preset := config.GetPreset(provider, cfg.Quality)
		model = preset.EmbeddingModel
	}

	switch provider {
	case config.ProviderOllama:
		return embeddings.NewOllamaEmbedder(model, 768, ""), nil
	default:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(model)), nil
	}
}

// openRecords opens the SQLite-backed record store under the data dir.
// The caller owns the returned DB handle.
func openRecords(cfg *config.Config) (*db.DB, *storage.Records, error) {
	database, err := db.Open(filepath.Join(cfg.DataDir, "ungana.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("opening data store: %w", err)
	}
	return database, storage.NewRecords(storage.NewSQLiteKV(database)), nil
}
