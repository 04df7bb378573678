package config

// QualityTier controls the model selection and trade-off between speed/cost and quality.
type QualityTier string

const (
	QualityLite   QualityTier = "lite"
	QualityNormal QualityTier = "normal"
	QualityMax    QualityTier = "max"
)

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
)

// Config is the top-level ungana configuration, corresponding to .ungana.yml.
type Config struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	EmbeddingProvider ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string       `yaml:"embedding_model" koanf:"embedding_model"`
	Quality           QualityTier  `yaml:"quality" koanf:"quality"`
	Language          string       `yaml:"language" koanf:"language"`
	Difficulty        string       `yaml:"difficulty" koanf:"difficulty"`
	DataDir           string       `yaml:"data_dir" koanf:"data_dir"`
	ListenAddr        string       `yaml:"listen_addr" koanf:"listen_addr"`
	SectionTimeoutSec int          `yaml:"section_timeout_sec" koanf:"section_timeout_sec"`
	RequestsPerMinute int          `yaml:"requests_per_minute" koanf:"requests_per_minute"`
	MaxRetries        int          `yaml:"max_retries" koanf:"max_retries"`
	Trial             TrialConfig  `yaml:"trial" koanf:"trial"`
}

// TrialConfig limits unauthenticated use.
type TrialConfig struct {
	Enabled bool `yaml:"enabled" koanf:"enabled"`
	Limit   int  `yaml:"limit" koanf:"limit"`
}
