package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"activity-rag/internal/models"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	StoreChromem  = "chromem"
	StoreQdrant   = "qdrant"
	StorePGVector = "pgvector"

	StrategyParagraph = "paragraph"
	StrategyToken     = "token"
)

type Config struct {
	LogLevel     string            `yaml:"log_level" validate:"omitempty,oneof=trace debug info warn error"`
	EmbedLLM     LLMConfig         `yaml:"embed_llm" validate:"required"`
	InferenceLLM LLMConfig         `yaml:"inference_llm" validate:"-"`
	VectorStore  VectorStoreConfig `yaml:"vector_store" validate:"required"`
	Database     DatabaseConfig    `yaml:"database"`
	RAG          RAGConfig         `yaml:"rag"`
	RunLog       RunLogConfig      `yaml:"runlog"`
	Corpus       CorpusConfig      `yaml:"corpus"`
}

type LLMConfig struct {
	Provider          string        `yaml:"provider" validate:"required,oneof=ollama openai"`
	BaseURL           string        `yaml:"base_url" validate:"required,url"`
	Model             string        `yaml:"model" validate:"required"`
	Key               string        `yaml:"key"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gte=0"`
	Timeout           time.Duration `yaml:"timeout"`
}

type VectorStoreConfig struct {
	Type       string        `yaml:"type" validate:"required,oneof=chromem qdrant pgvector"`
	Collection string        `yaml:"collection" validate:"required"`
	Dimension  int           `yaml:"dimension" validate:"gt=0"`
	Chromem    ChromemConfig `yaml:"chromem"`
	Qdrant     QdrantConfig  `yaml:"qdrant"`
}

type ChromemConfig struct {
	Path          string `yaml:"path"`
	InMemory      bool   `yaml:"in_memory"`
	Compress      bool   `yaml:"compress"`
	Snapshot      string `yaml:"snapshot"`
	EncryptionKey string `yaml:"encryption_key"`
}

type QdrantConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port" validate:"gte=0,lte=65535"`
	APIKey string `yaml:"api_key"`
	UseTLS bool   `yaml:"use_tls"`
}

type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type RAGConfig struct {
	ChunkStrategy  string        `yaml:"chunk_strategy" validate:"omitempty,oneof=paragraph token"`
	ChunkSize      int           `yaml:"chunk_size" validate:"gte=0"`
	MaxTokens      int           `yaml:"max_tokens" validate:"gte=0"`
	OverlapTokens  int           `yaml:"overlap_tokens" validate:"gte=0"`
	Tokenizer      string        `yaml:"tokenizer"`
	TopK           int           `yaml:"top_k" validate:"gte=0"`
	ScoreThreshold float64       `yaml:"score_threshold"`
	ContextChars   int           `yaml:"context_chars" validate:"gte=0"`
	LinkBase       string        `yaml:"link_base" validate:"omitempty,url"`
	BatchSize      int           `yaml:"batch_size" validate:"gte=0"`
	Timeout        time.Duration `yaml:"timeout"`
}

type RunLogConfig struct {
	Path string `yaml:"path"`
}

type CorpusConfig struct {
	Paths []string `yaml:"paths"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadConfig reads a YAML config, expanding ${VAR} references from the
// environment (and a .env file when present), then applies defaults and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: failed to load .env: %w", models.ErrConfiguration, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			return cfg, nil
		}
		return nil, fmt.Errorf("%w: failed to read config: %w", models.ErrConfiguration, err)
	}

	return Parse(data)
}

// Parse decodes YAML config bytes, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	cfg := base()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %w", models.ErrConfiguration, err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", models.ErrConfiguration, err)
	}
	if c.VectorStore.Type == StorePGVector && c.Database.DSN == "" {
		return fmt.Errorf("%w: database.dsn is required for the pgvector store", models.ErrConfiguration)
	}
	if c.InferenceLLM.Provider != "" {
		if err := validate.Struct(c.InferenceLLM); err != nil {
			return fmt.Errorf("%w: inference_llm: %w", models.ErrConfiguration, err)
		}
	}
	return nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := base()
	applyDefaults(cfg)
	return cfg
}

func base() *Config {
	return &Config{
		LogLevel: "info",
		EmbedLLM: LLMConfig{
			Provider: ProviderOllama,
			BaseURL:  "http://localhost:11434",
			Model:    "mxbai-embed-large",
		},
		InferenceLLM: LLMConfig{
			Provider: ProviderOllama,
			BaseURL:  "http://localhost:11434",
			Model:    "llama3",
		},
		VectorStore: VectorStoreConfig{
			Type:       StoreChromem,
			Collection: "knowledge-base",
			Dimension:  1024,
			Chromem:    ChromemConfig{Path: "./chromemdb"},
			Qdrant:     QdrantConfig{Host: "localhost", Port: 6334},
		},
		RAG: RAGConfig{
			ChunkStrategy: StrategyParagraph,
			ChunkSize:     800,
			MaxTokens:     320,
			OverlapTokens: 40,
			Tokenizer:     "word",
			TopK:          4,
			ContextChars:  500,
			LinkBase:      models.DefaultLinkBase,
			Timeout:       30 * time.Second,
		},
		RunLog: RunLogConfig{Path: "./data/runs.db"},
	}
}

func applyDefaults(cfg *Config) {
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = 800
	}
	if cfg.RAG.MaxTokens == 0 {
		cfg.RAG.MaxTokens = 320
	}
	if cfg.RAG.ChunkStrategy == "" {
		cfg.RAG.ChunkStrategy = StrategyParagraph
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = 4
	}
	if cfg.RAG.ContextChars == 0 {
		cfg.RAG.ContextChars = 500
	}
	if cfg.RAG.Timeout == 0 {
		cfg.RAG.Timeout = 30 * time.Second
	}
	if cfg.RAG.LinkBase == "" {
		cfg.RAG.LinkBase = models.DefaultLinkBase
	}
	if cfg.VectorStore.Type == StoreQdrant && cfg.VectorStore.Qdrant.Port == 0 {
		cfg.VectorStore.Qdrant.Port = 6334
	}
	if cfg.EmbedLLM.Timeout == 0 {
		cfg.EmbedLLM.Timeout = cfg.RAG.Timeout
	}
	if cfg.InferenceLLM.Timeout == 0 {
		cfg.InferenceLLM.Timeout = 2 * cfg.RAG.Timeout
	}
}
