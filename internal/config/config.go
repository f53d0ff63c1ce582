// Package config provides application configuration with multi-source
// priority.
//
// Sources, highest to lowest:
//  1. Environment variables (DBQA_* and DATABASE_URL)
//  2. Config file (~/.dbqa/config.yaml, or ./config.yaml)
//  3. Defaults matching the TAIDE deployment this tool grew up with
//
// Sensitive values (the postgres password) are never logged. Validation
// uses sentinel errors checkable with errors.Is().
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidLlamaServer indicates the llama server URL is invalid.
	ErrInvalidLlamaServer = errors.New("invalid llama server URL")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrInvalidEmbedderModel indicates the embedder model is empty.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidTokenLimit indicates the input token limit is out of range.
	ErrInvalidTokenLimit = errors.New("invalid input token limit")

	// ErrInvalidMaxLength indicates the generation length ceiling is out of range.
	ErrInvalidMaxLength = errors.New("invalid max generation length")

	// ErrInvalidTemperature indicates the sampling temperature is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidTopP indicates the nucleus sampling threshold is out of range.
	ErrInvalidTopP = errors.New("invalid top_p")

	// ErrInvalidChunking indicates chunk size/overlap are inconsistent.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidTopK indicates the retrieval top-K is out of range.
	ErrInvalidTopK = errors.New("invalid retrieval top_k")

	// ErrInvalidPostgres indicates the PostgreSQL settings are incomplete.
	ErrInvalidPostgres = errors.New("invalid PostgreSQL configuration")
)

// Config stores application configuration.
type Config struct {
	// Generation backend (llama.cpp compatible server hosting TAIDE).
	LlamaServer       string   `mapstructure:"llama_server"`
	InputTokenLimit   int      `mapstructure:"input_token_limit"`
	MaxLength         int      `mapstructure:"max_length"`
	Temperature       float32  `mapstructure:"temperature"`
	TopP              float32  `mapstructure:"top_p"`
	RepetitionPenalty float32  `mapstructure:"repetition_penalty"`
	PrependPersona    bool     `mapstructure:"prepend_persona"`
	StopPhrases       []string `mapstructure:"stop_phrases"`

	// Embeddings (Ollama-compatible server).
	OllamaHost    string `mapstructure:"ollama_host"`
	EmbedderModel string `mapstructure:"embedder_model"`

	// Retrieval.
	TopK int `mapstructure:"top_k"`

	// Ingestion.
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`

	// Storage.
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"` // SENSITIVE: never logged
	PostgresDBName   string `mapstructure:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode"`

	// Tracing (optional; empty endpoint disables).
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Environment  string `mapstructure:"environment"`
	ServiceName  string `mapstructure:"service_name"`
}

// Load loads configuration with priority: env > config file > defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".dbqa"))
	}
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvPrefix("DBQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("no config file found, using defaults and environment")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL is the highest-priority source for postgres settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults mirrors the original TAIDE deployment values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("llama_server", "http://localhost:8080")
	v.SetDefault("input_token_limit", 3500)
	v.SetDefault("max_length", 4096)
	v.SetDefault("temperature", 0.2)
	v.SetDefault("top_p", 0.95)
	v.SetDefault("repetition_penalty", 1.0)
	v.SetDefault("prepend_persona", true)
	v.SetDefault("stop_phrases", []string{"[INST]", "\nQuestion:", "[INST: ]"})

	v.SetDefault("ollama_host", "http://localhost:11434")
	v.SetDefault("embedder_model", "nomic-embed-text")

	v.SetDefault("top_k", 4)

	v.SetDefault("chunk_size", 512)
	v.SetDefault("chunk_overlap", 128)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "dbqa")
	v.SetDefault("postgres_password", "dbqa_dev_password")
	v.SetDefault("postgres_db_name", "dbqa")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("otlp_endpoint", "")
	v.SetDefault("environment", "dev")
	v.SetDefault("service_name", "dbqa")
}
