// Package config loads the YAML application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/clickagent/clickagent/document"
)

// EmbedderConfig selects and configures the embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	E5     *E5EmbedderConfig     `yaml:"e5,omitempty"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// E5EmbedderConfig holds connection details for an OpenAI-compatible
// endpoint serving an e5-family model.
type E5EmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	Dimension   int    `yaml:"dimension"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// OpenAIEmbedderConfig configures the OpenAI embeddings API.
type OpenAIEmbedderConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
	BatchSize int    `yaml:"batch_size"`
}

// StoreConfig selects and configures the vector store implementation.
type StoreConfig struct {
	Type     string          `yaml:"type"`
	SQLite   *SQLiteConfig   `yaml:"sqlite,omitempty"`
	PGVector *PGVectorConfig `yaml:"pgvector,omitempty"`
}

// SQLiteConfig contains settings for the single-file store.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PGVectorConfig contains connection details for a Postgres store.
type PGVectorConfig struct {
	DSNEnv string `yaml:"dsn_env"`
	Table  string `yaml:"table"`
}

// LLMConfig selects and configures the answer model.
type LLMConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// ChunkerConfig configures how imported text is split into documents.
type ChunkerConfig struct {
	MinSentenceLength int `yaml:"min_sentence_length"`
	MaxTokens         int `yaml:"max_tokens"`
}

// RetrievalConfig configures similarity search and answering.
type RetrievalConfig struct {
	TopK            int     `yaml:"top_k"`
	IngestBatchSize int     `yaml:"ingest_batch_size"`
	MaxAnswerTokens int     `yaml:"max_answer_tokens"`
	Temperature     float32 `yaml:"temperature"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Store     StoreConfig     `yaml:"store"`
	LLM       LLMConfig       `yaml:"llm"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

// Load reads a config from a specified path. If the file does not exist,
// it returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./clickagent.yaml first, then
// ~/.config/clickagent/config.yaml. If neither exists it returns defaults.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "clickagent.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	return defaultConfig(), "", nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "clickagent", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder: EmbedderConfig{
			Type: "e5",
			E5:   &E5EmbedderConfig{},
		},
		Store: StoreConfig{
			Type:   "sqlite",
			SQLite: &SQLiteConfig{},
		},
		LLM: LLMConfig{Provider: "anthropic"},
	}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "e5"
	}
	if cfg.Embedder.Type == "e5" {
		if cfg.Embedder.E5 == nil {
			cfg.Embedder.E5 = &E5EmbedderConfig{}
		}
		e5cfg := cfg.Embedder.E5
		if e5cfg.BaseURL == "" {
			e5cfg.BaseURL = "http://localhost:8080/v1"
		}
		if e5cfg.Model == "" {
			e5cfg.Model = "intfloat/multilingual-e5-large"
		}
		if e5cfg.Dimension == 0 {
			e5cfg.Dimension = 1024
		}
		if e5cfg.TimeoutSecs == 0 {
			e5cfg.TimeoutSecs = 30
		}
		if e5cfg.BatchSize == 0 {
			e5cfg.BatchSize = 16
		}
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
	}

	if cfg.Store.Type == "" {
		cfg.Store.Type = "sqlite"
	}
	if cfg.Store.Type == "sqlite" {
		if cfg.Store.SQLite == nil {
			cfg.Store.SQLite = &SQLiteConfig{}
		}
		if cfg.Store.SQLite.Path == "" {
			cfg.Store.SQLite.Path = "clickagent.db"
		}
	}
	if cfg.Store.Type == "pgvector" {
		if cfg.Store.PGVector == nil {
			cfg.Store.PGVector = &PGVectorConfig{}
		}
		if cfg.Store.PGVector.DSNEnv == "" {
			cfg.Store.PGVector.DSNEnv = "DATABASE_URL"
		}
		if cfg.Store.PGVector.Table == "" {
			cfg.Store.PGVector.Table = "chat_messages"
		}
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "anthropic"
	}
	if cfg.LLM.Provider == "anthropic" && cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "ANTHROPIC_API_KEY"
	}
	if cfg.LLM.Provider == "openai" && cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "OPENAI_API_KEY"
	}

	if cfg.Chunker.MinSentenceLength == 0 {
		cfg.Chunker.MinSentenceLength = document.DefaultMinSentenceLength
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 4
	}
	if cfg.Retrieval.IngestBatchSize == 0 {
		cfg.Retrieval.IngestBatchSize = 50
	}
	if cfg.Retrieval.MaxAnswerTokens == 0 {
		cfg.Retrieval.MaxAnswerTokens = 1000
	}
	if cfg.Retrieval.Temperature == 0 {
		cfg.Retrieval.Temperature = 0.7
	}
}
