// Package config loads taskmesh settings and job files.
//
// Settings follow the hierarchy defaults < YAML file < environment. The YAML
// file is optional; only non-empty TASKMESH_* variables override it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/taskmesh/logging"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "taskmesh.yaml"

// Provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderCohere    = "cohere"
)

// Config is the root configuration.
type Config struct {
	Provider  ProviderConfig  `yaml:"provider"`
	Agent     AgentConfig     `yaml:"agent"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ProviderConfig selects and configures the chat model provider.
type ProviderConfig struct {
	Name         string  `yaml:"name"`
	Model        string  `yaml:"model"`
	APIKey       string  `yaml:"api_key"`
	BaseURL      string  `yaml:"base_url"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int64   `yaml:"max_tokens"`
	SystemPrompt string  `yaml:"system_prompt"`
}

// AgentConfig holds agent loop defaults.
type AgentConfig struct {
	MaxTurns int `yaml:"max_turns"`
}

// RetrievalConfig holds embedding and rerank settings for retrieval tasks.
type RetrievalConfig struct {
	// DSN is the PostgreSQL connection string used by table-backed
	// retrieve tasks.
	DSN                string       `yaml:"dsn"`
	Limit              int          `yaml:"limit"`
	Distance           string       `yaml:"distance"`
	EmbeddingModel     string       `yaml:"embedding_model"`
	EmbeddingCacheSize int          `yaml:"embedding_cache_size"`
	Rerank             RerankConfig `yaml:"rerank"`
}

// RerankConfig configures the optional Cohere reranker. An empty APIKey
// disables reranking.
type RerankConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	CacheSize int64  `yaml:"cache_size"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// Defaults returns the baseline configuration.
func Defaults() Config {
	return Config{
		Provider: ProviderConfig{
			Name:        ProviderOpenAI,
			Temperature: 0.3,
			MaxTokens:   1024,
		},
		Agent: AgentConfig{MaxTurns: 5},
		Retrieval: RetrievalConfig{
			Limit:              10,
			Distance:           "cosine",
			EmbeddingModel:     "text-embedding-3-small",
			EmbeddingCacheSize: 10000,
			Rerank: RerankConfig{
				Model:     "rerank-english-v2.0",
				CacheSize: 1024,
			},
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads DefaultConfigFile. See LoadFrom.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy defaults < YAML < ENV. A missing file is not an error.
func LoadFrom(path string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, path); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

func loadYAML(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is supplied by the operator
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

func loadEnv(cfg *Config) {
	setString(&cfg.Provider.Name, "TASKMESH_PROVIDER")
	setString(&cfg.Provider.Model, "TASKMESH_MODEL")
	setString(&cfg.Provider.APIKey, "TASKMESH_API_KEY")
	setString(&cfg.Provider.BaseURL, "TASKMESH_BASE_URL")
	setFloat64(&cfg.Provider.Temperature, "TASKMESH_TEMPERATURE")
	setInt64(&cfg.Provider.MaxTokens, "TASKMESH_MAX_TOKENS")
	setString(&cfg.Provider.SystemPrompt, "TASKMESH_SYSTEM_PROMPT")

	setInt(&cfg.Agent.MaxTurns, "TASKMESH_AGENT_MAX_TURNS")

	setString(&cfg.Retrieval.DSN, "DATABASE_URL")
	setString(&cfg.Retrieval.DSN, "TASKMESH_PG_DSN")
	setInt(&cfg.Retrieval.Limit, "TASKMESH_RETRIEVAL_LIMIT")
	setString(&cfg.Retrieval.Distance, "TASKMESH_RETRIEVAL_DISTANCE")
	setString(&cfg.Retrieval.EmbeddingModel, "TASKMESH_EMBEDDING_MODEL")
	setString(&cfg.Retrieval.Rerank.APIKey, "TASKMESH_RERANK_API_KEY")
	setString(&cfg.Retrieval.Rerank.Model, "TASKMESH_RERANK_MODEL")

	setString(&cfg.Logging.Level, "TASKMESH_LOG_LEVEL")
	setString(&cfg.Logging.Format, "TASKMESH_LOG_FORMAT")
	setBool(&cfg.Logging.AddSource, "TASKMESH_LOG_ADD_SOURCE")
}

// Validate checks provider, agent, retrieval and logging settings.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case ProviderOpenAI, ProviderAnthropic, ProviderCohere:
	default:
		return fmt.Errorf("provider.name %q must be %s, %s or %s", c.Provider.Name, ProviderOpenAI, ProviderAnthropic, ProviderCohere)
	}

	if c.Provider.Temperature < 0 || c.Provider.Temperature > 2 {
		return errors.New("provider.temperature must be between 0 and 2")
	}

	if c.Provider.MaxTokens < 1 {
		return errors.New("provider.max_tokens must be >= 1")
	}

	if c.Agent.MaxTurns < 1 {
		return errors.New("agent.max_turns must be >= 1")
	}

	if c.Retrieval.Limit < 1 {
		return errors.New("retrieval.limit must be >= 1")
	}

	switch c.Retrieval.Distance {
	case "cosine", "l2", "inner_product":
	default:
		return fmt.Errorf("retrieval.distance %q must be cosine, l2 or inner_product", c.Retrieval.Distance)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("logging.format %q must be json or text", c.Logging.Format)
	}

	return nil
}

// LoggerConfig converts the logging section. Validate must have passed.
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	cfg := logging.DefaultLoggerConfig()

	if lvl, err := logging.ParseLevel(c.Logging.Level); err == nil {
		cfg.Level = lvl
	}

	cfg.Format = c.Logging.Format
	cfg.AddSource = c.Logging.AddSource

	return cfg
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
