package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/xxxsen/common/logger"
	"gopkg.in/yaml.v3"
)

const (
	DefaultCompletionModel  = "gpt-3.5-turbo-instruct"
	DefaultEmbeddingModel   = "text-embedding-ada-002"
	DefaultMaxContextTokens = 500
	DefaultSeparator        = "\n* "
	DefaultMaxTokens        = 150
	DefaultPagesKey         = "book.pdf.pages.csv"
	DefaultEmbeddingsKey    = "book.pdf.embeddings.csv"
)

type Config struct {
	Database   DatabaseConfig   `json:"database" yaml:"database"`
	Port       int              `json:"port" yaml:"port"`
	LogConfig  logger.LogConfig `json:"log_config" yaml:"log_config"`
	AI         AIConfig         `json:"ai" yaml:"ai"`
	Corpus     CorpusConfig     `json:"corpus" yaml:"corpus"`
	Answer     AnswerConfig     `json:"answer" yaml:"answer"`
	EmbedCache EmbedCacheConfig `json:"embed_cache" yaml:"embed_cache"`
	Jobs       JobsConfig       `json:"jobs" yaml:"jobs"`
	RateLimit  RateLimitConfig  `json:"rate_limit" yaml:"rate_limit"`
	CORS       []string         `json:"cors" yaml:"cors"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn" yaml:"dsn"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
	DBName   string `json:"dbname" yaml:"dbname"`
	SSLMode  string `json:"sslmode" yaml:"sslmode"`
}

type AIProviderConfig struct {
	Name string                 `json:"name" yaml:"name"`
	Type string                 `json:"type" yaml:"type"`
	Data map[string]interface{} `json:"data" yaml:"data"`
}

// AIModelRef points at a model served by one of the configured providers.
// Lists of refs are tried in order.
type AIModelRef struct {
	Provider string `json:"provider" yaml:"provider"`
	Model    string `json:"model" yaml:"model"`
}

type AIConfig struct {
	Providers    []AIProviderConfig `json:"providers" yaml:"providers"`
	Generator    []AIModelRef       `json:"generator" yaml:"generator"`
	Embedder     []AIModelRef       `json:"embedder" yaml:"embedder"`
	Timeout      int                `json:"timeout" yaml:"timeout"`
	MaxRetries   int                `json:"max_retries" yaml:"max_retries"`
	RetryDelayMs int                `json:"retry_delay_ms" yaml:"retry_delay_ms"`
}

type FileStoreConfig struct {
	Type string                 `json:"type" yaml:"type"`
	Data map[string]interface{} `json:"data" yaml:"data"`
}

type CorpusConfig struct {
	Source        string          `json:"source" yaml:"source"`
	Store         FileStoreConfig `json:"store" yaml:"store"`
	PagesKey      string          `json:"pages_key" yaml:"pages_key"`
	EmbeddingsKey string          `json:"embeddings_key" yaml:"embeddings_key"`
	Cache         bool            `json:"cache" yaml:"cache"`
}

type AnswerConfig struct {
	MaxContextTokens int     `json:"max_context_tokens" yaml:"max_context_tokens"`
	Separator        string  `json:"separator" yaml:"separator"`
	MaxTokens        int     `json:"max_tokens" yaml:"max_tokens"`
	Temperature      float32 `json:"temperature" yaml:"temperature"`
	Preamble         string  `json:"preamble" yaml:"preamble"`
}

type EmbedCacheConfig struct {
	LRUSize       int  `json:"lru_size" yaml:"lru_size"`
	LRUTTLSeconds int  `json:"lru_ttl_seconds" yaml:"lru_ttl_seconds"`
	DB            bool `json:"db" yaml:"db"`
}

type JobsConfig struct {
	EmbeddingCacheCleanup    string `json:"embedding_cache_cleanup" yaml:"embedding_cache_cleanup"`
	EmbeddingCacheMaxAgeDays int    `json:"embedding_cache_max_age_days" yaml:"embedding_cache_max_age_days"`
	CorpusRefresh            string `json:"corpus_refresh" yaml:"corpus_refresh"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute"`
	Burst             int `json:"burst" yaml:"burst"`
}

// Load reads a json or yaml config file. A .env file next to the working
// directory is loaded first so provider keys can come from the environment.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.Database.DSN == "" && c.Database.Host == "" {
		return fmt.Errorf("database.dsn or database.host is required")
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	if err := c.AI.applyDefaults(); err != nil {
		return err
	}
	if err := c.Corpus.applyDefaults(); err != nil {
		return err
	}
	c.Answer.applyDefaults()
	if c.Jobs.EmbeddingCacheMaxAgeDays <= 0 {
		c.Jobs.EmbeddingCacheMaxAgeDays = 30
	}
	return nil
}

func (c *AIConfig) applyDefaults() error {
	if len(c.Providers) == 0 {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			c.Providers = append(c.Providers, AIProviderConfig{Name: "openai", Type: "openai"})
		}
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			c.Providers = append(c.Providers, AIProviderConfig{Name: "gemini", Type: "gemini"})
		}
	}
	for i := range c.Providers {
		p := &c.Providers[i]
		if p.Type == "" {
			p.Type = p.Name
		}
		if p.Name == "" {
			p.Name = p.Type
		}
		if p.Data == nil {
			p.Data = map[string]interface{}{}
		}
		if v, _ := p.Data["api_key"].(string); v == "" {
			if key := envKeyFor(p.Type); key != "" {
				p.Data["api_key"] = key
			}
		}
	}
	if len(c.Providers) == 0 {
		return fmt.Errorf("ai.providers is required (or set OPENAI_API_KEY)")
	}
	first := c.Providers[0].Name
	if len(c.Generator) == 0 {
		c.Generator = []AIModelRef{{Provider: first, Model: DefaultCompletionModel}}
	}
	if len(c.Embedder) == 0 {
		c.Embedder = []AIModelRef{{Provider: first, Model: DefaultEmbeddingModel}}
	}
	if c.Timeout <= 0 {
		c.Timeout = 30
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("ai.max_retries must be 0-10, got %d", c.MaxRetries)
	}
	if c.RetryDelayMs <= 0 {
		c.RetryDelayMs = 500
	}
	return nil
}

func envKeyFor(providerType string) string {
	switch strings.ToLower(providerType) {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	}
	return ""
}

func (c *CorpusConfig) applyDefaults() error {
	if c.Source == "" {
		c.Source = "store"
	}
	if c.PagesKey == "" {
		c.PagesKey = DefaultPagesKey
	}
	if c.EmbeddingsKey == "" {
		c.EmbeddingsKey = DefaultEmbeddingsKey
	}
	switch c.Source {
	case "store":
		if c.Store.Type == "" {
			c.Store.Type = "local"
		}
		if c.Store.Data == nil {
			c.Store.Data = map[string]interface{}{"dir": "."}
		}
	case "db":
	default:
		return fmt.Errorf("corpus.source must be store or db")
	}
	return nil
}

func (c *AnswerConfig) applyDefaults() {
	if c.MaxContextTokens <= 0 {
		c.MaxContextTokens = DefaultMaxContextTokens
	}
	if c.Separator == "" {
		c.Separator = DefaultSeparator
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
}
