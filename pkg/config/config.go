// Package config provides the configuration types for the orchestration
// engine. A single yaml file is the entry point; every section has
// SetDefaults and Validate methods and supports ${VAR} expansion.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete configuration.
type Config struct {
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`

	Server    ServerConfig                      `yaml:"server,omitempty"`
	LLMs      map[string]LLMProviderConfig      `yaml:"llms,omitempty"`
	Embedders map[string]EmbedderProviderConfig `yaml:"embedders,omitempty"`

	// DefaultLLM / DefaultEmbedder pick the provider the router and the
	// retrieval engine use when more than one is configured.
	DefaultLLM      string `yaml:"default_llm,omitempty"`
	DefaultEmbedder string `yaml:"default_embedder,omitempty"`

	VectorStore VectorStoreConfig     `yaml:"vector_store,omitempty"`
	Retrieval   RetrievalConfig       `yaml:"retrieval,omitempty"`
	Ingestion   IngestionConfig       `yaml:"ingestion,omitempty"`
	Memory      MemoryConfig          `yaml:"memory,omitempty"`
	Cache       CacheConfig           `yaml:"cache,omitempty"`
	Tools       map[string]ToolConfig `yaml:"tools,omitempty"`
}

type ServerConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
}

type LLMProviderConfig struct {
	Type        string  `yaml:"type"` // "anthropic" or "openai"
	Model       string  `yaml:"model,omitempty"`
	APIKey      string  `yaml:"api_key,omitempty"`
	Host        string  `yaml:"host,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
	Timeout     int     `yaml:"timeout,omitempty"`     // seconds
	MaxRetries  int     `yaml:"max_retries,omitempty"` // HTTP retries
	RetryDelay  int     `yaml:"retry_delay,omitempty"` // seconds
}

type EmbedderProviderConfig struct {
	Type       string `yaml:"type"` // "openai" or "ollama"
	Model      string `yaml:"model,omitempty"`
	APIKey     string `yaml:"api_key,omitempty"`
	Host       string `yaml:"host,omitempty"`
	Dimension  int    `yaml:"dimension,omitempty"`
	Timeout    int    `yaml:"timeout,omitempty"`
	MaxRetries int    `yaml:"max_retries,omitempty"`
	BatchSize  int    `yaml:"batch_size,omitempty"`
}

type VectorStoreConfig struct {
	Type                string `yaml:"type"` // "chromem" or "qdrant"
	Host                string `yaml:"host,omitempty"`
	Port                int    `yaml:"port,omitempty"`
	APIKey              string `yaml:"api_key,omitempty"`
	EnableTLS           *bool  `yaml:"enable_tls,omitempty"`
	PersistPath         string `yaml:"persist_path,omitempty"` // chromem only
	Compress            bool   `yaml:"compress,omitempty"`     // chromem only
	DocumentCollection  string `yaml:"document_collection,omitempty"`
	KnowledgeCollection string `yaml:"knowledge_collection,omitempty"`
}

type RetrievalConfig struct {
	Enabled            *bool   `yaml:"enabled,omitempty"`
	DefaultLimit       int     `yaml:"default_limit,omitempty"`
	DefaultThreshold   float64 `yaml:"default_threshold,omitempty"`
	SearchCacheTTL     int     `yaml:"search_cache_ttl,omitempty"` // seconds
	SearchCacheSize    int     `yaml:"search_cache_size,omitempty"`
	EmbeddingCacheSize int     `yaml:"embedding_cache_size,omitempty"`
	// EmbeddingCacheKeep is the "keep most recent K" bound applied when the
	// embedding cache bulk-evicts past its soft cap.
	EmbeddingCacheKeep int `yaml:"embedding_cache_keep,omitempty"`
}

type IngestionConfig struct {
	MaxTextLength        int  `yaml:"max_text_length,omitempty"`
	ChunkSize            int  `yaml:"chunk_size,omitempty"`
	ChunkOverlap         int  `yaml:"chunk_overlap,omitempty"`
	EnableVisionFallback bool `yaml:"enable_vision_fallback,omitempty"`
}

type MemoryConfig struct {
	WindowSize int `yaml:"window_size,omitempty"`
}

type CacheConfig struct {
	DefaultTTL    int `yaml:"default_ttl,omitempty"` // seconds
	MaxKeys       int `yaml:"max_keys,omitempty"`
	SweepInterval int `yaml:"sweep_interval,omitempty"` // seconds
}

type ToolConfig struct {
	Enabled   *bool            `yaml:"enabled,omitempty"`
	Category  string           `yaml:"category,omitempty"`
	RateLimit *RateLimitConfig `yaml:"rate_limit,omitempty"`
}

type RateLimitConfig struct {
	MaxCalls int `yaml:"max_calls"`
	WindowMs int `yaml:"window_ms"`
}

func (c *RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowMs) * time.Millisecond
}

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Retrieval.DefaultLimit <= 0 {
		c.Retrieval.DefaultLimit = 5
	}
	if c.Retrieval.DefaultThreshold <= 0 {
		c.Retrieval.DefaultThreshold = 0.7
	}
	if c.Retrieval.SearchCacheTTL <= 0 {
		c.Retrieval.SearchCacheTTL = 1800
	}
	if c.Retrieval.SearchCacheSize <= 0 {
		c.Retrieval.SearchCacheSize = 500
	}
	if c.Retrieval.EmbeddingCacheSize <= 0 {
		c.Retrieval.EmbeddingCacheSize = 1000
	}
	if c.Retrieval.EmbeddingCacheKeep <= 0 || c.Retrieval.EmbeddingCacheKeep > c.Retrieval.EmbeddingCacheSize {
		c.Retrieval.EmbeddingCacheKeep = c.Retrieval.EmbeddingCacheSize * 3 / 4
	}
	if c.Ingestion.MaxTextLength <= 0 {
		c.Ingestion.MaxTextLength = 100000
	}
	if c.Ingestion.ChunkSize <= 0 {
		c.Ingestion.ChunkSize = 1500
	}
	if c.Ingestion.ChunkOverlap < 0 {
		c.Ingestion.ChunkOverlap = 0
	}
	if c.Ingestion.ChunkOverlap == 0 {
		c.Ingestion.ChunkOverlap = 200
	}
	if c.Memory.WindowSize <= 0 {
		c.Memory.WindowSize = 20
	}
	if c.Cache.DefaultTTL <= 0 {
		c.Cache.DefaultTTL = 600
	}
	if c.Cache.MaxKeys <= 0 {
		c.Cache.MaxKeys = 10000
	}
	if c.Cache.SweepInterval <= 0 {
		c.Cache.SweepInterval = 120
	}
	if c.VectorStore.Type == "" {
		c.VectorStore.Type = "chromem"
	}
	if c.VectorStore.DocumentCollection == "" {
		c.VectorStore.DocumentCollection = "document_chunks"
	}
	if c.VectorStore.KnowledgeCollection == "" {
		c.VectorStore.KnowledgeCollection = "knowledge_base"
	}
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	for name, llm := range c.LLMs {
		if err := llm.Validate(); err != nil {
			return fmt.Errorf("llm '%s': %w", name, err)
		}
	}
	for name, emb := range c.Embedders {
		if err := emb.Validate(); err != nil {
			return fmt.Errorf("embedder '%s': %w", name, err)
		}
	}
	if c.DefaultLLM != "" {
		if _, ok := c.LLMs[c.DefaultLLM]; !ok {
			return fmt.Errorf("default_llm '%s' is not defined under llms", c.DefaultLLM)
		}
	}
	if c.DefaultEmbedder != "" {
		if _, ok := c.Embedders[c.DefaultEmbedder]; !ok {
			return fmt.Errorf("default_embedder '%s' is not defined under embedders", c.DefaultEmbedder)
		}
	}
	switch c.VectorStore.Type {
	case "", "chromem", "qdrant":
	default:
		return fmt.Errorf("unsupported vector store type: %s (supported: chromem, qdrant)", c.VectorStore.Type)
	}
	if c.Retrieval.DefaultThreshold < 0 || c.Retrieval.DefaultThreshold > 1 {
		return fmt.Errorf("retrieval default_threshold must be in [0, 1], got %v", c.Retrieval.DefaultThreshold)
	}
	if c.Ingestion.ChunkOverlap >= c.Ingestion.ChunkSize {
		return fmt.Errorf("ingestion chunk_overlap (%d) must be less than chunk_size (%d)",
			c.Ingestion.ChunkOverlap, c.Ingestion.ChunkSize)
	}
	for name, tool := range c.Tools {
		if tool.RateLimit != nil {
			if tool.RateLimit.MaxCalls <= 0 || tool.RateLimit.WindowMs <= 0 {
				return fmt.Errorf("tool '%s': rate_limit requires positive max_calls and window_ms", name)
			}
		}
	}
	return nil
}

func (c *LLMProviderConfig) Validate() error {
	switch c.Type {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("unsupported LLM type: %s (supported: anthropic, openai)", c.Type)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be in [0, 2], got %v", c.Temperature)
	}
	return nil
}

func (c *EmbedderProviderConfig) Validate() error {
	switch c.Type {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unsupported embedder type: %s (supported: openai, ollama)", c.Type)
	}
	return nil
}

// Load reads, expands, unmarshals, defaults, and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns a ready-to-use configuration without a file.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}
