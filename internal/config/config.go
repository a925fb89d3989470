package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"docqa/internal/models"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Embedding   LLMConfig         `yaml:"embedding"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	RAG         RAGConfig         `yaml:"rag"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LLMConfig describes one OpenAI-compatible or ollama endpoint. The same
// shape serves both the embedding model and the summarization model.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

type SummarizerConfig struct {
	LLM            LLMConfig `yaml:"llm"`
	Temperature    float64   `yaml:"temperature"`
	TokenBudget    int       `yaml:"token_budget"`
	TokenEncoding  string    `yaml:"token_encoding"`
	TimeoutSeconds int       `yaml:"timeout_seconds"`
}

func (c SummarizerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type VectorStoreConfig struct {
	Provider   string         `yaml:"provider"`
	Collection string         `yaml:"collection"`
	Qdrant     QdrantConfig   `yaml:"qdrant"`
	Chromem    ChromemConfig  `yaml:"chromem"`
	Database   DatabaseConfig `yaml:"database"`
}

type QdrantConfig struct {
	URL            string `yaml:"url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func (c QdrantConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type ChromemConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
	Compress bool   `yaml:"compress"`
}

type DatabaseConfig struct {
	URL   string `yaml:"url"`
	Key   string `yaml:"key"`
	Debug bool   `yaml:"debug"`
}

type RAGConfig struct {
	ChunkSize      int     `yaml:"chunk_size"`
	ChunkOverlap   int     `yaml:"chunk_overlap"`
	TopK           int     `yaml:"top_k"`
	ScoreThreshold float32 `yaml:"score_threshold"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read config: %v", models.ErrConfiguration, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse config: %v", models.ErrConfiguration, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.VectorStore.Provider == "" {
		c.VectorStore.Provider = "qdrant"
	}
	if c.VectorStore.Collection == "" {
		c.VectorStore.Collection = models.DefaultCollection
	}
	if c.VectorStore.Qdrant.TimeoutSeconds <= 0 {
		c.VectorStore.Qdrant.TimeoutSeconds = 15
	}
	if c.VectorStore.Chromem.Path == "" {
		c.VectorStore.Chromem.Path = "./chromemdb"
	}
	if c.Summarizer.Temperature <= 0 {
		c.Summarizer.Temperature = models.SummaryTemperature
	}
	if c.Summarizer.TokenBudget <= 0 {
		c.Summarizer.TokenBudget = models.DefaultTokenBudget
	}
	if c.Summarizer.TokenEncoding == "" {
		c.Summarizer.TokenEncoding = models.DefaultTokenEncoding
	}
	if c.Summarizer.TimeoutSeconds <= 0 {
		c.Summarizer.TimeoutSeconds = 60
	}
	if c.RAG.ChunkSize <= 0 {
		c.RAG.ChunkSize = models.DefaultChunkSize
	}
	if c.RAG.ChunkOverlap <= 0 {
		c.RAG.ChunkOverlap = models.DefaultChunkOverlap
	}
	if c.RAG.TopK <= 0 {
		c.RAG.TopK = models.DefaultTopK
	}
	if c.RAG.ScoreThreshold <= 0 {
		c.RAG.ScoreThreshold = models.DefaultScoreThreshold
	}
}
