package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AppInfo holds basic application identity.
type AppInfo struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Address     string `yaml:"address"`
}

// LoggerConfig controls the log level.
type LoggerConfig struct {
	Level string `yaml:"level"`
}

// OpenRouterConfig configures the OpenAI-compatible OpenRouter backend.
type OpenRouterConfig struct {
	APIKey  string `yaml:"apiKey"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"baseURL"`
}

// GeminiConfig configures the Google Gemini backend.
type GeminiConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

// OllamaConfig configures a local Ollama backend.
type OllamaConfig struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"baseURL"`
}

// LLMConfig selects the chat backend and carries per-backend settings.
type LLMConfig struct {
	Provider   string           `yaml:"provider"` // "openrouter", "gemini" or "ollama"
	OpenRouter OpenRouterConfig `yaml:"openrouter"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	Ollama     OllamaConfig     `yaml:"ollama"`
}

// HuggingFaceEmbeddingConfig configures the HF feature-extraction endpoint.
type HuggingFaceEmbeddingConfig struct {
	APIKey  string `yaml:"apiKey"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"baseURL"`
}

// OpenAIEmbeddingConfig configures OpenAI-compatible embeddings.
type OpenAIEmbeddingConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

// OllamaEmbeddingConfig configures Ollama embeddings.
type OllamaEmbeddingConfig struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"baseURL"`
}

// EmbeddingConfig selects the embedding backend.
type EmbeddingConfig struct {
	Provider    string                     `yaml:"provider"` // "huggingface", "openai" or "ollama"
	Dimension   int                        `yaml:"dimension"`
	HuggingFace HuggingFaceEmbeddingConfig `yaml:"huggingface"`
	OpenAI      OpenAIEmbeddingConfig      `yaml:"openai"`
	Ollama      OllamaEmbeddingConfig      `yaml:"ollama"`
}

// MySQLConfig holds the relational store connection settings.
type MySQLConfig struct {
	Address         string `yaml:"address"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	Database        string `yaml:"database"`
	MaxOpenConns    int    `yaml:"maxOpenConns"`
	MaxIdleConns    int    `yaml:"maxIdleConns"`
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // seconds
}

// MilvusConfig holds the vector index connection settings.
type MilvusConfig struct {
	Address    string `yaml:"address"`
	Collection string `yaml:"collection"`
}

// MongoConfig holds the conversation store connection settings.
type MongoConfig struct {
	Address  string `yaml:"address"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// MinIOConfig holds the object storage connection settings.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Secure    bool   `yaml:"secure"`
}

// RedisConfig holds the status event channel settings.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DatabaseConfigs groups all backing store configs.
type DatabaseConfigs struct {
	MySQL   MySQLConfig  `yaml:"mysql"`
	Milvus  MilvusConfig `yaml:"milvus"`
	MongoDB MongoConfig  `yaml:"mongodb"`
	MinIO   MinIOConfig  `yaml:"minio"`
	Redis   RedisConfig  `yaml:"redis"`
}

// ChunkingConfig controls the text chunker.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// RetrievalConfig controls the hybrid retriever and reranker.
type RetrievalConfig struct {
	HybridEnabled   bool    `yaml:"hybridEnabled"`
	RerankerEnabled bool    `yaml:"rerankerEnabled"`
	RerankerModel   string  `yaml:"rerankerModel"`
	RerankerAPIKey  string  `yaml:"rerankerAPIKey"`
	RerankerBaseURL string  `yaml:"rerankerBaseURL"`
	Threshold       float64 `yaml:"threshold"`
	Count           int     `yaml:"count"`
}

// ToolsConfig gates the optional tools. search_documents is always enabled.
type ToolsConfig struct {
	WebSearchEnabled   bool   `yaml:"webSearchEnabled"`
	TavilyAPIKey       string `yaml:"tavilyAPIKey"`
	CalculatorEnabled  bool   `yaml:"calculatorEnabled"`
	URLFetcherEnabled  bool   `yaml:"urlFetcherEnabled"`
	DatetimeEnabled    bool   `yaml:"datetimeEnabled"`
	AgentsEnabled      bool   `yaml:"agentsEnabled"`
	URLFetcherMaxChars int    `yaml:"urlFetcherMaxChars"`
	URLFetcherTimeout  int    `yaml:"urlFetcherTimeout"` // seconds
}

// AgentConfig controls the ReAct loop budgets.
type AgentConfig struct {
	MaxIterations int `yaml:"maxIterations"`
	MaxTokens     int `yaml:"maxTokens"`
}

// AppConfig is the root of the YAML configuration file.
type AppConfig struct {
	App       AppInfo         `yaml:"app"`
	Logger    LoggerConfig    `yaml:"logger"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Databases DatabaseConfigs `yaml:"databases"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Tools     ToolsConfig     `yaml:"tools"`
	Agent     AgentConfig     `yaml:"agent"`
}

// LoadConfig reads and parses the YAML configuration file at path,
// then fills in defaults for optional values.
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file '%s': %w", path, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.App.Address == "" {
		c.App.Address = ":8080"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Chunking.Size == 0 {
		c.Chunking.Size = 500
	}
	if c.Chunking.Overlap == 0 {
		c.Chunking.Overlap = 100
	}
	if c.Retrieval.Threshold == 0 {
		c.Retrieval.Threshold = 0.3
	}
	if c.Retrieval.Count == 0 {
		c.Retrieval.Count = 5
	}
	if c.Tools.URLFetcherMaxChars == 0 {
		c.Tools.URLFetcherMaxChars = 8000
	}
	if c.Tools.URLFetcherTimeout == 0 {
		c.Tools.URLFetcherTimeout = 10
	}
	if c.Agent.MaxIterations == 0 {
		c.Agent.MaxIterations = 5
	}
	if c.Agent.MaxTokens == 0 {
		c.Agent.MaxTokens = 2048
	}
	if c.Databases.Milvus.Collection == "" {
		c.Databases.Milvus.Collection = "document_chunks"
	}
	if c.Embedding.Dimension == 0 {
		c.Embedding.Dimension = 384
	}
}
