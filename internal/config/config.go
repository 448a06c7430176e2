package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultSystemPrompt instructs the model to answer only from retrieved documentation.
const DefaultSystemPrompt = `You are a professional FastAPI documentation assistant. Your role is to provide accurate, helpful answers about FastAPI based solely on the provided documentation.

Guidelines:
1. ONLY use information from the retrieved context to answer questions
2. If the context doesn't contain relevant information, clearly state that
3. Provide code examples when appropriate
4. Be concise and professional in your responses
5. Cite specific concepts from the documentation when possible

When you don't have enough information, say: "Based on the available documentation, I don't have specific information about that topic. Please consult the official FastAPI documentation for more details."`

// DefaultChunkOverlap is the overlap used when the config file does not set one.
const DefaultChunkOverlap = 50

// Config holds the docqa configuration. It is loaded once and passed by value.
type Config struct {
	HTTP       HTTPConfig                `yaml:"http"`
	Database   DatabaseConfig            `yaml:"database"`
	Index      IndexConfig               `yaml:"index"`
	Providers  map[string]ProviderConfig `yaml:"providers"`
	Embedding  EmbeddingConfig           `yaml:"embedding"`
	LLM        LLMConfig                 `yaml:"llm"`
	Evaluation EvaluationConfig          `yaml:"evaluation"`
	RAG        RAGConfig                 `yaml:"rag"`
	Auth       AuthConfig                `yaml:"auth"`
	Logging    LoggingConfig             `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig selects and configures the vector index backend.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, milvus, memory (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	Name             string   `yaml:"name"` // milvus database name
	Collection       string   `yaml:"collection"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IndexConfig holds HNSW settings.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// ProviderConfig is an OpenAI-compatible endpoint (OpenAI, Ollama, vLLM).
type ProviderConfig struct {
	APIKey  string       `yaml:"api_key"`
	BaseURL string       `yaml:"base_url"`
	Budget  BudgetConfig `yaml:"budget"`
}

// EmbeddingConfig holds embedding model settings.
type EmbeddingConfig struct {
	Provider            string `yaml:"provider"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
	BatchSize           int    `yaml:"batch_size"`
	Cache               bool   `yaml:"cache"`
}

// LLMConfig holds answer generation settings.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// EvaluationConfig holds answer scoring settings. Empty provider and model reuse the LLM ones.
type EvaluationConfig struct {
	Enabled               bool    `yaml:"enabled"`
	Provider              string  `yaml:"provider"`
	Model                 string  `yaml:"model"`
	FaithfulnessThreshold float64 `yaml:"faithfulness_threshold"`
	RelevancyQuestions    int     `yaml:"relevancy_questions"`
}

// RAGConfig holds chunking and retrieval settings.
type RAGConfig struct {
	DocumentPath string `yaml:"document_path"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	RetrievalK   int    `yaml:"retrieval_k"`
	SystemPrompt string `yaml:"system_prompt"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	// overlap 0 is a valid setting, so its default is seeded before decoding
	cfg := Config{RAG: RAGConfig{ChunkOverlap: DefaultChunkOverlap}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// generation and evaluation are slow
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.Collection == "" {
		c.Database.Collection = "fastapi-rag"
	}
	if c.Database.Name == "" {
		c.Database.Name = "default"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "nomic-embed-text"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 768
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 50
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-oss:20b-cloud"
	}
	if c.Evaluation.Provider == "" {
		c.Evaluation.Provider = c.LLM.Provider
	}
	if c.Evaluation.Model == "" {
		c.Evaluation.Model = c.LLM.Model
	}
	if c.Evaluation.FaithfulnessThreshold <= 0 {
		c.Evaluation.FaithfulnessThreshold = 0.4
	}
	if c.Evaluation.RelevancyQuestions <= 0 {
		c.Evaluation.RelevancyQuestions = 3
	}
	if c.RAG.DocumentPath == "" {
		c.RAG.DocumentPath = "./fastapi_tutorial.pdf"
	}
	if c.RAG.ChunkSize <= 0 {
		c.RAG.ChunkSize = 600
	}
	if c.RAG.RetrievalK <= 0 {
		c.RAG.RetrievalK = 4
	}
	if c.RAG.SystemPrompt == "" {
		c.RAG.SystemPrompt = DefaultSystemPrompt
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "valkey", "redis", "milvus":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver must be one of valkey, redis, milvus, memory, got %q", c.Database.Driver)
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap must be in [0, %d), got %d", c.RAG.ChunkSize, c.RAG.ChunkOverlap)
	}
	if c.Evaluation.FaithfulnessThreshold > 1 {
		return fmt.Errorf("evaluation.faithfulness_threshold must be in (0, 1], got %v",
			c.Evaluation.FaithfulnessThreshold)
	}
	for _, ref := range []struct{ field, name string }{
		{"embedding.provider", c.Embedding.Provider},
		{"llm.provider", c.LLM.Provider},
		{"evaluation.provider", c.Evaluation.Provider},
	} {
		if ref.name == "" {
			return fmt.Errorf("%s is required", ref.field)
		}
		if _, ok := c.Providers[ref.name]; !ok {
			return fmt.Errorf("%s references unknown provider %q", ref.field, ref.name)
		}
	}
	for name, p := range c.Providers {
		switch p.Budget.Action {
		case "", "warn", "reject":
			// ok
		default:
			return fmt.Errorf(
				"providers.%s.budget.action must be \"warn\" or \"reject\", got %q",
				name, p.Budget.Action,
			)
		}
	}
	return nil
}

// UsesKV reports whether the driver offers a Redis-compatible key-value store.
func (c *Config) UsesKV() bool {
	return c.Database.Driver == "valkey" || c.Database.Driver == "redis"
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
