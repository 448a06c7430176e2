package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Providers: map[string]ProviderConfig{
			"ollama": {BaseURL: "http://localhost:11434/v1"},
		},
		Embedding: EmbeddingConfig{Provider: "ollama"},
		LLM:       LLMConfig{Provider: "ollama"},
		RAG:       RAGConfig{ChunkOverlap: DefaultChunkOverlap},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_InvalidBudgetAction(t *testing.T) {
	cfg := validConfig()
	cfg.Providers["ollama"] = ProviderConfig{Budget: BudgetConfig{DailyTokenLimit: 1000000, Action: "invalid_action"}}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid budget action")
	}

	expected := `providers.ollama.budget.action must be "warn" or "reject", got "invalid_action"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ValidBudgetActions(t *testing.T) {
	for _, action := range []string{"", "warn", "reject"} {
		t.Run("action="+action, func(t *testing.T) {
			cfg := validConfig()
			cfg.Providers["ollama"] = ProviderConfig{Budget: BudgetConfig{Action: action}}
			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for valid action %q: %v", action, err)
			}
		})
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"invalid port", func(c *Config) { c.HTTP.Port = 70000 }, "http.port"},
		{"missing addrs", func(c *Config) { c.Database.Addrs = nil }, "database.addrs"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "pinecone" }, "database.driver"},
		{"overlap equals size", func(c *Config) { c.RAG.ChunkOverlap = c.RAG.ChunkSize }, "rag.chunk_overlap"},
		{"negative overlap", func(c *Config) { c.RAG.ChunkOverlap = -1 }, "rag.chunk_overlap"},
		{"threshold above one", func(c *Config) { c.Evaluation.FaithfulnessThreshold = 1.5 }, "faithfulness_threshold"},
		{"unknown embedding provider", func(c *Config) { c.Embedding.Provider = "nebius" }, "embedding.provider"},
		{"missing llm provider", func(c *Config) { c.LLM.Provider = "" }, "llm.provider is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_MemoryDriverNeedsNoAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = "memory"
	cfg.Database.Addrs = nil
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.UsesKV() {
		t.Error("memory driver has no key-value store")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{LLM: LLMConfig{Provider: "ollama"}}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected Port=8080, got %d", cfg.HTTP.Port)
	}
	if cfg.Database.Driver != "valkey" || cfg.Database.Collection != "fastapi-rag" {
		t.Errorf("unexpected database defaults %+v", cfg.Database)
	}
	if cfg.RAG.ChunkSize != 600 || cfg.RAG.RetrievalK != 4 {
		t.Errorf("unexpected rag defaults %+v", cfg.RAG)
	}
	if cfg.Embedding.BatchSize != 50 {
		t.Errorf("expected BatchSize=50, got %d", cfg.Embedding.BatchSize)
	}
	if cfg.Evaluation.FaithfulnessThreshold != 0.4 {
		t.Errorf("expected threshold 0.4, got %v", cfg.Evaluation.FaithfulnessThreshold)
	}
	if cfg.Evaluation.Provider != "ollama" || cfg.Evaluation.Model != cfg.LLM.Model {
		t.Errorf("evaluation should inherit llm settings, got %+v", cfg.Evaluation)
	}
	if cfg.RAG.SystemPrompt != DefaultSystemPrompt {
		t.Error("expected default system prompt")
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:  HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Index: IndexConfig{HNSWM: 32, HNSWEFConstruct: 400},
		RAG:   RAGConfig{ChunkSize: 1000, RetrievalK: 8},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Index.HNSWM != 32 {
		t.Errorf("expected HNSWM=32, got %d", cfg.Index.HNSWM)
	}
	if cfg.RAG.ChunkSize != 1000 || cfg.RAG.RetrievalK != 8 {
		t.Errorf("rag overrides lost: %+v", cfg.RAG)
	}
}

func TestParse_ExpandsEnvAndKeepsOverlapDefault(t *testing.T) {
	t.Setenv("DOCQA_TEST_KEY", "sk-test")

	cfg, err := Parse([]byte(`
database:
  driver: memory
providers:
  openai:
    api_key: ${DOCQA_TEST_KEY}
    base_url: ${DOCQA_TEST_URL:-https://api.openai.com/v1}
embedding:
  provider: openai
llm:
  provider: openai
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Providers["openai"].APIKey != "sk-test" {
		t.Errorf("expected expanded key, got %q", cfg.Providers["openai"].APIKey)
	}
	if cfg.Providers["openai"].BaseURL != "https://api.openai.com/v1" {
		t.Errorf("expected default url, got %q", cfg.Providers["openai"].BaseURL)
	}
	if cfg.RAG.ChunkOverlap != DefaultChunkOverlap {
		t.Errorf("expected overlap %d, got %d", DefaultChunkOverlap, cfg.RAG.ChunkOverlap)
	}
}

func TestParse_ExplicitZeroOverlap(t *testing.T) {
	cfg, err := Parse([]byte(`
database:
  driver: memory
providers:
  local: {}
embedding: {provider: local}
llm: {provider: local}
rag:
  chunk_size: 600
  chunk_overlap: 0
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RAG.ChunkOverlap != 0 {
		t.Errorf("expected overlap 0, got %d", cfg.RAG.ChunkOverlap)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("DOCQA_SET", "value")
	got := string(expandEnvVars([]byte("a=${DOCQA_SET} b=${DOCQA_UNSET:-fallback} c=${DOCQA_UNSET}")))
	if got != "a=value b=fallback c=" {
		t.Errorf("expandEnvVars = %q", got)
	}
}
