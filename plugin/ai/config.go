package ai

import (
	"strings"
	"time"

	"github.com/jeffreyouni/life-butler/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	Enabled bool

	Embedding EmbeddingConfig
	LLM       LLMConfig
}

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Provider   string // openai, ollama (OpenAI-compatible endpoint)
	Model      string // text-embedding-3-small, nomic-embed-text, ...
	Dimensions int
	APIKey     string
	BaseURL    string

	// Ingestion batching. Local model servers choke on large concurrent
	// batches, so texts are embedded in small batches with pacing between
	// them.
	BatchSize     int
	BatchInterval time.Duration
}

// LLMConfig represents LLM configuration.
type LLMConfig struct {
	Provider    string // openai, deepseek, ollama
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float32
}

// DimensionsForModel returns the vector dimensionality for a model name.
// Local nomic/bge family models produce 768-dim vectors; everything else
// is assumed to be an OpenAI-style 1536-dim model.
func DimensionsForModel(model string) int {
	lower := strings.ToLower(model)
	if strings.Contains(lower, "nomic") || strings.Contains(lower, "bge") {
		return 768
	}
	return 1536
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled: p.IsAIEnabled(),
	}
	if !cfg.Enabled {
		return cfg
	}

	cfg.Embedding = EmbeddingConfig{
		Provider:      p.AIEmbeddingProvider,
		Model:         p.AIEmbeddingModel,
		Dimensions:    DimensionsForModel(p.AIEmbeddingModel),
		APIKey:        p.AIAPIKey,
		BaseURL:       p.AIBaseURL,
		BatchSize:     5,
		BatchInterval: 200 * time.Millisecond,
	}
	cfg.LLM = LLMConfig{
		Provider:    p.AILLMProvider,
		Model:       p.AILLMModel,
		APIKey:      p.AIAPIKey,
		BaseURL:     p.AIBaseURL,
		MaxTokens:   2048,
		Temperature: 0.7,
	}
	return cfg
}
