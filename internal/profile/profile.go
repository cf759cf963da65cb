// Package profile holds the runtime configuration for the butler.
package profile

import (
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Profile is the configuration to start the butler.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Data is the data directory
	Data string
	// DSN points to where the butler stores its own data
	DSN string
	// Driver is the database driver (sqlite)
	Driver string
	// Version is the current version
	Version string

	// AI configuration
	AIEnabled           bool   // BUTLER_AI_ENABLED
	AIEmbeddingProvider string // BUTLER_AI_EMBEDDING_PROVIDER (default: openai)
	AIEmbeddingModel    string // BUTLER_AI_EMBEDDING_MODEL (default: text-embedding-3-small)
	AILLMProvider       string // BUTLER_AI_LLM_PROVIDER (default: openai)
	AILLMModel          string // BUTLER_AI_LLM_MODEL (default: gpt-4o-mini)
	AIAPIKey            string // BUTLER_AI_API_KEY
	AIBaseURL           string // BUTLER_AI_BASE_URL
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if AI is enabled and a provider is reachable.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && (p.AIAPIKey != "" || p.AIBaseURL != "")
}

// FromViper builds a profile from viper-bound flags and BUTLER_* env vars.
func FromViper(v *viper.Viper) (*Profile, error) {
	v.SetEnvPrefix("butler")
	v.AutomaticEnv()

	v.SetDefault("mode", "dev")
	v.SetDefault("data", ".")
	v.SetDefault("driver", "sqlite")
	v.SetDefault("ai-embedding-provider", "openai")
	v.SetDefault("ai-embedding-model", "text-embedding-3-small")
	v.SetDefault("ai-llm-provider", "openai")
	v.SetDefault("ai-llm-model", "gpt-4o-mini")

	p := &Profile{
		Mode:                v.GetString("mode"),
		Data:                v.GetString("data"),
		DSN:                 v.GetString("dsn"),
		Driver:              v.GetString("driver"),
		Version:             v.GetString("version"),
		AIEnabled:           v.GetBool("ai-enabled"),
		AIEmbeddingProvider: v.GetString("ai-embedding-provider"),
		AIEmbeddingModel:    v.GetString("ai-embedding-model"),
		AILLMProvider:       v.GetString("ai-llm-provider"),
		AILLMModel:          v.GetString("ai-llm-model"),
		AIAPIKey:            v.GetString("ai-api-key"),
		AIBaseURL:           v.GetString("ai-base-url"),
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate fills derived defaults and rejects inconsistent settings.
func (p *Profile) Validate() error {
	if p.Mode != "prod" && p.Mode != "dev" {
		return errors.Errorf("invalid mode %q", p.Mode)
	}
	if p.Driver != "sqlite" {
		return errors.Errorf("invalid driver %q", p.Driver)
	}
	if p.DSN == "" {
		p.DSN = filepath.Join(p.Data, fmt.Sprintf("butler_%s.db", p.Mode))
	}
	return nil
}
