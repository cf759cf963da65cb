package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/jeffreyouni/life-butler/plugin/ai"
	"github.com/jeffreyouni/life-butler/server/queryengine"
)

// DataChecker reports how much of the data a query would aggregate over
// actually exists, as a fraction in [0,1].
type DataChecker interface {
	Availability(ctx context.Context, domains []string) float64
}

// Service runs the three classifier stages and fuses their scores.
// Stage 1 (rule) and stage 2 (semantic) always run; stage 3 (LLM) runs
// only when neither produced a decisive answer.
type Service struct {
	config   *Config
	rule     *RuleStage
	semantic *SemanticStage
	llm      *LLMStage
	data     DataChecker
}

// ServiceConfig wires the service's collaborators.
type ServiceConfig struct {
	Config *Config
	Chat   ai.ChatCompleter
	Data   DataChecker
}

// NewService creates a classifier service.
func NewService(cfg ServiceConfig) *Service {
	config := cfg.Config
	if config == nil {
		config = DefaultConfig()
	}
	return &Service{
		config:   config,
		rule:     NewRuleStage(config),
		semantic: NewSemanticStage(config),
		llm:      NewLLMStage(cfg.Chat),
		data:     cfg.Data,
	}
}

// Classify classifies the query and fuses the stage scores into a
// decision. It never returns a nil decision.
func (s *Service) Classify(ctx context.Context, query string, qc *queryengine.QueryContext) (*Decision, error) {
	start := time.Now()

	ruleResult := s.rule.Classify(query)
	semanticResult := s.semantic.Classify(query)

	var llmResult *StageResult
	if !ruleResult.HighConfidence && !s.semantic.Accepts(semanticResult) {
		llmResult = s.llm.Classify(ctx, query)
	}

	availability := 1.0
	if s.data != nil && qc != nil {
		availability = s.data.Availability(ctx, qc.TargetDomains)
	}

	decision := Fuse(s.config, ruleResult, semanticResult, llmResult, availability)

	slog.Debug("query classified",
		"input", truncate(query, 50),
		"intent", decision.PrimaryIntent,
		"confidence", decision.Confidence,
		"hybrid", decision.Hybrid,
		"mixed", decision.IsMixedQuery,
		"llm_stage_ran", llmResult != nil,
		"latency_ms", time.Since(start).Milliseconds())

	return decision, nil
}

// Route classifies the query and materializes the executable routing.
func (s *Service) Route(ctx context.Context, query string, qc *queryengine.QueryContext) (*Routing, error) {
	decision, err := s.Classify(ctx, query, qc)
	if err != nil {
		return nil, err
	}
	return BuildRouting(decision, query, qc), nil
}

// truncate truncates a string to maxLen bytes for log output.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

var _ Classifier = (*Service)(nil)
