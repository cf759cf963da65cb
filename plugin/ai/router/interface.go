// Package router classifies query intent and turns the classification
// into executable processing specifications.
package router

import (
	"context"

	"github.com/jeffreyouni/life-butler/server/queryengine"
)

// Intent represents the coarse category of a query.
type Intent string

const (
	// IntentAggregate needs a computed number.
	IntentAggregate Intent = "aggregate"
	// IntentRetrieval needs search and explanation.
	IntentRetrieval Intent = "retrieval"
	// IntentReminder asks to be reminded of something.
	IntentReminder Intent = "reminder"
)

// intents is the fixed intent universe, in scoring order.
var intents = []Intent{IntentAggregate, IntentRetrieval, IntentReminder}

// StageResult is one classifier stage's verdict: a confidence per intent
// plus stage-specific metadata.
type StageResult struct {
	// Scores maps each intent to a confidence in [0,1].
	Scores map[Intent]float64
	// RawScores are the pre-normalization keyword scores (rule stage).
	RawScores map[Intent]float64
	// Language is the detected query language ("en" or "zh").
	Language string
	// Variants are the query paraphrases that were scored (rule stage).
	Variants []string
	// HighConfidence is set when the top normalized score clears the
	// high-confidence threshold (rule stage).
	HighConfidence bool
	// Mixed is set when the query asks for a quantity and an
	// explanation at once (rule stage).
	Mixed bool
	// Threshold is the dynamic acceptance threshold (semantic stage).
	Threshold float64
	// Margin is the gap between the best and second-best intent.
	Margin float64
	// Slots are LLM-extracted values (operation, domain, timeframe).
	Slots map[string]string
}

// Top returns the best-scoring intent and its score.
func (r *StageResult) Top() (Intent, float64) {
	var best Intent
	bestScore := -1.0
	for _, intent := range intents {
		if score := r.Scores[intent]; score > bestScore {
			best, bestScore = intent, score
		}
	}
	if bestScore < 0 {
		return "", 0
	}
	return best, bestScore
}

// Decision is the fused routing decision, keeping the three stage results
// for explainability.
type Decision struct {
	PrimaryIntent Intent
	Confidence    float64
	Hybrid        bool
	IsMixedQuery  bool

	Rule     *StageResult
	Semantic *StageResult
	LLM      *StageResult

	// FusedScores is the combined per-intent score map.
	FusedScores map[Intent]float64
}

// ProcessingPath selects how a routed query is executed.
type ProcessingPath string

const (
	PathCalculation ProcessingPath = "calculation"
	PathRetrieval   ProcessingPath = "retrieval"
	PathHybrid      ProcessingPath = "hybrid"
)

// CalculationOperation names one aggregation to run.
type CalculationOperation string

const (
	OpSum          CalculationOperation = "sum"
	OpAverage      CalculationOperation = "average"
	OpCount        CalculationOperation = "count"
	OpTrend        CalculationOperation = "trend"
	OpByCategory   CalculationOperation = "by_category"
	OpDailyAverage CalculationOperation = "daily_average"
)

// ContextNeeds is how much retrieved context a query needs.
type ContextNeeds string

const (
	ContextMinimal     ContextNeeds = "minimal"
	ContextModerate    ContextNeeds = "moderate"
	ContextExtensive   ContextNeeds = "extensive"
	ContextHistorical  ContextNeeds = "historical"
	ContextComparative ContextNeeds = "comparative"
)

// ResultBudget maps a context level to a search result count.
func (c ContextNeeds) ResultBudget() int {
	switch c {
	case ContextMinimal:
		return 3
	case ContextExtensive:
		return 8
	case ContextHistorical, ContextComparative:
		return 10
	default:
		return 5
	}
}

// GenerationType selects the register of the generated answer.
type GenerationType string

const (
	GenFactual    GenerationType = "factual"
	GenAnalytical GenerationType = "analytical"
	GenAdvisory   GenerationType = "advisory"
	GenNarrative  GenerationType = "narrative"
	GenSummary    GenerationType = "summary"
)

// CalculationSpecs tell the processor which aggregations to run.
type CalculationSpecs struct {
	Operations []CalculationOperation
	Filters    map[string]string
	TimeRange  *queryengine.TimeRange
	GroupBy    []string
	Domains    []string
}

// RetrievalSpecs tell the processor what to search and how to generate.
type RetrievalSpecs struct {
	Keywords       []string
	ContextNeeds   ContextNeeds
	GenerationType GenerationType
	Domains        []string
	TimeRange      *queryengine.TimeRange
}

// Routing is the router's executable output.
// Invariant: the specs required by Path are always non-nil.
type Routing struct {
	Path        ProcessingPath
	Calculation *CalculationSpecs
	Retrieval   *RetrievalSpecs
	Confidence  float64
	Decision    *Decision
}

// Classifier scores a query against the known intents.
type Classifier interface {
	Classify(ctx context.Context, query string, qc *queryengine.QueryContext) (*Decision, error)
}
