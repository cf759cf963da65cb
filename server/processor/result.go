// Package processor executes routed queries and formats their results.
package processor

import (
	"time"

	"github.com/jeffreyouni/life-butler/plugin/ai/rag"
	"github.com/jeffreyouni/life-butler/plugin/ai/router"
	"github.com/jeffreyouni/life-butler/server/aggregator"
)

// Meta tags every result with its query, timing and confidence.
type Meta struct {
	Query          string
	ProcessingTime time.Duration
	Confidence     float64
}

// ProcessingResult is a closed sum over the three result kinds. Consumers
// switch over the concrete types; the marker method keeps the set closed
// so a new kind forces every switch to be revisited.
type ProcessingResult interface {
	processingResult()
	ResultMeta() Meta
}

// CalculationResult is the outcome of the calculation path.
type CalculationResult struct {
	Meta
	// Calculations maps a human label ("Total", "Average") to its value.
	Calculations map[string]float64
	// Summary is the natural-language explanation of the numbers.
	Summary string
	// Points are the contributing records.
	Points []aggregator.DataPoint
	// Categories is populated for by-category breakdowns.
	Categories []aggregator.CategoryTotal
	// Trend is populated for trend calculations.
	Trend *aggregator.Trend
}

// RetrievalResult is the outcome of the retrieval path.
type RetrievalResult struct {
	Meta
	Text           string
	Sources        []*rag.SearchResult
	GenerationType router.GenerationType
	Advice         string
}

// HybridResult wraps one result of each kind plus a synthesized narrative.
type HybridResult struct {
	Meta
	Calculation *CalculationResult
	Retrieval   *RetrievalResult
	Synthesis   string
}

func (*CalculationResult) processingResult() {}
func (*RetrievalResult) processingResult()   {}
func (*HybridResult) processingResult()      {}

func (r *CalculationResult) ResultMeta() Meta { return r.Meta }
func (r *RetrievalResult) ResultMeta() Meta   { return r.Meta }
func (r *HybridResult) ResultMeta() Meta      { return r.Meta }
